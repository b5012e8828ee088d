package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

const ENV_VAR_PREFIX = "CRYO"

// Options holds the configuration values from the command-line arguments
// and environment variables, before they're resolved into a Config.
type Options struct {
	BlockSpec []string

	Datasets []string
	Include  []string
	Exclude  []string
	Replace  []string
	Hex      bool
	U256Types []string
	Sort     []string
	NoChainID bool

	RPCURL     string
	MaxRetries int
	InitialBackoffMs int

	MaxConcurrentChunks   int
	MaxConcurrentBlocks   int
	MaxConcurrentRequests int
	RequestsPerSecond     float64
	InnerRequestSize      int

	ChunkSize   uint64
	NChunks     uint64
	Align       bool
	ReorgBuffer uint64

	OutputDir    string
	Subdirs      []string
	Prefix       string
	Suffix       string
	Format       string
	Compression  string
	NoStats      bool
	RowGroupSize int
	Overwrite    bool
	ReportDir    string
	NoReport     bool

	Addresses        []string
	Topic0           []string
	Topic1           []string
	Topic2           []string
	Topic3           []string
	Slots            []string
	ToAddress        string
	FunctionSelector string
	EventSignature   string
	CallData         string

	NetworkName string
	Dry         bool
	Debug       bool
}

// ParseArgs parses command-line arguments and environment variables into a
// resolved Config, or returns (nil, nil) when the command printed help and
// exited without running (e.g. "cryo --help").
func ParseArgs(args []string, envs map[string]string) (*Config, error) {
	opts, err := ParseArgsAndEnvironment(args, envs)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		return nil, nil
	}
	return NewConfig(opts)
}

// ParseArgsAndEnvironment parses command-line arguments and environment
// variables into Options. Flags that define a CRYO_-prefixed env var
// fallback take it when the user didn't pass the flag explicitly; several
// flags (e.g. --include-columns, --n-chunks, --reorg-buffer, --no-stats)
// have no env fallback.
func ParseArgsAndEnvironment(args []string, envs map[string]string) (*Options, error) {
	hasResult := false
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "cryo [datasets...] [blocks...]",
		Short: "Extract EVM blockchain data to parquet, csv, or json",

		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			if opts.RPCURL == "" && !opts.Dry {
				return fmt.Errorf("--rpc is required unless --dry is set")
			}
			hasResult = true
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.StringSliceVar(&opts.Datasets, "datasets", splitNonEmpty(getPrefixedEnvVar(envs, "DATASETS", "")), "datasets to collect, comma-separated (required)")
	flags.StringSliceVar(&opts.BlockSpec, "blocks", splitNonEmpty(getPrefixedEnvVar(envs, "BLOCKS", "")), "block spec tokens, e.g. 0:1000, -1000:, 17M:+1000")

	flags.StringSliceVar(&opts.Include, "include-columns", nil, "columns to add to the dataset defaults")
	flags.StringSliceVar(&opts.Exclude, "exclude-columns", nil, "columns to drop from the dataset defaults")
	flags.StringSliceVar(&opts.Replace, "columns", nil, "exact column list, replacing the dataset defaults")
	flags.BoolVar(&opts.Hex, "hex", getPrefixedEnvBool(envs, "HEX", false), "has no effect on output: binary columns are always written as 0x-prefixed hex strings")
	flags.StringSliceVar(&opts.U256Types, "u256-types", nil, "u256 sibling encodings to materialize: binary, string, f64, u32, u64, d128")
	flags.StringSliceVar(&opts.Sort, "sort", nil, "columns to sort each chunk by; pass \"none\" to keep request order")
	flags.BoolVar(&opts.NoChainID, "no-chain-id", getPrefixedEnvBool(envs, "NO_CHAIN_ID", false), "omit the chain_id column")

	flags.StringVar(&opts.RPCURL, "rpc", getPrefixedEnvVar(envs, "RPC_URL", getEnv(envs, "ETH_RPC_URL", "")), "Ethereum JSON-RPC URL (required unless --dry)")
	flags.IntVar(&opts.MaxRetries, "max-retries", getPrefixedEnvInt(envs, "MAX_RETRIES", 5), "max retry attempts for a transient RPC failure")
	flags.IntVar(&opts.InitialBackoffMs, "initial-backoff-ms", getPrefixedEnvInt(envs, "INITIAL_BACKOFF_MS", 500), "initial retry backoff in milliseconds")

	flags.IntVar(&opts.MaxConcurrentChunks, "max-concurrent-chunks", getPrefixedEnvInt(envs, "MAX_CONCURRENT_CHUNKS", 4), "chunks processed at once")
	flags.IntVar(&opts.MaxConcurrentBlocks, "max-concurrent-blocks", getPrefixedEnvInt(envs, "MAX_CONCURRENT_BLOCKS", 4), "blocks fetched at once within a chunk")
	flags.IntVar(&opts.MaxConcurrentRequests, "max-concurrent-requests", getPrefixedEnvInt(envs, "MAX_CONCURRENT_REQUESTS", 32), "global in-flight RPC request ceiling")
	flags.Float64Var(&opts.RequestsPerSecond, "requests-per-second", getPrefixedEnvFloat(envs, "REQUESTS_PER_SECOND", 0), "global RPC request rate limit, 0 disables it")
	flags.IntVar(&opts.InnerRequestSize, "inner-request-size", getPrefixedEnvInt(envs, "INNER_REQUEST_SIZE", 0), "block window size for grouped requests like eth_getLogs, 0 uses the dataset default")

	flags.Uint64Var(&opts.ChunkSize, "chunk-size", uint64(getPrefixedEnvInt(envs, "CHUNK_SIZE", 1000)), "blocks per chunk")
	flags.Uint64Var(&opts.NChunks, "n-chunks", 0, "split the block set into exactly this many chunks instead of by chunk-size")
	flags.BoolVar(&opts.Align, "align", getPrefixedEnvBool(envs, "ALIGN", false), "align chunk boundaries to multiples of chunk-size")
	flags.Uint64Var(&opts.ReorgBuffer, "reorg-buffer", 0, "blocks to hold back from the chain tip")

	flags.StringVar(&opts.OutputDir, "output-dir", getPrefixedEnvVar(envs, "ROOT", "."), "output directory")
	flags.StringSliceVar(&opts.Subdirs, "subdirs", nil, "subdirectory segments: datatype, network, or a literal name")
	flags.StringVar(&opts.Prefix, "file-prefix", "", "output filename prefix, defaults to the network name")
	flags.StringVar(&opts.Suffix, "file-suffix", "", "output filename suffix")
	flags.StringVar(&opts.Format, "output-format", getPrefixedEnvVar(envs, "OUTPUT_FORMAT", "parquet"), "parquet, csv, or json")
	flags.StringVar(&opts.Compression, "compression", getPrefixedEnvVar(envs, "COMPRESSION", "lz4"), "parquet compression, algorithm[:level]")
	flags.BoolVar(&opts.NoStats, "no-stats", false, "omit parquet column statistics")
	flags.IntVar(&opts.RowGroupSize, "row-group-size", 0, "passed to the parquet writer as its page buffer size, 0 uses the writer default")
	flags.BoolVar(&opts.Overwrite, "overwrite", getPrefixedEnvBool(envs, "OVERWRITE", false), "overwrite existing chunk files instead of skipping them")
	flags.StringVar(&opts.ReportDir, "report-dir", "", "report output directory, defaults to {output-dir}/.cryo/reports")
	flags.BoolVar(&opts.NoReport, "no-report", false, "skip writing the run report")

	flags.StringSliceVar(&opts.Addresses, "address", nil, "contract/account addresses to filter on")
	flags.StringSliceVar(&opts.Topic0, "topic0", nil, "event signature hashes to filter on")
	flags.StringSliceVar(&opts.Topic1, "topic1", nil, "indexed topic 1 values to filter on")
	flags.StringSliceVar(&opts.Topic2, "topic2", nil, "indexed topic 2 values to filter on")
	flags.StringSliceVar(&opts.Topic3, "topic3", nil, "indexed topic 3 values to filter on")
	flags.StringSliceVar(&opts.Slots, "slot", nil, "storage slots to filter on")
	flags.StringVar(&opts.ToAddress, "to-address", "", "transaction recipient address to filter on")
	flags.StringVar(&opts.FunctionSelector, "function", "", "function selector to filter on")
	flags.StringVar(&opts.EventSignature, "event-signature", "", "event signature to filter on")
	flags.StringVar(&opts.CallData, "call-data", "", "hex-encoded call data to filter on")

	flags.StringVar(&opts.NetworkName, "network-name", getPrefixedEnvVar(envs, "NETWORK_NAME", ""), "network name used in output paths, defaults to the chain id's known name")
	flags.BoolVar(&opts.Dry, "dry", false, "resolve the query and print the plan without issuing any fetch")
	flags.BoolVar(&opts.Debug, "debug", getPrefixedEnvBool(envs, "DEBUG", false), "enable debug logging")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if hasResult {
		return opts, nil
	}
	return nil, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// Helper functions to get environment variables with default values
func getPrefixedEnvVar(envs map[string]string, key string, defaultValue string) string {
	return getEnv(envs, fmt.Sprintf("%s_%s", ENV_VAR_PREFIX, key), defaultValue)
}

func getEnv(envs map[string]string, key string, defaultValue string) string {
	if value, exists := envs[key]; exists {
		return value
	}
	return defaultValue
}

func getPrefixedEnvInt(envs map[string]string, key string, defaultValue int) int {
	return getEnvInt(envs, fmt.Sprintf("%s_%s", ENV_VAR_PREFIX, key), defaultValue)
}

func getEnvInt(envs map[string]string, key string, defaultValue int) int {
	if valueStr, exists := envs[key]; exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getPrefixedEnvBool(envs map[string]string, key string, defaultValue bool) bool {
	return getEnvBool(envs, fmt.Sprintf("%s_%s", ENV_VAR_PREFIX, key), defaultValue)
}

func getEnvBool(envs map[string]string, key string, defaultValue bool) bool {
	if valueStr, exists := envs[key]; exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getPrefixedEnvFloat(envs map[string]string, key string, defaultValue float64) float64 {
	return getEnvFloat(envs, fmt.Sprintf("%s_%s", ENV_VAR_PREFIX, key), defaultValue)
}

func getEnvFloat(envs map[string]string, key string, defaultValue float64) float64 {
	if valueStr, exists := envs[key]; exists {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func GetEnvAsMap() map[string]string {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := splitOnce(e, '=')
		envMap[pair[0]] = pair[1]
	}
	return envMap
}

func splitOnce(s string, sep rune) [2]string {
	for i, c := range s {
		if c == sep {
			return [2]string{s[:i], s[i+1:]}
		}
	}
	return [2]string{s, ""}
}
