package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/dataset"
	"github.com/paradigmxyz/cryo/pkg/query"
)

// Config is the resolved, typed form of Options: every flag/env value has
// been parsed into its engine type. BlockSpec and Datasets are kept as raw
// strings because resolving them into chunks and *dataset.Dataset values
// requires the RPC client (for "latest" tokens and the chain tip) and the
// dataset registry, both of which are constructed after Config.
type Config struct {
	BlockSpec []string
	Datasets  []string

	Include    []string
	Exclude    []string
	Replace    []string
	Hex        bool
	U256Types  []column.Encoding
	Sort       []string
	ChainIDCol bool

	RPCURL         string
	MaxRetries     int
	InitialBackoff time.Duration

	Limits  query.Limits
	Output  query.OutputConfig
	Filters dataset.Filters

	NetworkName string
	Dry         bool
	Debug       bool
}

// NewConfig validates opts and converts it into a Config.
func NewConfig(opts *Options) (*Config, error) {
	format, err := parseOutputFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	encodings, err := parseU256Types(opts.U256Types)
	if err != nil {
		return nil, err
	}
	if len(opts.Datasets) == 0 {
		return nil, fmt.Errorf("--datasets is required")
	}
	filters, err := parseFilters(opts)
	if err != nil {
		return nil, err
	}

	backoff := time.Duration(opts.InitialBackoffMs) * time.Millisecond

	return &Config{
		BlockSpec: opts.BlockSpec,
		Datasets:  opts.Datasets,

		Include:    opts.Include,
		Exclude:    opts.Exclude,
		Replace:    opts.Replace,
		Hex:        opts.Hex,
		U256Types:  encodings,
		Sort:       opts.Sort,
		ChainIDCol: !opts.NoChainID,

		RPCURL:         opts.RPCURL,
		MaxRetries:     opts.MaxRetries,
		InitialBackoff: backoff,

		Limits: query.Limits{
			MaxConcurrentChunks:   opts.MaxConcurrentChunks,
			MaxConcurrentBlocks:   opts.MaxConcurrentBlocks,
			MaxConcurrentRequests: opts.MaxConcurrentRequests,
			RequestsPerSecond:     opts.RequestsPerSecond,
			MaxRetries:            opts.MaxRetries,
			InitialBackoff:        backoff,
			ChunkSize:             opts.ChunkSize,
			NChunks:               opts.NChunks,
			Align:                 opts.Align,
			ReorgBuffer:           opts.ReorgBuffer,
			InnerRequestSize:      uint64(opts.InnerRequestSize),
		},

		Output: query.OutputConfig{
			OutputDir:    opts.OutputDir,
			Subdirs:      opts.Subdirs,
			Prefix:       opts.Prefix,
			Suffix:       opts.Suffix,
			Format:       format,
			Compression:  opts.Compression,
			NoStats:      opts.NoStats,
			RowGroupSize: opts.RowGroupSize,
			Overwrite:    opts.Overwrite,
			ReportDir:    opts.ReportDir,
			NoReport:     opts.NoReport,
		},

		Filters: filters,

		NetworkName: opts.NetworkName,
		Dry:         opts.Dry,
		Debug:       opts.Debug,
	}, nil
}

func parseOutputFormat(s string) (query.OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "parquet":
		return query.FormatParquet, nil
	case "csv":
		return query.FormatCSV, nil
	case "json":
		return query.FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported --output-format %q", s)
	}
}

// parseFilters converts the dataset-filter flags' hex strings into the
// go-ethereum value types dataset.Filters carries.
func parseFilters(opts *Options) (dataset.Filters, error) {
	addresses, err := parseAddresses(opts.Addresses)
	if err != nil {
		return dataset.Filters{}, err
	}
	topics, err := parseTopics(opts.Topic0, opts.Topic1, opts.Topic2, opts.Topic3)
	if err != nil {
		return dataset.Filters{}, err
	}
	slots, err := parseHashes(opts.Slots)
	if err != nil {
		return dataset.Filters{}, err
	}

	filters := dataset.Filters{
		Addresses:        addresses,
		Topics:           topics,
		Slots:            slots,
		FunctionSelector: opts.FunctionSelector,
		EventSignature:   opts.EventSignature,
	}
	if opts.ToAddress != "" {
		addr := common.HexToAddress(opts.ToAddress)
		filters.ToAddress = &addr
	}
	if opts.CallData != "" {
		data, err := hexutil.Decode(opts.CallData)
		if err != nil {
			return dataset.Filters{}, fmt.Errorf("invalid --call-data %q: %w", opts.CallData, err)
		}
		filters.CallData = data
	}
	return filters, nil
}

func parseAddresses(raw []string) ([]common.Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}

func parseHashes(raw []string) ([]common.Hash, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]common.Hash, 0, len(raw))
	for _, s := range raw {
		if !hexutil.Has0xPrefix(s) {
			return nil, fmt.Errorf("invalid hash %q, expected a 0x-prefixed value", s)
		}
		out = append(out, common.HexToHash(s))
	}
	return out, nil
}

// parseTopics assembles the dataset.Filters.Topics matrix from the
// individually-flagged topic positions, one slice per position. A position
// the user left empty stays in the matrix as a nil slot, which means
// "don't filter on this position" to eth_getLogs. If every position is
// empty, the result is nil.
func parseTopics(positions ...[]string) ([][]common.Hash, error) {
	out := make([][]common.Hash, 0, len(positions))
	any := false
	for _, pos := range positions {
		hashes, err := parseHashes(pos)
		if err != nil {
			return nil, err
		}
		if len(hashes) > 0 {
			any = true
		}
		out = append(out, hashes)
	}
	if !any {
		return nil, nil
	}
	return out, nil
}

func parseU256Types(names []string) ([]column.Encoding, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]column.Encoding, 0, len(names))
	for _, name := range names {
		enc := column.Encoding(strings.ToLower(name))
		valid := false
		for _, known := range column.AllEncodings {
			if enc == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("unsupported --u256-types entry %q", name)
		}
		out = append(out, enc)
	}
	return out, nil
}
