// Package query defines Query, the boundary struct an external
// collaborator (the CLI, or any other caller) builds and hands to the
// coordinator. Nothing in the engine constructs a Query from flags;
// cmd/cryo is the one concrete producer in this repository.
package query

import (
	"time"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
	"github.com/paradigmxyz/cryo/pkg/dataset"
	"github.com/paradigmxyz/cryo/pkg/schema"
)

// OutputFormat names a writer backend.
type OutputFormat string

const (
	FormatParquet OutputFormat = "parquet"
	FormatCSV     OutputFormat = "csv"
	FormatJSON    OutputFormat = "json"
)

// OutputConfig controls where and how chunk files are written, mirroring
// the file-output parser's FileOutput struct.
type OutputConfig struct {
	OutputDir   string
	Subdirs     []string // "datatype", "network", or a literal custom segment
	Prefix      string   // network name, defaults resolved from chain id
	Suffix      string
	Format      OutputFormat
	Compression string // e.g. "lz4", "snappy", "zstd:3", "uncompressed"
	NoStats     bool
	RowGroupSize int
	Overwrite   bool
	ReportDir   string
	NoReport    bool
}

// Limits is the concurrency/rate/chunking configuration of §5.
type Limits struct {
	MaxConcurrentChunks   int
	MaxConcurrentBlocks   int
	MaxConcurrentRequests int
	RequestsPerSecond     float64
	MaxRetries            int
	InitialBackoff        time.Duration

	ChunkSize        uint64
	NChunks          uint64
	Align            bool
	ReorgBuffer      uint64
	InnerRequestSize uint64
}

// Query is built by the caller and checked by Validate. After that only
// two fields change: Validate fills in default U256Types, and the
// coordinator fills in NetworkName when it is empty.
type Query struct {
	Datasets    []*dataset.Dataset
	Chunks      []*chunkpkg.Chunk
	Projection  schema.Projection
	U256Types   []column.Encoding
	Filters     dataset.Filters
	Limits      Limits
	Output      OutputConfig
	Sort        []string
	ChainIDCol  bool
	NetworkName string
	RPCURL      string
	Dry         bool
}

// Validate enforces the construction-time invariants of §3/§7: at least
// one dataset and chunk, an rpc url unless dry-run, and a supported output
// format. It does not check the sort request. It also sets U256Types to
// binary and string when none were given.
func (q *Query) Validate() error {
	if len(q.Datasets) == 0 {
		return cryoerrors.NewInvalidQuery(nil, "query must name at least one dataset")
	}
	if len(q.Chunks) == 0 {
		return cryoerrors.NewInvalidQuery(nil, "query resolved no chunks to fetch")
	}
	if q.RPCURL == "" && !q.Dry {
		return cryoerrors.NewInvalidQuery(nil, "query requires an rpc url unless dry-run")
	}
	switch q.Output.Format {
	case FormatParquet, FormatCSV, FormatJSON, "":
	default:
		return cryoerrors.NewInvalidQuery(nil, "unsupported output format %q", q.Output.Format)
	}
	if len(q.U256Types) == 0 {
		q.U256Types = []column.Encoding{column.EncodingBinary, column.EncodingString}
	}
	return nil
}
