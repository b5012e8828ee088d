package writer

import (
	"path/filepath"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/query"
)

func extensionFor(format query.OutputFormat) string {
	switch format {
	case query.FormatCSV:
		return "csv"
	case query.FormatJSON:
		return "json"
	default:
		return "parquet"
	}
}

// ChunkPath builds the output file path for one (dataset, chunk) pair:
// "{output_dir}/[{subdir}/...]/{prefix}__{dataset}__{min}_to_{max}[_suffix].{ext}".
// stubWidth should come from chunkpkg.StubWidth over the query's full chunk
// list, so every file in a run zero-pads to the width the largest block
// number in the run actually needs.
func ChunkPath(cfg query.OutputConfig, datasetName, networkName string, chunk *chunkpkg.Chunk, stubWidth int) string {
	dir := cfg.OutputDir
	for _, sub := range cfg.Subdirs {
		switch sub {
		case "datatype":
			dir = filepath.Join(dir, datasetName)
		case "network":
			dir = filepath.Join(dir, networkName)
		default:
			dir = filepath.Join(dir, sub)
		}
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = networkName
	}

	name := prefix + "__" + datasetName + "__" + chunk.Stub(stubWidth)
	if cfg.Suffix != "" {
		name += "_" + cfg.Suffix
	}
	name += "." + extensionFor(cfg.Format)

	return filepath.Join(dir, name)
}
