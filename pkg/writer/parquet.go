package writer

import (
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/query"
)

// writeParquet builds a schema from buf's columns and writes every row
// through one parquet-go writer, honoring the requested compression codec.
// A non-zero RowGroupSize is passed to parquet-go as its page buffer size;
// no cap on rows per row group is set.
func writeParquet(w io.Writer, buf *column.Buffer, names []string, cfg query.OutputConfig) error {
	cols := make([]*column.Column, len(names))
	group := make(parquet.Group, len(names))
	for i, name := range names {
		c := buf.Get(name)
		cols[i] = c
		group[name] = nodeFor(c)
	}
	schema := parquet.NewSchema("row", group)

	options := []parquet.WriterOption{schema}
	if codec := compressionCodec(cfg.Compression); codec != nil {
		options = append(options, parquet.Compression(codec))
	}
	if cfg.RowGroupSize > 0 {
		options = append(options, parquet.PageBufferSize(cfg.RowGroupSize))
	}
	// Column statistics (min/max per page) are on by default, per the
	// writer contract; --no-stats turns them off.
	options = append(options, parquet.DataPageStatistics(!cfg.NoStats))

	pw := parquet.NewWriter(w, options...)
	for r := 0; r < buf.Len(); r++ {
		row := make(map[string]interface{}, len(names))
		for i, name := range names {
			row[name] = cellValue(cols[i], r)
		}
		if _, err := pw.Write(row); err != nil {
			return err
		}
	}
	return pw.Close()
}

func nodeFor(c *column.Column) parquet.Node {
	if c == nil {
		return parquet.Optional(parquet.String())
	}
	switch c.Kind {
	case column.KindUint64:
		return parquet.Optional(parquet.Uint(64))
	case column.KindInt64:
		return parquet.Optional(parquet.Int(64))
	case column.KindFloat64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case column.KindBytes:
		return parquet.Optional(parquet.Leaf(parquet.ByteArrayType))
	case column.KindBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	default:
		return parquet.Optional(parquet.String())
	}
}

// compressionCodec maps the "--compression" flag's algorithm[:level] form
// onto a parquet-go codec, following the same algorithm/level grammar as
// the file-output parser it's grounded on. Only the algorithm is used; a
// ":level" part is accepted and ignored.
func compressionCodec(spec string) parquet.Compression {
	if spec == "" {
		return nil
	}
	algorithm := spec
	if idx := strings.IndexByte(spec, ':'); idx >= 0 {
		algorithm = spec[:idx]
	}
	switch algorithm {
	case "uncompressed":
		return &parquet.Uncompressed
	case "snappy":
		return &parquet.Snappy
	case "gzip":
		return &parquet.Gzip
	case "brotli":
		return &parquet.Brotli
	case "lz4", "lz4raw":
		return &parquet.Lz4Raw
	case "zstd":
		return &parquet.Zstd
	default:
		return nil
	}
}
