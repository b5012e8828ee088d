package writer

import (
	"encoding/hex"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/paradigmxyz/cryo/pkg/column"
)

// writeCSV streams buf through gocsv's SafeCSVWriter, the library's escape
// hatch for schemas not known at compile time (every other gocsv entry
// point marshals tagged structs).
func writeCSV(w io.Writer, buf *column.Buffer, names []string) error {
	cw := gocsv.NewSafeCSVWriter(w)
	defer cw.Flush()

	if err := cw.Write(names); err != nil {
		return err
	}

	cols := make([]*column.Column, len(names))
	for i, name := range names {
		cols[i] = buf.Get(name)
	}

	row := make([]string, len(names))
	for r := 0; r < buf.Len(); r++ {
		for i, c := range cols {
			row[i] = cellString(c, r)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

func cellString(c *column.Column, row int) string {
	if c == nil || row >= len(c.Valid) || !c.Valid[row] {
		return ""
	}
	switch c.Kind {
	case column.KindUint64:
		return strconv.FormatUint(c.Uint64s[row], 10)
	case column.KindInt64:
		return strconv.FormatInt(c.Int64s[row], 10)
	case column.KindFloat64:
		return strconv.FormatFloat(c.Float64s[row], 'g', -1, 64)
	case column.KindString:
		return c.Strings[row]
	case column.KindBytes:
		return "0x" + hex.EncodeToString(c.Bytes[row])
	case column.KindBool:
		return strconv.FormatBool(c.Bools[row])
	default:
		return ""
	}
}
