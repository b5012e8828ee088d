package writer

import (
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/paradigmxyz/cryo/pkg/column"
)

// writeJSON streams buf as newline-delimited JSON: one object per row, one
// row per line, with no enclosing array.
func writeJSON(w io.Writer, buf *column.Buffer, names []string) error {
	enc := json.NewEncoder(w)
	cols := make([]*column.Column, len(names))
	for i, name := range names {
		cols[i] = buf.Get(name)
	}

	row := make(map[string]interface{}, len(names))
	for r := 0; r < buf.Len(); r++ {
		for i, name := range names {
			row[name] = cellValue(cols[i], r)
		}
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func cellValue(c *column.Column, row int) interface{} {
	if c == nil || row >= len(c.Valid) || !c.Valid[row] {
		return nil
	}
	switch c.Kind {
	case column.KindUint64:
		return c.Uint64s[row]
	case column.KindInt64:
		return c.Int64s[row]
	case column.KindFloat64:
		return c.Float64s[row]
	case column.KindString:
		return c.Strings[row]
	case column.KindBytes:
		return "0x" + hex.EncodeToString(c.Bytes[row])
	case column.KindBool:
		return c.Bools[row]
	default:
		return nil
	}
}
