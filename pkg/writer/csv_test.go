package writer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paradigmxyz/cryo/pkg/column"
)

func TestWriteCSV_HeaderAndRows(t *testing.T) {
	buf := column.NewBuffer()
	buf.Column("block_number", column.KindUint64).AppendUint64(1)
	buf.Column("block_number", column.KindUint64).AppendUint64(2)
	buf.Column("hash", column.KindString).AppendString("0xaa")
	buf.Column("hash", column.KindString).AppendString("0xbb")

	var out strings.Builder
	require.NoError(t, writeCSV(&out, buf, []string{"block_number", "hash"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "block_number,hash", lines[0])
	assert.Equal(t, "1,0xaa", lines[1])
	assert.Equal(t, "2,0xbb", lines[2])
}

func TestWriteCSV_NullCellIsEmpty(t *testing.T) {
	buf := column.NewBuffer()
	col := buf.Column("value", column.KindUint64)
	col.AppendNullMarkedOutOfRange()

	var out strings.Builder
	require.NoError(t, writeCSV(&out, buf, []string{"value"}))
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Equal(t, "value", lines[0])
	assert.Equal(t, "", lines[1])
}
