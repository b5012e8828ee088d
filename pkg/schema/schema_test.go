package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/dataset"
)

func fakeDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Name:             "widgets",
		DefaultColumns:   []string{"block_number", "hash", "value"},
		AvailableColumns: []string{"block_number", "hash", "value", "extra"},
	}
}

func fakeBuffer() *column.Buffer {
	buf := column.NewBuffer()
	buf.Column("block_number", column.KindUint64).AppendUint64(1)
	buf.Column("hash", column.KindString).AppendString("0xabc")
	buf.Column("value", column.KindString).AppendString("1")
	buf.Column("extra", column.KindString).AppendString("z")
	return buf
}

func TestResolve_DefaultColumns(t *testing.T) {
	names, err := Projection{}.Resolve(fakeDataset())
	require.NoError(t, err)
	assert.Equal(t, []string{"block_number", "hash", "value"}, names)
}

func TestResolve_Exclude(t *testing.T) {
	names, err := Projection{Exclude: []string{"hash"}}.Resolve(fakeDataset())
	require.NoError(t, err)
	assert.Equal(t, []string{"block_number", "value"}, names)
}

func TestResolve_Include(t *testing.T) {
	names, err := Projection{Include: []string{"value", "extra"}}.Resolve(fakeDataset())
	require.NoError(t, err)
	assert.Equal(t, []string{"block_number", "hash", "value", "extra"}, names)
}

func TestResolve_IncludeSkipsColumnAlreadyInDefaults(t *testing.T) {
	names, err := Projection{Include: []string{"hash", "extra"}}.Resolve(fakeDataset())
	require.NoError(t, err)
	assert.Equal(t, []string{"block_number", "hash", "value", "extra"}, names)
}

func TestResolve_IncludeAndExcludeCompose(t *testing.T) {
	names, err := Projection{Include: []string{"extra"}, Exclude: []string{"hash"}}.Resolve(fakeDataset())
	require.NoError(t, err)
	assert.Equal(t, []string{"block_number", "value", "extra"}, names)
}

func TestResolve_ReplaceIgnoresExclude(t *testing.T) {
	names, err := Projection{Replace: []string{"extra"}, Exclude: []string{"extra"}}.Resolve(fakeDataset())
	require.NoError(t, err)
	assert.Equal(t, []string{"extra"}, names)
}

func TestResolve_UnknownColumnErrors(t *testing.T) {
	_, err := Projection{Include: []string{"nonexistent"}}.Resolve(fakeDataset())
	require.Error(t, err)
}

func TestProject_DropsUnselectedColumns(t *testing.T) {
	buf, names, err := Project(fakeBuffer(), fakeDataset(), Projection{Exclude: []string{"hash"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"block_number", "value"}, names)
	assert.Equal(t, []string{"block_number", "value"}, buf.Names())
	assert.Nil(t, buf.Get("hash"))
}
