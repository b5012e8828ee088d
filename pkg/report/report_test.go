package report

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_RecordAndLookup(t *testing.T) {
	r := New(time.Unix(0, 0))
	r.Record(ChunkOutput{ChunkID: "000000000_to_000000999", Dataset: "blocks", RowCount: 1000, Status: StatusDone})

	out, ok := r.Lookup("blocks", "000000000_to_000000999")
	require.True(t, ok)
	assert.Equal(t, 1000, out.RowCount)
	assert.Equal(t, StatusDone, out.Status)

	_, ok = r.Lookup("blocks", "no_such_chunk")
	assert.False(t, ok)
}

func TestReport_RecordOverwritesSameKey(t *testing.T) {
	r := New(time.Unix(0, 0))
	r.Record(ChunkOutput{ChunkID: "c1", Dataset: "logs", Status: StatusFailed, Err: "boom"})
	r.Record(ChunkOutput{ChunkID: "c1", Dataset: "logs", Status: StatusDone})

	out, ok := r.Lookup("logs", "c1")
	require.True(t, ok)
	assert.Equal(t, StatusDone, out.Status)
	assert.Empty(t, out.Err)
	assert.Len(t, r.Entries(), 1)
}

func TestReport_DifferentDatasetsSameChunkIDDontCollide(t *testing.T) {
	r := New(time.Unix(0, 0))
	r.Record(ChunkOutput{ChunkID: "c1", Dataset: "logs", Status: StatusDone})
	r.Record(ChunkOutput{ChunkID: "c1", Dataset: "blocks", Status: StatusFailed})

	assert.Len(t, r.Entries(), 2)
	logs, _ := r.Lookup("logs", "c1")
	blocks, _ := r.Lookup("blocks", "c1")
	assert.Equal(t, StatusDone, logs.Status)
	assert.Equal(t, StatusFailed, blocks.Status)
}

func TestReport_WriteProducesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	r := New(time.Unix(100, 0))
	r.Record(ChunkOutput{ChunkID: "c1", Dataset: "blocks", RowCount: 10, Status: StatusDone})
	r.Finish(time.Unix(200, 0))

	path, err := r.Write(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, r.StartedAt.Format(reportTimestampLayout)+".json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), r.RunID.String())
	assert.Contains(t, string(data), `"dataset": "blocks"`)
}

func TestProgress_NilSafe(t *testing.T) {
	var p *Progress
	p.Add(5)
	p.Finish()
}

func TestProgress_AddAndFinish(t *testing.T) {
	p := NewProgress(10, io.Discard)
	p.Add(3)
	p.Add(7)
	p.Finish()
}
