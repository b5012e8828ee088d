package coordinator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/dataset"
	"github.com/paradigmxyz/cryo/pkg/metrics"
	"github.com/paradigmxyz/cryo/pkg/query"
	"github.com/paradigmxyz/cryo/pkg/report"
	"github.com/paradigmxyz/cryo/pkg/writer"
)

type fakeCaller struct {
	calls   atomic.Int64
	chainID uint64
}

func (f *fakeCaller) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	f.calls.Add(1)
	return json.RawMessage(`"0x2a"`), nil
}

func (f *fakeCaller) ChainID(ctx context.Context) (uint64, error) {
	return f.chainID, nil
}

func widgetsDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Name:             "widgets",
		RequiredMethods:  []string{"widget_get"},
		DefaultColumns:   []string{"block_number"},
		AvailableColumns: []string{"block_number"},
		DefaultSort:      []string{"block_number"},
		Plan: func(chunk *chunkpkg.Chunk, filters dataset.Filters, opts dataset.PlanOptions) ([]dataset.SubRequest, error) {
			var reqs []dataset.SubRequest
			for i, n := range chunk.Values() {
				reqs = append(reqs, dataset.SubRequest{Method: "widget_get", BlockNumber: n, Index: i})
			}
			return reqs, nil
		},
		Decode: func(buf *column.Buffer, req dataset.SubRequest, raw json.RawMessage, filters dataset.Filters, encodings []column.Encoding) error {
			buf.Column("block_number", column.KindUint64).AppendUint64(req.BlockNumber)
			return nil
		},
	}
}

func newTestQuery(outputDir string) *query.Query {
	return &query.Query{
		Datasets:    []*dataset.Dataset{widgetsDataset()},
		Chunks:      []*chunkpkg.Chunk{chunkpkg.NewRangeChunk(1, 2)},
		NetworkName: "ethereum",
		Limits:      query.Limits{MaxConcurrentChunks: 2},
		Output: query.OutputConfig{
			OutputDir: outputDir,
			Format:    query.FormatJSON,
			NoReport:  true,
		},
	}
}

func TestRun_WritesChunkAndRecordsDone(t *testing.T) {
	dir := t.TempDir()
	caller := &fakeCaller{chainID: 1}
	q := newTestQuery(dir)

	c := New(caller, q, zap.NewNop())
	r, err := c.Run(context.Background())
	require.NoError(t, err)

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, report.StatusDone, entries[0].Status)
	assert.Equal(t, 2, entries[0].RowCount)
	assert.FileExists(t, entries[0].FilePath)
	assert.Positive(t, caller.calls.Load())
}

func TestRun_WritesReportUnderDotCryoReportsByDefault(t *testing.T) {
	dir := t.TempDir()
	caller := &fakeCaller{chainID: 1}
	q := newTestQuery(dir)
	q.Output.NoReport = false

	c := New(caller, q, zap.NewNop())
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, ".cryo", "reports", "*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRun_SkipsExistingFileWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	caller := &fakeCaller{chainID: 1}
	q := newTestQuery(dir)
	q.Output.Overwrite = false

	path := writer.ChunkPath(q.Output, "widgets", "ethereum", q.Chunks[0], chunkpkg.StubWidth(q.Chunks))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o644))

	c := New(caller, q, zap.NewNop())
	r, err := c.Run(context.Background())
	require.NoError(t, err)

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, report.StatusSkipped, entries[0].Status)
	assert.Zero(t, caller.calls.Load())
}

func TestRun_DryRunIssuesNoRPCCalls(t *testing.T) {
	dir := t.TempDir()
	caller := &fakeCaller{chainID: 1}
	q := newTestQuery(dir)
	q.Dry = true

	c := New(caller, q, zap.NewNop())
	r, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, r.Entries())
	assert.Zero(t, caller.calls.Load())
}

func TestRun_RecordsMetricsWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	caller := &fakeCaller{chainID: 1}
	q := newTestQuery(dir)
	rec := metrics.NewRecorder()

	c := New(caller, q, zap.NewNop())
	c.Metrics = rec
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)

	var sawDoneChunk bool
	for _, fam := range families {
		if fam.GetName() != "cryo_chunks_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["dataset"] == "widgets" && labels["status"] == "done" && m.GetCounter().GetValue() == 1 {
				sawDoneChunk = true
			}
		}
	}
	assert.True(t, sawDoneChunk, "expected a cryo_chunks_total{dataset=widgets,status=done} sample")
}

func TestRun_ResolvesNetworkNameWhenUnset(t *testing.T) {
	dir := t.TempDir()
	caller := &fakeCaller{chainID: 137}
	q := newTestQuery(dir)
	q.NetworkName = ""

	c := New(caller, q, zap.NewNop())
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "polygon", q.NetworkName)
}
