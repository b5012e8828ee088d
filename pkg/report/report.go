// Package report tracks the per-chunk outcome of a run and writes the
// summary as a JSON file (by default under {output_dir}/.cryo/reports),
// recording which chunks were done, skipped or failed. Nothing in this
// repository reads a report back; a rerun decides what to skip by whether
// each chunk's output file exists.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
)

// Status is the terminal state of one chunk's processing.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ChunkOutput is one chunk's result: which dataset, which file, how many
// rows and bytes it wrote, how long it took, and how it ended.
type ChunkOutput struct {
	ChunkID  string        `json:"chunk_id"`
	Dataset  string        `json:"dataset"`
	FilePath string        `json:"file_path,omitempty"`
	RowCount int           `json:"row_count"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration_ns"`
	Status   Status        `json:"status"`
	Err      string        `json:"error,omitempty"`
}

// Report is the run-level summary: one entry per (dataset, chunk) unit of
// work, keyed by "{dataset}/{chunk_id}" so entries never collide across
// datasets sharing a chunk.
type Report struct {
	RunID      uuid.UUID               `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`

	mu      sync.Mutex
	entries map[string]*ChunkOutput
}

// New starts a Report with a fresh run id and the current time as the
// start time.
func New(now time.Time) *Report {
	return &Report{
		RunID:     uuid.New(),
		StartedAt: now,
		entries:   make(map[string]*ChunkOutput),
	}
}

func entryKey(dataset, chunkID string) string {
	return dataset + "/" + chunkID
}

// Record stores or overwrites the outcome of one (dataset, chunk) unit.
// Safe for concurrent use by coordinator workers.
func (r *Report) Record(out ChunkOutput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryKey(out.Dataset, out.ChunkID)] = &out
}

// Lookup returns the previously recorded outcome for (dataset, chunkID),
// if any. The coordinator does not call it; it decides whether to skip a
// chunk by checking whether the chunk's output file already exists.
func (r *Report) Lookup(dataset, chunkID string) (*ChunkOutput, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.entries[entryKey(dataset, chunkID)]
	return out, ok
}

// Entries returns a snapshot slice of every recorded outcome, in no
// particular order.
func (r *Report) Entries() []*ChunkOutput {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ChunkOutput, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Finish stamps the finish time, used right before Write.
func (r *Report) Finish(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = now
}

// reportDoc is the JSON shape written to disk; Report's internal mutex and
// map aren't directly marshalable so Write builds this explicitly.
type reportDoc struct {
	RunID      uuid.UUID      `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Chunks     []*ChunkOutput `json:"chunks"`
}

// reportTimestampLayout names a report file after the run's start time,
// matching cryo's own "%Y-%m-%d_%H-%M-%S" report filename format.
const reportTimestampLayout = "2006-01-02_15-04-05"

// Write renders the report as indented JSON at dir/{started_at}.json.
func (r *Report) Write(dir string) (string, error) {
	r.mu.Lock()
	doc := reportDoc{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Chunks:     make([]*ChunkOutput, 0, len(r.entries)),
	}
	for _, e := range r.entries {
		doc.Chunks = append(doc.Chunks, e)
	}
	r.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", cryoerrors.NewIoError(err, "creating report directory %q", dir)
	}
	path := filepath.Join(dir, r.StartedAt.Format(reportTimestampLayout)+".json")
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", cryoerrors.NewIoError(err, "marshaling report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", cryoerrors.NewIoError(err, "writing report to %q", path)
	}
	return path, nil
}
