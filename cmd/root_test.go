package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/paradigmxyz/cryo/pkg/report"
)

func TestSummarize_ZeroExitWithFailedChunks(t *testing.T) {
	r := report.New(time.Unix(0, 0))
	r.Record(report.ChunkOutput{ChunkID: "c1", Dataset: "blocks", Status: report.StatusDone})
	r.Record(report.ChunkOutput{ChunkID: "c2", Dataset: "blocks", Status: report.StatusFailed, Err: "boom"})

	assert.Equal(t, 0, summarize(r))
}

func TestSummarize_ZeroExitAllFailed(t *testing.T) {
	r := report.New(time.Unix(0, 0))
	r.Record(report.ChunkOutput{ChunkID: "c1", Dataset: "blocks", Status: report.StatusFailed, Err: "boom"})

	assert.Equal(t, 0, summarize(r))
}
