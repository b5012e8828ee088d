// Package coordinator drains a query's (dataset, chunk) work items into the
// fetch pipeline under a chunks-in-flight semaphore, writes each resulting
// buffer through the writer, and finalizes a report. It is the top-level
// loop the CLI calls; everything below it is engine machinery with no
// knowledge of cobra, flags, or the process environment.
package coordinator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
	"github.com/paradigmxyz/cryo/pkg/dataset"
	"github.com/paradigmxyz/cryo/pkg/fetchpipeline"
	"github.com/paradigmxyz/cryo/pkg/metrics"
	"github.com/paradigmxyz/cryo/pkg/query"
	"github.com/paradigmxyz/cryo/pkg/report"
	"github.com/paradigmxyz/cryo/pkg/schema"
	"github.com/paradigmxyz/cryo/pkg/writer"
)

// Coordinator owns the RPC client and writer for the lifetime of one run.
type Coordinator struct {
	client    fetchpipeline.Caller
	query     *query.Query
	pipeline  *fetchpipeline.Pipeline
	logger    *zap.Logger
	stubWidth int

	// ProgressOutput receives the terminal progress bar; nil disables it.
	ProgressOutput io.Writer

	// Metrics, if set, receives per-chunk and byte-count observations. Nil
	// disables metrics entirely; every Recorder method is nil-receiver safe.
	Metrics *metrics.Recorder
}

// New builds a Coordinator for q, driving RPC traffic through client.
func New(client fetchpipeline.Caller, q *query.Query, logger *zap.Logger) *Coordinator {
	pipeline := fetchpipeline.New(client, fetchpipeline.Options{
		MaxConcurrentBlocks: q.Limits.MaxConcurrentBlocks,
		InnerRequestSize:    q.Limits.InnerRequestSize,
		U256Encodings:       q.U256Types,
		StampChainID:        q.ChainIDCol,
		Sort:                q.Sort,
	}, logger)
	return &Coordinator{
		client:    client,
		query:     q,
		pipeline:  pipeline,
		logger:    logger,
		stubWidth: chunkpkg.StubWidth(q.Chunks),
	}
}

// workItem is one (dataset, chunk) unit queued for the chunks-in-flight
// semaphore.
type workItem struct {
	dataset *dataset.Dataset
	chunk   *chunkpkg.Chunk
}

// Run resolves the network name (if not already set), plans and executes
// every (dataset, chunk) work item under the configured concurrency limit,
// and returns the finished report. In dry-run mode it plans and logs the
// resolved schema and work-item count without issuing any fetch beyond the
// chain id lookup already cached by the RPC client.
func (c *Coordinator) Run(ctx context.Context) (*report.Report, error) {
	r := report.New(time.Now())

	if err := c.resolveNetworkName(ctx); err != nil {
		return r, err
	}

	items := make([]workItem, 0, len(c.query.Datasets)*len(c.query.Chunks))
	for _, d := range c.query.Datasets {
		for _, chunk := range c.query.Chunks {
			items = append(items, workItem{dataset: d, chunk: chunk})
		}
	}

	if c.query.Dry {
		for _, d := range c.query.Datasets {
			cols, err := c.query.Projection.Resolve(d)
			if err != nil {
				return r, err
			}
			c.logger.Sugar().Infow("dry run schema", "dataset", d.Name, "columns", cols)
		}
		c.logger.Sugar().Infow("dry run plan",
			"datasets", len(c.query.Datasets),
			"chunks", len(c.query.Chunks),
			"work_items", len(items),
			"network", c.query.NetworkName,
		)
		r.Finish(time.Now())
		return r, nil
	}

	var progress *report.Progress
	if c.ProgressOutput != nil {
		progress = report.NewProgress(len(items), c.ProgressOutput)
	}

	sem := semaphore.NewWeighted(int64(maxInt(c.query.Limits.MaxConcurrentChunks, 1)))
	group, groupCtx := errgroup.WithContext(ctx)

	for _, item := range items {
		if err := sem.Acquire(groupCtx, 1); err != nil {
			// The group context was cancelled by a fatal sibling error, or
			// the caller's context was cancelled; either way, stop queuing.
			break
		}
		group.Go(func() error {
			defer sem.Release(1)
			return c.runItem(groupCtx, r, item, progress)
		})
	}

	err := group.Wait()
	if progress != nil {
		progress.Finish()
	}
	r.Finish(time.Now())

	if !c.query.Output.NoReport && c.query.Output.OutputDir != "" {
		dir := c.query.Output.ReportDir
		if dir == "" {
			dir = filepath.Join(c.query.Output.OutputDir, ".cryo", "reports")
		}
		if _, werr := r.Write(dir); werr != nil {
			c.logger.Sugar().Errorw("failed to write report", "error", werr)
		}
	}

	return r, err
}

// runItem fetches, projects, and writes a single (dataset, chunk) unit,
// recording its outcome in r. It returns a non-nil error only for a fatal
// Kind (InvalidQuery, NetworkUnavailable); every other failure is recorded
// as a Failed chunk and swallowed so sibling chunks keep running.
func (c *Coordinator) runItem(ctx context.Context, r *report.Report, item workItem, progress *report.Progress) error {
	start := time.Now()
	chunkID := item.chunk.Stub(c.stubWidth)
	path := writer.ChunkPath(c.query.Output, item.dataset.Name, c.query.NetworkName, item.chunk, c.stubWidth)

	defer func() {
		if progress != nil {
			progress.Add(1)
		}
	}()

	if !c.query.Output.Overwrite {
		if exists, err := pathExists(path); err != nil {
			return c.fail(r, item, chunkID, path, start, err)
		} else if exists {
			c.Metrics.ObserveChunk(item.dataset.Name, string(report.StatusSkipped))
			r.Record(report.ChunkOutput{
				ChunkID:  chunkID,
				Dataset:  item.dataset.Name,
				FilePath: path,
				Status:   report.StatusSkipped,
				Duration: time.Since(start),
			})
			return nil
		}
	}

	buf, err := c.pipeline.FetchChunk(ctx, item.dataset, item.chunk, c.query.Filters)
	if err != nil {
		return c.fail(r, item, chunkID, path, start, err)
	}

	projected, names, err := schema.Project(buf, item.dataset, c.query.Projection)
	if err != nil {
		return c.fail(r, item, chunkID, path, start, err)
	}

	written, err := writer.WriteChunk(projected, names, c.query.Output, path)
	if err != nil {
		return c.fail(r, item, chunkID, path, start, err)
	}

	status := report.StatusDone
	var bytesWritten int64
	if !written {
		status = report.StatusSkipped
	} else if info, statErr := os.Stat(path); statErr == nil {
		bytesWritten = info.Size()
	}
	c.Metrics.ObserveChunk(item.dataset.Name, string(status))
	c.Metrics.AddBytesWritten(bytesWritten)
	r.Record(report.ChunkOutput{
		ChunkID:  chunkID,
		Dataset:  item.dataset.Name,
		FilePath: path,
		RowCount: projected.Len(),
		Bytes:    bytesWritten,
		Status:   status,
		Duration: time.Since(start),
	})
	return nil
}

// fail records a chunk as Failed and, for fatal error kinds, returns it so
// Run's errgroup cancels every other in-flight chunk.
func (c *Coordinator) fail(r *report.Report, item workItem, chunkID, path string, start time.Time, err error) error {
	c.Metrics.ObserveChunk(item.dataset.Name, string(report.StatusFailed))
	r.Record(report.ChunkOutput{
		ChunkID:  chunkID,
		Dataset:  item.dataset.Name,
		FilePath: path,
		Status:   report.StatusFailed,
		Duration: time.Since(start),
		Err:      err.Error(),
	})
	c.logger.Sugar().Errorw("chunk failed",
		"dataset", item.dataset.Name,
		"chunk", chunkID,
		"error", err,
	)
	if cryoerrors.IsFatal(err) {
		return err
	}
	return nil
}

func (c *Coordinator) resolveNetworkName(ctx context.Context) error {
	if c.query.NetworkName != "" {
		return nil
	}
	chainID, err := c.client.ChainID(ctx)
	if err != nil {
		return cryoerrors.NewNetworkUnavailable(err, "resolving chain id for network name")
	}
	c.query.NetworkName = writer.NetworkName(chainID)
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
