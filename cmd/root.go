// Package cmd is the thin CLI wrapper around the engine: it parses flags
// and environment into a config.Config, resolves that into a query.Query,
// and hands the query to the coordinator. No parsing logic that belongs to
// the engine (block-spec grammar, dataset alias expansion, chunk sizing)
// lives here.
package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/paradigmxyz/cryo/internal/config"
	"github.com/paradigmxyz/cryo/internal/logger"
	"github.com/paradigmxyz/cryo/pkg/blockspec"
	"github.com/paradigmxyz/cryo/pkg/coordinator"
	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
	"github.com/paradigmxyz/cryo/pkg/dataset"
	"github.com/paradigmxyz/cryo/pkg/metrics"
	"github.com/paradigmxyz/cryo/pkg/query"
	"github.com/paradigmxyz/cryo/pkg/report"
	"github.com/paradigmxyz/cryo/pkg/rpcclient"
	"github.com/paradigmxyz/cryo/pkg/schema"
)

// Execute parses the process's command-line arguments and environment,
// runs the resulting query to completion, and returns the process exit
// code: 0 on a clean run (or on --help) even if some chunks failed and
// are recorded as such in the report, 1 on a fatal setup/query error or
// if no chunks could be attempted at all.
func Execute() int {
	cfg, err := config.ParseArgs(os.Args[1:], config.GetEnvAsMap())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg == nil {
		return 0
	}

	log, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer log.Sync() //nolint:errcheck

	r, err := run(context.Background(), cfg, log)
	if err != nil {
		log.Sugar().Errorw("run failed", "error", err)
		return 1
	}
	if cfg.Dry {
		return 0
	}
	return summarize(r)
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) (*report.Report, error) {
	rec := metrics.NewRecorder()

	client := rpcclient.NewClient(&rpcclient.Config{
		BaseURL:               cfg.RPCURL,
		MaxConcurrentRequests: cfg.Limits.MaxConcurrentRequests,
		RequestsPerSecond:     cfg.Limits.RequestsPerSecond,
		MaxRetries:            cfg.MaxRetries,
		InitialBackoff:        cfg.InitialBackoff,
		Metrics:               rec,
	}, log)

	registry := dataset.NewRegistry()
	datasets, err := registry.Expand(cfg.Datasets)
	if err != nil {
		return nil, err
	}

	chunks, err := blockspec.Resolve(ctx, cfg.BlockSpec, client, blockspec.ResolveOptions{
		ChunkSize:   cfg.Limits.ChunkSize,
		NChunks:     cfg.Limits.NChunks,
		Align:       cfg.Limits.Align,
		ReorgBuffer: cfg.Limits.ReorgBuffer,
	})
	if err != nil {
		return nil, cryoerrors.NewInvalidQuery(err, "resolving block spec")
	}

	q := &query.Query{
		Datasets: datasets,
		Chunks:   chunks,
		Projection: schema.Projection{
			Include: cfg.Include,
			Exclude: cfg.Exclude,
			Replace: cfg.Replace,
			Hex:     cfg.Hex,
		},
		U256Types:   cfg.U256Types,
		Filters:     cfg.Filters,
		Limits:      cfg.Limits,
		Output:      cfg.Output,
		Sort:        cfg.Sort,
		ChainIDCol:  cfg.ChainIDCol,
		NetworkName: cfg.NetworkName,
		RPCURL:      cfg.RPCURL,
		Dry:         cfg.Dry,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	c := coordinator.New(client, q, log)
	c.Metrics = rec
	if !cfg.Dry {
		c.ProgressOutput = os.Stderr
	}
	return c.Run(ctx)
}

func summarize(r *report.Report) int {
	var done, skipped, failed int
	for _, e := range r.Entries() {
		switch e.Status {
		case report.StatusDone:
			done++
		case report.StatusSkipped:
			skipped++
		case report.StatusFailed:
			failed++
			fmt.Fprintf(os.Stderr, "chunk %s/%s failed: %s\n", e.Dataset, e.ChunkID, e.Err)
		}
	}
	fmt.Printf("%d done, %d skipped, %d failed\n", done, skipped, failed)
	return 0
}
