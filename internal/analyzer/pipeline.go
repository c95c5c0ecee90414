package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/docspectre/internal/collector"
	"github.com/ppiankov/docspectre/internal/models"
	"github.com/ppiankov/docspectre/pkg/config"
	"github.com/rs/zerolog"
)

// OwnershipResolver attributes a document to an owner and last accessor
type OwnershipResolver interface {
	Enrich(ctx context.Context, file models.CandidateFile) models.Ownership
}

// PipelineOptions configures a pipeline run
type PipelineOptions struct {
	Concurrency int
	OnProgress  func(models.Progress) // called once per processed file, serialized
}

// Result is the outcome of a pipeline run
type Result struct {
	Accumulator *Accumulator
	Processed   int
	Skipped     int
	Duration    time.Duration
}

// Pipeline runs enrichment and analysis over discovered files on a worker pool
type Pipeline struct {
	enricher OwnershipResolver
	analyzer *Analyzer
	opts     PipelineOptions
	now      func() time.Time
	logger   zerolog.Logger
}

// NewPipeline creates a pipeline. Concurrency is clamped to [1, config.MaxConcurrency].
func NewPipeline(enricher OwnershipResolver, analyzer *Analyzer, opts PipelineOptions, logger zerolog.Logger) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Concurrency > config.MaxConcurrency {
		opts.Concurrency = config.MaxConcurrency
	}
	return &Pipeline{
		enricher: enricher,
		analyzer: analyzer,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run analyzes every file and waits for all of them before returning.
// Cancellation stops the run between files and returns the context error.
func (p *Pipeline) Run(ctx context.Context, files []models.CandidateFile) (*Result, error) {
	started := p.now()
	acc := NewAccumulator(started)

	var mu sync.Mutex
	processed, skipped := 0, 0

	handler := func(ctx context.Context, job collector.Job) {
		ownership := p.enricher.Enrich(ctx, job.File)
		record, err := p.analyzer.Analyze(ctx, job.Index, job.File, ownership)

		mu.Lock()
		defer mu.Unlock()

		processed++
		var stats models.RunStats
		if err != nil {
			skipped++
			stats = acc.Snapshot()
			p.logger.Error().
				Err(err).
				Str("path", job.File.Path).
				Msg("skipping file")
		} else {
			stats = acc.Add(*record)
			p.logger.Info().
				Str("path", job.File.Path).
				Int("versions", record.TotalVersionCount).
				Int64("total_bytes", record.TotalSizeBytes).
				Msg("file analyzed")
		}

		if p.opts.OnProgress != nil {
			p.opts.OnProgress(models.Progress{
				Current:  processed,
				Total:    len(files),
				FileName: job.File.Name,
				Stats:    stats,
				Elapsed:  p.now().Sub(started),
			})
		}
	}

	pool := collector.NewWorkerPool(p.opts.Concurrency, handler, p.logger)
	pool.Start(ctx)

	for i, file := range files {
		if !pool.Submit(collector.Job{Index: i, File: file}) {
			break
		}
	}

	if err := pool.Stop(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return &Result{
		Accumulator: acc,
		Processed:   processed,
		Skipped:     skipped,
		Duration:    p.now().Sub(started),
	}, nil
}
