// Package reporter turns report views into CSV, XLSX and JSON artifacts,
// console output and run metrics.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/docspectre/internal/logging"
	"github.com/ppiankov/docspectre/internal/models"
	"github.com/rs/zerolog"
)

// Uploader copies written artifacts somewhere durable
type Uploader interface {
	Upload(ctx context.Context, files []string) ([]string, error)
}

// Options configures artifact generation
type Options struct {
	OutputDir   string
	StaleDays   int
	MetricsFile string // empty disables the Prometheus textfile
}

// Reporter writes every artifact of a run
type Reporter struct {
	opts     Options
	uploader Uploader
	logger   zerolog.Logger
}

// New creates a reporter. uploader may be nil.
func New(opts Options, uploader Uploader, logger zerolog.Logger) *Reporter {
	return &Reporter{
		opts:     opts,
		uploader: uploader,
		logger:   logger.With().Str("component", "reporter").Logger(),
	}
}

type artifact struct {
	kind  string
	path  string
	write func(path string) error
}

// Generate writes the CSV listing, the workbook and the JSON report.
// Artifacts are independent: a failed one is logged and left out of the
// returned paths, and the failures are joined into the error.
func (r *Reporter) Generate(ctx context.Context, report *models.Report, stats models.RunStats, duration time.Duration) ([]string, error) {
	if report == nil || report.Views == nil {
		return nil, fmt.Errorf("report has no views")
	}
	if err := os.MkdirAll(r.opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := filepath.Join(r.opts.OutputDir, "docspectre-"+report.Metadata.GeneratedAt.Format("20060102-150405"))
	sheets := SheetsFromViews(report.Views, r.opts.StaleDays)

	artifacts := []artifact{
		{kind: "csv", path: base + ".csv", write: func(p string) error { return WriteCSV(p, sheets[0]) }},
		{kind: "xlsx", path: base + ".xlsx", write: func(p string) error { return WriteWorkbook(p, sheets) }},
		{kind: "json", path: base + ".json", write: func(p string) error { return WriteJSON(p, report) }},
	}
	if r.opts.MetricsFile != "" {
		artifacts = append(artifacts, artifact{
			kind: "metrics",
			path: r.opts.MetricsFile,
			write: func(p string) error {
				m, err := NewRunMetrics(report.Metadata.Target)
				if err != nil {
					return err
				}
				m.Observe(report, stats, duration.Seconds())
				return m.WriteTextfile(p)
			},
		})
	}

	var written []string
	var errs []error
	for _, a := range artifacts {
		if err := a.write(a.path); err != nil {
			r.logger.Error().Err(err).Str("artifact", a.kind).Str("path", a.path).Msg("failed to write artifact")
			errs = append(errs, fmt.Errorf("%s: %w", a.kind, err))
			continue
		}
		logging.Success(r.logger).Str("artifact", a.kind).Str("path", a.path).Msg("artifact written")
		written = append(written, a.path)
	}

	if r.uploader != nil && len(written) > 0 {
		uploaded, err := r.uploader.Upload(ctx, written)
		if err != nil {
			r.logger.Error().Err(err).Msg("artifact upload failed")
			errs = append(errs, fmt.Errorf("upload: %w", err))
		}
		for _, u := range uploaded {
			logging.Success(r.logger).Str("url", u).Msg("artifact uploaded")
		}
	}

	return written, errors.Join(errs...)
}
