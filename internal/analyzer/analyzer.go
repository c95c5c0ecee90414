// Package analyzer computes the version-history storage cost of documents.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/docspectre/internal/models"
	"github.com/ppiankov/docspectre/internal/retry"
	"github.com/rs/zerolog"
)

const hoursPerDay = 24

// VersionLister reads the historical versions of a document
type VersionLister interface {
	ListVersions(ctx context.Context, file models.CandidateFile) ([]models.VersionEntry, error)
}

// FileError marks a document whose record cannot be built.
// The file is dropped from the run.
type FileError struct {
	Path   string
	Reason string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("cannot analyze %s: %s", e.Path, e.Reason)
}

// IsFileError reports whether err is (or wraps) a FileError
func IsFileError(err error) bool {
	var fe *FileError
	return errors.As(err, &fe)
}

// Analyzer builds one AnalysisRecord per document
type Analyzer struct {
	versions VersionLister
	retry    retry.Policy
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a new analyzer
func New(versions VersionLister, policy retry.Policy, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		versions: versions,
		retry:    policy,
		now:      time.Now,
		logger:   logger.With().Str("component", "analyzer").Logger(),
	}
}

// SetClock replaces the clock used for days-since-last-accessed
func (a *Analyzer) SetClock(now func() time.Time) {
	a.now = now
}

// Analyze fetches the version history of file and computes its cost metrics.
// Exhausted version retries count as no history; validation failures return a *FileError.
func (a *Analyzer) Analyze(ctx context.Context, index int, file models.CandidateFile, ownership models.Ownership) (*models.AnalysisRecord, error) {
	if err := validateFile(file); err != nil {
		return nil, err
	}

	versions, err := retry.Do(ctx, a.retry, "list versions", func(ctx context.Context) ([]models.VersionEntry, error) {
		return a.versions.ListVersions(ctx, file)
	})
	if err != nil {
		// A cancelled run must not count the file with a truncated history
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.logger.Warn().
			Err(err).
			Str("path", file.Path).
			Msg("version history unavailable, counting current version only")
		versions = nil
	}

	return Compute(index, file, ownership, versions, a.now())
}

// Compute derives the record for file from its historical versions
func Compute(index int, file models.CandidateFile, ownership models.Ownership, versions []models.VersionEntry, now time.Time) (*models.AnalysisRecord, error) {
	if err := validateFile(file); err != nil {
		return nil, err
	}

	total := file.Size
	oldest := file.Created
	largest := file.Size
	smallest := file.Size

	for i, v := range versions {
		if v.Size < 0 {
			return nil, &FileError{Path: file.Path, Reason: fmt.Sprintf("version %d has negative size %d", i, v.Size)}
		}
		if v.Created.IsZero() {
			return nil, &FileError{Path: file.Path, Reason: fmt.Sprintf("version %d has no created timestamp", i)}
		}

		total += v.Size
		if v.Created.Before(oldest) {
			oldest = v.Created
		}
		if v.Size > largest {
			largest = v.Size
		}
		if v.Size < smallest {
			smallest = v.Size
		}
	}

	count := 1 + len(versions)
	overhead := total - file.Size

	record := &models.AnalysisRecord{
		Index:                 index,
		CandidateFile:         file,
		Ownership:             ownership,
		TotalVersionCount:     count,
		TotalSizeBytes:        total,
		OverheadBytes:         overhead,
		OverheadPercent:       overheadPercent(overhead, file.Size),
		OldestVersionDate:     oldest,
		VersionSpanDays:       spanDays(oldest, file.LastModified),
		AverageVersionSizeMB:  models.Round(float64(total)/models.BytesPerMB/float64(count), 2),
		LargestVersionMB:      models.ToMB(largest),
		SmallestVersionMB:     models.ToMB(smallest),
		DaysSinceLastAccessed: models.Round(now.Sub(ownership.LastAccessedDate).Hours()/hoursPerDay, 1),
	}
	return record, nil
}

func validateFile(file models.CandidateFile) error {
	switch {
	case file.Size < 0:
		return &FileError{Path: file.Path, Reason: fmt.Sprintf("negative size %d", file.Size)}
	case file.Created.IsZero():
		return &FileError{Path: file.Path, Reason: "missing created timestamp"}
	case file.LastModified.IsZero():
		return &FileError{Path: file.Path, Reason: "missing last-modified timestamp"}
	}
	return nil
}

// overheadPercent is 0 for empty documents, whatever their history holds
func overheadPercent(overhead, current int64) float64 {
	if current == 0 {
		return 0
	}
	return models.Round(100*float64(overhead)/float64(current), 1)
}

// spanDays is clamped at zero when the history claims to start after the last edit
func spanDays(oldest, lastModified time.Time) float64 {
	days := lastModified.Sub(oldest).Hours() / hoursPerDay
	if days < 0 {
		return 0
	}
	return models.Round(days, 1)
}
