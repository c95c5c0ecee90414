package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/docspectre/internal/models"
	"github.com/ppiankov/docspectre/internal/retry"
	"github.com/rs/zerolog"
)

// Searcher pages through the document search index
type Searcher interface {
	Search(ctx context.Context, query Query, offset, limit int) ([]models.SearchRow, error)
}

// DiscoveryOptions controls paging and admission of search results
type DiscoveryOptions struct {
	Query     Query
	PageSize  int
	MaxFiles  int
	PageDelay time.Duration
	Exclude   func(path string) bool // user exclude globs, optional
	Retry     retry.Policy
}

// Discovery finds the largest candidate documents
type Discovery struct {
	searcher Searcher
	opts     DiscoveryOptions
	throttle *Throttle
	logger   zerolog.Logger
}

// NewDiscovery creates a discovery phase over searcher
func NewDiscovery(searcher Searcher, opts DiscoveryOptions, logger zerolog.Logger) *Discovery {
	return &Discovery{
		searcher: searcher,
		opts:     opts,
		throttle: NewIntervalThrottle(opts.PageDelay),
		logger:   logger.With().Str("component", "discovery").Logger(),
	}
}

// Discover pages through the index from offset 0 until a short or empty page,
// then returns admitted files deduplicated by path, largest first, truncated to MaxFiles.
// An empty result is not an error.
func (d *Discovery) Discover(ctx context.Context) ([]models.CandidateFile, error) {
	if d.opts.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be > 0, got %d", d.opts.PageSize)
	}

	d.logger.Info().
		Str("query", d.opts.Query.String()).
		Int("page_size", d.opts.PageSize).
		Msg("searching for candidate files")

	var admitted []models.CandidateFile
	offset := 0
	excluded := 0

	for {
		if err := d.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		rows, err := retry.Do(ctx, d.opts.Retry, "search", func(ctx context.Context) ([]models.SearchRow, error) {
			return d.searcher.Search(ctx, d.opts.Query, offset, d.opts.PageSize)
		})
		if err != nil {
			return nil, fmt.Errorf("search failed at offset %d: %w", offset, err)
		}

		for _, row := range rows {
			file := models.NewCandidateFile(row)
			if d.isExcluded(row, file) {
				excluded++
				continue
			}
			admitted = append(admitted, file)
		}

		d.logger.Debug().
			Int("offset", offset).
			Int("rows", len(rows)).
			Int("admitted", len(admitted)).
			Msg("search page processed")

		if len(rows) < d.opts.PageSize {
			break
		}
		offset += d.opts.PageSize
	}

	files := RankCandidates(admitted, d.opts.MaxFiles)

	d.logger.Info().
		Int("found", len(admitted)).
		Int("excluded", excluded).
		Int("selected", len(files)).
		Msg("discovery complete")

	return files, nil
}

func (d *Discovery) isExcluded(row models.SearchRow, file models.CandidateFile) bool {
	if IsPageArtifact(row.FileType, file.Extension) {
		return true
	}
	if IsSystemPath(file.Path) {
		return true
	}
	if d.opts.Exclude != nil && d.opts.Exclude(file.Path) {
		return true
	}
	return false
}

// RankCandidates deduplicates by path keeping the first occurrence,
// sorts by size descending (stable), and keeps at most topN files.
// topN <= 0 keeps everything.
func RankCandidates(files []models.CandidateFile, topN int) []models.CandidateFile {
	seen := make(map[string]bool, len(files))
	unique := make([]models.CandidateFile, 0, len(files))
	for _, f := range files {
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		unique = append(unique, f)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Size > unique[j].Size
	})

	if topN > 0 && len(unique) > topN {
		unique = unique[:topN]
	}
	return unique
}

// IsPageArtifact reports whether a result is a site page or form rather than a document
func IsPageArtifact(fileType, extension string) bool {
	return strings.EqualFold(strings.TrimSpace(fileType), "aspx") ||
		models.NormalizeExtension(extension) == "aspx"
}

// IsSystemPath reports whether any path segment is hidden (leading underscore)
// or a list forms folder
func IsSystemPath(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if strings.HasPrefix(segment, "_") || strings.EqualFold(segment, "Forms") {
			return true
		}
	}
	return false
}
