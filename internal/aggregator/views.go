// Package aggregator derives the report views from analysis records.
// Every function here is pure: same records in, same views out.
package aggregator

import (
	"sort"
	"strings"

	"github.com/ppiankov/docspectre/internal/models"
)

const (
	DefaultStaleDays        = 90
	DefaultTopOverheadLimit = 50

	// NoExtension groups documents without a file extension
	NoExtension = "(none)"
)

// Options tunes view thresholds
type Options struct {
	StaleDays        int // strictly greater than this is stale
	TopOverheadLimit int
}

func (o Options) normalized() Options {
	if o.StaleDays <= 0 {
		o.StaleDays = DefaultStaleDays
	}
	if o.TopOverheadLimit <= 0 {
		o.TopOverheadLimit = DefaultTopOverheadLimit
	}
	return o
}

// BuildViews computes every view. records must be in discovery order;
// all sorts are stable so ties keep that order.
func BuildViews(records []models.AnalysisRecord, stats models.RunStats, opts Options) *models.Views {
	opts = opts.normalized()

	return &models.Views{
		FullListing: FullListing(records),
		Summary:     BuildSummary(stats),
		TopOverhead: TopOverhead(records, opts.TopOverheadLimit),
		ByOwner:     ByOwner(records),
		StaleFiles:  StaleFiles(records, opts.StaleDays),
		ByFileType:  ByFileType(records),
	}
}

// FullListing orders every record by total size across versions, largest first
func FullListing(records []models.AnalysisRecord) []models.AnalysisRecord {
	out := clone(records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSizeBytes > out[j].TotalSizeBytes
	})
	return out
}

// BuildSummary rolls the run counters up into GB figures
func BuildSummary(stats models.RunStats) models.Summary {
	overhead := stats.TotalVersionBytes - stats.TotalCurrentBytes

	summary := models.Summary{
		FilesAnalyzed:        stats.FilesAnalyzed,
		FilesWithVersions:    stats.FilesWithVersions,
		FilesWithoutVersions: stats.FilesAnalyzed - stats.FilesWithVersions,
		TotalCurrentGB:       models.ToGB(stats.TotalCurrentBytes),
		TotalAllVersionsGB:   models.ToGB(stats.TotalVersionBytes),
		TotalOverheadGB:      models.ToGB(overhead),
	}
	if stats.TotalCurrentBytes > 0 {
		summary.OverheadPercent = models.Round(100*float64(overhead)/float64(stats.TotalCurrentBytes), 1)
	}
	return summary
}

// TopOverhead keeps records with history overhead, largest overhead first
func TopOverhead(records []models.AnalysisRecord, limit int) []models.AnalysisRecord {
	out := make([]models.AnalysisRecord, 0)
	for _, r := range records {
		if r.OverheadBytes > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OverheadBytes > out[j].OverheadBytes
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StaleFiles lists records last accessed more than staleDays ago, stalest first
func StaleFiles(records []models.AnalysisRecord, staleDays int) []models.StaleFile {
	stale := make([]models.AnalysisRecord, 0)
	for _, r := range records {
		if r.DaysSinceLastAccessed > float64(staleDays) {
			stale = append(stale, r)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool {
		return stale[i].DaysSinceLastAccessed > stale[j].DaysSinceLastAccessed
	})

	out := make([]models.StaleFile, 0, len(stale))
	for _, r := range stale {
		out = append(out, models.StaleFile{
			Name:                  r.Name,
			Owner:                 r.Owner,
			LastAccessedBy:        r.LastAccessedBy,
			LastAccessedDate:      r.LastAccessedDate,
			DaysSinceLastAccessed: r.DaysSinceLastAccessed,
			CurrentSizeBytes:      r.Size,
			TotalSizeBytes:        r.TotalSizeBytes,
			OverheadBytes:         r.OverheadBytes,
		})
	}
	return out
}

// ByOwner groups records by owner display name
func ByOwner(records []models.AnalysisRecord) []models.OwnerGroup {
	groups := groupBy(records, func(r models.AnalysisRecord) string { return r.Owner })

	out := make([]models.OwnerGroup, 0, len(groups))
	for _, g := range groups {
		row := models.OwnerGroup{
			Owner:       g.key,
			GroupTotals: totals(g.records),
		}
		for _, r := range g.records {
			if r.OwnerEmail != nil {
				email := *r.OwnerEmail
				row.OwnerEmail = &email
				break
			}
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSizeBytes > out[j].TotalSizeBytes
	})
	return out
}

// ByFileType groups records by lowercased extension
func ByFileType(records []models.AnalysisRecord) []models.FileTypeGroup {
	groups := groupBy(records, extensionKey)

	out := make([]models.FileTypeGroup, 0, len(groups))
	for _, g := range groups {
		owners := make(map[string]struct{})
		for _, r := range g.records {
			owners[r.Owner] = struct{}{}
		}
		out = append(out, models.FileTypeGroup{
			Extension:      g.key,
			GroupTotals:    totals(g.records),
			DistinctOwners: len(owners),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSizeBytes > out[j].TotalSizeBytes
	})
	return out
}

func extensionKey(r models.AnalysisRecord) string {
	ext := models.NormalizeExtension(r.Extension)
	if ext == "" {
		return NoExtension
	}
	return ext
}

type group struct {
	key     string
	records []models.AnalysisRecord
}

// groupBy keeps groups in order of first appearance
func groupBy(records []models.AnalysisRecord, key func(models.AnalysisRecord) string) []*group {
	index := make(map[string]*group)
	var groups []*group
	for _, r := range records {
		k := strings.TrimSpace(key(r))
		g, ok := index[k]
		if !ok {
			g = &group{key: k}
			index[k] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, r)
	}
	return groups
}

func totals(records []models.AnalysisRecord) models.GroupTotals {
	var t models.GroupTotals
	var versions int
	var days float64
	for _, r := range records {
		t.FileCount++
		t.CurrentSizeBytes += r.Size
		t.TotalSizeBytes += r.TotalSizeBytes
		t.OverheadBytes += r.OverheadBytes
		versions += r.TotalVersionCount
		days += r.DaysSinceLastAccessed
	}
	if t.FileCount > 0 {
		t.AvgVersionCount = models.Round(float64(versions)/float64(t.FileCount), 2)
		t.AvgDaysSinceAccess = models.Round(days/float64(t.FileCount), 1)
	}
	return t
}

func clone(records []models.AnalysisRecord) []models.AnalysisRecord {
	out := make([]models.AnalysisRecord, len(records))
	copy(out, records)
	return out
}
