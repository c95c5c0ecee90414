package models

import (
	"math"
	"time"
)

const (
	BytesPerMB = 1024 * 1024
	BytesPerGB = 1024 * 1024 * 1024
)

// Report is the complete output structure
type Report struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version"`
	Timestamp string   `json:"timestamp"`
	Metadata  Metadata `json:"metadata"`
	Views     *Views   `json:"views"`
}

// Metadata contains report generation info
type Metadata struct {
	RunID            string    `json:"run_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	Source           string    `json:"source"`
	Target           string    `json:"target"`
	MinSizeMB        float64   `json:"min_size_mb"`
	Extensions       []string  `json:"extensions,omitempty"`
	FilesDiscovered  int       `json:"files_discovered"`
	FilesSkipped     int       `json:"files_skipped"`
	StaleDays        int       `json:"stale_days"`
	AnalysisDuration string    `json:"analysis_duration"`
	Version          string    `json:"version"`
}

// Views holds every report view derived from one run
type Views struct {
	FullListing []AnalysisRecord `json:"full_listing"`
	Summary     Summary          `json:"summary"`
	TopOverhead []AnalysisRecord `json:"top_overhead"`
	ByOwner     []OwnerGroup     `json:"by_owner"`
	StaleFiles  []StaleFile      `json:"stale_files"`
	ByFileType  []FileTypeGroup  `json:"by_file_type"`
}

// Summary is the scalar rollup over all analyzed documents
type Summary struct {
	FilesAnalyzed        int     `json:"files_analyzed"`
	FilesWithVersions    int     `json:"files_with_versions"`
	FilesWithoutVersions int     `json:"files_without_versions"`
	TotalCurrentGB       float64 `json:"total_current_gb"`
	TotalAllVersionsGB   float64 `json:"total_all_versions_gb"`
	TotalOverheadGB      float64 `json:"total_overhead_gb"`
	OverheadPercent      float64 `json:"overhead_percent"`
}

// GroupTotals are the aggregates shared by owner and file type rollups
type GroupTotals struct {
	FileCount          int     `json:"file_count"`
	CurrentSizeBytes   int64   `json:"current_size_bytes"`
	TotalSizeBytes     int64   `json:"total_size_bytes"`
	OverheadBytes      int64   `json:"overhead_bytes"`
	AvgVersionCount    float64 `json:"avg_version_count"`
	AvgDaysSinceAccess float64 `json:"avg_days_since_access"`
}

// OwnerGroup is one row of the per-owner rollup
type OwnerGroup struct {
	Owner      string  `json:"owner"`
	OwnerEmail *string `json:"owner_email,omitempty"`
	GroupTotals
}

// FileTypeGroup is one row of the per-extension rollup
type FileTypeGroup struct {
	Extension string `json:"extension"`
	GroupTotals
	DistinctOwners int `json:"distinct_owners"`
}

// StaleFile is the reduced projection used by the staleness listing
type StaleFile struct {
	Name                  string    `json:"name"`
	Owner                 string    `json:"owner"`
	LastAccessedBy        string    `json:"last_accessed_by"`
	LastAccessedDate      time.Time `json:"last_accessed_date"`
	DaysSinceLastAccessed float64   `json:"days_since_last_accessed"`
	CurrentSizeBytes      int64     `json:"current_size_bytes"`
	TotalSizeBytes        int64     `json:"total_size_bytes"`
	OverheadBytes         int64     `json:"overhead_bytes"`
}

// ToMB converts bytes to megabytes rounded to two decimals
func ToMB(bytes int64) float64 {
	return Round(float64(bytes)/BytesPerMB, 2)
}

// ToGB converts bytes to gigabytes rounded to two decimals
func ToGB(bytes int64) float64 {
	return Round(float64(bytes)/BytesPerGB, 2)
}

// Round rounds v half away from zero to the given number of decimals
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
