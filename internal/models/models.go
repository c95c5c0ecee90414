package models

import (
	"net/url"
	"strings"
	"time"
)

// UnknownIdentity is rendered wherever an owner or accessor could not be resolved
const UnknownIdentity = "Unknown"

// SearchRow is a single result returned by the document search index
type SearchRow struct {
	Path          string // Absolute URL as reported by the index
	Name          string
	Extension     string
	FileType      string // 'docx', 'aspx', etc.
	Size          int64
	LastModified  time.Time
	Created       time.Time
	Author        string
	CreatedBy     string
	ModifiedBy    string
	ViewsLifetime int64
	ViewsRecent   int64
	LastViewed    *time.Time
	CheckoutUser  *string
	SiteURL       string // Web the document lives in, if the index exposes it
}

// CandidateFile is a document admitted by discovery, before enrichment
type CandidateFile struct {
	Path          string     `json:"path"` // Server-relative path, unique key within a run
	Name          string     `json:"name"`
	Extension     string     `json:"extension"`
	Size          int64      `json:"current_size_bytes"`
	LastModified  time.Time  `json:"last_modified"`
	Created       time.Time  `json:"created"`
	Author        string     `json:"author"`
	CreatedBy     string     `json:"created_by"`
	ModifiedBy    string     `json:"modified_by"`
	ViewsLifetime int64      `json:"views_lifetime"`
	ViewsRecent   int64      `json:"views_recent"`
	LastViewed    *time.Time `json:"last_viewed,omitempty"`
	CheckoutUser  *string    `json:"checkout_user,omitempty"`
	URL           string     `json:"url"`
	SiteURL       string     `json:"site_url,omitempty"`
}

// NewCandidateFile converts a search row into a candidate file.
// Absolute paths are split into a server-relative key and the full URL.
func NewCandidateFile(row SearchRow) CandidateFile {
	path := strings.TrimSpace(row.Path)
	fullURL := path
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		path = u.Path
	}

	name := strings.TrimSpace(row.Name)
	if name == "" {
		if idx := strings.LastIndex(path, "/"); idx >= 0 {
			name = path[idx+1:]
		} else {
			name = path
		}
	}

	ext := NormalizeExtension(row.Extension)
	if ext == "" {
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			ext = NormalizeExtension(name[idx+1:])
		}
	}

	return CandidateFile{
		Path:          path,
		Name:          name,
		Extension:     ext,
		Size:          row.Size,
		LastModified:  row.LastModified,
		Created:       row.Created,
		Author:        strings.TrimSpace(row.Author),
		CreatedBy:     strings.TrimSpace(row.CreatedBy),
		ModifiedBy:    strings.TrimSpace(row.ModifiedBy),
		ViewsLifetime: row.ViewsLifetime,
		ViewsRecent:   row.ViewsRecent,
		LastViewed:    row.LastViewed,
		CheckoutUser:  row.CheckoutUser,
		URL:           fullURL,
		SiteURL:       strings.TrimRight(strings.TrimSpace(row.SiteURL), "/"),
	}
}

// NormalizeExtension lowercases an extension and strips leading dots
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}

// Identity is a user reference as exposed by the metadata store
type Identity struct {
	Name  string
	Email string
}

// Resolved reports whether the identity carries a usable display name
func (i *Identity) Resolved() bool {
	return i != nil && strings.TrimSpace(i.Name) != ""
}

// ItemMetadata is the secondary metadata record for a document.
// Every field is optional.
type ItemMetadata struct {
	Author     *Identity
	CreatedBy  *Identity
	ModifiedBy *Identity
	Editor     *Identity
	Modified   *time.Time
}

// Ownership is the resolved owner and last-access attribution for a document
type Ownership struct {
	Owner            string    `json:"owner"`
	OwnerEmail       *string   `json:"owner_email,omitempty"`
	LastAccessedBy   string    `json:"last_accessed_by"`
	LastAccessedDate time.Time `json:"last_accessed_date"`
}

// VersionEntry is one historical version of a document.
// The current content is not included.
type VersionEntry struct {
	Label   string
	Size    int64
	Created time.Time
}

// AnalysisRecord is the per-document analysis output
type AnalysisRecord struct {
	Index int `json:"-"` // Discovery order, used as the stable tie-break

	CandidateFile
	Ownership

	TotalVersionCount     int       `json:"total_version_count"`
	TotalSizeBytes        int64     `json:"total_size_all_versions_bytes"`
	OverheadBytes         int64     `json:"overhead_bytes"`
	OverheadPercent       float64   `json:"overhead_percent"`
	OldestVersionDate     time.Time `json:"oldest_version_date"`
	VersionSpanDays       float64   `json:"version_span_days"`
	AverageVersionSizeMB  float64   `json:"average_version_size_mb"`
	LargestVersionMB      float64   `json:"largest_version_mb"`
	SmallestVersionMB     float64   `json:"smallest_version_mb"`
	DaysSinceLastAccessed float64   `json:"days_since_last_accessed"`
}

// HasHistory reports whether the document has at least one historical version
func (r *AnalysisRecord) HasHistory() bool {
	return r.TotalVersionCount > 1
}

// RunStats is a point-in-time copy of the run counters
type RunStats struct {
	FilesAnalyzed     int       `json:"files_analyzed"`
	FilesWithVersions int       `json:"files_with_versions"`
	TotalCurrentBytes int64     `json:"total_current_bytes"`
	TotalVersionBytes int64     `json:"total_version_bytes"`
	StartedAt         time.Time `json:"started_at"`
}

// Progress is the per-file status handed to the progress reporter
type Progress struct {
	Current  int
	Total    int
	FileName string
	Stats    RunStats
	Elapsed  time.Duration
}
