package collector

import (
	"fmt"
	"strings"

	"github.com/ppiankov/docspectre/internal/models"
)

// Query selects candidate documents from the search index
type Query struct {
	MinSizeBytes int64
	Extensions   []string // empty means every type
}

// NewQuery builds a query with normalized, de-duplicated extensions
func NewQuery(minSizeBytes int64, extensions []string) Query {
	seen := make(map[string]bool, len(extensions))
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		normalized := models.NormalizeExtension(ext)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		exts = append(exts, normalized)
	}
	if minSizeBytes < 0 {
		minSizeBytes = 0
	}
	return Query{MinSizeBytes: minSizeBytes, Extensions: exts}
}

// String renders the query in KQL
func (q Query) String() string {
	clause := fmt.Sprintf("Size>=%d", q.MinSizeBytes)
	if len(q.Extensions) == 0 {
		return clause
	}

	parts := make([]string, 0, len(q.Extensions))
	for _, ext := range q.Extensions {
		parts = append(parts, "FileExtension:"+ext)
	}
	return clause + " AND (" + strings.Join(parts, " OR ") + ")"
}

// Matches reports whether a row satisfies the query locally.
// Backends without a query language filter with it.
func (q Query) Matches(size int64, extension string) bool {
	if size < q.MinSizeBytes {
		return false
	}
	if len(q.Extensions) == 0 {
		return true
	}
	ext := models.NormalizeExtension(extension)
	for _, allowed := range q.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
