package analyzer

import (
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/docspectre/internal/models"
)

// Accumulator is the run-scoped state shared by concurrent analyses.
// Add is its only mutation.
type Accumulator struct {
	mu      sync.Mutex
	stats   models.RunStats
	records []models.AnalysisRecord
}

// NewAccumulator starts an empty run
func NewAccumulator(startedAt time.Time) *Accumulator {
	return &Accumulator{
		stats: models.RunStats{StartedAt: startedAt},
	}
}

// Add counts a finished record and returns the counters after it
func (a *Accumulator) Add(record models.AnalysisRecord) models.RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.FilesAnalyzed++
	if record.HasHistory() {
		a.stats.FilesWithVersions++
	}
	a.stats.TotalCurrentBytes += record.Size
	a.stats.TotalVersionBytes += record.TotalSizeBytes
	a.records = append(a.records, record)

	return a.stats
}

// Snapshot returns a copy of the counters
func (a *Accumulator) Snapshot() models.RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Records returns a copy of the records in discovery order
func (a *Accumulator) Records() []models.AnalysisRecord {
	a.mu.Lock()
	out := make([]models.AnalysisRecord, len(a.records))
	copy(out, a.records)
	a.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	return out
}
