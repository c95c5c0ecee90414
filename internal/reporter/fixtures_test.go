package reporter

import (
	"time"

	"github.com/ppiankov/docspectre/internal/aggregator"
	"github.com/ppiankov/docspectre/internal/models"
)

var generatedAt = time.Date(2026, 2, 17, 9, 30, 0, 0, time.UTC)

func testRecord(index int, name, owner string, current, total int64, days float64) models.AnalysisRecord {
	versions := 1
	if total > current {
		versions = 4
	}
	return models.AnalysisRecord{
		Index: index,
		CandidateFile: models.CandidateFile{
			Path:         "/sites/legal/Shared Documents/" + name,
			Name:         name,
			Extension:    "docx",
			Size:         current,
			Created:      generatedAt.AddDate(-1, 0, 0),
			LastModified: generatedAt.AddDate(0, -1, 0),
			URL:          "https://contoso.sharepoint.com/sites/legal/Shared Documents/" + name,
		},
		Ownership: models.Ownership{
			Owner:            owner,
			LastAccessedBy:   owner,
			LastAccessedDate: generatedAt.AddDate(0, 0, -int(days)),
		},
		TotalVersionCount:     versions,
		TotalSizeBytes:        total,
		OverheadBytes:         total - current,
		DaysSinceLastAccessed: days,
	}
}

func testReport(records []models.AnalysisRecord) *models.Report {
	var stats models.RunStats
	for _, r := range records {
		stats.FilesAnalyzed++
		if r.HasHistory() {
			stats.FilesWithVersions++
		}
		stats.TotalCurrentBytes += r.Size
		stats.TotalVersionBytes += r.TotalSizeBytes
	}

	return &models.Report{
		Tool:      "docspectre",
		Version:   "test",
		Timestamp: generatedAt.Format(time.RFC3339),
		Metadata: models.Metadata{
			RunID:            "run-1",
			GeneratedAt:      generatedAt,
			Source:           "sharepoint",
			Target:           "contoso.sharepoint.com",
			FilesDiscovered:  len(records) + 1,
			FilesSkipped:     1,
			StaleDays:        90,
			AnalysisDuration: "12s",
		},
		Views: aggregator.BuildViews(records, stats, aggregator.Options{}),
	}
}

func sampleReport() *models.Report {
	const mb = models.BytesPerMB
	return testReport([]models.AnalysisRecord{
		testRecord(0, "contract.docx", "Ann Lee", 20*mb, 60*mb, 120),
		testRecord(1, "memo.docx", "Bob Roe", 10*mb, 10*mb, 5),
	})
}
