package reporter

import (
	"fmt"
	"time"

	"github.com/ppiankov/docspectre/internal/models"
)

// Sheet names in workbook order
const (
	SheetFileAnalysis = "File Analysis"
	SheetSummary      = "Summary"
	SheetTopOverhead  = "Top Version Overhead"
	SheetByOwner      = "By Owner"
	SheetByFileType   = "By File Type"

	cellTimeLayout = "2006-01-02 15:04:05"
)

// Sheet is one named table of the workbook
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// StaleSheetName is "Stale Files (90+ days)" for the default threshold
func StaleSheetName(staleDays int) string {
	return fmt.Sprintf("Stale Files (%d+ days)", staleDays)
}

var fileAnalysisColumns = []string{
	"Name",
	"Path",
	"URL",
	"Extension",
	"Current Size (MB)",
	"Total Size All Versions (MB)",
	"Overhead (MB)",
	"Overhead %",
	"Version Count",
	"Owner",
	"Owner Email",
	"Last Accessed By",
	"Last Accessed Date",
	"Days Since Last Accessed",
	"Created",
	"Last Modified",
	"Oldest Version Date",
	"Version Span (Days)",
	"Average Version Size (MB)",
	"Largest Version (MB)",
	"Smallest Version (MB)",
	"Author",
	"Created By",
	"Modified By",
	"Views (Lifetime)",
	"Views (Recent)",
	"Last Viewed",
	"Checked Out To",
	"Current Size (Bytes)",
	"Total Size All Versions (Bytes)",
	"Overhead (Bytes)",
}

var groupColumns = []string{
	"File Count",
	"Current Size (MB)",
	"Total Size All Versions (MB)",
	"Overhead (MB)",
	"Average Version Count",
	"Average Days Since Last Accessed",
}

// SheetsFromViews lays the views out as sheets. The top overhead and stale
// sheets are left out when they have no rows.
func SheetsFromViews(views *models.Views, staleDays int) []Sheet {
	sheets := []Sheet{
		FileAnalysisSheet(views.FullListing),
		summarySheet(views.Summary),
	}

	if len(views.TopOverhead) > 0 {
		top := FileAnalysisSheet(views.TopOverhead)
		top.Name = SheetTopOverhead
		sheets = append(sheets, top)
	}

	sheets = append(sheets, byOwnerSheet(views.ByOwner))

	if len(views.StaleFiles) > 0 {
		sheets = append(sheets, staleSheet(views.StaleFiles, staleDays))
	}

	return append(sheets, byFileTypeSheet(views.ByFileType))
}

// FileAnalysisSheet renders one row per record with every record field
func FileAnalysisSheet(records []models.AnalysisRecord) Sheet {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.Name,
			r.Path,
			r.URL,
			r.Extension,
			models.ToMB(r.Size),
			models.ToMB(r.TotalSizeBytes),
			models.ToMB(r.OverheadBytes),
			r.OverheadPercent,
			r.TotalVersionCount,
			r.Owner,
			orUnknown(r.OwnerEmail),
			r.LastAccessedBy,
			formatTime(r.LastAccessedDate),
			r.DaysSinceLastAccessed,
			formatTime(r.Created),
			formatTime(r.LastModified),
			formatTime(r.OldestVersionDate),
			r.VersionSpanDays,
			r.AverageVersionSizeMB,
			r.LargestVersionMB,
			r.SmallestVersionMB,
			r.Author,
			r.CreatedBy,
			r.ModifiedBy,
			r.ViewsLifetime,
			r.ViewsRecent,
			formatOptionalTime(r.LastViewed),
			optional(r.CheckoutUser),
			r.Size,
			r.TotalSizeBytes,
			r.OverheadBytes,
		})
	}
	return Sheet{Name: SheetFileAnalysis, Columns: fileAnalysisColumns, Rows: rows}
}

func summarySheet(s models.Summary) Sheet {
	return Sheet{
		Name:    SheetSummary,
		Columns: []string{"Metric", "Value"},
		Rows: [][]any{
			{"Files Analyzed", s.FilesAnalyzed},
			{"Files With Version History", s.FilesWithVersions},
			{"Files Without Version History", s.FilesWithoutVersions},
			{"Total Current Size (GB)", s.TotalCurrentGB},
			{"Total Size All Versions (GB)", s.TotalAllVersionsGB},
			{"Total Version Overhead (GB)", s.TotalOverheadGB},
			{"Overhead %", s.OverheadPercent},
		},
	}
}

func byOwnerSheet(groups []models.OwnerGroup) Sheet {
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, append([]any{g.Owner, orUnknown(g.OwnerEmail)}, groupCells(g.GroupTotals)...))
	}
	return Sheet{
		Name:    SheetByOwner,
		Columns: append([]string{"Owner", "Owner Email"}, groupColumns...),
		Rows:    rows,
	}
}

func byFileTypeSheet(groups []models.FileTypeGroup) Sheet {
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		row := append([]any{g.Extension}, groupCells(g.GroupTotals)...)
		rows = append(rows, append(row, g.DistinctOwners))
	}
	columns := append([]string{"Extension"}, groupColumns...)
	return Sheet{
		Name:    SheetByFileType,
		Columns: append(columns, "Distinct Owners"),
		Rows:    rows,
	}
}

func staleSheet(files []models.StaleFile, staleDays int) Sheet {
	rows := make([][]any, 0, len(files))
	for _, f := range files {
		rows = append(rows, []any{
			f.Name,
			f.Owner,
			f.LastAccessedBy,
			formatTime(f.LastAccessedDate),
			f.DaysSinceLastAccessed,
			models.ToMB(f.CurrentSizeBytes),
			models.ToMB(f.TotalSizeBytes),
			models.ToMB(f.OverheadBytes),
		})
	}
	return Sheet{
		Name: StaleSheetName(staleDays),
		Columns: []string{
			"Name",
			"Owner",
			"Last Accessed By",
			"Last Accessed Date",
			"Days Since Last Accessed",
			"Current Size (MB)",
			"Total Size All Versions (MB)",
			"Overhead (MB)",
		},
		Rows: rows,
	}
}

func groupCells(t models.GroupTotals) []any {
	return []any{
		t.FileCount,
		models.ToMB(t.CurrentSizeBytes),
		models.ToMB(t.TotalSizeBytes),
		models.ToMB(t.OverheadBytes),
		t.AvgVersionCount,
		t.AvgDaysSinceAccess,
	}
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return models.UnknownIdentity
	}
	return *s
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(cellTimeLayout)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return models.UnknownIdentity
	}
	return formatTime(*t)
}
