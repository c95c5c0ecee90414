package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/docspectre/internal/models"
	"github.com/pterm/pterm"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	textANSIReset = "\x1b[0m"
	textANSIBold  = "\x1b[1m"

	// Rows shown per ranked table in the console summary
	textTopRows = 10
)

var numbers = message.NewPrinter(language.English)

// WriteSummary prints the end-of-run console summary
func WriteSummary(out io.Writer, report *models.Report, artifacts []string) error {
	if report == nil || report.Views == nil {
		return fmt.Errorf("report is nil")
	}
	if out == nil {
		return fmt.Errorf("writer is nil")
	}

	rendered, err := renderSummary(report, artifacts, supportsANSI(out))
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, rendered); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func renderSummary(report *models.Report, artifacts []string, useANSI bool) (string, error) {
	var b strings.Builder
	s := report.Views.Summary
	meta := report.Metadata

	writeTextSectionHeader(&b, "docspectre version cost report", useANSI)
	fmt.Fprintf(&b, "Target:    %s (%s)\n", meta.Target, meta.Source)
	fmt.Fprintf(&b, "Run:       %s\n", meta.RunID)
	fmt.Fprintf(&b, "Duration:  %s\n\n", meta.AnalysisDuration)

	summary := pterm.TableData{
		{"Metric", "Value"},
		{"Files discovered", numbers.Sprintf("%d", meta.FilesDiscovered)},
		{"Files analyzed", numbers.Sprintf("%d", s.FilesAnalyzed)},
		{"Files skipped", numbers.Sprintf("%d", meta.FilesSkipped)},
		{"With version history", numbers.Sprintf("%d", s.FilesWithVersions)},
		{"Without version history", numbers.Sprintf("%d", s.FilesWithoutVersions)},
		{"Current size", numbers.Sprintf("%.2f GB", s.TotalCurrentGB)},
		{"All versions", numbers.Sprintf("%.2f GB", s.TotalAllVersionsGB)},
		{"Version overhead", numbers.Sprintf("%.2f GB (%.1f%%)", s.TotalOverheadGB, s.OverheadPercent)},
	}
	if err := renderTable(&b, "Summary", summary, useANSI); err != nil {
		return "", err
	}

	if len(report.Views.ByOwner) > 0 {
		data := pterm.TableData{{"Owner", "Files", "All versions (MB)", "Overhead (MB)"}}
		for i, g := range report.Views.ByOwner {
			if i == textTopRows {
				break
			}
			data = append(data, []string{
				g.Owner,
				numbers.Sprintf("%d", g.FileCount),
				numbers.Sprintf("%.2f", models.ToMB(g.TotalSizeBytes)),
				numbers.Sprintf("%.2f", models.ToMB(g.OverheadBytes)),
			})
		}
		if err := renderTable(&b, "Top owners", data, useANSI); err != nil {
			return "", err
		}
	}

	if len(report.Views.TopOverhead) > 0 {
		data := pterm.TableData{{"File", "Versions", "Overhead (MB)", "Overhead %"}}
		for i, r := range report.Views.TopOverhead {
			if i == textTopRows {
				break
			}
			data = append(data, []string{
				truncateTextValue(r.Name, 48),
				numbers.Sprintf("%d", r.TotalVersionCount),
				numbers.Sprintf("%.2f", models.ToMB(r.OverheadBytes)),
				fmt.Sprintf("%.1f", r.OverheadPercent),
			})
		}
		if err := renderTable(&b, "Top version overhead", data, useANSI); err != nil {
			return "", err
		}
	}

	fmt.Fprintf(&b, "Stale files (>%d days): %s\n", meta.StaleDays, numbers.Sprintf("%d", len(report.Views.StaleFiles)))

	if len(artifacts) > 0 {
		b.WriteString("\n")
		writeTextSectionHeader(&b, "Artifacts", useANSI)
		for _, a := range artifacts {
			fmt.Fprintf(&b, "  %s\n", a)
		}
	}

	return b.String(), nil
}

func renderTable(b *strings.Builder, title string, data pterm.TableData, useANSI bool) error {
	writeTextSectionHeader(b, title, useANSI)

	table := pterm.DefaultTable.WithHasHeader().WithData(data)
	if !useANSI {
		table = table.WithStyle(pterm.NewStyle()).WithHeaderStyle(pterm.NewStyle()).WithSeparatorStyle(pterm.NewStyle())
	}
	rendered, err := table.Srender()
	if err != nil {
		return fmt.Errorf("failed to render %s table: %w", strings.ToLower(title), err)
	}
	b.WriteString(rendered)
	b.WriteString("\n\n")
	return nil
}

func writeTextSectionHeader(b *strings.Builder, title string, useANSI bool) {
	header := title
	if useANSI {
		header = textANSIBold + title + textANSIReset
	}
	fmt.Fprintf(b, "%s\n", header)
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", len(title)))
}

func supportsANSI(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}

	info, err := file.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

func truncateTextValue(value string, width int) string {
	if width <= 3 || len(value) <= width {
		return value
	}
	return value[:width-3] + "..."
}
