package reporter

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/ppiankov/docspectre/internal/models"
)

// RenderProgress formats one progress line:
//
//	[current/total pct%] name | analyzed N (with versions M) | current X GB | all versions Y GB | elapsed E | ETA R
//
// The ETA is omitted until the first file is done.
func RenderProgress(p models.Progress) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%d/%d %.1f%%] %s", p.Current, p.Total, percent(p.Current, p.Total), p.FileName)
	fmt.Fprintf(&b, " | analyzed %d (with versions %d)", p.Stats.FilesAnalyzed, p.Stats.FilesWithVersions)
	fmt.Fprintf(&b, " | current %.2f GB | all versions %.2f GB",
		models.ToGB(p.Stats.TotalCurrentBytes), models.ToGB(p.Stats.TotalVersionBytes))
	fmt.Fprintf(&b, " | elapsed %s", p.Elapsed.Round(time.Second))

	if p.Current > 0 {
		remaining := p.Total - p.Current
		if remaining < 0 {
			remaining = 0
		}
		eta := time.Duration(p.Elapsed.Seconds() * float64(remaining) / float64(p.Current) * float64(time.Second))
		fmt.Fprintf(&b, " | ETA %s", eta.Round(time.Second))
	}

	return b.String()
}

func percent(current, total int) float64 {
	if total == 0 {
		return 0
	}
	return models.Round(100*float64(current)/float64(total), 1)
}

// ProgressPrinter writes progress lines, colored when out is a terminal
type ProgressPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	prefix *color.Color
}

// NewProgressPrinter creates a printer writing to out
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	prefix := color.New(color.FgCyan, color.Bold)
	if !supportsANSI(out) {
		prefix.DisableColor()
	}
	return &ProgressPrinter{out: out, prefix: prefix}
}

// Print renders and writes p
func (pp *ProgressPrinter) Print(p models.Progress) {
	if pp == nil || pp.out == nil {
		return
	}

	line := RenderProgress(p)
	head, rest, found := strings.Cut(line, "] ")

	pp.mu.Lock()
	defer pp.mu.Unlock()
	if found {
		fmt.Fprintf(pp.out, "%s %s\n", pp.prefix.Sprint(head+"]"), rest)
		return
	}
	fmt.Fprintln(pp.out, line)
}
