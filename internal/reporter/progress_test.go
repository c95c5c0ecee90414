package reporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/docspectre/internal/models"
)

func TestRenderProgress(t *testing.T) {
	cases := []struct {
		name     string
		progress models.Progress
		want     string
	}{
		{
			name: "midway_with_eta",
			progress: models.Progress{
				Current:  1,
				Total:    3,
				FileName: "a.docx",
				Stats: models.RunStats{
					FilesAnalyzed:     1,
					FilesWithVersions: 1,
					TotalCurrentBytes: models.BytesPerGB,
					TotalVersionBytes: 3 * models.BytesPerGB,
				},
				Elapsed: 10 * time.Second,
			},
			want: "[1/3 33.3%] a.docx | analyzed 1 (with versions 1) | current 1.00 GB | all versions 3.00 GB | elapsed 10s | ETA 20s",
		},
		{
			name:     "nothing_done_has_no_eta",
			progress: models.Progress{Current: 0, Total: 5, FileName: "b.docx"},
			want:     "[0/5 0.0%] b.docx | analyzed 0 (with versions 0) | current 0.00 GB | all versions 0.00 GB | elapsed 0s",
		},
		{
			name:     "empty_run",
			progress: models.Progress{},
			want:     "[0/0 0.0%]  | analyzed 0 (with versions 0) | current 0.00 GB | all versions 0.00 GB | elapsed 0s",
		},
		{
			name:     "done",
			progress: models.Progress{Current: 4, Total: 4, FileName: "c.docx", Elapsed: time.Minute},
			want:     "[4/4 100.0%] c.docx | analyzed 0 (with versions 0) | current 0.00 GB | all versions 0.00 GB | elapsed 1m0s | ETA 0s",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RenderProgress(tc.progress); got != tc.want {
				t.Fatalf("unexpected progress line\nwant: %s\ngot:  %s", tc.want, got)
			}
		})
	}
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressPrinter(&out)
	p.Print(models.Progress{Current: 1, Total: 2, FileName: "a.docx", Elapsed: time.Second})

	line := out.String()
	if !strings.HasPrefix(line, "[1/2 50.0%] a.docx") || !strings.HasSuffix(line, "ETA 1s\n") {
		t.Fatalf("unexpected printed line %q", line)
	}

	var nilPrinter *ProgressPrinter
	nilPrinter.Print(models.Progress{})
}
