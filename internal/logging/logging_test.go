package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitSetsDefaultLevel(t *testing.T) {
	original := log.Logger
	t.Cleanup(func() {
		log.Logger = original
	})

	Init(false)
	if got := log.Logger.GetLevel(); got != zerolog.WarnLevel {
		t.Fatalf("expected warn level by default, got %v", got)
	}

	Init(true)
	if got := log.Logger.GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("expected debug level with verbose, got %v", got)
	}
}

func TestRunLoggerFormat(t *testing.T) {
	var file, console bytes.Buffer
	logger := NewRunLogger(&file, &console, false)

	logger.Debug().Msg("hidden detail")
	logger.Info().Str("path", "/sites/hr/a.docx").Msg("analyzing file")
	logger.Warn().Msg("version history unavailable")
	logger.Error().Msg("file skipped")
	Success(logger).Int("files", 3).Msg("analysis complete")

	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines in run log, got %d: %q", len(lines), file.String())
	}

	wantTags := []string{"[INFO]", "[WARN]", "[ERROR]", "[SUCCESS]"}
	for i, tag := range wantTags {
		if !strings.Contains(lines[i], tag) {
			t.Fatalf("expected line %d to carry %s, got %q", i, tag, lines[i])
		}
		if _, err := time.Parse(time.DateTime, lines[i][:len(time.DateTime)]); err != nil {
			t.Fatalf("expected line %d to start with a timestamp, got %q", i, lines[i])
		}
	}
	if !strings.Contains(lines[0], "path=/sites/hr/a.docx") {
		t.Fatalf("expected fields in line, got %q", lines[0])
	}
	if !strings.Contains(lines[3], "files=3") {
		t.Fatalf("expected fields in success line, got %q", lines[3])
	}

	if strings.Contains(console.String(), "analyzing file") {
		t.Fatalf("expected info to stay out of console, got %q", console.String())
	}
	if !strings.Contains(console.String(), "version history unavailable") {
		t.Fatalf("expected warn on console, got %q", console.String())
	}
}

func TestOpenRunLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	runLog, err := OpenRunLog(dir, now, nil, false)
	if err != nil {
		t.Fatalf("OpenRunLog failed: %v", err)
	}
	if got := filepath.Base(runLog.Path()); got != "docspectre-20260304-050607.log" {
		t.Fatalf("unexpected log file name %q", got)
	}

	logger := runLog.Logger()
	logger.Info().Msg("run started")
	if err := runLog.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := runLog.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}

	data, err := os.ReadFile(runLog.Path())
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] run started") {
		t.Fatalf("unexpected run log content %q", string(data))
	}
}

func TestNilRunLog(t *testing.T) {
	var runLog *RunLog
	logger := runLog.Logger()
	logger.Info().Msg("dropped")
	if runLog.Path() != "" {
		t.Fatal("expected empty path for nil run log")
	}
	if err := runLog.Close(); err != nil {
		t.Fatalf("expected nil close error, got %v", err)
	}
}
