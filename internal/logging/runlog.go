package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SuccessLevel is the level label for completed milestones.
const SuccessLevel = "success"

// RunLog is the sequential, timestamped text log of one analysis run.
// Each line reads "<timestamp> [LEVEL] message key=value".
type RunLog struct {
	file   *os.File
	path   string
	logger zerolog.Logger
}

// OpenRunLog creates docspectre-<timestamp>.log under dir.
// Events at WARN and above are mirrored to console.
func OpenRunLog(dir string, now time.Time, console io.Writer, verbose bool) (*RunLog, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("docspectre-%s.log", now.Format("20060102-150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	return &RunLog{
		file:   file,
		path:   path,
		logger: NewRunLogger(file, console, verbose),
	}, nil
}

// NewRunLogger builds a logger that writes every event at INFO and above to
// file in the run log format, and WARN and above to console.
func NewRunLogger(file io.Writer, console io.Writer, verbose bool) zerolog.Logger {
	fileLevel := zerolog.InfoLevel
	if verbose {
		fileLevel = zerolog.DebugLevel
	}

	writers := []io.Writer{
		levelFilter{w: zerolog.SyncWriter(runLogWriter(file)), min: fileLevel},
	}
	if console != nil {
		writers = append(writers, levelFilter{
			w:   zerolog.SyncWriter(consoleWriter(console, false)),
			min: consoleLevel(verbose),
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger().
		Level(fileLevel)
}

func runLogWriter(out io.Writer) zerolog.ConsoleWriter {
	w := consoleWriter(out, true)
	w.FormatLevel = func(i interface{}) string {
		return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
	}
	return w
}

// Success starts a SUCCESS event. It is always written, whatever the level.
func Success(logger zerolog.Logger) *zerolog.Event {
	return logger.Log().Str(zerolog.LevelFieldName, SuccessLevel)
}

// Logger returns the run logger.
func (r *RunLog) Logger() zerolog.Logger {
	if r == nil {
		return zerolog.Nop()
	}
	return r.logger
}

// Path returns the log file location.
func (r *RunLog) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Close flushes and closes the log file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
