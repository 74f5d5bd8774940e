// Package logging configures the process-wide zerolog logger.
//
// Entries go to stdout in console form and, when a log directory is given,
// to <dir>/log.txt as JSON lines.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileName is the log file created inside the log directory.
const FileName = "log.txt"

// Setup installs the global logger and returns a closer for the log file.
func Setup(dir, level string) (io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	writers := []io.Writer{console}

	var file *os.File
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err = os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
	}

	log.Logger = New(zerolog.MultiLevelWriter(writers...)).Level(lvl)
	zerolog.DefaultContextLogger = &log.Logger

	if file == nil {
		return io.NopCloser(nil), nil
	}
	return file, nil
}

// New builds a timestamped logger on w.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// Component derives a child of the global logger tagged with name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
