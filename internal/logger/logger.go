// Package logger builds the structured loggers used across silverkey.
// Logs go to a writer (stderr for replay) or to a per-process file in the
// XDG state directory when a terminal UI owns the screen.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidLogLevel is returned when an unrecognised log level is provided.
var ErrInvalidLogLevel = errors.New("invalid log level")

// ErrInvalidLogFormat is returned when an unrecognised format is provided.
var ErrInvalidLogFormat = errors.New("invalid log format")

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// Logger wraps slog with an optional backing file.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a logger writing to w. If level is empty, returns a no-op
// logger. Valid levels: debug, info, warn, error (case-insensitive).
// format is "text" (default) or "json".
func New(level, format string, w io.Writer) (*Logger, error) {
	if level == "" {
		return &Logger{Logger: slog.New(slog.DiscardHandler)}, nil
	}

	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	h, err := handler(format, w, slogLevel)
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: slog.New(h)}, nil
}

// Open creates a logger writing to a session file. An empty path selects
// $XDG_STATE_HOME/silverkey/silverkey-<pid>.log. Existing files are
// truncated.
func Open(level, format, path string) (*Logger, error) {
	if level == "" {
		return New("", format, nil)
	}

	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if path == "" {
		dir, err := stateDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, fmt.Sprintf("silverkey-%d.log", os.Getpid()))
	} else if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	h, err := handler(format, f, slogLevel)
	if err != nil {
		f.Close()
		return nil, err
	}

	l := &Logger{Logger: slog.New(h), file: f}
	l.Info("silverkey started", "pid", os.Getpid(), "level", level, "log_path", f.Name())
	return l, nil
}

// Path returns the backing file path, or "" when not logging to a file.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close closes the log file if open.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return -1, fmt.Errorf("%w: %s (use debug, info, warn, error)", ErrInvalidLogLevel, level)
	}
}

func handler(format string, w io.Writer, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("%w: %s (use text, json)", ErrInvalidLogFormat, format)
	}
}

func stateDir() (string, error) {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "state")
	}

	dir = filepath.Join(dir, "silverkey")
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("could not create log directory: %w", err)
	}
	return dir, nil
}
