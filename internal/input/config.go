package input

import (
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/silverkey/internal/input/history"
	"github.com/dshills/silverkey/internal/input/key"
	"github.com/dshills/silverkey/internal/input/keymap"
)

// Config configures an Engine.
type Config struct {
	// Delimiter separates keys in sequence and shortcut labels.
	// Default: ","
	Delimiter string

	// Throttle is the minimum time between two firings of the same
	// binding category. Default: 0
	Throttle time.Duration

	// Timeout is the maximum gap between transitions before the press
	// history and combo are discarded. Default: 1000ms
	Timeout time.Duration

	// Debug makes every outcome carry a diagnostic Snapshot.
	Debug bool

	// ResetOnBlur discards the press history and combo when the source
	// loses focus.
	ResetOnBlur bool
}

// DefaultConfig returns a configuration with the standard defaults.
func DefaultConfig() Config {
	return Config{
		Delimiter: key.DefaultDelimiter,
		Throttle:  0,
		Timeout:   history.DefaultTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Delimiter == "" {
		return keymap.NewError("Config", "delimiter", keymap.ErrInvalidDelimiter)
	}
	if c.Throttle < 0 {
		return keymap.NewError("Config", "throttle="+c.Throttle.String(), keymap.ErrInvalidDuration)
	}
	if c.Timeout < 0 {
		return keymap.NewError("Config", "timeout="+c.Timeout.String(), keymap.ErrInvalidDuration)
	}
	return nil
}

// ParseDuration parses a duration given either as a bare number of
// milliseconds ("250", "1.5") or in time.ParseDuration form ("250ms").
// Negative, non-numeric and out of range values return
// keymap.ErrInvalidDuration.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, keymap.ErrInvalidDuration
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		ns := ms * float64(time.Millisecond)
		if ms < 0 || math.IsNaN(ms) || ns >= math.MaxInt64 {
			return 0, keymap.ErrInvalidDuration
		}
		return time.Duration(ns), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, keymap.ErrInvalidDuration
	}
	return d, nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTables sets the alias and legacy code tables.
func WithTables(t key.Lookup) Option {
	return func(e *Engine) {
		e.tables = t
	}
}

// WithMetrics sets the metrics collector. Engines share nothing unless a
// collector is passed to several of them.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
