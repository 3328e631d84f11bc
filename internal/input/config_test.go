package input

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/silverkey/internal/input/keymap"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"0", 0},
		{"250", 250 * time.Millisecond},
		{" 1.5 ", 1500 * time.Microsecond},
		{"250ms", 250 * time.Millisecond},
		{"2s", 2 * time.Second},
		{"9000000000000", 9000000000000 * time.Millisecond},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if err != nil {
			t.Errorf("ParseDuration(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDurationRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"-1",
		"-5ms",
		"soon",
		"NaN",
		"Inf",
		"1e30",
		"9300000000000",
		"9223372036854.775807",
	} {
		d, err := ParseDuration(in)
		if !errors.Is(err, keymap.ErrInvalidDuration) {
			t.Errorf("ParseDuration(%q) = %v, %v; want ErrInvalidDuration", in, d, err)
		}
	}
}
