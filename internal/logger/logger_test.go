package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestNew_ValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "Info", " warn "} {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(level, "text", &buf)
			if err != nil {
				t.Fatalf("New(%q) error = %v", level, err)
			}
			l.Error("boom")
			if !strings.Contains(buf.String(), "msg=boom") {
				t.Errorf("output = %q", buf.String())
			}
		})
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", "", &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("info", "json", &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hello", "key", "Escape")
	if !strings.Contains(buf.String(), `"key":"Escape"`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	if _, err := New("info", "xml", &bytes.Buffer{}); !errors.Is(err, ErrInvalidLogFormat) {
		t.Errorf("error = %v, want ErrInvalidLogFormat", err)
	}
}

func TestNew_InvalidLevels_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		level := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "level")

		switch level {
		case "debug", "info", "warn", "error":
			rt.Skip("valid level generated")
		}

		if _, err := New(level, "text", &bytes.Buffer{}); !errors.Is(err, ErrInvalidLogLevel) {
			rt.Errorf("New(%q) error = %v, want ErrInvalidLogLevel", level, err)
		}
	})
}

func TestNew_EmptyLevel_NoOpLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("", "text", &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.Error("dropped")
	if buf.Len() != 0 {
		t.Errorf("no-op logger wrote %q", buf.String())
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpen_StateDir(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tempDir)

	l, err := Open("debug", "text", "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	l.Debug("session")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(tempDir, "silverkey"))
	if err != nil {
		t.Fatalf("failed to read log directory: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "silverkey-") {
		t.Fatalf("entries = %v", entries)
	}
	data, _ := os.ReadFile(l.Path())
	if !strings.Contains(string(data), "silverkey started") || !strings.Contains(string(data), "session") {
		t.Errorf("log = %q", data)
	}
}

func TestOpen_ExplicitPathClobbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sk.log")

	l1, err := Open("info", "text", path)
	if err != nil {
		t.Fatal(err)
	}
	l1.Info("first session")
	l1.Close()

	l2, err := Open("info", "text", path)
	if err != nil {
		t.Fatal(err)
	}
	l2.Info("second session")
	l2.Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "first session") || !strings.Contains(string(data), "second session") {
		t.Errorf("log = %q", data)
	}
}

func TestOpen_EmptyLevelCreatesNothing(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tempDir)

	l, err := Open("", "text", "")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if _, err := os.Stat(filepath.Join(tempDir, "silverkey")); !os.IsNotExist(err) {
		t.Error("log directory should not exist for empty level")
	}
	if l.Path() != "" {
		t.Errorf("Path() = %q", l.Path())
	}
}
