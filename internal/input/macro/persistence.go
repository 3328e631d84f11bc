package macro

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/silverkey/internal/input/key"
)

// Save writes events to path as JSON lines.
// The file is written atomically using a temporary file and rename.
func Save(events []key.Event, path string) error {
	var buf bytes.Buffer
	if err := WriteAll(&buf, events); err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads a recording from path.
func Load(path string) ([]key.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	events, err := ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}
