package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/key"
	"github.com/dshills/silverkey/internal/input/keymap"
)

func newEngine(t *testing.T) *input.Engine {
	t.Helper()
	e, err := input.New(input.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// resolveNoop accepts any action except "missing".
func resolveNoop(name string, _ map[string]any) (keymap.Callback, error) {
	if name == "missing" {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	return func() {}, nil
}

func TestReloader_LoadKeymaps(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "maps", "a.toml"), `
name = "a"
[[bindings]]
keys = "esc"
action = "close"
`)
	writeFile(t, filepath.Join(dir, "maps", "b.yaml"), `
name: b
bindings:
  - kind: sequence
    keys: g,g
    action: top
`)
	writeFile(t, filepath.Join(dir, "maps", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "extra.json"), `{"bindings":[{"kind":"shortcut","keys":"ctrl,s","action":"save"}]}`)
	writeFile(t, filepath.Join(dir, "broken.json"), `{"bindings":[{"keys":"x","action":"missing"}]}`)

	s := Defaults()
	s.Keymaps.Dirs = []string{filepath.Join(dir, "maps")}
	s.Keymaps.Files = []string{filepath.Join(dir, "extra.json"), filepath.Join(dir, "broken.json")}

	e := newEngine(t)
	r := NewReloader("", s, e, resolveNoop)
	err := r.LoadKeymaps()
	if err == nil {
		t.Fatal("broken keymap should be reported")
	}

	if got := r.Keymaps(); len(got) != 3 {
		t.Errorf("Keymaps() = %v", got)
	}
	if !slices.Equal(e.ActiveKeys(), []key.Key{key.KeyEscape}) {
		t.Errorf("ActiveKeys() = %v", e.ActiveKeys())
	}
	if len(e.ActiveSequences()) != 1 || len(e.ActiveShortcuts()) != 1 {
		t.Errorf("sequences = %v, shortcuts = %v", e.ActiveSequences(), e.ActiveShortcuts())
	}
}

func TestReloader_ReloadKeymap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.toml")
	writeFile(t, path, "[[bindings]]\nkeys = \"a\"\naction = \"x\"\n")

	s := Defaults()
	s.Keymaps.Files = []string{path}
	e := newEngine(t)
	r := NewReloader("", s, e, resolveNoop)
	if err := r.LoadKeymaps(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, path, "[[bindings]]\nkeys = \"b\"\naction = \"x\"\n")
	if err := r.ReloadKeymap(path); err != nil {
		t.Fatalf("ReloadKeymap() error = %v", err)
	}
	if !slices.Equal(e.ActiveKeys(), []key.Key{"b"}) {
		t.Errorf("after edit ActiveKeys() = %v", e.ActiveKeys())
	}

	// A broken edit keeps the previous bindings.
	writeFile(t, path, "[[bindings]]\nkeys = \"c\"\naction = \"missing\"\n")
	if err := r.ReloadKeymap(path); err == nil {
		t.Error("broken edit should fail")
	}
	if !slices.Equal(e.ActiveKeys(), []key.Key{"b"}) {
		t.Errorf("after broken edit ActiveKeys() = %v", e.ActiveKeys())
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := r.ReloadKeymap(path); err != nil {
		t.Fatal(err)
	}
	if len(e.ActiveKeys()) != 0 || len(r.Keymaps()) != 0 {
		t.Errorf("after removal keys = %v, keymaps = %v", e.ActiveKeys(), r.Keymaps())
	}
}

func TestReloader_ReloadSettingsRebindsWithNewDelimiter(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	mapPath := filepath.Join(dir, "keys.json")
	writeFile(t, mapPath, `{"bindings":[{"kind":"shortcut","keys":"ctrl,s","action":"save"}]}`)

	delim := ","
	var loadErr error
	load := func(string) (*Settings, error) {
		if loadErr != nil {
			return nil, loadErr
		}
		s := Defaults()
		s.Input.Delimiter = delim
		s.Keymaps.Files = []string{mapPath}
		return s, nil
	}

	s, _ := load(cfgPath)
	e := newEngine(t)
	var reloaded int
	r := NewReloader(cfgPath, s, e, resolveNoop, WithLoad(load), OnReload(func(*Settings) { reloaded++ }))
	if err := r.LoadKeymaps(); err != nil {
		t.Fatal(err)
	}

	delim = "+"
	writeFile(t, mapPath, `{"bindings":[{"kind":"shortcut","keys":"ctrl+s","action":"save"}]}`)
	if err := r.ReloadSettings(); err != nil {
		t.Fatalf("ReloadSettings() error = %v", err)
	}
	if e.Config().Delimiter != "+" || reloaded != 1 {
		t.Errorf("delimiter = %q, reloaded = %d", e.Config().Delimiter, reloaded)
	}
	if got := e.ActiveShortcuts(); len(got) != 1 || got[0] != "Control+s" {
		t.Errorf("ActiveShortcuts() = %v", got)
	}

	loadErr = errors.New("disk on fire")
	if err := r.ReloadSettings(); err == nil {
		t.Error("load failure should be returned")
	}
	if e.Config().Delimiter != "+" || len(e.ActiveShortcuts()) != 1 {
		t.Error("failed reload changed the engine")
	}
}

func TestReloader_Watch(t *testing.T) {
	dir := t.TempDir()
	maps := filepath.Join(dir, "maps")
	writeFile(t, filepath.Join(maps, "a.json"), `{"bindings":[{"keys":"a","action":"x"}]}`)

	s := Defaults()
	s.Keymaps.Dirs = []string{maps}
	e := newEngine(t)
	r := NewReloader("", s, e, resolveNoop, WithDebounce(10*time.Millisecond))
	if err := r.LoadKeymaps(); err != nil {
		t.Fatal(err)
	}
	if err := r.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer r.Close()

	writeFile(t, filepath.Join(maps, "b.json"), `{"bindings":[{"keys":"b","action":"x"}]}`)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(e.ActiveKeys()) == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("ActiveKeys() = %v, want a and b", e.ActiveKeys())
}

func TestReloader_WatchDisabled(t *testing.T) {
	s := Defaults()
	s.Keymaps.Watch = false
	r := NewReloader("", s, newEngine(t), resolveNoop)
	if err := r.Watch(); err != nil {
		t.Fatal(err)
	}
	if r.watcher != nil {
		t.Error("watcher started although disabled")
	}
	if err := r.Close(); err != nil {
		t.Error(err)
	}
}

func TestReloader_RelativeConfigPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "silverkey.toml"), "[keymaps]\nfiles = [\"keys.toml\"]\n")
	writeFile(t, filepath.Join(dir, "keys.toml"), "[[bindings]]\nkeys = \"a\"\naction = \"x\"\n")
	t.Chdir(dir)

	s, err := loadWith(t, "silverkey.toml")
	if err != nil {
		t.Fatal(err)
	}
	mapPath, err := filepath.Abs("keys.toml")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(s.Keymaps.Files, []string{mapPath}) {
		t.Fatalf("Keymaps.Files = %v, want [%s]", s.Keymaps.Files, mapPath)
	}

	e := newEngine(t)
	r := NewReloader(s.Path, s, e, resolveNoop)
	if err := r.LoadKeymaps(); err != nil {
		t.Fatal(err)
	}

	// Watch events name the file by its absolute path.
	writeFile(t, mapPath, "[[bindings]]\nkeys = \"b\"\naction = \"x\"\n")
	if err := r.ReloadKeymap(mapPath); err != nil {
		t.Fatalf("ReloadKeymap() error = %v", err)
	}
	if !slices.Equal(e.ActiveKeys(), []key.Key{"b"}) {
		t.Errorf("ActiveKeys() = %v, want [b]", e.ActiveKeys())
	}
	if got := r.Keymaps(); len(got) != 1 {
		t.Errorf("Keymaps() = %v", got)
	}
}

func TestReloader_RelativeKeymapFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keys.toml"), "[[bindings]]\nkeys = \"a\"\naction = \"x\"\n")
	t.Chdir(dir)

	s := Defaults()
	s.Keymaps.Files = []string{"keys.toml"}
	e := newEngine(t)
	r := NewReloader("", s, e, resolveNoop)
	if err := r.LoadKeymaps(); err != nil {
		t.Fatal(err)
	}

	abs, err := filepath.Abs("keys.toml")
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, abs, "[[bindings]]\nkeys = \"b\"\naction = \"x\"\n")
	if err := r.ReloadKeymap(abs); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(e.ActiveKeys(), []key.Key{"b"}) {
		t.Errorf("ActiveKeys() = %v, want [b]", e.ActiveKeys())
	}

	if err := os.Remove(abs); err != nil {
		t.Fatal(err)
	}
	if err := r.ReloadKeymap("keys.toml"); err != nil {
		t.Fatal(err)
	}
	if len(e.ActiveKeys()) != 0 {
		t.Errorf("after removal ActiveKeys() = %v", e.ActiveKeys())
	}
}
