package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dshills/silverkey/internal/config/watcher"
	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/keymap"
)

// DefaultDebounce is the quiet period before a changed file is reloaded.
const DefaultDebounce = 150 * time.Millisecond

// Reloader installs keymap files into an engine and keeps them in sync
// with the files on disk.
type Reloader struct {
	mu sync.Mutex

	path     string // config file, may not exist
	settings *Settings
	engine   *input.Engine
	resolve  keymap.ActionResolver
	logger   *slog.Logger
	load     func(path string) (*Settings, error)
	debounce time.Duration
	onReload func(*Settings)

	keymaps map[string]loadedKeymap
	watcher *watcher.Watcher
}

type loadedKeymap struct {
	file    *keymap.File
	applied *keymap.Applied
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithReloadLogger sets the logger.
func WithReloadLogger(l *slog.Logger) ReloaderOption {
	return func(r *Reloader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDebounce sets the file watcher debounce.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *Reloader) { r.debounce = d }
}

// OnReload registers fn to run after settings were reloaded and applied.
func OnReload(fn func(*Settings)) ReloaderOption {
	return func(r *Reloader) { r.onReload = fn }
}

// WithLoad replaces the function that re-reads settings on change. It
// receives the watched config path.
func WithLoad(fn func(path string) (*Settings, error)) ReloaderOption {
	return func(r *Reloader) { r.load = fn }
}

// NewReloader creates a reloader for settings read from path. Actions named
// by keymap entries are resolved with resolve.
func NewReloader(path string, s *Settings, e *input.Engine, resolve keymap.ActionResolver, opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		path:     path,
		settings: s,
		engine:   e,
		resolve:  resolve,
		logger:   slog.New(slog.DiscardHandler),
		load:     Load,
		debounce: DefaultDebounce,
		keymaps:  make(map[string]loadedKeymap),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the current settings.
func (r *Reloader) Settings() *Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// Keymaps returns the paths of the installed keymap files.
func (r *Reloader) Keymaps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := make([]string, 0, len(r.keymaps))
	for p := range r.keymaps {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// LoadKeymaps installs every keymap file named by the settings. A file
// that fails is skipped; the failures are returned joined.
func (r *Reloader) LoadKeymaps() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadKeymapsLocked()
}

func (r *Reloader) loadKeymapsLocked() error {
	l := keymap.NewLoader()
	for _, dir := range r.settings.Keymaps.Dirs {
		l.AddSearchPath(dir)
	}
	files, err := l.LoadAll()
	errs := []error{err}

	for _, path := range r.settings.Keymaps.Files {
		f, err := l.LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, f)
	}

	for _, f := range files {
		if err := r.installLocked(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// installLocked replaces the bindings of f.Path with those of f. If f
// cannot be applied, the previous version is put back.
func (r *Reloader) installLocked(f *keymap.File) error {
	id := keymapID(f.Path)
	prev, had := r.keymaps[id]
	if had {
		prev.applied.Revert(r.engine)
		delete(r.keymaps, id)
	}

	applied, err := keymap.Apply(f, r.engine, r.resolve)
	if err != nil {
		if had {
			if restored, rerr := keymap.Apply(prev.file, r.engine, r.resolve); rerr == nil {
				r.keymaps[id] = loadedKeymap{file: prev.file, applied: restored}
			}
		}
		return fmt.Errorf("keymap %s: %w", f.Path, err)
	}

	r.keymaps[id] = loadedKeymap{file: f, applied: applied}
	r.logger.Info("keymap loaded", "name", f.Name, "path", f.Path, "bindings", applied.Len())
	return nil
}

func (r *Reloader) unloadAllLocked() {
	for path, km := range r.keymaps {
		km.applied.Revert(r.engine)
		delete(r.keymaps, path)
	}
}

// ReloadKeymap re-reads one keymap file. A file that no longer exists has
// its bindings removed.
func (r *Reloader) ReloadKeymap(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		id := keymapID(path)
		if km, ok := r.keymaps[id]; ok {
			km.applied.Revert(r.engine)
			delete(r.keymaps, id)
			r.logger.Info("keymap removed", "name", km.file.Name, "path", path)
		}
		return nil
	}

	f, err := keymap.NewLoader().LoadFile(path)
	if err != nil {
		return err
	}
	return r.installLocked(f)
}

// ReloadSettings re-reads the config file, applies it to the engine and
// reinstalls all keymaps. On error the engine keeps its current state.
func (r *Reloader) ReloadSettings() error {
	s, err := r.load(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	// Labels are parsed with the current delimiter, so bindings must go
	// before it changes.
	r.unloadAllLocked()
	if err := s.Apply(r.engine); err != nil {
		aerr := r.settings.Apply(r.engine)
		lerr := r.loadKeymapsLocked()
		r.mu.Unlock()
		return errors.Join(err, aerr, lerr)
	}
	r.settings = s
	err = r.loadKeymapsLocked()
	onReload := r.onReload
	r.mu.Unlock()

	r.logger.Info("settings reloaded", "path", r.path)
	if onReload != nil {
		onReload(s)
	}
	return err
}

// Watch starts watching the config file and keymap sources when the
// settings enable it. Close stops it.
func (r *Reloader) Watch() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watcher != nil || !r.settings.Keymaps.Watch {
		return nil
	}

	w, err := watcher.New(watcher.WithDebounce(r.debounce), watcher.WithLogger(r.logger))
	if err != nil {
		return err
	}

	var errs []error
	if r.path != "" {
		if err := w.Watch(r.path); err != nil {
			errs = append(errs, err)
		}
	}
	for _, dir := range r.settings.Keymaps.Dirs {
		if err := w.WatchDir(dir); err != nil {
			errs = append(errs, err)
		}
	}
	for _, path := range r.settings.Keymaps.Files {
		if err := w.Watch(path); err != nil {
			errs = append(errs, err)
		}
	}

	w.OnChange(r.handle)
	w.Start()
	r.watcher = w
	r.logger.Debug("watching configuration", "paths", w.WatchedFiles())

	// Missing directories are common; report them without failing.
	return errors.Join(errs...)
}

func (r *Reloader) handle(ev watcher.Event) {
	var err error
	switch {
	case r.path != "" && sameFile(ev.Path, r.path):
		err = r.ReloadSettings()
	default:
		if _, ferr := keymap.FormatFor(ev.Path); ferr != nil {
			return
		}
		err = r.ReloadKeymap(ev.Path)
	}
	if err != nil {
		r.logger.Error("reload failed", "path", ev.Path, "op", ev.Op.String(), "err", err)
	}
}

// Close stops watching.
func (r *Reloader) Close() error {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Close()
}

// keymapID is the key of an installed keymap. Watcher events carry
// absolute paths while settings may hold relative ones.
func keymapID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
