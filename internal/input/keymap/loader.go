package keymap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a keymap file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for an unsupported keymap file extension.
var ErrUnknownFormat = errors.New("unknown keymap format")

// FormatFor returns the format implied by a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// File is a decoded keymap file.
type File struct {
	// Name identifies the keymap.
	Name string `json:"name" toml:"name" yaml:"name"`

	// Bindings are applied in order.
	Bindings []Entry `json:"bindings" toml:"bindings" yaml:"bindings"`

	// Path is the file the keymap was read from, if any.
	Path string `json:"-" toml:"-" yaml:"-"`
}

// Entry is one binding in a keymap file.
type Entry struct {
	// Kind is "key", "sequence" or "shortcut". Empty means "key".
	Kind string `json:"kind,omitempty" toml:"kind,omitempty" yaml:"kind,omitempty"`

	// Keys is the delimited key label.
	Keys string `json:"keys" toml:"keys" yaml:"keys"`

	// Action is the name of the action to run.
	Action string `json:"action" toml:"action" yaml:"action"`

	// Args are fixed arguments for the action.
	Args map[string]any `json:"args,omitempty" toml:"args,omitempty" yaml:"args,omitempty"`

	AllowDefaults bool   `json:"allow_defaults,omitempty" toml:"allow_defaults,omitempty" yaml:"allow_defaults,omitempty"`
	Description   string `json:"description,omitempty" toml:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks that every entry has keys, an action and a known kind.
func (f *File) Validate() error {
	for i, e := range f.Bindings {
		if e.Keys == "" {
			return fmt.Errorf("binding %d: %w", i, ErrEmptyInput)
		}
		if e.Action == "" {
			return fmt.Errorf("binding %d (%s): empty action", i, e.Keys)
		}
		if _, ok := ParseCategory(e.Kind); !ok {
			return fmt.Errorf("binding %d (%s): %w %q", i, e.Keys, ErrInvalidCategory, e.Kind)
		}
	}
	return nil
}

// Loader loads keymaps from files.
type Loader struct {
	searchPaths []string
}

// NewLoader creates a new keymap loader.
func NewLoader() *Loader {
	return &Loader{}
}

// AddSearchPath adds a directory to search for keymap files.
func (l *Loader) AddSearchPath(path string) {
	l.searchPaths = append(l.searchPaths, path)
}

// LoadFile loads a keymap file, choosing the decoder from the extension.
func (l *Loader) LoadFile(path string) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keymap file: %w", err)
	}

	f, err := l.decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("keymap %s: %w", path, err)
	}
	f.Path = path
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// LoadReader loads a keymap in the given format from a reader.
func (l *Loader) LoadReader(r io.Reader, format Format) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading keymap: %w", err)
	}
	return l.decode(data, format)
}

func (l *Loader) decode(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decoding keymap: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decoding keymap: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decoding keymap: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadAll loads every keymap file found in the search paths.
// Files that fail to load are returned in the error but do not stop the
// remaining files from loading.
func (l *Loader) LoadAll() ([]*File, error) {
	var (
		files []*File
		errs  []error
	)

	for _, dir := range l.searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, err)
			}
			continue
		}
		for _, ent := range entries {
			if ent.IsDir() {
				continue
			}
			path := filepath.Join(dir, ent.Name())
			if _, err := FormatFor(path); err != nil {
				continue
			}
			f, err := l.LoadFile(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			files = append(files, f)
		}
	}

	return files, errors.Join(errs...)
}

// Binder accepts bindings. Both Registry and the input engine implement it.
type Binder interface {
	BindKey(input string, cb Callback, opts ...BindOption) error
	BindSequence(input string, cb Callback, opts ...BindOption) error
	BindShortcut(input string, cb Callback, opts ...BindOption) error
	UnbindKey(input string) error
	UnbindSequence(input string) error
	UnbindShortcut(input string) error
}

// ActionResolver turns an action name and arguments into a callback.
type ActionResolver func(name string, args map[string]any) (Callback, error)

// Applied records the bindings a keymap file installed so they can be
// removed again on reload.
type Applied struct {
	Name  string
	items []appliedItem
}

type appliedItem struct {
	category Category
	keys     string
}

// Len returns the number of installed bindings.
func (a *Applied) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// Apply binds every entry of f on b. On error the bindings installed so
// far are removed again.
func Apply(f *File, b Binder, resolve ActionResolver) (*Applied, error) {
	applied := &Applied{Name: f.Name}

	for i, e := range f.Bindings {
		cat, ok := ParseCategory(e.Kind)
		if !ok {
			applied.Revert(b)
			return nil, fmt.Errorf("binding %d (%s): %w %q", i, e.Keys, ErrInvalidCategory, e.Kind)
		}

		cb, err := resolve(e.Action, e.Args)
		if err != nil {
			applied.Revert(b)
			return nil, fmt.Errorf("binding %d (%s): %w", i, e.Keys, err)
		}

		opts := []BindOption{WithAction(e.Action)}
		if e.AllowDefaults {
			opts = append(opts, WithAllowDefaults())
		}
		if e.Description != "" {
			opts = append(opts, WithDescription(e.Description))
		}

		if err := bind(b, cat, e.Keys, cb, opts...); err != nil {
			applied.Revert(b)
			return nil, fmt.Errorf("binding %d (%s): %w", i, e.Keys, err)
		}
		applied.items = append(applied.items, appliedItem{category: cat, keys: e.Keys})
	}

	return applied, nil
}

// Revert removes the bindings recorded in a. Entries already removed
// elsewhere are skipped.
func (a *Applied) Revert(b Binder) {
	if a == nil {
		return
	}
	for i := len(a.items) - 1; i >= 0; i-- {
		item := a.items[i]
		_ = unbind(b, item.category, item.keys)
	}
	a.items = nil
}

func bind(b Binder, c Category, input string, cb Callback, opts ...BindOption) error {
	switch c {
	case CategoryKey:
		return b.BindKey(input, cb, opts...)
	case CategorySequence:
		return b.BindSequence(input, cb, opts...)
	case CategoryShortcut:
		return b.BindShortcut(input, cb, opts...)
	}
	return ErrInvalidCategory
}

func unbind(b Binder, c Category, input string) error {
	switch c {
	case CategoryKey:
		return b.UnbindKey(input)
	case CategorySequence:
		return b.UnbindSequence(input)
	case CategoryShortcut:
		return b.UnbindShortcut(input)
	}
	return ErrInvalidCategory
}
