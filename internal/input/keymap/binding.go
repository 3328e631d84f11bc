package keymap

import (
	"slices"
	"strings"

	"github.com/dshills/silverkey/internal/input/key"
)

// MaxShortcutKeys is the maximum number of distinct keys in a shortcut.
const MaxShortcutKeys = 6

// Callback is invoked when a binding fires.
type Callback func()

// Category identifies the kind of binding.
type Category uint8

const (
	// CategoryNone means no binding.
	CategoryNone Category = iota

	// CategoryKey is a single-key binding.
	CategoryKey

	// CategorySequence is an ordered multi-key binding.
	CategorySequence

	// CategoryShortcut is an unordered simultaneous-press binding.
	CategoryShortcut
)

// Categories lists the binding categories in match priority order.
var Categories = []Category{CategorySequence, CategoryShortcut, CategoryKey}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryKey:
		return "key"
	case CategorySequence:
		return "sequence"
	case CategoryShortcut:
		return "shortcut"
	default:
		return "none"
	}
}

// ParseCategory parses "key", "sequence" or "shortcut".
// "combo" is accepted as a synonym for "shortcut".
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "key", "":
		return CategoryKey, true
	case "sequence", "seq":
		return CategorySequence, true
	case "shortcut", "combo":
		return CategoryShortcut, true
	}
	return CategoryNone, false
}

// Binding maps canonical keys to a callback.
type Binding struct {
	// Category is the binding kind.
	Category Category

	// Keys are the canonical keys. Sequences keep press order;
	// shortcuts are de-duplicated and sorted.
	Keys []key.Key

	// Callback runs when the binding fires. May be nil.
	Callback Callback

	// AllowDefaults leaves the host default action and propagation alone.
	AllowDefaults bool

	// Description documents the binding.
	Description string

	// Action names the action the callback runs, if any.
	Action string
}

// BindOption configures a binding.
type BindOption func(*Binding)

// WithAllowDefaults keeps the host default action for the binding's keys.
func WithAllowDefaults() BindOption {
	return func(b *Binding) {
		b.AllowDefaults = true
	}
}

// WithDescription sets the binding description.
func WithDescription(desc string) BindOption {
	return func(b *Binding) {
		b.Description = desc
	}
}

// WithAction records the name of the action behind the callback.
func WithAction(name string) BindOption {
	return func(b *Binding) {
		b.Action = name
	}
}

// Uses reports whether the binding references k.
func (b *Binding) Uses(k key.Key) bool {
	return key.Contains(b.Keys, k)
}

// Suppresses reports whether the binding claims its keys' default actions.
func (b *Binding) Suppresses() bool {
	return !b.AllowDefaults
}

// Label returns the keys joined with sep, as accepted by the bind calls.
func (b *Binding) Label(sep string) string {
	return key.Join(b.Keys, sep)
}

// Clone returns a copy that shares no slices with b.
func (b *Binding) Clone() Binding {
	c := *b
	c.Keys = slices.Clone(b.Keys)
	return c
}

// id encodes a key list so that distinct lists never collide.
func id(keys []key.Key) string {
	return key.Join(keys, "\x00")
}

// shortcutKeys removes duplicates (first occurrence kept) and sorts.
func shortcutKeys(keys []key.Key) []key.Key {
	out := make([]key.Key, 0, len(keys))
	for _, k := range keys {
		if !key.Contains(out, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
