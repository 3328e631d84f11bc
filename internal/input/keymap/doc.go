// Package keymap stores key, sequence and shortcut bindings and tracks
// which keys must have their host default action suppressed.
//
// # Binding Categories
//
// Three kinds of bindings are supported:
//
//	CategoryKey       "Escape"     fires for a single key press
//	CategorySequence  "a,b,c"      fires when the keys are pressed in order
//	CategoryShortcut  "ctrl,alt,s" fires when exactly these keys are held
//
// Labels are resolved through a key.Resolver, so aliases like "ctrl",
// "esc" or "up" are accepted. Shortcut keys are de-duplicated and sorted;
// at most MaxShortcutKeys distinct keys may be combined.
//
// # Suppression
//
// Unless a binding is registered with WithAllowDefaults, each of its keys
// is added to the prevent-default and stop-propagation sets. A key leaves
// the sets only when no remaining suppressing binding references it.
//
// # Usage
//
//	reg := keymap.NewRegistry(key.NewResolver(nil))
//	reg.BindKey("esc", closeDialog)
//	reg.BindSequence("g,g", jumpTop, keymap.WithDescription("go to top"))
//	reg.BindShortcut("ctrl,s", save)
//
//	if reg.PreventsDefault(key.KeyEscape) {
//	    // cancel the host default action
//	}
//
// Keymap files (JSON, TOML or YAML) are read by a Loader and applied to
// any Binder, typically the input engine.
package keymap
