package key

import "strings"

// Modifier is the set of modifier flags held during a transition.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModShift indicates the Shift key.
	ModShift Modifier = 1 << iota

	// ModCtrl indicates the Control key.
	ModCtrl

	// ModAlt indicates the Alt key (Option on macOS).
	ModAlt

	// ModMeta indicates the Meta key (Cmd on macOS, Win on Windows).
	ModMeta

	// ModCapsLock indicates Caps Lock is engaged.
	ModCapsLock
)

// Has reports whether any bit of mod is set in m.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

func (m Modifier) HasShift() bool    { return m.Has(ModShift) }
func (m Modifier) HasCtrl() bool     { return m.Has(ModCtrl) }
func (m Modifier) HasAlt() bool      { return m.Has(ModAlt) }
func (m Modifier) HasMeta() bool     { return m.Has(ModMeta) }
func (m Modifier) HasCapsLock() bool { return m.Has(ModCapsLock) }

// With returns m plus mod.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// Without returns m minus mod.
func (m Modifier) Without(mod Modifier) Modifier {
	return m &^ mod
}

// Set returns m with mod added when on is true and removed otherwise.
func (m Modifier) Set(mod Modifier, on bool) Modifier {
	if on {
		return m.With(mod)
	}
	return m.Without(mod)
}

// IsEmpty reports whether no flag is set.
func (m Modifier) IsEmpty() bool {
	return m == ModNone
}

// modifierNames lists the flags in display order.
var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "Ctrl"},
	{ModAlt, "Alt"},
	{ModShift, "Shift"},
	{ModMeta, "Meta"},
	{ModCapsLock, "CapsLock"},
}

// String joins the set flags with "+", for example "Ctrl+Alt".
func (m Modifier) String() string {
	var sb strings.Builder
	for _, n := range modifierNames {
		if !m.Has(n.mod) {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(n.name)
	}
	return sb.String()
}

// State is the modifier state carried across transitions.
// It is overwritten on each transition from the raw event.
type State struct {
	// Modifiers holds the active modifier flags.
	Modifiers Modifier

	// Repeat is true when the last press was an auto-repeat.
	Repeat bool
}

// Shift returns true if Shift is held.
func (s State) Shift() bool { return s.Modifiers.HasShift() }

// Ctrl returns true if Control is held.
func (s State) Ctrl() bool { return s.Modifiers.HasCtrl() }

// Alt returns true if Alt is held.
func (s State) Alt() bool { return s.Modifiers.HasAlt() }

// Meta returns true if Meta is held.
func (s State) Meta() bool { return s.Modifiers.HasMeta() }

// CapsLock returns true if Caps Lock is engaged.
func (s State) CapsLock() bool { return s.Modifiers.HasCapsLock() }
