package key

import "strings"

// Result is the outcome of normalizing one event.
type Result struct {
	// Label is the resolved key with its case preserved ("A", "ArrowUp").
	Label string

	// Key is the canonical binding form of Label ("a", "ArrowUp").
	Key Key
}

// Normalizer turns raw events into canonical keys.
type Normalizer struct {
	resolver *Resolver
}

// NewNormalizer creates a normalizer that resolves labels through r.
func NewNormalizer(r *Resolver) *Normalizer {
	if r == nil {
		r = NewResolver(nil)
	}
	return &Normalizer{resolver: r}
}

// Normalize resolves ev against the previous modifier state.
//
// history is the current press history text; it is only consulted for
// repeat detection when the host does not report a repeat flag. The Meta
// flag is carried over from st since hosts do not report it reliably.
func (n *Normalizer) Normalize(ev Event, st State, history string) (Result, State) {
	next := State{Modifiers: st.Modifiers & ModMeta}
	if ev.Query != nil {
		next.Modifiers = next.Modifiers.Set(ModCapsLock, ev.Query.ModifierState("CapsLock"))
	}
	next.Modifiers = next.Modifiers.
		Set(ModShift, ev.Shift).
		Set(ModAlt, ev.Alt).
		Set(ModCtrl, ev.Ctrl)

	if ev.Type == EventBlur {
		return Result{Label: string(KeyBlur), Key: KeyBlur}, next
	}

	var label string
	switch {
	case ev.HasNamedKey():
		label = string(n.resolver.Resolve(ev.Key, true))
	case ev.Key == string(KeyUnidentified) || ev.Code != 0:
		label = string(n.fromCode(ev.Code, next.Modifiers))
	default:
		label = string(KeyUnidentified)
	}

	if ev.Type == EventDown {
		if ev.RepeatReported {
			next.Repeat = ev.Repeat
		} else {
			next.Repeat = label != "" && strings.HasSuffix(history, label)
		}
	}

	return Result{Label: label, Key: n.resolver.Resolve(label, false)}, next
}

// fromCode resolves a legacy key code for the QWERTY-US layout.
// For letters Shift and CapsLock cancel each other out.
func (n *Normalizer) fromCode(code int, mods Modifier) Key {
	lookup := n.resolver.Lookup()
	plain, hasPlain := lookup.Code(code)
	shifted, hasShifted := lookup.ShiftedCode(code)
	letter := code >= 65 && code <= 90

	switch {
	case mods.HasShift() && hasShifted:
		if letter && mods.HasCapsLock() && hasPlain {
			return plain
		}
		return shifted
	case mods.HasCapsLock():
		if letter && hasShifted {
			return shifted
		}
		if hasPlain {
			return plain
		}
	case hasPlain:
		return plain
	}
	return KeyUnidentified
}
