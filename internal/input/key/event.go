package key

import (
	"fmt"
	"strings"
	"time"
)

// EventType identifies the kind of key transition.
type EventType uint8

const (
	// EventDown is a key press.
	EventDown EventType = iota + 1

	// EventUp is a key release.
	EventUp

	// EventBlur is a loss of focus on the event source.
	EventBlur
)

// String returns the host-style name of the event type.
func (t EventType) String() string {
	switch t {
	case EventDown:
		return "keydown"
	case EventUp:
		return "keyup"
	case EventBlur:
		return "blur"
	default:
		return fmt.Sprintf("EventType(%d)", t)
	}
}

// ParseEventType parses "keydown", "keyup" or "blur" (case-insensitive).
func ParseEventType(s string) (EventType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keydown", "down", "press":
		return EventDown, true
	case "keyup", "up", "release":
		return EventUp, true
	case "blur", "focusout":
		return EventBlur, true
	}
	return 0, false
}

// ModifierQuery reports named lock and modifier states ("CapsLock").
// Hosts that cannot answer leave Event.Query nil.
type ModifierQuery interface {
	ModifierState(name string) bool
}

// ModifierQueryFunc adapts a function to ModifierQuery.
type ModifierQueryFunc func(name string) bool

// ModifierState implements ModifierQuery.
func (f ModifierQueryFunc) ModifierState(name string) bool {
	return f(name)
}

// Event is a raw key transition as delivered by a host.
// Fields a host cannot supply are left at their zero value.
type Event struct {
	// Type is the transition kind.
	Type EventType

	// Key is the named key value ("a", "Escape", "Unidentified").
	// Empty when the host has no named value.
	Key string

	// Code is the legacy numeric key code. Zero when absent.
	Code int

	// Shift, Alt and Ctrl mirror the host's modifier flags.
	Shift bool
	Alt   bool
	Ctrl  bool

	// Repeat is the host's auto-repeat flag. It is only trusted when
	// RepeatReported is set.
	Repeat         bool
	RepeatReported bool

	// Query answers modifier-state questions. Optional.
	Query ModifierQuery

	// NotCancelable is set when the host cannot cancel the default action.
	NotCancelable bool

	// Timestamp is when the transition occurred. Zero means "now".
	Timestamp time.Time
}

// HasNamedKey reports whether the host supplied a usable named key value.
func (e Event) HasNamedKey() bool {
	return e.Key != "" && e.Key != string(KeyUnidentified)
}

// String returns a compact description like "keydown Ctrl+s (83)".
func (e Event) String() string {
	var sb strings.Builder
	sb.WriteString(e.Type.String())

	var mods Modifier
	mods = mods.Set(ModCtrl, e.Ctrl).Set(ModAlt, e.Alt).Set(ModShift, e.Shift)
	if e.Type != EventBlur {
		sb.WriteByte(' ')
		if !mods.IsEmpty() {
			sb.WriteString(mods.String())
			sb.WriteByte('+')
		}
		if e.Key != "" {
			sb.WriteString(e.Key)
		} else {
			sb.WriteString("?")
		}
		if e.Code != 0 {
			fmt.Fprintf(&sb, " (%d)", e.Code)
		}
	}
	return sb.String()
}
