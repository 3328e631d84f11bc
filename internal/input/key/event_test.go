package key

import (
	"testing"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		typ  EventType
		want string
	}{
		{EventDown, "keydown"},
		{EventUp, "keyup"},
		{EventBlur, "blur"},
		{EventType(0), "EventType(0)"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("EventType.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in   string
		want EventType
		ok   bool
	}{
		{"keydown", EventDown, true},
		{"KeyUp", EventUp, true},
		{" blur ", EventBlur, true},
		{"press", EventDown, true},
		{"keypress", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseEventType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseEventType(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEventHasNamedKey(t *testing.T) {
	tests := []struct {
		ev   Event
		want bool
	}{
		{Event{Key: "a"}, true},
		{Event{Key: "Unidentified", Code: 65}, false},
		{Event{Code: 65}, false},
	}

	for _, tt := range tests {
		if got := tt.ev.HasNamedKey(); got != tt.want {
			t.Errorf("Event{Key:%q}.HasNamedKey() = %v, want %v", tt.ev.Key, got, tt.want)
		}
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Type: EventDown, Key: "s", Ctrl: true, Code: 83}, "keydown Ctrl+s (83)"},
		{Event{Type: EventUp, Key: "Escape"}, "keyup Escape"},
		{Event{Type: EventDown, Code: 65}, "keydown ? (65)"},
		{Event{Type: EventBlur}, "blur"},
	}

	for _, tt := range tests {
		if got := tt.ev.String(); got != tt.want {
			t.Errorf("Event.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestModifierQueryFunc(t *testing.T) {
	var q ModifierQuery = ModifierQueryFunc(func(name string) bool {
		return name == "CapsLock"
	})
	if !q.ModifierState("CapsLock") || q.ModifierState("NumLock") {
		t.Error("ModifierQueryFunc should delegate to the function")
	}
}
