package history

import (
	"testing"
	"time"

	"github.com/dshills/silverkey/internal/input/key"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func TestPressAppendsHistoryAndCombo(t *testing.T) {
	tr := New(DefaultTimeout)

	tr.Press("a", at(0))
	tr.Press("b", at(100))
	tr.Press("a", at(200))

	if got := tr.String(); got != "aba" {
		t.Errorf("String() = %q, want %q", got, "aba")
	}
	if got := tr.Combo(); !key.Equal(got, []key.Key{"a", "b"}) {
		t.Errorf("Combo() = %v, want [a b]", got)
	}
}

func TestPressExpiresAfterTimeout(t *testing.T) {
	tr := New(1000 * time.Millisecond)

	if tr.Press("a", at(0)) {
		t.Error("first press should not report expiry")
	}
	if expired := tr.Press("b", at(1500)); !expired {
		t.Error("press after 1500ms should expire history")
	}
	if got := tr.String(); got != "b" {
		t.Errorf("String() = %q, want %q", got, "b")
	}
	if got := tr.Combo(); !key.Equal(got, []key.Key{"b"}) {
		t.Errorf("Combo() = %v, want [b]", got)
	}
}

func TestExpireBoundary(t *testing.T) {
	tr := New(1000 * time.Millisecond)
	tr.Press("a", at(0))

	if tr.Expire(at(1000)) {
		t.Error("a gap equal to the timeout should not expire")
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
	if !tr.Expire(at(2001)) {
		t.Error("a gap over the timeout should expire")
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d after expiry, want 0", tr.Len())
	}
}

func TestReleaseTouchesClock(t *testing.T) {
	tr := New(1000 * time.Millisecond)
	tr.Press("a", at(0))
	tr.Release("a", at(900))

	if len(tr.Combo()) != 0 {
		t.Errorf("Combo() = %v after release, want empty", tr.Combo())
	}
	if tr.Press("b", at(1800)) {
		t.Error("release should reset the gap measurement")
	}
	if got := tr.String(); got != "ab" {
		t.Errorf("String() = %q, want %q", got, "ab")
	}
}

func TestReleaseUnknownKey(t *testing.T) {
	tr := New(DefaultTimeout)
	tr.Press("a", at(0))
	tr.Release("z", at(10))

	if got := tr.Combo(); !key.Equal(got, []key.Key{"a"}) {
		t.Errorf("Combo() = %v, want [a]", got)
	}
}

func TestAppendSkipsCombo(t *testing.T) {
	tr := New(DefaultTimeout)
	tr.Append(key.KeyPrintScreen, at(0))

	if got := tr.String(); got != "PrintScreen" {
		t.Errorf("String() = %q", got)
	}
	if len(tr.Combo()) != 0 {
		t.Errorf("Append should not add to the combo: %v", tr.Combo())
	}
}

func TestHasSuffix(t *testing.T) {
	tr := New(DefaultTimeout)
	for i, k := range []key.Key{"x", key.KeyEscape, "a", "b"} {
		tr.Press(k, at(i*10))
	}

	tests := []struct {
		seq  []key.Key
		want bool
	}{
		{[]key.Key{"a", "b"}, true},
		{[]key.Key{"b"}, true},
		{[]key.Key{key.KeyEscape, "a", "b"}, true},
		{[]key.Key{"e", "a", "b"}, false},
		{[]key.Key{"a"}, false},
		{nil, false},
		{[]key.Key{"q", "x", key.KeyEscape, "a", "b"}, false},
	}

	for _, tt := range tests {
		if got := tr.HasSuffix(tt.seq); got != tt.want {
			t.Errorf("HasSuffix(%v) = %v, want %v", tt.seq, got, tt.want)
		}
	}
}

func TestComboEquals(t *testing.T) {
	tr := New(DefaultTimeout)
	tr.Press(key.KeyAlt, at(0))
	tr.Press("s", at(10))
	tr.Press(key.KeyControl, at(20))

	if !tr.ComboEquals([]key.Key{key.KeyControl, key.KeyAlt, "s"}) {
		t.Error("combo should equal {Control, Alt, s} in any order")
	}
	if tr.ComboEquals([]key.Key{key.KeyControl, "s"}) {
		t.Error("subset should not equal the combo")
	}
	if tr.ComboEquals(nil) {
		t.Error("empty set should never match")
	}
}

func TestKeysReturnsCopy(t *testing.T) {
	tr := New(DefaultTimeout)
	tr.Press("a", at(0))

	keys := tr.Keys()
	keys[0] = "z"
	if tr.String() != "a" {
		t.Error("mutating Keys() result changed the tracker")
	}
}
