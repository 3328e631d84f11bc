// Package history tracks recent key presses for sequence and shortcut matching.
//
// A Tracker keeps two views of input:
//
//   - the press history, every key pressed in order (matched as a suffix)
//   - the combo, the set of keys currently held down
//
// Both are discarded when the gap between two transitions exceeds the
// timeout. Expiry is evaluated lazily when the next transition arrives;
// there is no timer, so an abandoned history stays in memory until then.
//
// A Tracker is not safe for concurrent use; the owning engine serializes
// access.
package history

import (
	"time"

	"github.com/dshills/silverkey/internal/input/key"
)

// DefaultTimeout is the maximum gap between transitions before history
// is discarded.
const DefaultTimeout = 1000 * time.Millisecond

// Tracker holds the rolling press history and the held combo.
type Tracker struct {
	timeout time.Duration
	keys    []key.Key
	combo   []key.Key
	last    time.Time
}

// New creates a tracker with the given timeout.
func New(timeout time.Duration) *Tracker {
	return &Tracker{timeout: timeout}
}

// Timeout returns the expiry timeout.
func (t *Tracker) Timeout() time.Duration {
	return t.timeout
}

// SetTimeout sets the expiry timeout.
func (t *Tracker) SetTimeout(d time.Duration) {
	t.timeout = d
}

// LastTransition returns the time of the last recorded transition.
func (t *Tracker) LastTransition() time.Time {
	return t.last
}

// Expire discards history and combo if more than the timeout has passed
// since the last transition. It reports whether anything was discarded.
// The first transition only initializes the clock.
func (t *Tracker) Expire(now time.Time) bool {
	if t.last.IsZero() {
		t.last = now
		return false
	}
	if now.Sub(t.last) <= t.timeout {
		return false
	}
	t.Reset()
	t.last = now
	return true
}

// Press records a key press: expiry check, append to history, add to combo.
func (t *Tracker) Press(k key.Key, now time.Time) bool {
	expired := t.Expire(now)
	t.keys = append(t.keys, k)
	if !key.Contains(t.combo, k) {
		t.combo = append(t.combo, k)
	}
	t.last = now
	return expired
}

// Append records k in the press history without touching the combo.
// Used for keys that are only reported on release.
func (t *Tracker) Append(k key.Key, now time.Time) bool {
	expired := t.Expire(now)
	t.keys = append(t.keys, k)
	t.last = now
	return expired
}

// Release removes k from the combo. The press history is left alone.
func (t *Tracker) Release(k key.Key, now time.Time) {
	for i, held := range t.combo {
		if held == k {
			t.combo = append(t.combo[:i], t.combo[i+1:]...)
			break
		}
	}
	t.Touch(now)
}

// Touch records a transition at now.
func (t *Tracker) Touch(now time.Time) {
	t.last = now
}

// Reset clears history and combo. The transition clock is kept.
func (t *Tracker) Reset() {
	t.keys = nil
	t.combo = nil
}

// HasSuffix reports whether seq matches the most recent presses, in order.
func (t *Tracker) HasSuffix(seq []key.Key) bool {
	n := len(seq)
	if n == 0 || n > len(t.keys) {
		return false
	}
	return key.Equal(t.keys[len(t.keys)-n:], seq)
}

// ComboEquals reports whether the held combo is exactly the set of keys.
// keys must not contain duplicates.
func (t *Tracker) ComboEquals(keys []key.Key) bool {
	if len(keys) == 0 || len(keys) != len(t.combo) {
		return false
	}
	for _, k := range keys {
		if !key.Contains(t.combo, k) {
			return false
		}
	}
	return true
}

// Keys returns a copy of the press history, oldest first.
func (t *Tracker) Keys() []key.Key {
	return append([]key.Key(nil), t.keys...)
}

// Combo returns a copy of the held keys in press order.
func (t *Tracker) Combo() []key.Key {
	return append([]key.Key(nil), t.combo...)
}

// Len returns the number of presses in the history.
func (t *Tracker) Len() int {
	return len(t.keys)
}

// String returns the press history as concatenated text.
func (t *Tracker) String() string {
	return key.Concat(t.keys)
}
