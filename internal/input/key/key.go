package key

import (
	"strings"
	"unicode/utf8"
)

// Key is a canonical key identifier.
// All binding and history comparisons use this form.
type Key string

// Well-known canonical keys.
const (
	// KeyNone represents no key.
	KeyNone Key = ""

	// KeyAny is bound to fire for any key without a specific binding.
	KeyAny Key = "Any"

	// KeyUnidentified is produced when a key cannot be resolved.
	KeyUnidentified Key = "Unidentified"

	// KeyBlur is the pseudo-key fired when the source loses focus.
	KeyBlur Key = "blur"

	// Modifier keys
	KeyShift    Key = "Shift"
	KeyControl  Key = "Control"
	KeyAlt      Key = "Alt"
	KeyAltGraph Key = "AltGraph"
	KeyMeta     Key = "Meta"
	KeyCapsLock Key = "CapsLock"

	// Special keys
	KeyEscape      Key = "Escape"
	KeyEnter       Key = "Enter"
	KeyTab         Key = "Tab"
	KeyBackspace   Key = "Backspace"
	KeyDelete      Key = "Delete"
	KeyInsert      Key = "Insert"
	KeyHome        Key = "Home"
	KeyEnd         Key = "End"
	KeyPageUp      Key = "PageUp"
	KeyPageDown    Key = "PageDown"
	KeySpace       Key = " "
	KeyPause       Key = "Pause"
	KeyPrintScreen Key = "PrintScreen"
	KeyScrollLock  Key = "ScrollLock"
	KeyNumLock     Key = "NumLock"
	KeyContextMenu Key = "ContextMenu"

	// Arrow keys
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"

	// Function keys
	KeyF1  Key = "F1"
	KeyF2  Key = "F2"
	KeyF3  Key = "F3"
	KeyF4  Key = "F4"
	KeyF5  Key = "F5"
	KeyF6  Key = "F6"
	KeyF7  Key = "F7"
	KeyF8  Key = "F8"
	KeyF9  Key = "F9"
	KeyF10 Key = "F10"
	KeyF11 Key = "F11"
	KeyF12 Key = "F12"
)

// String returns the key as a string.
func (k Key) String() string {
	return string(k)
}

// IsModifier returns true if this is a modifier key.
func (k Key) IsModifier() bool {
	switch k {
	case KeyShift, KeyControl, KeyAlt, KeyAltGraph, KeyMeta, KeyCapsLock:
		return true
	}
	return false
}

// IsFunctionKey returns true if this is a function key (F1-F12).
func (k Key) IsFunctionKey() bool {
	switch k {
	case KeyF1, KeyF2, KeyF3, KeyF4, KeyF5, KeyF6,
		KeyF7, KeyF8, KeyF9, KeyF10, KeyF11, KeyF12:
		return true
	}
	return false
}

// IsArrowKey returns true if this is an arrow key.
func (k Key) IsArrowKey() bool {
	return k == KeyArrowUp || k == KeyArrowDown || k == KeyArrowLeft || k == KeyArrowRight
}

// IsNavigationKey returns true if this is a navigation key.
func (k Key) IsNavigationKey() bool {
	return k.IsArrowKey() || k == KeyHome || k == KeyEnd || k == KeyPageUp || k == KeyPageDown
}

// IsCharacter returns true if the key is a single printable character.
func (k Key) IsCharacter() bool {
	return k != KeyNone && utf8.RuneCountInString(string(k)) == 1
}

// Concat joins keys with no separator. This is the history text form.
func Concat(keys []Key) string {
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(string(k))
	}
	return sb.String()
}

// Join joins keys with the given separator.
func Join(keys []Key, sep string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, sep)
}

// Equal reports whether two key lists are identical, in order.
func Equal(a, b []Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Contains reports whether keys contains k.
func Contains(keys []Key, k Key) bool {
	for _, candidate := range keys {
		if candidate == k {
			return true
		}
	}
	return false
}
