package keymap

import (
	"errors"
	"fmt"

	"github.com/dshills/silverkey/internal/input/key"
)

// Sentinel errors. Match with errors.Is.
var (
	// ErrEmptyInput is returned for an empty binding string or key.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidDelimiter is returned when setting an empty delimiter.
	ErrInvalidDelimiter = key.ErrInvalidDelimiter

	// ErrInvalidDuration is returned for a negative or non-numeric duration.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrTooManyKeys is returned when a shortcut has too many distinct keys.
	ErrTooManyKeys = errors.New("too many keys")

	// ErrNotFound is returned when unbinding something that is not bound.
	ErrNotFound = errors.New("binding not found")

	// ErrInvalidCategory is returned for an unknown binding category.
	ErrInvalidCategory = errors.New("invalid binding category")
)

// ErrorKind classifies binding API failures.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindEmptyInput
	KindInvalidDelimiter
	KindInvalidDuration
	KindTooManyKeys
	KindNotFound
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindEmptyInput:
		return "EmptyInput"
	case KindInvalidDelimiter:
		return "InvalidDelimiter"
	case KindInvalidDuration:
		return "InvalidDuration"
	case KindTooManyKeys:
		return "TooManyKeys"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is a failed binding or configuration call.
type Error struct {
	Op    string
	Kind  ErrorKind
	Input string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("keymap: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("keymap: %s %q: %v", e.Op, e.Input, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error, deriving the kind from a sentinel err.
func NewError(op, input string, err error) *Error {
	return &Error{Op: op, Kind: kindFor(err), Input: input, Err: err}
}

// KindOf returns the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func kindFor(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ErrInvalidDelimiter):
		return KindInvalidDelimiter
	case errors.Is(err, ErrInvalidDuration):
		return KindInvalidDuration
	case errors.Is(err, ErrTooManyKeys):
		return KindTooManyKeys
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}
