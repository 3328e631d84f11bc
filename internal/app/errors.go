package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrQuit signals that the application should exit normally.
	ErrQuit = errors.New("quit requested")

	// ErrAlreadyRunning indicates Run was called twice.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrUnknownUI indicates an unsupported front end was requested.
	ErrUnknownUI = errors.New("unknown ui mode")
)

// InitError reports the component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ReplayError reports a malformed replay line.
type ReplayError struct {
	Line int
	Err  error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay line %d: %v", e.Line, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}
