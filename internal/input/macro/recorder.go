package macro

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/key"
)

// ErrAlreadyRecording is returned by Start while a recording is running.
var ErrAlreadyRecording = errors.New("macro: already recording")

// Recorder captures key transitions.
type Recorder struct {
	mu        sync.Mutex
	recording bool
	events    []key.Event
	clock     func() time.Time
}

// NewRecorder creates a stopped recorder.
func NewRecorder() *Recorder {
	return &Recorder{clock: time.Now}
}

// Start begins a new recording, discarding any events not yet collected
// with Stop.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}
	r.recording = true
	r.events = nil
	return nil
}

// Stop ends the recording and returns the captured events, or nil if not
// recording.
func (r *Recorder) Stop() []key.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}
	r.recording = false
	events := r.events
	r.events = nil
	return events
}

// IsRecording reports whether a recording is running.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Len returns the number of events captured so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Record adds ev to the current recording. Events without a timestamp are
// stamped with the current time. Does nothing if not recording.
func (r *Recorder) Record(ev key.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.clock()
	}
	if ev.Query != nil {
		// Freeze the answer; hosts may reuse their query objects.
		ev.Query = capsLock(ev.Query.ModifierState("CapsLock"))
	}
	r.events = append(r.events, ev)
}

// Observer returns an engine observer that records every handled
// transition.
func (r *Recorder) Observer() input.ObserverFunc {
	return func(ev key.Event, _ input.Outcome) {
		r.Record(ev)
	}
}
