package input

import (
	"errors"

	"github.com/dshills/silverkey/internal/input/key"
)

var (
	// ErrAlreadyBound is returned when a source is attached twice.
	ErrAlreadyBound = errors.New("input: source already bound")

	// ErrNotBound is returned when detaching a source that is not attached.
	ErrNotBound = errors.New("input: source not bound")

	// ErrNilSource is returned when attaching a nil source.
	ErrNilSource = errors.New("input: nil source")
)

// Handler processes one transition.
type Handler func(key.Event) Outcome

// Source delivers key transitions from a host.
//
// Subscribe registers h and returns a function that stops delivery.
// Implementations must deliver transitions one at a time and in order,
// and must be comparable (typically a pointer).
type Source interface {
	Subscribe(h Handler) (cancel func())
}

// BindSource attaches s so that its transitions reach HandleEvent.
// An engine may be attached to several sources; each source only once.
func (e *Engine) BindSource(s Source) error {
	if s == nil {
		return ErrNilSource
	}

	e.sourceMu.Lock()
	defer e.sourceMu.Unlock()

	if _, ok := e.sources[s]; ok {
		return ErrAlreadyBound
	}
	cancel := s.Subscribe(e.HandleEvent)
	if cancel == nil {
		cancel = func() {}
	}
	e.sources[s] = cancel
	e.logger.Debug("source bound", "sources", len(e.sources))
	return nil
}

// UnbindSource detaches s.
func (e *Engine) UnbindSource(s Source) error {
	e.sourceMu.Lock()
	cancel, ok := e.sources[s]
	delete(e.sources, s)
	e.sourceMu.Unlock()

	if !ok {
		return ErrNotBound
	}
	cancel()
	e.logger.Debug("source unbound")
	return nil
}

// Close detaches every bound source. Bindings and configuration are kept.
func (e *Engine) Close() error {
	e.sourceMu.Lock()
	cancels := make([]func(), 0, len(e.sources))
	for s, cancel := range e.sources {
		cancels = append(cancels, cancel)
		delete(e.sources, s)
	}
	e.sourceMu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return nil
}
