package input

import (
	"sort"
	"sync"

	"github.com/dshills/silverkey/internal/input/key"
)

// ObserverPriority defines the notification order for observers.
// Lower values run first.
type ObserverPriority int

const (
	// ObserverPriorityHigh runs before normal observers.
	ObserverPriorityHigh ObserverPriority = -100
	// ObserverPriorityNormal is the default priority.
	ObserverPriorityNormal ObserverPriority = 0
	// ObserverPriorityLow runs after normal observers.
	ObserverPriorityLow ObserverPriority = 100
)

// ObserverFunc is notified after every processed transition.
type ObserverFunc func(key.Event, Outcome)

type observerEntry struct {
	id       uint64
	priority ObserverPriority
	fn       ObserverFunc
}

// observerList holds registered observers.
type observerList struct {
	mu      sync.RWMutex
	entries []observerEntry
	nextID  uint64
}

func (l *observerList) add(fn ObserverFunc, priority ObserverPriority) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, observerEntry{id: id, priority: priority, fn: fn})
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].priority < l.entries[j].priority
	})

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *observerList) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].id == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *observerList) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *observerList) notify(ev key.Event, out Outcome) {
	l.mu.RLock()
	entries := make([]observerEntry, len(l.entries))
	copy(entries, l.entries)
	l.mu.RUnlock()

	for _, e := range entries {
		e.fn(ev, out)
	}
}

// Observe registers fn to be notified after every transition, once the
// fired callback has returned. The returned function unregisters it.
func (e *Engine) Observe(fn ObserverFunc) (cancel func()) {
	return e.observers.add(fn, ObserverPriorityNormal)
}

// ObserveWithPriority registers fn with an explicit priority.
func (e *Engine) ObserveWithPriority(fn ObserverFunc, priority ObserverPriority) (cancel func()) {
	return e.observers.add(fn, priority)
}

// ObserverCount returns the number of registered observers.
func (e *Engine) ObserverCount() int {
	return e.observers.len()
}
