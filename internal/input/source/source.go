// Package source adapts terminal input libraries to input.Source.
//
// Terminals report whole keystrokes rather than transitions. The adapters
// expand each keystroke into a burst of transitions: modifier presses, the
// key press, the key release and the modifier releases. Held modifiers
// therefore form a combo for the duration of the burst, which is what
// shortcut matching needs.
package source

import (
	"sync"

	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/key"
)

// fanout delivers events to subscribed handlers in order.
type fanout struct {
	mu       sync.Mutex
	handlers map[uint64]input.Handler
	order    []uint64
	nextID   uint64
}

func (f *fanout) subscribe(h input.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handlers == nil {
		f.handlers = make(map[uint64]input.Handler)
	}
	f.nextID++
	id := f.nextID
	f.handlers[id] = h
	f.order = append(f.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.handlers, id)
			for i, o := range f.order {
				if o == id {
					f.order = append(f.order[:i], f.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (f *fanout) snapshot() []input.Handler {
	f.mu.Lock()
	defer f.mu.Unlock()

	hs := make([]input.Handler, 0, len(f.order))
	for _, id := range f.order {
		hs = append(hs, f.handlers[id])
	}
	return hs
}

// deliver sends evs to every handler and returns the outcomes of the last
// handler, one per event.
func (f *fanout) deliver(evs []key.Event) []input.Outcome {
	var outs []input.Outcome
	for _, h := range f.snapshot() {
		outs = outs[:0]
		for _, ev := range evs {
			outs = append(outs, h(ev))
		}
	}
	return outs
}

func (f *fanout) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

type modifierKey struct {
	key  key.Key
	flag key.Modifier
}

// modifierKeys lists modifiers in the order they are pressed in a burst.
var modifierKeys = []modifierKey{
	{key.KeyControl, key.ModCtrl},
	{key.KeyAlt, key.ModAlt},
	{key.KeyShift, key.ModShift},
	{key.KeyMeta, key.ModMeta},
}

// burst expands one keystroke into transitions. mods are the modifiers
// held for the keystroke; k is the key label. PrintScreen gets a release
// but no press.
func burst(k string, code int, mods key.Modifier, repeat, repeatReported bool, query key.ModifierQuery) []key.Event {
	var (
		evs    []key.Event
		held   []modifierKey
		active key.Modifier
	)
	for _, m := range modifierKeys {
		if !mods.Has(m.flag) || string(m.key) == k {
			continue
		}
		active = active.With(m.flag)
		evs = append(evs, flagged(key.Event{Type: key.EventDown, Key: string(m.key), Query: query}, active))
		held = append(held, m)
	}

	press := flagged(key.Event{
		Type:           key.EventDown,
		Key:            k,
		Code:           code,
		Repeat:         repeat,
		RepeatReported: repeatReported,
		Query:          query,
	}, mods)
	release := press
	release.Type = key.EventUp
	release.Repeat = false
	release.RepeatReported = false
	if key.Key(k) == key.KeyPrintScreen {
		// The engine expects PrintScreen on release only.
		evs = append(evs, release)
	} else {
		evs = append(evs, press, release)
	}

	for i := len(held) - 1; i >= 0; i-- {
		active = active.Without(held[i].flag)
		evs = append(evs, flagged(key.Event{Type: key.EventUp, Key: string(held[i].key), Query: query}, active))
	}
	return evs
}

func flagged(ev key.Event, mods key.Modifier) key.Event {
	ev.Shift = mods.HasShift()
	ev.Ctrl = mods.HasCtrl()
	ev.Alt = mods.HasAlt()
	return ev
}

// capsQuery reports a fixed Caps Lock state.
func capsQuery(on bool) key.ModifierQuery {
	return key.ModifierQueryFunc(func(name string) bool {
		return name == "CapsLock" && on
	})
}
