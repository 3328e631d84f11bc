package source

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/key"
)

// ErrScreenClosed is returned by Run when the screen was finalized.
var ErrScreenClosed = errors.New("source: screen closed")

var tcellKeys = map[tcell.Key]key.Key{
	tcell.KeyEscape:     key.KeyEscape,
	tcell.KeyEnter:      key.KeyEnter,
	tcell.KeyTab:        key.KeyTab,
	tcell.KeyBacktab:    key.KeyTab,
	tcell.KeyBackspace:  key.KeyBackspace,
	tcell.KeyBackspace2: key.KeyBackspace,
	tcell.KeyDelete:     key.KeyDelete,
	tcell.KeyInsert:     key.KeyInsert,
	tcell.KeyHome:       key.KeyHome,
	tcell.KeyEnd:        key.KeyEnd,
	tcell.KeyPgUp:       key.KeyPageUp,
	tcell.KeyPgDn:       key.KeyPageDown,
	tcell.KeyUp:         key.KeyArrowUp,
	tcell.KeyDown:       key.KeyArrowDown,
	tcell.KeyLeft:       key.KeyArrowLeft,
	tcell.KeyRight:      key.KeyArrowRight,
	tcell.KeyPause:      key.KeyPause,
	tcell.KeyPrint:      key.KeyPrintScreen,
	tcell.KeyMenu:       key.KeyContextMenu,
	tcell.KeyF1:         key.KeyF1,
	tcell.KeyF2:         key.KeyF2,
	tcell.KeyF3:         key.KeyF3,
	tcell.KeyF4:         key.KeyF4,
	tcell.KeyF5:         key.KeyF5,
	tcell.KeyF6:         key.KeyF6,
	tcell.KeyF7:         key.KeyF7,
	tcell.KeyF8:         key.KeyF8,
	tcell.KeyF9:         key.KeyF9,
	tcell.KeyF10:        key.KeyF10,
	tcell.KeyF11:        key.KeyF11,
	tcell.KeyF12:        key.KeyF12,
}

// Terminal reads key events from a tcell screen.
type Terminal struct {
	screen tcell.Screen
	logger *slog.Logger
	out    fanout
	other  func(tcell.Event)
}

// NewTerminal creates a source reading from screen. The screen must be
// initialized; focus reporting is enabled.
func NewTerminal(screen tcell.Screen, logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	screen.EnableFocus()
	return &Terminal{screen: screen, logger: logger}
}

// Subscribe implements input.Source.
func (t *Terminal) Subscribe(h input.Handler) func() {
	return t.out.subscribe(h)
}

// OnOther registers fn to receive events that carry no key transition,
// such as resizes. Call it before Run.
func (t *Terminal) OnOther(fn func(tcell.Event)) {
	t.other = fn
}

// Run polls the screen and delivers events until ctx is done or the screen
// is finalized. PollEvent blocks, so after ctx is done the polling
// goroutine exits only once the caller finalizes the screen.
func (t *Terminal) Run(ctx context.Context) error {
	events := make(chan tcell.Event)
	go func() {
		defer close(events)
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return ErrScreenClosed
			}
			t.Dispatch(ev)
		}
	}
}

// Dispatch translates ev and delivers the resulting transitions. It
// returns the outcomes of the last subscriber.
func (t *Terminal) Dispatch(ev tcell.Event) []input.Outcome {
	evs := TranslateTcell(ev)
	if len(evs) == 0 {
		if t.other != nil {
			t.other(ev)
		}
		return nil
	}
	t.logger.Debug("terminal event", "transitions", len(evs), "subscribers", t.out.len())
	return t.out.deliver(evs)
}

// TranslateTcell converts a tcell event into transitions. Events other
// than keys and focus loss produce none.
func TranslateTcell(ev tcell.Event) []key.Event {
	switch e := ev.(type) {
	case *tcell.EventKey:
		label, mods := tcellLabel(e)
		if label == "" {
			return nil
		}
		evs := burst(label, 0, mods, false, false, nil)
		for i := range evs {
			evs[i].Timestamp = e.When()
		}
		return evs
	case *tcell.EventFocus:
		if e.Focused {
			return nil
		}
		// Focus events may carry no time; the engine clock fills it in.
		return []key.Event{{Type: key.EventBlur}}
	}
	return nil
}

func tcellLabel(e *tcell.EventKey) (string, key.Modifier) {
	mods := tcellMods(e.Modifiers())

	if k, ok := tcellKeys[e.Key()]; ok {
		if e.Key() == tcell.KeyBacktab {
			mods = mods.With(key.ModShift)
		}
		return string(k), mods
	}

	switch k := e.Key(); {
	case k == tcell.KeyRune:
		r := e.Rune()
		if r == 0 {
			return "", mods
		}
		return string(r), mods
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		r := e.Rune()
		if r == 0 || r < ' ' {
			r = 'a' + rune(k-tcell.KeyCtrlA)
		}
		return string(r), mods.With(key.ModCtrl)
	case k == tcell.KeyCtrlSpace:
		return string(key.KeySpace), mods.With(key.ModCtrl)
	}
	return "", mods
}

func tcellMods(m tcell.ModMask) key.Modifier {
	var mods key.Modifier
	mods = mods.Set(key.ModShift, m&tcell.ModShift != 0)
	mods = mods.Set(key.ModCtrl, m&tcell.ModCtrl != 0)
	mods = mods.Set(key.ModAlt, m&tcell.ModAlt != 0)
	mods = mods.Set(key.ModMeta, m&tcell.ModMeta != 0)
	return mods
}
