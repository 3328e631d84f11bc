package source

import (
	"log/slog"
	"sync/atomic"

	tea "charm.land/bubbletea/v2"

	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/key"
)

var teaKeys = map[rune]key.Key{
	tea.KeyEscape:      key.KeyEscape,
	tea.KeyEnter:       key.KeyEnter,
	tea.KeyKpEnter:     key.KeyEnter,
	tea.KeyTab:         key.KeyTab,
	tea.KeyBackspace:   key.KeyBackspace,
	tea.KeySpace:       key.KeySpace,
	tea.KeyDelete:      key.KeyDelete,
	tea.KeyInsert:      key.KeyInsert,
	tea.KeyHome:        key.KeyHome,
	tea.KeyEnd:         key.KeyEnd,
	tea.KeyPgUp:        key.KeyPageUp,
	tea.KeyPgDown:      key.KeyPageDown,
	tea.KeyUp:          key.KeyArrowUp,
	tea.KeyDown:        key.KeyArrowDown,
	tea.KeyLeft:        key.KeyArrowLeft,
	tea.KeyRight:       key.KeyArrowRight,
	tea.KeyCapsLock:    key.KeyCapsLock,
	tea.KeyScrollLock:  key.KeyScrollLock,
	tea.KeyNumLock:     key.KeyNumLock,
	tea.KeyPrintScreen: key.KeyPrintScreen,
	tea.KeyPause:       key.KeyPause,
	tea.KeyMenu:        key.KeyContextMenu,
	tea.KeyLeftShift:   key.KeyShift,
	tea.KeyRightShift:  key.KeyShift,
	tea.KeyLeftCtrl:    key.KeyControl,
	tea.KeyRightCtrl:   key.KeyControl,
	tea.KeyLeftAlt:     key.KeyAlt,
	tea.KeyRightAlt:    key.KeyAlt,
	tea.KeyLeftMeta:    key.KeyMeta,
	tea.KeyRightMeta:   key.KeyMeta,
	tea.KeyLeftSuper:   key.KeyMeta,
	tea.KeyRightSuper:  key.KeyMeta,
	tea.KeyF1:          key.KeyF1,
	tea.KeyF2:          key.KeyF2,
	tea.KeyF3:          key.KeyF3,
	tea.KeyF4:          key.KeyF4,
	tea.KeyF5:          key.KeyF5,
	tea.KeyF6:          key.KeyF6,
	tea.KeyF7:          key.KeyF7,
	tea.KeyF8:          key.KeyF8,
	tea.KeyF9:          key.KeyF9,
	tea.KeyF10:         key.KeyF10,
	tea.KeyF11:         key.KeyF11,
	tea.KeyF12:         key.KeyF12,
}

// Tea adapts Bubble Tea messages. Feed every message from the model's
// Update through Handle.
//
// Until the terminal reports key release events, each press is expanded
// into a full press and release burst. Once a KeyboardEnhancementsMsg
// announces event types, presses and releases are delivered as reported.
type Tea struct {
	logger   *slog.Logger
	out      fanout
	releases atomic.Bool
}

// NewTea creates a Bubble Tea source.
func NewTea(logger *slog.Logger) *Tea {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tea{logger: logger}
}

// Subscribe implements input.Source.
func (t *Tea) Subscribe(h input.Handler) func() {
	return t.out.subscribe(h)
}

// ReportsReleases reports whether the terminal delivers key releases.
func (t *Tea) ReportsReleases() bool {
	return t.releases.Load()
}

// Handle translates msg and delivers the resulting transitions. It returns
// the outcomes of the last subscriber.
func (t *Tea) Handle(msg tea.Msg) []input.Outcome {
	if m, ok := msg.(tea.KeyboardEnhancementsMsg); ok {
		t.releases.Store(m.SupportsEventTypes())
		t.logger.Debug("keyboard enhancements", "flags", m.Flags, "releases", m.SupportsEventTypes())
		return nil
	}

	evs := t.Translate(msg)
	if len(evs) == 0 {
		return nil
	}
	return t.out.deliver(evs)
}

// Translate converts msg into transitions without delivering them.
func (t *Tea) Translate(msg tea.Msg) []key.Event {
	switch m := msg.(type) {
	case tea.KeyPressMsg:
		k := tea.Key(m)
		label, mods := teaLabel(k)
		if label == "" {
			return nil
		}
		evs := burst(label, 0, mods, k.IsRepeat, t.releases.Load(), capsQuery(k.Mod.Contains(tea.ModCapsLock)))
		if t.releases.Load() {
			return pressHalf(evs)
		}
		return evs
	case tea.KeyReleaseMsg:
		if !t.releases.Load() {
			return nil
		}
		k := tea.Key(m)
		label, mods := teaLabel(k)
		if label == "" {
			return nil
		}
		return releaseHalf(burst(label, 0, mods, false, false, capsQuery(k.Mod.Contains(tea.ModCapsLock))))
	case tea.BlurMsg:
		return []key.Event{{Type: key.EventBlur}}
	}
	return nil
}

// pressHalf returns the modifier presses and the key press of a burst.
func pressHalf(evs []key.Event) []key.Event {
	for i, ev := range evs {
		if ev.Type == key.EventUp {
			return evs[:i]
		}
	}
	return evs
}

// releaseHalf returns the key release and the modifier releases of a burst.
func releaseHalf(evs []key.Event) []key.Event {
	for i, ev := range evs {
		if ev.Type == key.EventUp {
			return evs[i:]
		}
	}
	return nil
}

func teaLabel(k tea.Key) (string, key.Modifier) {
	var mods key.Modifier
	mods = mods.Set(key.ModShift, k.Mod.Contains(tea.ModShift))
	mods = mods.Set(key.ModCtrl, k.Mod.Contains(tea.ModCtrl))
	mods = mods.Set(key.ModAlt, k.Mod.Contains(tea.ModAlt))
	mods = mods.Set(key.ModMeta, k.Mod.Contains(tea.ModMeta) || k.Mod.Contains(tea.ModSuper))

	if named, ok := teaKeys[k.Code]; ok {
		return string(named), mods
	}
	if k.Text != "" {
		return k.Text, mods
	}
	if k.Code > 0 && k.Code < tea.KeyExtended {
		r := k.Code
		if mods.HasShift() && k.ShiftedCode != 0 {
			r = k.ShiftedCode
		}
		return string(r), mods
	}
	return "", mods
}
