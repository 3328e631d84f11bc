package app

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dshills/silverkey/internal/input/key"
	"github.com/dshills/silverkey/internal/input/keymap"
)

// quitLabel returns the default quit shortcut for delimiter d.
func quitLabel(d string) string {
	return string(key.KeyControl) + d + "c"
}

// bindQuit binds Ctrl+C to the quit action unless a keymap already uses
// that shortcut.
func (a *Application) bindQuit() {
	label := quitLabel(a.engine.Config().Delimiter)
	if slices.Contains(a.engine.ActiveShortcuts(), label) {
		return
	}
	cb, err := a.actions.Resolve("quit", nil)
	if err != nil {
		return
	}
	if err := a.engine.BindShortcut(label, cb, keymap.WithAction("quit"), keymap.WithDescription("quit")); err != nil {
		a.log.Warn("binding quit shortcut", "label", label, "err", err)
	}
}

// inspect renders the engine state as lines of text for the terminal
// front ends.
func (a *Application) inspect() []string {
	e := a.engine
	cfg := e.Config()
	st := e.State()
	m := e.Metrics().Snapshot()

	mods := st.Modifiers.String()
	if mods == "" {
		mods = "-"
	}

	lines := []string{
		fmt.Sprintf("silverkey  ui %s  engine %s", a.mode, e.ID()),
		fmt.Sprintf("delimiter %q  throttle %s  timeout %s  debug %t",
			cfg.Delimiter, cfg.Throttle, cfg.Timeout, cfg.Debug),
		"",
		"output     " + e.LastOutput().Text(),
		"history    " + e.History(),
		"combo      " + joinKeys(e.Combo(), cfg.Delimiter),
		fmt.Sprintf("modifiers  %s  repeat %t", mods, st.Repeat),
		"",
		"keys       " + joinKeys(e.ActiveKeys(), " "),
		"sequences  " + strings.Join(e.ActiveSequences(), "  "),
		"shortcuts  " + strings.Join(e.ActiveShortcuts(), "  "),
		"",
		fmt.Sprintf("presses %d  releases %d  blurs %d  fires %d  throttled %d  expiries %d",
			m.Presses, m.Releases, m.Blurs, m.Fires(), m.Throttled, m.Expiries),
		fmt.Sprintf("latency avg %s  max %s  p99 %s",
			m.AvgLatency.Round(time.Microsecond), m.MaxLatency.Round(time.Microsecond), m.P99Latency.Round(time.Microsecond)),
		"",
	}

	feed := a.Feed()
	for i := len(feed) - 1; i >= 0; i-- {
		lines = append(lines, "  "+feed[i])
	}
	for range feedSize - len(feed) {
		lines = append(lines, "")
	}

	return append(lines, "", quitLabel(cfg.Delimiter)+" quits")
}

func joinKeys(keys []key.Key, sep string) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = string(k)
	}
	return strings.Join(s, sep)
}
