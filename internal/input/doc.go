// Package input turns raw key transitions into fired bindings.
//
// An Engine owns one isolated input session: the binding registry, the
// press history, the modifier state and the per-category throttle clocks.
// Each transition delivered to HandleEvent is processed to completion
// before the next one is accepted:
//
//  1. the raw event is normalized into a canonical key
//  2. the press history and held combo are updated (lazy expiry)
//  3. sequence, shortcut and single-key bindings are matched in that order
//  4. at most one callback fires, subject to the category throttle
//  5. the outcome reports whether the host default action and
//     propagation should be suppressed
//
// There are no timers. Timeout and throttle checks compare the transition
// timestamp with stored timestamps when the next transition arrives.
//
// # Usage
//
//	eng, err := input.New(input.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	eng.BindKey("esc", closeDialog)
//	eng.BindSequence("up,up,down,down", cheat)
//	eng.BindShortcut("ctrl,alt,s", saveAll)
//
//	out := eng.HandleEvent(key.Event{Type: key.EventDown, Key: "Escape"})
//	if out.PreventDefault {
//	    // cancel the host default action
//	}
//
// Hosts deliver events either by calling HandleEvent directly or by
// implementing Source and attaching it with BindSource.
//
// # Debug Mode
//
// With debug mode enabled every outcome carries a *Snapshot describing the
// resolved key, the raw event, the modifier state, the history and the
// registries. Otherwise the output is a KeyOutput holding the resolved key.
package input
