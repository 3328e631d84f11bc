package input

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/silverkey/internal/input/history"
	"github.com/dshills/silverkey/internal/input/key"
	"github.com/dshills/silverkey/internal/input/keymap"
)

// Engine normalizes key transitions and dispatches bindings.
// All methods are safe for concurrent use; transitions are serialized.
type Engine struct {
	mu sync.Mutex

	id     string
	config Config

	tables     key.Lookup
	resolver   *key.Resolver
	normalizer *key.Normalizer
	registry   *keymap.Registry
	tracker    *history.Tracker

	state     key.State
	lastFired map[keymap.Category]time.Time
	last      Output

	clock   func() time.Time
	logger  *slog.Logger
	metrics *Metrics

	sourceMu sync.Mutex
	sources  map[Source]func()

	observers observerList
}

// New creates an engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		id:        uuid.NewString(),
		config:    cfg,
		lastFired: make(map[keymap.Category]time.Time),
		clock:     time.Now,
		logger:    discardLogger(),
		metrics:   NewMetrics(),
		sources:   make(map[Source]func()),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.resolver = key.NewResolver(e.tables)
	if err := e.resolver.SetDelimiter(cfg.Delimiter); err != nil {
		return nil, keymap.NewError("New", cfg.Delimiter, err)
	}
	e.normalizer = key.NewNormalizer(e.resolver)
	e.registry = keymap.NewRegistry(e.resolver)
	e.tracker = history.New(cfg.Timeout)
	e.logger = e.logger.With("engine", e.id)
	e.last = KeyOutput("")

	return e, nil
}

// ID returns the engine instance identifier.
func (e *Engine) ID() string {
	return e.id
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.config
	cfg.Delimiter = e.resolver.Delimiter()
	return cfg
}

// Registry returns the binding registry.
func (e *Engine) Registry() *keymap.Registry {
	return e.registry
}

// Resolver returns the label resolver.
func (e *Engine) Resolver() *key.Resolver {
	return e.resolver
}

// Metrics returns the metrics collector.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// HandleEvent processes one transition and returns its outcome.
// The fired callback, if any, runs after the engine state is updated and
// may call back into the engine.
func (e *Engine) HandleEvent(ev key.Event) Outcome {
	start := time.Now()

	e.mu.Lock()
	now := ev.Timestamp
	if now.IsZero() {
		now = e.clock()
	}

	var (
		out   Outcome
		fired *keymap.Binding
		res   key.Result
	)
	switch ev.Type {
	case key.EventDown:
		res, fired, out = e.pressLocked(ev, now)
	case key.EventUp:
		res, fired, out = e.releaseLocked(ev, now)
	case key.EventBlur:
		res, fired, out = e.blurLocked(ev, now)
	default:
		e.logger.Debug("ignoring event", "type", ev.Type)
		out = Outcome{Type: ev.Type, Output: e.last}
		e.mu.Unlock()
		e.metrics.recordTransition(out, time.Since(start))
		return out
	}

	if fired != nil {
		out.Binding = fired.Label(e.resolver.Delimiter())
		out.Action = fired.Action
		e.logger.Debug("binding fired",
			"category", out.Fired.String(),
			"binding", out.Binding,
			"key", string(out.Key),
		)
	}
	out.Output = e.outputLocked(ev, res, out)
	e.last = out.Output
	e.mu.Unlock()

	if fired != nil && fired.Callback != nil {
		fired.Callback()
	}

	e.metrics.recordTransition(out, time.Since(start))
	e.observers.notify(ev, out)
	return out
}

// pressLocked handles a key press. Caller must hold e.mu.
func (e *Engine) pressLocked(ev key.Event, now time.Time) (key.Result, *keymap.Binding, Outcome) {
	if e.tracker.Expire(now) {
		e.metrics.recordExpiry()
		e.logger.Debug("history expired", "timeout", e.tracker.Timeout())
	}

	res, st := e.normalizer.Normalize(ev, e.state, e.tracker.String())
	if res.Key == key.KeyMeta {
		st.Modifiers = st.Modifiers.With(key.ModMeta)
	}
	e.state = st
	e.tracker.Press(res.Key, now)

	fired, cat := e.matchLocked(res.Key, now, keymap.Categories...)
	out := Outcome{
		Type:  ev.Type,
		Key:   res.Key,
		Label: res.Label,
		Fired: cat,
	}

	if e.registry.PreventsDefault(res.Key) {
		if ev.NotCancelable {
			out.Uncancelable = true
			e.logger.Warn("event could not be canceled", "event", ev.String(), "key", string(res.Key))
		} else {
			out.PreventDefault = true
		}
	}
	out.StopPropagation = e.registry.StopsPropagation(res.Key)

	return res, fired, out
}

// releaseLocked handles a key release. Caller must hold e.mu.
func (e *Engine) releaseLocked(ev key.Event, now time.Time) (key.Result, *keymap.Binding, Outcome) {
	res, st := e.normalizer.Normalize(ev, e.state, e.tracker.String())
	st.Repeat = false

	var (
		fired *keymap.Binding
		cat   keymap.Category
	)
	if res.Key == key.KeyPrintScreen {
		// Many hosts only report PrintScreen on release.
		if e.tracker.Append(res.Key, now) {
			e.metrics.recordExpiry()
		}
		fired, cat = e.matchLocked(res.Key, now, keymap.CategorySequence, keymap.CategoryKey)
	}
	e.tracker.Release(res.Key, now)

	if res.Key == key.KeyMeta {
		st.Modifiers = st.Modifiers.Without(key.ModMeta)
	}
	e.state = st

	return res, fired, Outcome{
		Type:  ev.Type,
		Key:   res.Key,
		Label: res.Label,
		Fired: cat,
	}
}

// blurLocked handles loss of focus. Caller must hold e.mu.
func (e *Engine) blurLocked(ev key.Event, now time.Time) (key.Result, *keymap.Binding, Outcome) {
	res, _ := e.normalizer.Normalize(ev, e.state, "")
	e.state = key.State{}
	if e.config.ResetOnBlur {
		e.tracker.Reset()
	}
	e.tracker.Touch(now)

	out := Outcome{Type: ev.Type, Key: res.Key, Label: res.Label}
	b, ok := e.registry.LookupKey(key.KeyBlur)
	if !ok {
		return res, nil, out
	}
	out.Fired = keymap.CategoryKey
	return res, &b, out
}

// matchLocked tries the categories in order and returns the first binding
// that is allowed to fire. A matching but throttled category does not stop
// the following ones. Caller must hold e.mu.
func (e *Engine) matchLocked(k key.Key, now time.Time, cats ...keymap.Category) (*keymap.Binding, keymap.Category) {
	for _, cat := range cats {
		b, ok := e.findLocked(cat, k)
		if !ok {
			continue
		}
		if !e.throttleOK(cat, now) {
			e.metrics.recordThrottled()
			e.logger.Debug("binding throttled", "category", cat.String(), "key", string(k))
			continue
		}
		e.lastFired[cat] = now
		return &b, cat
	}
	return nil, keymap.CategoryNone
}

func (e *Engine) findLocked(cat keymap.Category, k key.Key) (keymap.Binding, bool) {
	switch cat {
	case keymap.CategorySequence:
		for _, b := range e.registry.Sequences() {
			if e.tracker.HasSuffix(b.Keys) {
				return b, true
			}
		}
	case keymap.CategoryShortcut:
		for _, b := range e.registry.Shortcuts() {
			if e.tracker.ComboEquals(b.Keys) {
				return b, true
			}
		}
	case keymap.CategoryKey:
		if b, ok := e.registry.LookupKey(k); ok {
			return b, true
		}
		if b, ok := e.registry.LookupKey(key.KeyAny); ok {
			return b, true
		}
	}
	return keymap.Binding{}, false
}

func (e *Engine) throttleOK(cat keymap.Category, now time.Time) bool {
	last, ok := e.lastFired[cat]
	return !ok || now.Sub(last) >= e.config.Throttle
}

// outputLocked builds the reported output. Caller must hold e.mu.
func (e *Engine) outputLocked(ev key.Event, res key.Result, out Outcome) Output {
	if !e.config.Debug {
		return KeyOutput(res.Label)
	}

	snap := &Snapshot{
		EngineID:  e.id,
		Result:    res.Label,
		Key:       res.Key,
		EventType: ev.Type.String(),
		EventKey:  ev.Key,
		EventCode: ev.Code,
		Shift:     e.state.Shift(),
		CapsLock:  e.state.CapsLock(),
		Repeat:    e.state.Repeat,
		Alt:       e.state.Alt(),
		Ctrl:      e.state.Ctrl(),
		Meta:      e.state.Meta(),
		History:   e.tracker.String(),
		Combo:     e.tracker.Combo(),

		LastTransition: e.tracker.LastTransition(),

		Binds:     e.registry.ActiveKeys(),
		Shortcuts: e.registry.ActiveShortcuts(),
		Sequences: e.registry.ActiveSequences(),
		Binding:   out.Binding,
	}
	if out.Fired != keymap.CategoryNone {
		snap.Fired = out.Fired.String()
	}
	return snap
}

// LastOutput returns the output of the most recent transition.
func (e *Engine) LastOutput() Output {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// State returns the current modifier state.
func (e *Engine) State() key.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// History returns the press history as concatenated text.
func (e *Engine) History() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.String()
}

// Combo returns the currently held keys in press order.
func (e *Engine) Combo() []key.Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Combo()
}

// ResetHistory discards the press history and combo.
func (e *Engine) ResetHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.Reset()
}

// BindKey binds a single key or alias.
func (e *Engine) BindKey(input string, cb keymap.Callback, opts ...keymap.BindOption) error {
	return e.registry.BindKey(input, cb, opts...)
}

// BindSequence binds an ordered, delimited key list.
func (e *Engine) BindSequence(input string, cb keymap.Callback, opts ...keymap.BindOption) error {
	return e.registry.BindSequence(input, cb, opts...)
}

// BindShortcut binds an unordered, delimited key set of at most
// keymap.MaxShortcutKeys keys.
func (e *Engine) BindShortcut(input string, cb keymap.Callback, opts ...keymap.BindOption) error {
	return e.registry.BindShortcut(input, cb, opts...)
}

// UnbindKey removes a single-key binding.
func (e *Engine) UnbindKey(input string) error {
	return e.registry.UnbindKey(input)
}

// UnbindSequence removes a sequence binding.
func (e *Engine) UnbindSequence(input string) error {
	return e.registry.UnbindSequence(input)
}

// UnbindShortcut removes a shortcut binding.
func (e *Engine) UnbindShortcut(input string) error {
	return e.registry.UnbindShortcut(input)
}

// UnbindAll removes every binding. Configuration is kept.
func (e *Engine) UnbindAll() {
	e.registry.UnbindAll()
}

// KeyInUse reports whether the label's canonical key is used by any binding.
func (e *Engine) KeyInUse(label string) bool {
	return e.registry.KeyInUse(e.resolver.Resolve(label, false), nil)
}

// ActiveKeys returns the bound single keys.
func (e *Engine) ActiveKeys() []key.Key {
	return e.registry.ActiveKeys()
}

// ActiveSequences returns the bound sequences as delimited labels.
func (e *Engine) ActiveSequences() []string {
	return e.registry.ActiveSequences()
}

// ActiveShortcuts returns the bound shortcuts as delimited labels.
func (e *Engine) ActiveShortcuts() []string {
	return e.registry.ActiveShortcuts()
}

// SetDelimiter sets the delimiter for sequence and shortcut labels.
func (e *Engine) SetDelimiter(d string) error {
	if err := e.resolver.SetDelimiter(d); err != nil {
		return keymap.NewError("SetDelimiter", d, err)
	}
	return nil
}

// SetThrottle sets the per-category throttle.
func (e *Engine) SetThrottle(d time.Duration) error {
	if d < 0 {
		return keymap.NewError("SetThrottle", d.String(), keymap.ErrInvalidDuration)
	}
	e.mu.Lock()
	e.config.Throttle = d
	e.mu.Unlock()
	return nil
}

// SetTimeout sets the history timeout.
func (e *Engine) SetTimeout(d time.Duration) error {
	if d < 0 {
		return keymap.NewError("SetTimeout", d.String(), keymap.ErrInvalidDuration)
	}
	e.mu.Lock()
	e.config.Timeout = d
	e.tracker.SetTimeout(d)
	e.mu.Unlock()
	return nil
}

// SetThrottleString parses s with ParseDuration and sets the throttle.
func (e *Engine) SetThrottleString(s string) error {
	d, err := ParseDuration(s)
	if err != nil {
		return keymap.NewError("SetThrottle", s, err)
	}
	return e.SetThrottle(d)
}

// SetTimeoutString parses s with ParseDuration and sets the timeout.
func (e *Engine) SetTimeoutString(s string) error {
	d, err := ParseDuration(s)
	if err != nil {
		return keymap.NewError("SetTimeout", s, err)
	}
	return e.SetTimeout(d)
}

// DebugMode toggles diagnostic snapshots.
func (e *Engine) DebugMode(on bool) {
	e.mu.Lock()
	e.config.Debug = on
	e.mu.Unlock()
}

// SetResetOnBlur toggles discarding history on focus loss.
func (e *Engine) SetResetOnBlur(on bool) {
	e.mu.Lock()
	e.config.ResetOnBlur = on
	e.mu.Unlock()
}

// SetTables replaces the alias and legacy code tables. Existing bindings
// keep the keys they were resolved to.
func (e *Engine) SetTables(t key.Lookup) {
	e.resolver.SetLookup(t)
}
