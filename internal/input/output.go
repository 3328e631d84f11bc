package input

import (
	"time"

	"github.com/dshills/silverkey/internal/input/key"
	"github.com/dshills/silverkey/internal/input/keymap"
)

// Outcome is the result of one transition.
type Outcome struct {
	// Type is the transition kind.
	Type key.EventType

	// Key is the canonical key.
	Key key.Key

	// Label is the resolved key with its case preserved.
	Label string

	// Fired is the category of the binding that fired, or CategoryNone.
	Fired keymap.Category

	// Binding is the label of the fired binding.
	Binding string

	// Action is the action name of the fired binding, if any.
	Action string

	// PreventDefault asks the host to cancel its default action.
	PreventDefault bool

	// StopPropagation asks the host to stop propagating the event.
	StopPropagation bool

	// Uncancelable is set when the key is suppressed but the host
	// reported the event as not cancelable.
	Uncancelable bool

	// Output is the reported result: a KeyOutput, or a *Snapshot in
	// debug mode.
	Output Output
}

// Output is the per-transition result value. It is either a KeyOutput or
// a *Snapshot.
type Output interface {
	// Text returns the resolved key with its case preserved.
	Text() string

	isOutput()
}

// KeyOutput is the plain result: the resolved key.
type KeyOutput string

// Text implements Output.
func (k KeyOutput) Text() string { return string(k) }

func (KeyOutput) isOutput() {}

// Snapshot is the diagnostic record produced in debug mode.
type Snapshot struct {
	EngineID string `json:"engine_id"`

	Result string  `json:"result"`
	Key    key.Key `json:"key"`

	EventType string `json:"event_type"`
	EventKey  string `json:"event_key,omitempty"`
	EventCode int    `json:"event_code,omitempty"`

	Shift    bool `json:"shift"`
	CapsLock bool `json:"caps_lock"`
	Repeat   bool `json:"repeat"`
	Alt      bool `json:"alt"`
	Ctrl     bool `json:"ctrl"`
	Meta     bool `json:"meta"`

	History string    `json:"history"`
	Combo   []key.Key `json:"combo"`

	// LastTransition is when the history was last touched.
	LastTransition time.Time `json:"last_transition"`

	Binds     []key.Key `json:"binds"`
	Shortcuts []string  `json:"shortcuts"`
	Sequences []string  `json:"sequences"`

	Fired   string `json:"fired,omitempty"`
	Binding string `json:"binding,omitempty"`
}

// Text implements Output.
func (s *Snapshot) Text() string { return s.Result }

func (*Snapshot) isOutput() {}
