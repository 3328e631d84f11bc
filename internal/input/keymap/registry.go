package keymap

import (
	"slices"
	"sync"

	"github.com/dshills/silverkey/internal/input/key"
)

// Registry holds the key, sequence and shortcut bindings together with
// the suppression sets derived from them. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	resolver *key.Resolver

	keys      *table
	sequences *table
	shortcuts *table

	// preventDefault and stopPropagation hold keys claimed by at least
	// one binding registered without AllowDefaults.
	preventDefault  map[key.Key]struct{}
	stopPropagation map[key.Key]struct{}
}

// table is an insertion-ordered binding map.
type table struct {
	order   []string
	entries map[string]*Binding
}

func newTable() *table {
	return &table{entries: make(map[string]*Binding)}
}

func (t *table) get(id string) (*Binding, bool) {
	b, ok := t.entries[id]
	return b, ok
}

// put stores b under id. An existing entry is replaced in place and
// returned.
func (t *table) put(id string, b *Binding) *Binding {
	old, ok := t.entries[id]
	if !ok {
		t.order = append(t.order, id)
	}
	t.entries[id] = b
	return old
}

func (t *table) remove(id string) (*Binding, bool) {
	b, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	delete(t.entries, id)
	if i := slices.Index(t.order, id); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
	return b, true
}

func (t *table) list() []*Binding {
	out := make([]*Binding, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entries[id])
	}
	return out
}

func (t *table) len() int {
	return len(t.order)
}

// NewRegistry creates an empty registry resolving labels through r.
func NewRegistry(r *key.Resolver) *Registry {
	if r == nil {
		r = key.NewResolver(nil)
	}
	return &Registry{
		resolver:        r,
		keys:            newTable(),
		sequences:       newTable(),
		shortcuts:       newTable(),
		preventDefault:  make(map[key.Key]struct{}),
		stopPropagation: make(map[key.Key]struct{}),
	}
}

// Resolver returns the resolver used for binding labels.
func (r *Registry) Resolver() *key.Resolver {
	return r.resolver
}

func (r *Registry) table(c Category) *table {
	switch c {
	case CategoryKey:
		return r.keys
	case CategorySequence:
		return r.sequences
	case CategoryShortcut:
		return r.shortcuts
	}
	return nil
}

// parse turns a binding label into canonical keys for category c.
func (r *Registry) parse(c Category, input string) ([]key.Key, error) {
	if r.table(c) == nil {
		return nil, ErrInvalidCategory
	}
	if input == "" {
		return nil, ErrEmptyInput
	}

	var keys []key.Key
	if c == CategoryKey {
		keys = []key.Key{r.resolver.Resolve(input, false)}
	} else {
		keys = r.resolver.Parse(input, false)
	}
	for _, k := range keys {
		if k == key.KeyNone {
			return nil, ErrEmptyInput
		}
	}

	if c == CategoryShortcut {
		keys = shortcutKeys(keys)
		if len(keys) > MaxShortcutKeys {
			return nil, ErrTooManyKeys
		}
	}
	return keys, nil
}

// Bind registers a binding of category c. Re-binding the same keys
// replaces the callback and options while keeping registration order.
func (r *Registry) Bind(c Category, input string, cb Callback, opts ...BindOption) error {
	op := "Bind" + opName(c)
	keys, err := r.parse(c, input)
	if err != nil {
		return NewError(op, input, err)
	}

	b := &Binding{Category: c, Keys: keys, Callback: cb}
	for _, opt := range opts {
		opt(b)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.table(c).put(id(keys), b)
	if b.Suppresses() {
		for _, k := range keys {
			r.preventDefault[k] = struct{}{}
			r.stopPropagation[k] = struct{}{}
		}
	}
	if old != nil {
		r.releaseLocked(old.Keys)
	}
	return nil
}

// BindKey binds a single key.
func (r *Registry) BindKey(input string, cb Callback, opts ...BindOption) error {
	return r.Bind(CategoryKey, input, cb, opts...)
}

// BindSequence binds an ordered, delimited key list.
func (r *Registry) BindSequence(input string, cb Callback, opts ...BindOption) error {
	return r.Bind(CategorySequence, input, cb, opts...)
}

// BindShortcut binds an unordered, delimited key set.
func (r *Registry) BindShortcut(input string, cb Callback, opts ...BindOption) error {
	return r.Bind(CategoryShortcut, input, cb, opts...)
}

// Unbind removes the binding of category c for input.
// Suppression is lifted for each of its keys no other suppressing
// binding references.
func (r *Registry) Unbind(c Category, input string) error {
	op := "Unbind" + opName(c)
	keys, err := r.parse(c, input)
	if err != nil {
		return NewError(op, input, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.table(c).remove(id(keys))
	if !ok {
		return NewError(op, input, ErrNotFound)
	}
	r.releaseLocked(old.Keys)
	return nil
}

// UnbindKey removes a single-key binding.
func (r *Registry) UnbindKey(input string) error {
	return r.Unbind(CategoryKey, input)
}

// UnbindSequence removes a sequence binding.
func (r *Registry) UnbindSequence(input string) error {
	return r.Unbind(CategorySequence, input)
}

// UnbindShortcut removes a shortcut binding.
func (r *Registry) UnbindShortcut(input string) error {
	return r.Unbind(CategoryShortcut, input)
}

// UnbindAll removes every binding. The resolver configuration is kept.
func (r *Registry) UnbindAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range Categories {
		t := r.table(c)
		for _, b := range t.list() {
			t.remove(id(b.Keys))
			r.releaseLocked(b.Keys)
		}
	}
}

// releaseLocked lifts suppression for keys no suppressing binding still
// references. Caller must hold the write lock.
func (r *Registry) releaseLocked(keys []key.Key) {
	for _, k := range keys {
		if r.claimedLocked(k) {
			continue
		}
		delete(r.preventDefault, k)
		delete(r.stopPropagation, k)
	}
}

func (r *Registry) claimedLocked(k key.Key) bool {
	for _, t := range []*table{r.keys, r.sequences, r.shortcuts} {
		for _, b := range t.entries {
			if b.Suppresses() && b.Uses(k) {
				return true
			}
		}
	}
	return false
}

// KeyInUse reports whether k is referenced by any binding other than
// exclude. exclude may be nil.
func (r *Registry) KeyInUse(k key.Key, exclude *Binding) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range []*table{r.keys, r.sequences, r.shortcuts} {
		for _, b := range t.entries {
			if exclude != nil && b.Category == exclude.Category && key.Equal(b.Keys, exclude.Keys) {
				continue
			}
			if b.Uses(k) {
				return true
			}
		}
	}
	return false
}

// Lookup returns a copy of the binding of category c for input.
func (r *Registry) Lookup(c Category, input string) (Binding, bool) {
	keys, err := r.parse(c, input)
	if err != nil {
		return Binding{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.table(c).get(id(keys))
	if !ok {
		return Binding{}, false
	}
	return b.Clone(), true
}

// LookupKey returns a copy of the single-key binding for a canonical key.
func (r *Registry) LookupKey(k key.Key) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.keys.get(id([]key.Key{k}))
	if !ok {
		return Binding{}, false
	}
	return b.Clone(), true
}

// Bindings returns copies of the bindings of category c in registration
// order.
func (r *Registry) Bindings(c Category) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t := r.table(c)
	if t == nil {
		return nil
	}
	list := t.list()
	out := make([]Binding, len(list))
	for i, b := range list {
		out[i] = b.Clone()
	}
	return out
}

// Sequences returns the sequence bindings in registration order.
func (r *Registry) Sequences() []Binding {
	return r.Bindings(CategorySequence)
}

// Shortcuts returns the shortcut bindings in registration order.
func (r *Registry) Shortcuts() []Binding {
	return r.Bindings(CategoryShortcut)
}

// ActiveKeys returns the bound single keys in registration order.
func (r *Registry) ActiveKeys() []key.Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]key.Key, 0, r.keys.len())
	for _, b := range r.keys.list() {
		out = append(out, b.Keys[0])
	}
	return out
}

// ActiveSequences returns the bound sequences joined with the delimiter.
func (r *Registry) ActiveSequences() []string {
	return r.labels(CategorySequence)
}

// ActiveShortcuts returns the bound shortcuts joined with the delimiter.
func (r *Registry) ActiveShortcuts() []string {
	return r.labels(CategoryShortcut)
}

func (r *Registry) labels(c Category) []string {
	sep := r.resolver.Delimiter()

	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.table(c).list()
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.Label(sep))
	}
	return out
}

// Len returns the total number of bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keys.len() + r.sequences.len() + r.shortcuts.len()
}

// PreventsDefault reports whether the host default action for k should
// be cancelled.
func (r *Registry) PreventsDefault(k key.Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.preventDefault[k]
	return ok
}

// StopsPropagation reports whether propagation of k should be halted.
func (r *Registry) StopsPropagation(k key.Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stopPropagation[k]
	return ok
}

// Suppressed returns the sorted keys in the prevent-default set.
func (r *Registry) Suppressed() []key.Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]key.Key, 0, len(r.preventDefault))
	for k := range r.preventDefault {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func opName(c Category) string {
	switch c {
	case CategoryKey:
		return "Key"
	case CategorySequence:
		return "Sequence"
	case CategoryShortcut:
		return "Shortcut"
	}
	return ""
}
