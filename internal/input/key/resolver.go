package key

import (
	"errors"
	"strings"
	"sync"
)

// DefaultDelimiter separates keys in delimited binding strings.
const DefaultDelimiter = ","

// ErrInvalidDelimiter is returned when setting an empty delimiter.
var ErrInvalidDelimiter = errors.New("invalid delimiter")

// Resolver maps free-form labels to canonical keys.
// It is safe for concurrent use.
type Resolver struct {
	mu        sync.RWMutex
	lookup    Lookup
	delimiter string
}

// NewResolver creates a resolver over the given tables.
// A nil lookup uses DefaultTables.
func NewResolver(lookup Lookup) *Resolver {
	if lookup == nil {
		lookup = DefaultTables()
	}
	return &Resolver{
		lookup:    lookup,
		delimiter: DefaultDelimiter,
	}
}

// Lookup returns the tables the resolver uses.
func (r *Resolver) Lookup() Lookup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup
}

// SetLookup replaces the tables.
func (r *Resolver) SetLookup(lookup Lookup) {
	if lookup == nil {
		lookup = DefaultTables()
	}
	r.mu.Lock()
	r.lookup = lookup
	r.mu.Unlock()
}

// Delimiter returns the current delimiter.
func (r *Resolver) Delimiter() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.delimiter
}

// SetDelimiter sets the delimiter used by Parse.
func (r *Resolver) SetDelimiter(d string) error {
	if d == "" {
		return ErrInvalidDelimiter
	}
	r.mu.Lock()
	r.delimiter = d
	r.mu.Unlock()
	return nil
}

// Resolve returns the canonical key for input.
//
// The lower-cased input is looked up in the alias table. A hit returns the
// table value verbatim. A miss returns the lower-cased input, or the input
// unchanged when preserveCase is set.
func (r *Resolver) Resolve(input string, preserveCase bool) Key {
	lookup := r.Lookup()
	low := lower(input)
	if k, ok := lookup.Alias(low); ok {
		return k
	}
	if preserveCase {
		return Key(input)
	}
	return Key(low)
}

// Parse splits delimited on the delimiter and resolves each piece in order.
func (r *Resolver) Parse(delimited string, preserveCase bool) []Key {
	pieces := strings.Split(delimited, r.Delimiter())
	keys := make([]Key, len(pieces))
	for i, p := range pieces {
		keys[i] = r.Resolve(p, preserveCase)
	}
	return keys
}

func lower(s string) string {
	return strings.ToLower(s)
}
