// Package action provides named actions that bindings can run.
//
// Binding files refer to actions by name ("log", "print", a Lua function
// registered by a script). The Registry turns those names into
// keymap.Callback values through Resolver.
package action

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/dshills/silverkey/internal/input/keymap"
)

var (
	// ErrUnknownAction is returned when an action name is not registered.
	ErrUnknownAction = errors.New("action: unknown action")

	// ErrEmptyName is returned when registering an action without a name.
	ErrEmptyName = errors.New("action: empty name")
)

// Context is passed to an action when it runs.
type Context struct {
	// Name is the action name.
	Name string

	// Args are the arguments from the binding entry.
	Args map[string]any

	// Logger is the registry logger.
	Logger *slog.Logger
}

// String returns the named argument as a string, or def.
func (c Context) String(name, def string) string {
	if v, ok := c.Args[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return def
}

// Func runs an action.
type Func func(ctx Context) error

// Registry holds named actions. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Func
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		actions: make(map[string]Func),
		logger:  logger,
	}
}

// NewDefaultRegistry creates a registry with the builtin actions. print
// writes to w.
func NewDefaultRegistry(logger *slog.Logger, w io.Writer) *Registry {
	r := NewRegistry(logger)
	RegisterBuiltins(r, w)
	return r
}

// Register adds or replaces an action.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
	return nil
}

// Unregister removes an action. It reports whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.actions[name]
	delete(r.actions, name)
	return ok
}

// Get returns the named action.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.actions[name]
	return fn, ok
}

// Names returns the sorted action names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run runs the named action.
func (r *Registry) Run(name string, args map[string]any) error {
	fn, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return fn(Context{Name: name, Args: args, Logger: r.logger})
}

// Resolve returns a callback that runs the named action with args. The
// name is checked now; errors from the action are logged when it runs.
func (r *Registry) Resolve(name string, args map[string]any) (keymap.Callback, error) {
	if _, ok := r.Get(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	args = cloneArgs(args)
	return func() {
		if err := r.Run(name, args); err != nil {
			r.logger.Error("action failed", "action", name, "error", err)
		}
	}, nil
}

// Resolver adapts Resolve to keymap.ActionResolver.
func (r *Registry) Resolver() keymap.ActionResolver {
	return r.Resolve
}

func cloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.([]any); ok {
			v = slices.Clone(s)
		}
		out[k] = v
	}
	return out
}
