package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/silverkey/internal/input/keymap"
)

// DefaultScriptTimeout bounds a single script call.
const DefaultScriptTimeout = 2 * time.Second

// ErrScriptClosed is returned when using a closed script.
var ErrScriptClosed = errors.New("action: script closed")

// Script runs Lua code that registers actions and bindings.
//
// The script sees a global "silverkey" table:
//
//	silverkey.action(name, fn)            register fn as an action
//	silverkey.bind(kind, keys, fn|name)   bind keys; kind is key, sequence or shortcut
//	silverkey.unbind(kind, keys)
//	silverkey.log(message)
//
// Lua functions receive the action arguments as a table. The interpreter
// is not goroutine-safe; every entry point holds the script lock.
type Script struct {
	mu      sync.Mutex
	L       *lua.LState
	actions *Registry
	binder  keymap.Binder
	timeout time.Duration
	closed  bool
}

// ScriptOption configures a Script.
type ScriptOption func(*Script)

// WithBinder lets the script install bindings.
func WithBinder(b keymap.Binder) ScriptOption {
	return func(s *Script) { s.binder = b }
}

// WithScriptTimeout sets the per-call timeout. Zero disables it.
func WithScriptTimeout(d time.Duration) ScriptOption {
	return func(s *Script) { s.timeout = d }
}

// NewScript creates a sandboxed interpreter registering actions into r.
func NewScript(r *Registry, opts ...ScriptOption) *Script {
	s := &Script{
		actions: r,
		timeout: DefaultScriptTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	s.L = L
	s.install()
	return s
}

func (s *Script) install() {
	mod := s.L.NewTable()
	s.L.SetField(mod, "action", s.L.NewFunction(s.luaAction))
	s.L.SetField(mod, "bind", s.L.NewFunction(s.luaBind))
	s.L.SetField(mod, "unbind", s.L.NewFunction(s.luaUnbind))
	s.L.SetField(mod, "log", s.L.NewFunction(s.luaLog))
	s.L.SetGlobal("silverkey", mod)
}

// DoString runs Lua source.
func (s *Script) DoString(src string) error {
	return s.do(func() error { return s.L.DoString(src) })
}

// DoFile runs a Lua file.
func (s *Script) DoFile(path string) error {
	return s.do(func() error { return s.L.DoFile(path) })
}

// Close releases the interpreter. Actions it registered fail afterwards.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.L.Close()
	}
}

func (s *Script) do(fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrScriptClosed
	}
	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// call invokes a Lua function with the action arguments.
func (s *Script) call(fn *lua.LFunction, args map[string]any) error {
	return s.do(func() error {
		return s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, toLua(s.L, args))
	})
}

func (s *Script) luaFunc(fn *lua.LFunction) Func {
	return func(ctx Context) error {
		return s.call(fn, ctx.Args)
	}
}

// silverkey.action(name, fn)
func (s *Script) luaAction(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	if err := s.actions.Register(name, s.luaFunc(fn)); err != nil {
		L.RaiseError("action: %v", err)
	}
	return 0
}

// silverkey.bind(kind, keys, fn|name, opts?)
// opts: allow_defaults (bool), description (string), args (table)
func (s *Script) luaBind(L *lua.LState) int {
	if s.binder == nil {
		L.RaiseError("bind: no binder available")
		return 0
	}
	cat, ok := keymap.ParseCategory(L.CheckString(1))
	if !ok {
		L.ArgError(1, "kind must be key, sequence or shortcut")
		return 0
	}
	keys := L.CheckString(2)

	var bindOpts []keymap.BindOption
	var args map[string]any
	if opts, ok := L.Get(4).(*lua.LTable); ok {
		if lua.LVAsBool(opts.RawGetString("allow_defaults")) {
			bindOpts = append(bindOpts, keymap.WithAllowDefaults())
		}
		if desc, ok := opts.RawGetString("description").(lua.LString); ok {
			bindOpts = append(bindOpts, keymap.WithDescription(string(desc)))
		}
		if t, ok := opts.RawGetString("args").(*lua.LTable); ok {
			if m, ok := fromLua(t).(map[string]any); ok {
				args = m
			}
		}
	}

	var cb keymap.Callback
	switch v := L.Get(3).(type) {
	case *lua.LFunction:
		fn := s.luaFunc(v)
		cb = func() {
			if err := fn(Context{Args: args}); err != nil {
				s.actions.logger.Error("lua binding failed", "keys", keys, "error", err)
			}
		}
	case lua.LString:
		resolved, err := s.actions.Resolve(string(v), args)
		if err != nil {
			L.RaiseError("bind: %v", err)
			return 0
		}
		cb = resolved
		bindOpts = append(bindOpts, keymap.WithAction(string(v)))
	default:
		L.ArgError(3, "function or action name expected")
		return 0
	}

	var err error
	switch cat {
	case keymap.CategoryKey:
		err = s.binder.BindKey(keys, cb, bindOpts...)
	case keymap.CategorySequence:
		err = s.binder.BindSequence(keys, cb, bindOpts...)
	case keymap.CategoryShortcut:
		err = s.binder.BindShortcut(keys, cb, bindOpts...)
	}
	if err != nil {
		L.RaiseError("bind: %v", err)
	}
	return 0
}

// silverkey.unbind(kind, keys)
func (s *Script) luaUnbind(L *lua.LState) int {
	if s.binder == nil {
		L.RaiseError("unbind: no binder available")
		return 0
	}
	cat, ok := keymap.ParseCategory(L.CheckString(1))
	if !ok {
		L.ArgError(1, "kind must be key, sequence or shortcut")
		return 0
	}
	keys := L.CheckString(2)

	var err error
	switch cat {
	case keymap.CategoryKey:
		err = s.binder.UnbindKey(keys)
	case keymap.CategorySequence:
		err = s.binder.UnbindSequence(keys)
	case keymap.CategoryShortcut:
		err = s.binder.UnbindShortcut(keys)
	}
	if err != nil {
		L.RaiseError("unbind: %v", err)
	}
	return 0
}

// silverkey.log(message)
func (s *Script) luaLog(L *lua.LState) int {
	s.actions.logger.Info(L.CheckString(1), "source", "lua")
	return 0
}

func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []any:
		t := L.NewTable()
		for _, item := range val {
			t.Append(toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

func fromLua(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, fromLua(val.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]any)
		val.ForEach(func(k, item lua.LValue) {
			m[k.String()] = fromLua(item)
		})
		return m
	}
	return nil
}
