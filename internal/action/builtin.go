package action

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// RegisterBuiltins registers the builtin actions:
//
//	noop   does nothing
//	log    logs "message" (default: the action name) at info level
//	print  writes "text" and a newline to w
func RegisterBuiltins(r *Registry, w io.Writer) {
	_ = r.Register("noop", func(Context) error { return nil })
	_ = r.Register("log", logAction)
	if w != nil {
		_ = r.Register("print", printAction(w))
	}
}

func logAction(ctx Context) error {
	attrs := make([]any, 0, 2*len(ctx.Args))
	keys := make([]string, 0, len(ctx.Args))
	for k := range ctx.Args {
		if k != "message" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, ctx.Args[k])
	}
	ctx.Logger.Info(ctx.String("message", ctx.Name), attrs...)
	return nil
}

func printAction(w io.Writer) Func {
	var mu sync.Mutex
	return func(ctx Context) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintln(w, ctx.String("text", ""))
		return err
	}
}
