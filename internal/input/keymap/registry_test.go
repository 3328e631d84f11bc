package keymap

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/dshills/silverkey/internal/input/key"
)

func noop() {}

func TestBindKeyResolvesAlias(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.BindKey("esc", noop); err != nil {
		t.Fatalf("BindKey() error = %v", err)
	}
	if _, ok := r.LookupKey(key.KeyEscape); !ok {
		t.Error("esc should be stored as Escape")
	}
	if got := r.ActiveKeys(); !key.Equal(got, []key.Key{key.KeyEscape}) {
		t.Errorf("ActiveKeys() = %v", got)
	}
	if !r.PreventsDefault(key.KeyEscape) || !r.StopsPropagation(key.KeyEscape) {
		t.Error("Escape should be suppressed")
	}
}

func TestBindKeyAllowDefaults(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.BindKey("a", noop, WithAllowDefaults()); err != nil {
		t.Fatalf("BindKey() error = %v", err)
	}
	if r.PreventsDefault("a") || r.StopsPropagation("a") {
		t.Error("allow-defaults binding should not suppress")
	}
}

func TestBindEmptyInput(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name string
		bind func() error
	}{
		{"key", func() error { return r.BindKey("", noop) }},
		{"sequence", func() error { return r.BindSequence("", noop) }},
		{"shortcut", func() error { return r.BindShortcut("", noop) }},
		{"empty piece", func() error { return r.BindSequence("a,,b", noop) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bind()
			if !errors.Is(err, ErrEmptyInput) {
				t.Errorf("error = %v, want ErrEmptyInput", err)
			}
			if KindOf(err) != KindEmptyInput {
				t.Errorf("KindOf() = %v, want EmptyInput", KindOf(err))
			}
		})
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after failed binds", r.Len())
	}
}

func TestBindSequenceKeepsOrder(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.BindSequence("Up,up,Down", noop); err != nil {
		t.Fatalf("BindSequence() error = %v", err)
	}
	seqs := r.Sequences()
	if len(seqs) != 1 {
		t.Fatalf("Sequences() len = %d", len(seqs))
	}
	want := []key.Key{key.KeyArrowUp, key.KeyArrowUp, key.KeyArrowDown}
	if !key.Equal(seqs[0].Keys, want) {
		t.Errorf("Keys = %v, want %v", seqs[0].Keys, want)
	}
	if got := r.ActiveSequences(); !slices.Equal(got, []string{"ArrowUp,ArrowUp,ArrowDown"}) {
		t.Errorf("ActiveSequences() = %v", got)
	}
}

func TestBindShortcutDedupesAndSorts(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.BindShortcut("s,ctrl,alt,CTRL", noop); err != nil {
		t.Fatalf("BindShortcut() error = %v", err)
	}
	got := r.Shortcuts()[0].Keys
	want := []key.Key{key.KeyAlt, key.KeyControl, "s"}
	if !key.Equal(got, want) {
		t.Errorf("Keys = %v, want %v", got, want)
	}

	// Same set in a different order is the same binding.
	if err := r.UnbindShortcut("alt,s,ctrl"); err != nil {
		t.Errorf("UnbindShortcut() error = %v", err)
	}
}

func TestBindShortcutSizeLimit(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.BindShortcut("a,b,c,d,e,f", noop); err != nil {
		t.Fatalf("six keys should bind: %v", err)
	}

	err := r.BindShortcut("a,b,c,d,e,f,g", noop)
	if !errors.Is(err, ErrTooManyKeys) {
		t.Fatalf("error = %v, want ErrTooManyKeys", err)
	}
	if KindOf(err) != KindTooManyKeys {
		t.Errorf("KindOf() = %v", KindOf(err))
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	if r.PreventsDefault("g") {
		t.Error("failed bind should not suppress g")
	}

	// Duplicates do not count towards the limit.
	if err := r.BindShortcut("a,b,c,d,e,f,a", noop); err != nil {
		t.Errorf("duplicate keys should be removed before the size check: %v", err)
	}
}

func TestStructuredKeysDoNotCollide(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.BindSequence("ab,c", noop); err != nil {
		t.Fatal(err)
	}
	if err := r.BindSequence("a,bc", noop); err != nil {
		t.Fatal(err)
	}
	if got := len(r.Sequences()); got != 2 {
		t.Errorf("Sequences() len = %d, want 2", got)
	}
}

func TestRebindReplacesInPlace(t *testing.T) {
	r := NewRegistry(nil)
	var calls []string

	_ = r.BindSequence("a,b", func() { calls = append(calls, "first") })
	_ = r.BindSequence("c,d", noop)
	_ = r.BindSequence("a,b", func() { calls = append(calls, "second") }, WithAllowDefaults())

	seqs := r.Sequences()
	if len(seqs) != 2 {
		t.Fatalf("Sequences() len = %d, want 2", len(seqs))
	}
	if !key.Equal(seqs[0].Keys, []key.Key{"a", "b"}) {
		t.Errorf("rebinding should keep registration position, got %v first", seqs[0].Keys)
	}
	seqs[0].Callback()
	if !slices.Equal(calls, []string{"second"}) {
		t.Errorf("calls = %v", calls)
	}
	if r.PreventsDefault("a") {
		t.Error("rebinding with allow-defaults should lift suppression")
	}
}

func TestUnbindNotFound(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name   string
		unbind func() error
	}{
		{"key", func() error { return r.UnbindKey("x") }},
		{"sequence", func() error { return r.UnbindSequence("x,y") }},
		{"shortcut", func() error { return r.UnbindShortcut("x,y") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.unbind()
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
			var kerr *Error
			if !errors.As(err, &kerr) || kerr.Kind != KindNotFound {
				t.Errorf("error should be *Error with KindNotFound, got %v", err)
			}
		})
	}
}

func TestSuppressionLifetime(t *testing.T) {
	r := NewRegistry(nil)

	_ = r.BindKey("a", noop)
	_ = r.BindSequence("a,b", noop)

	if err := r.UnbindKey("a"); err != nil {
		t.Fatalf("UnbindKey() error = %v", err)
	}
	if !r.PreventsDefault("a") {
		t.Error("a is still used by the sequence and should stay suppressed")
	}

	if err := r.UnbindSequence("a,b"); err != nil {
		t.Fatalf("UnbindSequence() error = %v", err)
	}
	if r.PreventsDefault("a") || r.StopsPropagation("a") {
		t.Error("a should no longer be suppressed")
	}
	if r.PreventsDefault("b") {
		t.Error("b should no longer be suppressed")
	}
}

func TestSuppressionIgnoresAllowDefaultsBindings(t *testing.T) {
	r := NewRegistry(nil)

	_ = r.BindKey("a", noop)
	_ = r.BindShortcut("a,b", noop, WithAllowDefaults())

	if err := r.UnbindKey("a"); err != nil {
		t.Fatal(err)
	}
	if r.PreventsDefault("a") {
		t.Error("only allow-defaults bindings reference a; it should not be suppressed")
	}
	if !r.KeyInUse("a", nil) {
		t.Error("KeyInUse should still report the shortcut's use of a")
	}
}

func TestKeyInUseExcludes(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.BindSequence("a,b", noop)

	seq := r.Sequences()[0]
	if r.KeyInUse("a", &seq) {
		t.Error("excluded binding should not count")
	}
	if !r.KeyInUse("a", nil) {
		t.Error("a is used by the sequence")
	}
	if r.KeyInUse("z", nil) {
		t.Error("z is not bound")
	}
}

func TestUnbindAll(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.Resolver().SetDelimiter("+")

	_ = r.BindKey("esc", noop)
	_ = r.BindKey("any", noop)
	_ = r.BindSequence("a+b+c", noop)
	_ = r.BindShortcut("ctrl+s", noop)
	_ = r.BindShortcut("ctrl+alt+x", noop)

	r.UnbindAll()

	if len(r.ActiveKeys()) != 0 || len(r.ActiveSequences()) != 0 || len(r.ActiveShortcuts()) != 0 {
		t.Error("UnbindAll should clear every table")
	}
	if got := r.Suppressed(); len(got) != 0 {
		t.Errorf("Suppressed() = %v, want empty", got)
	}
	if r.Resolver().Delimiter() != "+" {
		t.Error("UnbindAll should keep the delimiter")
	}
}

func TestActiveShortcutsUsesDelimiter(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.BindShortcut("ctrl,s", noop)
	_ = r.Resolver().SetDelimiter("+")

	if got := r.ActiveShortcuts(); !slices.Equal(got, []string{"Control+s"}) {
		t.Errorf("ActiveShortcuts() = %v", got)
	}
}

func TestBindInvalidCategory(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Bind(CategoryNone, "a", noop)
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("error = %v, want ErrInvalidCategory", err)
	}
}

func TestBindingOptions(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.BindKey("q", noop, WithDescription("quit"), WithAction("app.quit"))

	b, ok := r.Lookup(CategoryKey, "Q")
	if !ok {
		t.Fatal("Lookup(Q) should find q")
	}
	if b.Description != "quit" || b.Action != "app.quit" {
		t.Errorf("binding = %+v", b)
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewError("UnbindKey", "x", ErrNotFound)
	if got := err.Error(); got != `keymap: UnbindKey "x": binding not found` {
		t.Errorf("Error() = %q", got)
	}
	if KindOf(errors.New("other")) != KindUnknown {
		t.Error("plain errors should have KindUnknown")
	}
}

// Property: a shortcut's identity does not depend on the order of its keys.
func TestShortcut_OrderIndependent(t *testing.T) {
	pool := []string{"ctrl", "alt", "shift", "meta", "a", "s", "x", "f1", "up"}

	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfNDistinct(rapid.SampledFrom(pool), 1, MaxShortcutKeys, rapid.ID[string]).Draw(t, "keys")
		perm := rapid.Permutation(keys).Draw(t, "perm")

		r := NewRegistry(nil)
		if err := r.BindShortcut(strings.Join(keys, ","), noop); err != nil {
			t.Fatalf("BindShortcut(%v) error = %v", keys, err)
		}
		if err := r.UnbindShortcut(strings.Join(perm, ",")); err != nil {
			t.Fatalf("UnbindShortcut(%v) error = %v", perm, err)
		}
		if r.Len() != 0 {
			t.Fatalf("Len() = %d after unbind", r.Len())
		}
	})
}

// Property: suppression holds exactly for keys of suppressing bindings.
func TestSuppression_MatchesBindings(t *testing.T) {
	pool := []string{"a", "b", "c", "d"}

	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry(nil)
		ops := rapid.IntRange(1, 20).Draw(t, "ops")

		for i := 0; i < ops; i++ {
			keys := rapid.SliceOfN(rapid.SampledFrom(pool), 1, 3).Draw(t, "keys")
			input := strings.Join(keys, ",")
			allow := rapid.Bool().Draw(t, "allow")
			var opts []BindOption
			if allow {
				opts = append(opts, WithAllowDefaults())
			}

			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_ = r.BindSequence(input, noop, opts...)
			case 1:
				_ = r.BindShortcut(input, noop, opts...)
			case 2:
				_ = r.UnbindSequence(input)
			case 3:
				_ = r.UnbindShortcut(input)
			}
		}

		for _, k := range pool {
			want := false
			for _, b := range append(r.Sequences(), r.Shortcuts()...) {
				if b.Suppresses() && b.Uses(key.Key(k)) {
					want = true
				}
			}
			if got := r.PreventsDefault(key.Key(k)); got != want {
				t.Fatalf("PreventsDefault(%q) = %v, want %v", k, got, want)
			}
		}
	})
}
