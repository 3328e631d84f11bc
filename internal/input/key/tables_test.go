package key

import (
	"testing"
)

func TestDefaultTablesCodes(t *testing.T) {
	tab := DefaultTables()

	tests := []struct {
		code    int
		plain   Key
		shifted Key
	}{
		{65, "a", "A"},
		{90, "z", "Z"},
		{48, "0", ")"},
		{186, ";", ":"},
		{222, "'", "\""},
		{13, KeyEnter, ""},
		{44, KeyPrintScreen, ""},
		{224, "⌘", ""},
	}

	for _, tt := range tests {
		if got, _ := tab.Code(tt.code); got != tt.plain {
			t.Errorf("Code(%d) = %q, want %q", tt.code, got, tt.plain)
		}
		got, ok := tab.ShiftedCode(tt.code)
		if tt.shifted == "" {
			if ok {
				t.Errorf("ShiftedCode(%d) = %q, want none", tt.code, got)
			}
			continue
		}
		if got != tt.shifted {
			t.Errorf("ShiftedCode(%d) = %q, want %q", tt.code, got, tt.shifted)
		}
	}
}

func TestTablesMergeDoesNotMutate(t *testing.T) {
	base := DefaultTables()
	merged := base.Merge(
		map[string]Key{"JUMP": KeySpace},
		map[int]Key{226: "\\"},
		map[int]Key{226: "|"},
	)

	if _, ok := base.Alias("jump"); ok {
		t.Error("Merge mutated the base alias table")
	}
	if _, ok := base.Code(226); ok {
		t.Error("Merge mutated the base code table")
	}
	if k, ok := merged.Alias("jump"); !ok || k != KeySpace {
		t.Errorf("merged alias = %q, %v", k, ok)
	}
	if k, _ := merged.ShiftedCode(226); k != "|" {
		t.Errorf("merged shifted code = %q", k)
	}
}

func TestNewTablesNilMaps(t *testing.T) {
	tab := NewTables(nil, nil, nil)
	if _, ok := tab.Code(65); ok {
		t.Error("empty tables should have no codes")
	}
	if _, ok := tab.Alias("ctrl"); ok {
		t.Error("empty tables should have no aliases")
	}
}
