package fields

import (
	"errors"
	"testing"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
)

func TestCTE_DeclaredOrder(t *testing.T) {
	names := CTE().Names()
	if len(names) != 25 {
		t.Fatalf("expected 25 fields, got %d", len(names))
	}
	if names[0] != constants.FieldFileName {
		t.Errorf("expected first field %q, got %q", constants.FieldFileName, names[0])
	}
	if names[len(names)-1] != constants.FieldReceiverRegion {
		t.Errorf("expected last field %q, got %q", constants.FieldReceiverRegion, names[len(names)-1])
	}
}

func TestCTE_RuleKinds(t *testing.T) {
	tests := map[string]Kind{
		constants.FieldFileName:       KindDerived,
		"cUF":                         KindSingle,
		"vBC":                         KindFallback,
		"CST":                         KindFallback,
		constants.FieldReceiverRegion: KindTagged,
	}
	for name, want := range tests {
		f, err := CTE().Lookup(name)
		if err != nil {
			t.Fatalf("lookup %q: %v", name, err)
		}
		if f.Rule.Kind != want {
			t.Errorf("%s: expected %s, got %s", name, want, f.Rule.Kind)
		}
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := CTE().Lookup("Peso Bruto")
	if !errors.Is(err, common.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSelect_OrdersByTable(t *testing.T) {
	sel, err := CTE().Select([]string{"vBC", constants.FieldFileName, "cUF", "vBC"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	got := sel.Names()
	want := []string{constants.FieldFileName, "cUF", "vBC"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if !sel.Contains("cUF") || sel.Contains("nCT") {
		t.Error("Contains mismatch")
	}
}

func TestSelect_RejectsUnknown(t *testing.T) {
	_, err := CTE().Select([]string{"cUF", "nope"})
	if !errors.Is(err, common.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestNewTable_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"duplicate", []Field{{"a", Absent()}, {"a", Absent()}}},
		{"empty name", []Field{{"", Absent()}}},
		{"fallback with one path", []Field{{"a", Fallback("x")}}},
		{"single without path", []Field{{"a", Single("")}}},
		{"tagged without tag", []Field{{"a", Tagged(Location{Path: "x"}, Location{Path: "y", Tag: "y"})}}},
		{"derived without func", []Field{{"a", Derived(nil)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(nil, tt.fields...)
			if !errors.Is(err, common.ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestRule_AllPaths(t *testing.T) {
	r := Tagged(Location{Path: "a", Tag: "x"}, Location{Path: "b", Tag: "y"})
	if got := r.AllPaths(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected paths %v", got)
	}
	if got := Derived(func(Meta) string { return "" }).AllPaths(); got != nil {
		t.Errorf("derived rule has no paths, got %v", got)
	}
}
