package lookups

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/lifter/internal/resolve"
	"github.com/solatis/lifter/internal/types"
)

func mustNamed(t *testing.T, name string, operand any) Lookup {
	t.Helper()
	l, err := Named(name, operand)
	if err != nil {
		t.Fatalf("Named(%q) error = %v, want nil", name, err)
	}
	return l
}

func TestMatch_Scalars(t *testing.T) {
	day := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		lookup  string
		operand any
		value   any
		want    bool
	}{
		{"eq int", "eq", 1, 1, true},
		{"eq int float tolerance", "eq", 1, float64(1), true},
		{"eq int64 int", "eq", int64(2), 2, true},
		{"eq string", "eq", "a", "a", true},
		{"eq mismatch", "eq", "a", "b", false},
		{"eq slices", "eq", []any{1, 2}, []any{1, 2}, true},
		{"ne", "ne", 1, 2, true},
		{"gt", "gt", 2, 3, true},
		{"gt equal", "gt", 2, 2, false},
		{"gte equal", "gte", 2, 2, true},
		{"lt", "lt", 2, 1, true},
		{"lte", "lte", 2, 2, true},
		{"gt strings", "gt", "a", "b", true},
		{"gt time", "gt", day, day.Add(time.Hour), true},
		{"gt incomparable", "gt", 2, "x", false},
		{"startswith", "startswith", "ala", "alabama", true},
		{"startswith non string", "startswith", "ala", 1, false},
		{"istartswith", "istartswith", "ALA", "alabama", true},
		{"endswith", "endswith", "ama", "alabama", true},
		{"iendswith", "iendswith", "AMA", "Alabama", true},
		{"contains", "contains", "aba", "alabama", true},
		{"contains list", "contains", 2, []any{1, 2}, true},
		{"icontains", "icontains", "ABA", "alabama", true},
		{"icontains miss", "icontains", "xyz", "alabama", false},
		{"in", "in", []int{1, 2}, 2, true},
		{"in miss", "in", []string{"a"}, "b", false},
		{"range inclusive low", "range", []int{1, 3}, 1, true},
		{"range inclusive high", "range", []int{1, 3}, 3, true},
		{"range outside", "range", []int{1, 3}, 4, false},
		{"exists present", "exists", nil, 0, true},
		{"exists missing", "exists", nil, resolve.Missing, false},
		{"exists empty sequence", "exists", nil, resolve.EmptySequence, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := mustNamed(t, tt.lookup, tt.operand)
			if got := l.Match(tt.value); got != tt.want {
				t.Errorf("%s(%v).Match(%v) = %v, want %v", tt.lookup, tt.operand, tt.value, got, tt.want)
			}
		})
	}
}

func TestEqual_StructsWithInterfaceFields(t *testing.T) {
	type record struct {
		Name  string
		Attrs any
	}
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same map", record{"a", map[string]any{"k": 1}}, record{"a", map[string]any{"k": 1}}, true},
		{"different map", record{"a", map[string]any{"k": 1}}, record{"a", map[string]any{"k": 2}}, false},
		{"map against slice", record{"a", map[string]any{"k": 1}}, record{"a", []any{1}}, false},
		{"arrays of any", [1]any{[]any{1}}, [1]any{[]any{1}}, true},
		{"different types", record{"a", nil}, struct{ Name string }{"a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			l, err := New(KindEq, tt.b)
			if err != nil {
				t.Fatalf("New(eq) error = %v, want nil", err)
			}
			if got := l.Match(tt.a); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatch_View(t *testing.T) {
	members := []any{
		map[string]any{"name": "alice", "age": 30},
		map[string]any{"name": "bob", "age": 12},
		map[string]any{"nickname": "x"},
	}
	view := func(name string) *resolve.ScatteredView { return resolve.NewView(members, name) }

	tests := []struct {
		name    string
		lookup  string
		operand any
		field   string
		want    bool
	}{
		{"eq is membership", "eq", "bob", "name", true},
		{"eq miss", "eq", "carol", "name", false},
		{"ne is non-membership", "ne", "bob", "name", false},
		{"gt any element", "gt", 20, "age", true},
		{"lt no element", "lt", 10, "age", false},
		{"startswith any", "startswith", "al", "name", true},
		{"exists on populated view", "exists", nil, "name", true},
		{"exists on empty view", "exists", nil, "dob", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := mustNamed(t, tt.lookup, tt.operand)
			if got := l.Match(view(tt.field)); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatch_TestPredicate(t *testing.T) {
	l, err := New(KindTest, func(v any) bool { return v == "x" })
	if err != nil {
		t.Fatalf("New(test) error = %v, want nil", err)
	}
	if !l.Match("x") || l.Match("y") {
		t.Errorf("test predicate did not apply")
	}
}

func TestNew_InvalidOperands(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		operand any
		wantErr error
	}{
		{"in scalar", KindIn, 1, types.ErrInvalidLookup},
		{"range wrong length", KindRange, []int{1}, types.ErrInvalidLookup},
		{"startswith non string", KindStartsWith, 1, types.ErrInvalidLookup},
		{"test non func", KindTest, "x", types.ErrInvalidLookup},
		{"unknown kind", Kind(99), nil, types.ErrInvalidLookup},
		{"too many operands", KindIn, make([]int, types.MaxInOperands+1), types.ErrTooManyOperands},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.kind, tt.operand); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if _, err := Named("nope", 1); !errors.Is(err, types.ErrInvalidLookup) {
		t.Errorf("Named(nope) error = %v, want ErrInvalidLookup", err)
	}
}

func TestRegistryNames(t *testing.T) {
	for _, name := range Names() {
		k, ok := ByName(name)
		if !ok {
			t.Fatalf("ByName(%q) not found", name)
		}
		if k.String() != name {
			t.Errorf("ByName(%q).String() = %q", name, k.String())
		}
	}
	if len(Names()) != 16 {
		t.Errorf("len(Names()) = %d, want 16", len(Names()))
	}
	if !KindGt.Orderable() || KindEq.Orderable() {
		t.Errorf("Orderable() mismatch")
	}
	if !KindExists.AbsorbsMissing() || KindEq.AbsorbsMissing() {
		t.Errorf("AbsorbsMissing() mismatch")
	}
}

// Property: case-insensitive lookups agree with their case-sensitive
// counterparts on lowercased input.
func TestCaseInsensitiveProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("istartswith matches regardless of case", prop.ForAll(
		func(prefix, rest string) bool {
			l, err := New(KindIStartsWith, prefix)
			if err != nil {
				return false
			}
			return l.Match(upper(prefix) + rest)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("range is inclusive on both ends", prop.ForAll(
		func(lo, width int) bool {
			l, err := New(KindRange, []int{lo, lo + width})
			if err != nil {
				return false
			}
			return l.Match(lo) && l.Match(lo+width) && !l.Match(lo+width+1)
		},
		gen.IntRange(-1000, 1000),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
