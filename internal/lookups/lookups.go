// internal/lookups/lookups.go
package lookups

import (
	"fmt"
	"reflect"

	"github.com/solatis/lifter/internal/resolve"
	"github.com/solatis/lifter/internal/types"
)

/*
 * Lookup registry.
 *
 * A closed set of lookup kinds, each a pure predicate over
 * (resolved value, operand). Names are the stable identity used when a
 * backend negotiates which lookups it can translate.
 *
 * Resolved values that are ScatteredViews are matched existentially:
 *   - eq is membership, ne is non-membership
 *   - every other kind holds if any resolved element satisfies it
 *   - an empty view hands resolve.EmptySequence to the predicate
 *
 * exists is the only kind that tolerates a missing field; the evaluator
 * resolves its path softly and the lookup reports resolve.Missing as false.
 */

// Kind enumerates lookup kinds.
type Kind int

const (
	KindUnspecified Kind = iota
	KindEq
	KindNe
	KindGt
	KindGte
	KindLt
	KindLte
	KindStartsWith
	KindIStartsWith
	KindEndsWith
	KindIEndsWith
	KindContains
	KindIContains
	KindIn
	KindRange
	KindExists
	KindTest
)

var kindNames = map[Kind]string{
	KindEq:          "eq",
	KindNe:          "ne",
	KindGt:          "gt",
	KindGte:         "gte",
	KindLt:          "lt",
	KindLte:         "lte",
	KindStartsWith:  "startswith",
	KindIStartsWith: "istartswith",
	KindEndsWith:    "endswith",
	KindIEndsWith:   "iendswith",
	KindContains:    "contains",
	KindIContains:   "icontains",
	KindIn:          "in",
	KindRange:       "range",
	KindExists:      "exists",
	KindTest:        "test",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the registry name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unspecified"
}

// ByName returns the kind registered under name.
func ByName(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Names returns every registered name.
func Names() []string {
	names := make([]string, 0, len(kindNames))
	for k := KindEq; k <= KindTest; k++ {
		names = append(names, kindNames[k])
	}
	return names
}

// Orderable reports whether the kind compares by ordering.
func (k Kind) Orderable() bool {
	switch k {
	case KindGt, KindGte, KindLt, KindLte, KindRange:
		return true
	default:
		return false
	}
}

// AbsorbsMissing reports whether a missing field is an answer rather than an error.
func (k Kind) AbsorbsMissing() bool {
	return k == KindExists
}

// Predicate is a caller-supplied test.
type Predicate func(value any) bool

// Lookup is a kind bound to its operand. Key identifies a test predicate
// in query hashes; a test lookup without a key cannot be cached.
type Lookup struct {
	Kind    Kind
	Operand any
	Test    Predicate
	Key     string
}

// Name returns the registry name of the lookup.
func (l Lookup) Name() string { return l.Kind.String() }

// New binds operand to kind, validating the operand shape.
func New(kind Kind, operand any) (Lookup, error) {
	switch kind {
	case KindEq, KindNe, KindGt, KindGte, KindLt, KindLte:
		return Lookup{Kind: kind, Operand: operand}, nil
	case KindStartsWith, KindIStartsWith, KindEndsWith, KindIEndsWith, KindContains, KindIContains:
		if _, ok := operand.(string); !ok && kind != KindContains {
			return Lookup{}, fmt.Errorf("%w: %s requires a string operand, got %T", types.ErrInvalidLookup, kind, operand)
		}
		return Lookup{Kind: kind, Operand: operand}, nil
	case KindIn:
		values, ok := asSlice(operand)
		if !ok {
			return Lookup{}, fmt.Errorf("%w: in requires a list operand, got %T", types.ErrInvalidLookup, operand)
		}
		if len(values) > types.MaxInOperands {
			return Lookup{}, types.ErrTooManyOperands
		}
		return Lookup{Kind: kind, Operand: values}, nil
	case KindRange:
		values, ok := asSlice(operand)
		if !ok || len(values) != 2 {
			return Lookup{}, fmt.Errorf("%w: range requires a [start, end] operand, got %v", types.ErrInvalidLookup, operand)
		}
		return Lookup{Kind: kind, Operand: values}, nil
	case KindExists:
		return Lookup{Kind: kind}, nil
	case KindTest:
		pred, ok := operand.(Predicate)
		if !ok {
			fn, isFunc := operand.(func(any) bool)
			if !isFunc {
				return Lookup{}, fmt.Errorf("%w: test requires a func(any) bool operand, got %T", types.ErrInvalidLookup, operand)
			}
			pred = fn
		}
		return Lookup{Kind: kind, Test: pred}, nil
	default:
		return Lookup{}, fmt.Errorf("%w: unknown kind %d", types.ErrInvalidLookup, kind)
	}
}

// Named binds operand to the lookup registered under name.
func Named(name string, operand any) (Lookup, error) {
	kind, ok := ByName(name)
	if !ok {
		return Lookup{}, fmt.Errorf("%w: %q", types.ErrInvalidLookup, name)
	}
	return New(kind, operand)
}

// Match applies the lookup to a resolved value.
func (l Lookup) Match(value any) bool {
	view, ok := value.(*resolve.ScatteredView)
	if !ok {
		return l.apply(value)
	}
	switch l.Kind {
	case KindEq:
		return view.Equal(l.Operand, Equal)
	case KindNe:
		return !view.Equal(l.Operand, Equal)
	default:
		return view.Test(l.apply)
	}
}

func (l Lookup) apply(value any) bool {
	switch l.Kind {
	case KindExists:
		if value == resolve.Missing {
			return false
		}
		if seq, ok := value.(resolve.Sequence); ok && len(seq) == 0 {
			return false
		}
		return true
	case KindEq:
		return Equal(value, l.Operand)
	case KindNe:
		return !Equal(value, l.Operand)
	case KindGt:
		c, ok := Compare(value, l.Operand)
		return ok && c > 0
	case KindGte:
		c, ok := Compare(value, l.Operand)
		return ok && c >= 0
	case KindLt:
		c, ok := Compare(value, l.Operand)
		return ok && c < 0
	case KindLte:
		c, ok := Compare(value, l.Operand)
		return ok && c <= 0
	case KindStartsWith, KindIStartsWith, KindEndsWith, KindIEndsWith, KindIContains:
		return compareString(l.Kind, value, l.Operand)
	case KindContains:
		return compareContains(value, l.Operand)
	case KindIn:
		candidates, _ := l.Operand.([]any)
		for _, candidate := range candidates {
			if Equal(value, candidate) {
				return true
			}
		}
		return false
	case KindRange:
		bounds, ok := l.Operand.([]any)
		if !ok || len(bounds) != 2 {
			return false
		}
		lo, okLo := Compare(value, bounds[0])
		hi, okHi := Compare(value, bounds[1])
		return okLo && okHi && lo >= 0 && hi <= 0
	case KindTest:
		return l.Test != nil && l.Test(value)
	default:
		return false
	}
}

// asSlice normalizes any slice or array operand to []any.
func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
