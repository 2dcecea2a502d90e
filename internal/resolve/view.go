package resolve

import (
	"errors"

	"github.com/solatis/lifter/internal/types"
)

// missingValue is the type of Missing.
type missingValue struct{}

func (missingValue) String() string { return "<missing>" }

// Missing stands in for an attribute that could not be resolved when the
// caller asked for soft failure.
var Missing any = missingValue{}

// Sequence is the argument handed to a predicate when a ScatteredView
// resolved no values at all.
type Sequence []any

// EmptySequence is the empty resolved set of a ScatteredView.
var EmptySequence = Sequence{}

// IsMissing reports whether err is a missing-field failure.
func IsMissing(err error) bool {
	return errors.Is(err, types.ErrMissingField)
}

// ScatteredView lazily resolves one name against every element of a
// collection. Elements missing the name are skipped. Resolved values are
// computed once and cached.
type ScatteredView struct {
	items    []any
	name     string
	resolved []any
	done     bool
}

// NewView wraps items, resolving name against each on first use.
func NewView(items []any, name string) *ScatteredView {
	return &ScatteredView{items: items, name: name}
}

// Name returns the attribute name this view resolves.
func (v *ScatteredView) Name() string { return v.name }

// Values returns the resolved values in element order.
func (v *ScatteredView) Values() []any {
	if v.done {
		return v.resolved
	}
	resolved := make([]any, 0, len(v.items))
	for _, item := range v.items {
		val, err := Attr(item, v.name)
		if err != nil {
			continue
		}
		resolved = append(resolved, val)
	}
	v.resolved = resolved
	v.done = true
	return v.resolved
}

// Attr returns a nested view resolving name against this view's values.
func (v *ScatteredView) Attr(name string) *ScatteredView {
	return NewView(v.Values(), name)
}

// Equal reports whether other appears among the resolved values, looking
// inside nested views. eq compares a resolved value to other.
func (v *ScatteredView) Equal(other any, eq func(a, b any) bool) bool {
	for _, val := range v.Values() {
		if sv, ok := val.(*ScatteredView); ok {
			if sv.Equal(other, eq) {
				return true
			}
			continue
		}
		if eq(val, other) {
			return true
		}
	}
	return false
}

// Test reports whether any resolved value satisfies pred. When the values
// are themselves views the test fans out into each of them. An empty
// resolution calls pred(EmptySequence).
func (v *ScatteredView) Test(pred func(any) bool) bool {
	values := v.Values()
	if len(values) == 0 {
		return pred(EmptySequence)
	}
	if _, nested := values[0].(*ScatteredView); nested {
		for _, val := range values {
			if sv, ok := val.(*ScatteredView); ok && sv.Test(pred) {
				return true
			}
		}
		return false
	}
	for _, val := range values {
		if pred(val) {
			return true
		}
	}
	return false
}
