// internal/lookups/compare.go
package lookups

import (
	"reflect"
	"strings"
	"time"
)

/*
 * Value comparison shared by lookups, orderings and distinct.
 *
 * Numbers compare across Go numeric types (JSON decodes to float64, SQL
 * drivers hand back int64). Strings and times compare naturally, booleans
 * order false < true. Anything else is incomparable: ordered lookups
 * report false rather than failing.
 */

// Equal reports whether a and b are equal with numeric tolerance.
func Equal(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	// Structs and arrays may hold interface fields with uncomparable
	// dynamic values, on which == panics.
	switch ta.Kind() {
	case reflect.Struct, reflect.Array:
		return reflect.DeepEqual(a, b)
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Compare performs a three-way comparison (-1/0/1).
// The boolean is false when a and b are not mutually ordered.
func Compare(a, b any) (int, bool) {
	if na, nb, ok := asNumbers(a, b); ok {
		return threeWay(na < nb, na > nb), true
	}
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(va, vb), true
	case time.Time:
		vb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return va.Compare(vb), true
	case bool:
		vb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return threeWay(!va && vb, va && !vb), true
	}
	return 0, false
}

func threeWay(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}

func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := ToFloat64(a)
	nb, okb := ToFloat64(b)
	return na, nb, oka && okb
}

// ToFloat64 converts any Go numeric value to float64.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// compareString applies the prefix/suffix/substring kinds.
// Non-string values never match.
func compareString(kind Kind, value, operand any) bool {
	vs, ok1 := value.(string)
	sub, ok2 := operand.(string)
	if !ok1 || !ok2 {
		return false
	}
	switch kind {
	case KindIStartsWith, KindIEndsWith, KindIContains:
		vs, sub = strings.ToLower(vs), strings.ToLower(sub)
	}
	switch kind {
	case KindStartsWith, KindIStartsWith:
		return strings.HasPrefix(vs, sub)
	case KindEndsWith, KindIEndsWith:
		return strings.HasSuffix(vs, sub)
	default:
		return strings.Contains(vs, sub)
	}
}

// compareContains is substring match for strings and membership for lists.
func compareContains(value, operand any) bool {
	if vs, ok := value.(string); ok {
		sub, ok := operand.(string)
		return ok && strings.Contains(vs, sub)
	}
	if items, ok := value.([]any); ok {
		for _, item := range items {
			if Equal(item, operand) {
				return true
			}
		}
	}
	return false
}
