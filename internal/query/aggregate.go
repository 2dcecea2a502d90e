// internal/query/aggregate.go
package query

import (
	"fmt"

	"github.com/solatis/lifter/internal/lookups"
	"github.com/solatis/lifter/internal/resolve"
	"github.com/solatis/lifter/internal/types"
)

/*
 * Aggregates reduce one field's values across a result set.
 *
 * The output key is "<path>__<name>" unless overridden with As. Compute
 * resolves each distinct path once and feeds every reducer on that path
 * from the shared value list. Duplicate keys are last-write-wins.
 *
 * Values resolved through a ScatteredView are flattened into the list.
 * Reducers over an empty list return nil.
 */

// Reducer folds a value list into one result.
type Reducer func(values []any) (any, error)

// Aggregate binds a reducer to a path.
type Aggregate struct {
	Path    Path
	Name    string
	key     string
	reducer Reducer
	builtin bool
}

// Reduce builds an aggregate with a custom reducer. name identifies fn in
// cache keys: custom reducers sharing a name must compute the same result.
func Reduce(path Path, name string, fn Reducer) Aggregate {
	return Aggregate{Path: path, Name: name, reducer: fn}
}

func builtinReduce(path Path, name string, fn Reducer) Aggregate {
	return Aggregate{Path: path, Name: name, reducer: fn, builtin: true}
}

func Sum(path Path) Aggregate { return builtinReduce(path, "sum", sum) }
func Min(path Path) Aggregate { return builtinReduce(path, "min", minimum) }
func Max(path Path) Aggregate { return builtinReduce(path, "max", maximum) }
func Avg(path Path) Aggregate { return builtinReduce(path, "avg", avg) }

// As overrides the output key.
func (a Aggregate) As(key string) Aggregate {
	a.key = key
	return a
}

// Key returns the output key.
func (a Aggregate) Key() string {
	if a.key != "" {
		return a.key
	}
	return a.Path.String() + "__" + a.Name
}

// AggregateResult holds keyed results and the same results in request order.
type AggregateResult struct {
	Values map[string]any
	Flat   []any
}

// ComputeAggregates resolves and reduces aggs over records.
func ComputeAggregates(records []any, aggs []Aggregate, permissive bool) (AggregateResult, error) {
	collected := make(map[string][]any)
	for _, a := range aggs {
		key := a.Path.String()
		if _, done := collected[key]; done {
			continue
		}
		values := make([]any, 0, len(records))
		for _, record := range records {
			var v any
			var err error
			if permissive {
				v, err = resolve.SoftPath(record, a.Path.segments)
			} else {
				v, err = resolve.Path(record, a.Path.segments)
			}
			if err != nil {
				return AggregateResult{}, err
			}
			if v == resolve.Missing {
				continue
			}
			values = appendFlattened(values, v)
		}
		collected[key] = values
	}

	result := AggregateResult{Values: make(map[string]any, len(aggs)), Flat: make([]any, 0, len(aggs))}
	for _, a := range aggs {
		if a.reducer == nil {
			return AggregateResult{}, fmt.Errorf("%w: %s has no reducer", types.ErrInvalidAggregate, a.Key())
		}
		v, err := a.reducer(collected[a.Path.String()])
		if err != nil {
			return AggregateResult{}, fmt.Errorf("aggregate %s: %w", a.Key(), err)
		}
		result.Values[a.Key()] = v
		result.Flat = append(result.Flat, v)
	}
	return result, nil
}

func appendFlattened(dst []any, v any) []any {
	view, ok := v.(*resolve.ScatteredView)
	if !ok {
		return append(dst, v)
	}
	for _, inner := range view.Values() {
		dst = appendFlattened(dst, inner)
	}
	return dst
}

// sum keeps integers exact and switches to float64 on the first
// non-integer input.
func sum(values []any) (any, error) {
	var isum int64
	var fsum float64
	floating := false
	for _, v := range values {
		switch n := v.(type) {
		case int:
			isum += int64(n)
		case int32:
			isum += int64(n)
		case int64:
			isum += n
		default:
			f, ok := lookups.ToFloat64(v)
			if !ok {
				return nil, fmt.Errorf("%w: cannot sum %T", types.ErrInvalidAggregate, v)
			}
			fsum += f
			floating = true
		}
	}
	if floating {
		return fsum + float64(isum), nil
	}
	return isum, nil
}

func avg(values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	total, err := sum(values)
	if err != nil {
		return nil, err
	}
	f, _ := lookups.ToFloat64(total)
	return f / float64(len(values)), nil
}

func minimum(values []any) (any, error) { return extreme(values, -1) }
func maximum(values []any) (any, error) { return extreme(values, 1) }

func extreme(values []any, sign int) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	best := values[0]
	for _, v := range values[1:] {
		c, ok := lookups.Compare(v, best)
		if !ok {
			return nil, fmt.Errorf("%w: cannot compare %T with %T", types.ErrInvalidAggregate, v, best)
		}
		if c*sign > 0 {
			best = v
		}
	}
	return best, nil
}
