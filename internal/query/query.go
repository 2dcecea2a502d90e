// internal/query/query.go
package query

import (
	"fmt"

	"github.com/solatis/lifter/internal/types"
)

/*
 * Query descriptor handed from a query set to a store.
 *
 * A Query is a value: every With* method returns a modified copy and never
 * touches the receiver's slices, so a query set can extend its parent's
 * query without aliasing.
 */

// Ordering sorts by one path, optionally reversed. A random ordering has no
// path and shuffles.
type Ordering struct {
	Path    Path
	Reverse bool
	Random  bool
}

// Random returns a shuffling ordering.
func Random() Ordering { return Ordering{Random: true} }

// ParseOrdering accepts "name", "-name" (descending) and "?" (random).
func ParseOrdering(s string) (Ordering, error) {
	if s == "?" {
		return Random(), nil
	}
	reverse := false
	if len(s) > 0 && s[0] == '-' {
		reverse = true
		s = s[1:]
	}
	p, err := ParsePath(s)
	if err != nil {
		return Ordering{}, err
	}
	return Ordering{Path: p, Reverse: reverse}, nil
}

func (o Ordering) String() string {
	switch {
	case o.Random:
		return "?"
	case o.Reverse:
		return "-" + o.Path.String()
	default:
		return o.Path.String()
	}
}

// Window is a [Start, Stop) slice of the result set.
type Window struct {
	Start int
	Stop  int
}

// NewWindow validates a window. Stop is required and must not precede Start.
func NewWindow(start, stop int) (*Window, error) {
	if start < 0 || stop < 0 {
		return nil, fmt.Errorf("negative window bounds [%d:%d] are not supported", start, stop)
	}
	if stop < start {
		return nil, fmt.Errorf("window stop %d precedes start %d", stop, start)
	}
	return &Window{Start: start, Stop: stop}, nil
}

// Size returns the number of rows the window can hold.
func (w Window) Size() int { return w.Stop - w.Start }

// Apply slices items to the window.
func (w Window) Apply(items []any) []any {
	start, stop := w.Start, w.Stop
	if start > len(items) {
		start = len(items)
	}
	if stop > len(items) {
		stop = len(items)
	}
	return items[start:stop]
}

// ProjectionMode selects the shape of projected rows.
type ProjectionMode int

const (
	// ProjectMapping yields map[string]any rows keyed by dotted path.
	ProjectMapping ProjectionMode = iota
	// ProjectTuple yields []any rows in path order.
	ProjectTuple
)

// Hints carry execution modifiers alongside the filter tree.
type Hints struct {
	ForceSingle bool
	Distinct    bool
	Permissive  bool
	Projection  []Path
	Mode        ProjectionMode
	Flat        bool
	Aggregates  []Aggregate
}

func (h Hints) clone() Hints {
	c := h
	c.Projection = append([]Path(nil), h.Projection...)
	c.Aggregates = append([]Aggregate(nil), h.Aggregates...)
	return c
}

// Query is the full request descriptor.
type Query struct {
	Action    types.Action
	Filters   Node
	Orderings []Ordering
	Window    *Window
	Hints     Hints
}

// New returns an empty query for action.
func New(action types.Action) Query {
	return Query{Action: action}
}

// Clone returns a deep copy of the mutable parts of q.
func (q Query) Clone() Query {
	c := q
	c.Orderings = append([]Ordering(nil), q.Orderings...)
	if q.Window != nil {
		w := *q.Window
		c.Window = &w
	}
	c.Hints = q.Hints.clone()
	return c
}

// WithAction returns a copy running action.
func (q Query) WithAction(action types.Action) Query {
	c := q.Clone()
	c.Action = action
	return c
}

// WithFilter AND-combines node with the existing filters.
func (q Query) WithFilter(node Node) Query {
	c := q.Clone()
	c.Filters = And(node, q.Filters)
	return c
}

// WithOrderings replaces the orderings.
func (q Query) WithOrderings(orderings ...Ordering) Query {
	c := q.Clone()
	c.Orderings = append([]Ordering(nil), orderings...)
	return c
}

// WithWindow replaces the window.
func (q Query) WithWindow(w *Window) Query {
	c := q.Clone()
	c.Window = w
	return c
}

// WithoutOrderings drops the orderings.
func (q Query) WithoutOrderings() Query {
	c := q.Clone()
	c.Orderings = nil
	return c
}

// WithHints returns a copy whose hints are modified by fn.
func (q Query) WithHints(fn func(*Hints)) Query {
	c := q.Clone()
	fn(&c.Hints)
	return c
}

// Validate checks the action and every leaf.
func (q Query) Validate() error {
	if !q.Action.Valid() {
		return fmt.Errorf("unsupported action %q", q.Action)
	}
	if q.Hints.Flat && q.Action == types.ActionValues && len(q.Hints.Projection) != 1 {
		return fmt.Errorf("flat projection requires exactly one path, got %d", len(q.Hints.Projection))
	}
	if q.Action == types.ActionValues && len(q.Hints.Projection) == 0 {
		return fmt.Errorf("values requires at least one path")
	}
	if q.Action == types.ActionAggregate && len(q.Hints.Aggregates) == 0 {
		return fmt.Errorf("%w: no aggregates requested", types.ErrInvalidAggregate)
	}
	for _, o := range q.Orderings {
		if !o.Random && o.Path.Len() == 0 {
			return fmt.Errorf("ordering: %w", types.ErrEmptyPath)
		}
	}
	return Validate(q.Filters)
}
