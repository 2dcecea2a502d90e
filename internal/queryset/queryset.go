// Package queryset provides the lazy, memoizing handle callers build
// queries with.
//
// Building calls (Filter, Exclude, OrderBy, Slice, Distinct, Permissive)
// return a new unpopulated QuerySet and never touch the store. The first
// observation (Fetch, Len, Each, Index, First, Last, Equal, Exists) runs
// the select once and memoizes the rows. Count, Get, Values, ValuesList
// and Aggregate issue their own queries. A QuerySet is not safe for
// concurrent population.
package queryset

import (
	"context"
	"fmt"

	"github.com/solatis/lifter/internal/lookups"
	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/store"
	"github.com/solatis/lifter/internal/store/memory"
	"github.com/solatis/lifter/internal/types"
)

// Manager binds a store to a model and hands out query sets.
type Manager struct {
	store *store.Store
	model *model.Model
}

// NewManager returns a manager for m over s. A nil m uses model.Generic.
func NewManager(s *store.Store, m *model.Model) *Manager {
	if m == nil {
		m = model.Generic
	}
	return &Manager{store: s, model: m}
}

func (mg *Manager) Store() *store.Store { return mg.store }
func (mg *Manager) Model() *model.Model { return mg.model }

// All returns an unfiltered query set.
func (mg *Manager) All() *QuerySet {
	return &QuerySet{manager: mg, query: query.New(types.ActionSelect)}
}

// Filter is All().Filter(nodes...).
func (mg *Manager) Filter(nodes ...query.Node) *QuerySet { return mg.All().Filter(nodes...) }

// Exclude is All().Exclude(nodes...).
func (mg *Manager) Exclude(nodes ...query.Node) *QuerySet { return mg.All().Exclude(nodes...) }

// Get is All().Get(ctx, nodes...).
func (mg *Manager) Get(ctx context.Context, nodes ...query.Node) (any, error) {
	return mg.All().Get(ctx, nodes...)
}

// Count is All().Count(ctx).
func (mg *Manager) Count(ctx context.Context) (int, error) { return mg.All().Count(ctx) }

func (mg *Manager) execute(ctx context.Context, q query.Query) (store.Result, error) {
	return mg.store.Execute(ctx, q, mg.model)
}

// QuerySet is a pending select plus its memoized rows.
type QuerySet struct {
	manager   *Manager
	query     query.Query
	data      []any
	populated bool
}

// Query returns the query the set would run.
func (qs *QuerySet) Query() query.Query { return qs.query.Clone() }

// Populated reports whether rows have been fetched.
func (qs *QuerySet) Populated() bool { return qs.populated }

func (qs *QuerySet) clone(q query.Query) *QuerySet {
	return &QuerySet{manager: qs.manager, query: q.WithAction(types.ActionSelect)}
}

// All returns an unpopulated copy.
func (qs *QuerySet) All() *QuerySet { return qs.clone(qs.query) }

// Filter AND-combines nodes with the existing filter.
func (qs *QuerySet) Filter(nodes ...query.Node) *QuerySet {
	node := query.And(nodes...)
	if node == nil {
		return qs.All()
	}
	return qs.clone(qs.query.WithFilter(node))
}

// Exclude AND-combines the negated conjunction of nodes.
func (qs *QuerySet) Exclude(nodes ...query.Node) *QuerySet {
	node := query.And(nodes...)
	if node == nil {
		return qs.All()
	}
	return qs.clone(qs.query.WithFilter(query.Not(node)))
}

// FilterKeywords filters by keyword arguments such as "age__gte".
func (qs *QuerySet) FilterKeywords(kw map[string]any) (*QuerySet, error) {
	node, err := query.Keywords(kw)
	if err != nil {
		return nil, err
	}
	return qs.Filter(node), nil
}

// ExcludeKeywords excludes by keyword arguments.
func (qs *QuerySet) ExcludeKeywords(kw map[string]any) (*QuerySet, error) {
	node, err := query.Keywords(kw)
	if err != nil {
		return nil, err
	}
	return qs.Exclude(node), nil
}

// OrderBy replaces the orderings. Keys apply in sequence, ties broken by
// later keys.
func (qs *QuerySet) OrderBy(orderings ...query.Ordering) *QuerySet {
	return qs.clone(qs.query.WithOrderings(orderings...))
}

// OrderByNames parses "name", "-name" and "?" orderings.
func (qs *QuerySet) OrderByNames(names ...string) (*QuerySet, error) {
	orderings := make([]query.Ordering, 0, len(names))
	for _, name := range names {
		o, err := query.ParseOrdering(name)
		if err != nil {
			return nil, err
		}
		orderings = append(orderings, o)
	}
	return qs.OrderBy(orderings...), nil
}

// Slice restricts results to [start, stop). Slicing a sliced set is
// relative to the existing window.
func (qs *QuerySet) Slice(start, stop int) (*QuerySet, error) {
	w, err := query.NewWindow(start, stop)
	if err != nil {
		return nil, err
	}
	if prev := qs.query.Window; prev != nil {
		w.Start = min(prev.Start+w.Start, prev.Stop)
		w.Stop = min(prev.Start+w.Stop, prev.Stop)
	}
	return qs.clone(qs.query.WithWindow(w)), nil
}

// Distinct drops repeated rows, keeping first-seen order.
func (qs *QuerySet) Distinct() *QuerySet {
	return qs.clone(qs.query.WithHints(func(h *query.Hints) { h.Distinct = true }))
}

// Permissive makes missing fields fail matches instead of raising.
func (qs *QuerySet) Permissive() *QuerySet {
	return qs.clone(qs.query.WithHints(func(h *query.Hints) { h.Permissive = true }))
}

// Fetch runs the select on first use and returns the memoized rows.
func (qs *QuerySet) Fetch(ctx context.Context) ([]any, error) {
	if qs.populated {
		return qs.data, nil
	}
	res, err := qs.manager.execute(ctx, qs.query)
	if err != nil {
		return nil, err
	}
	qs.data = res.Records
	if qs.data == nil {
		qs.data = []any{}
	}
	qs.populated = true
	return qs.data, nil
}

func (qs *QuerySet) Len(ctx context.Context) (int, error) {
	data, err := qs.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// Each calls fn for every row in order, stopping at the first error.
func (qs *QuerySet) Each(ctx context.Context, fn func(i int, record any) error) error {
	data, err := qs.Fetch(ctx)
	if err != nil {
		return err
	}
	for i, r := range data {
		if err := fn(i, r); err != nil {
			return err
		}
	}
	return nil
}

// Index returns row i; negative indexes count from the end.
func (qs *QuerySet) Index(ctx context.Context, i int) (any, error) {
	data, err := qs.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		i += len(data)
	}
	if i < 0 || i >= len(data) {
		return nil, fmt.Errorf("%w: index %d out of range for %d rows", types.ErrDoesNotExist, i, len(data))
	}
	return data[i], nil
}

// First returns the first row, or nil when there are none.
func (qs *QuerySet) First(ctx context.Context) (any, error) {
	data, err := qs.Fetch(ctx)
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return data[0], nil
}

// Last returns the last row, or nil when there are none.
func (qs *QuerySet) Last(ctx context.Context) (any, error) {
	data, err := qs.Fetch(ctx)
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return data[len(data)-1], nil
}

// Equal compares the rows with other element by element.
func (qs *QuerySet) Equal(ctx context.Context, other []any) (bool, error) {
	data, err := qs.Fetch(ctx)
	if err != nil {
		return false, err
	}
	if len(data) != len(other) {
		return false, nil
	}
	for i := range data {
		if !lookups.Equal(data[i], other[i]) {
			return false, nil
		}
	}
	return true, nil
}

// Exists answers from the memoized rows unless fromBackend forces an
// exists query.
func (qs *QuerySet) Exists(ctx context.Context, fromBackend bool) (bool, error) {
	if fromBackend {
		res, err := qs.manager.execute(ctx, qs.query.WithAction(types.ActionExists))
		if err != nil {
			return false, err
		}
		return res.Exists, nil
	}
	n, err := qs.Len(ctx)
	return n > 0, err
}

// Get filters by nodes and returns the single match.
func (qs *QuerySet) Get(ctx context.Context, nodes ...query.Node) (any, error) {
	q := qs.Filter(nodes...).query.WithHints(func(h *query.Hints) { h.ForceSingle = true })
	res, err := qs.manager.execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return res.Records[0], nil
}

// Count runs a count query.
func (qs *QuerySet) Count(ctx context.Context) (int, error) {
	res, err := qs.manager.execute(ctx, qs.query.WithAction(types.ActionCount))
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Values projects rows to maps keyed by dotted path. The result is a local
// query set so it can be filtered or made distinct further.
func (qs *QuerySet) Values(ctx context.Context, paths ...query.Path) (*QuerySet, error) {
	return qs.project(ctx, paths, query.ProjectMapping, false)
}

// ValuesList projects rows to []any in path order, or to bare values when
// flat is set (which requires exactly one path).
func (qs *QuerySet) ValuesList(ctx context.Context, flat bool, paths ...query.Path) (*QuerySet, error) {
	return qs.project(ctx, paths, query.ProjectTuple, flat)
}

func (qs *QuerySet) project(ctx context.Context, paths []query.Path, mode query.ProjectionMode, flat bool) (*QuerySet, error) {
	q := qs.query.WithAction(types.ActionValues).WithHints(func(h *query.Hints) {
		h.Projection = paths
		h.Mode = mode
		h.Flat = flat
	})
	res, err := qs.manager.execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return local(res.Records, model.Generic)
}

// Aggregate reduces the rows, keyed by aggregate identifier. Later
// aggregates win on key collisions.
func (qs *QuerySet) Aggregate(ctx context.Context, aggs ...query.Aggregate) (map[string]any, error) {
	res, err := qs.aggregate(ctx, aggs)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

// AggregateFlat returns the aggregate values in request order.
func (qs *QuerySet) AggregateFlat(ctx context.Context, aggs ...query.Aggregate) ([]any, error) {
	res, err := qs.aggregate(ctx, aggs)
	if err != nil {
		return nil, err
	}
	return res.Flat, nil
}

func (qs *QuerySet) aggregate(ctx context.Context, aggs []query.Aggregate) (query.AggregateResult, error) {
	q := qs.query.WithAction(types.ActionAggregate).WithHints(func(h *query.Hints) { h.Aggregates = aggs })
	res, err := qs.manager.execute(ctx, q)
	if err != nil {
		return query.AggregateResult{}, err
	}
	return res.Aggregates, nil
}

// Locally fetches the rows and returns a query set over an in-memory copy,
// so further queries do not reach the original store.
func (qs *QuerySet) Locally(ctx context.Context) (*QuerySet, error) {
	data, err := qs.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return local(append([]any(nil), data...), qs.manager.model)
}

func local(records []any, m *model.Model) (*QuerySet, error) {
	s, err := store.New(memory.New(records))
	if err != nil {
		return nil, err
	}
	return NewManager(s, m).All(), nil
}
