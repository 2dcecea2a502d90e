// Package memory evaluates queries in-process over a slice of records.
package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/solatis/lifter/internal/lookups"
	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/resolve"
)

// Backend holds the records it queries. Natural order is preserved for
// unordered selects.
type Backend struct {
	records []any
	rand    *rand.Rand
}

// Option configures a Backend.
type Option func(*Backend)

// WithRand sets the source used by random orderings.
func WithRand(r *rand.Rand) Option {
	return func(b *Backend) { b.rand = r }
}

// New wraps records. The slice is not copied; callers must not mutate it.
func New(records []any, opts ...Option) *Backend {
	b := &Backend{records: records}
	for _, opt := range opts {
		opt(b)
	}
	if b.rand == nil {
		b.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return b
}

// Of converts a typed slice to a backend.
func Of[T any](records []T, opts ...Option) *Backend {
	items := make([]any, len(records))
	for i, r := range records {
		items[i] = r
	}
	return New(items, opts...)
}

func (b *Backend) Name() string { return "memory" }

// Records returns the backing records.
func (b *Backend) Records() []any { return b.records }

func (b *Backend) Select(ctx context.Context, q query.Query, _ *model.Model) ([]any, error) {
	matched, err := b.filter(ctx, q, -1)
	if err != nil {
		return nil, err
	}
	if len(q.Orderings) > 0 {
		if err := b.order(matched, q.Orderings); err != nil {
			return nil, err
		}
	}
	return matched, nil
}

func (b *Backend) Count(ctx context.Context, q query.Query, _ *model.Model) (int, error) {
	matched, err := b.filter(ctx, q, -1)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// Exists stops at the first match.
func (b *Backend) Exists(ctx context.Context, q query.Query, _ *model.Model) (bool, error) {
	matched, err := b.filter(ctx, q, 1)
	if err != nil {
		return false, err
	}
	return len(matched) > 0, nil
}

// filter returns matching records in natural order, stopping after limit
// matches when limit is positive.
func (b *Backend) filter(ctx context.Context, q query.Query, limit int) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]any, 0, len(b.records))
	for _, r := range b.records {
		ok, err := query.Match(q.Filters, r, q.Hints.Permissive)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// order sorts records in place. Orderings apply last to first with a
// stable sort, so earlier orderings take precedence and ties keep their
// prior order.
func (b *Backend) order(records []any, orderings []query.Ordering) error {
	for i := len(orderings) - 1; i >= 0; i-- {
		o := orderings[i]
		if o.Random {
			b.rand.Shuffle(len(records), func(x, y int) {
				records[x], records[y] = records[y], records[x]
			})
			continue
		}

		keys := make([]any, len(records))
		for j, r := range records {
			k, err := resolve.Path(r, o.Path.Segments())
			if err != nil {
				return fmt.Errorf("order by %s: %w", o.Path, err)
			}
			keys[j] = k
		}

		var cmpErr error
		idx := make([]int, len(records))
		for j := range idx {
			idx[j] = j
		}
		sort.SliceStable(idx, func(x, y int) bool {
			c, err := compareKeys(keys[idx[x]], keys[idx[y]])
			if err != nil && cmpErr == nil {
				cmpErr = fmt.Errorf("order by %s: %w", o.Path, err)
			}
			if o.Reverse {
				return c > 0
			}
			return c < 0
		})
		if cmpErr != nil {
			return cmpErr
		}

		sorted := make([]any, len(records))
		for j, k := range idx {
			sorted[j] = records[k]
		}
		copy(records, sorted)
	}
	return nil
}

// compareKeys orders nil before every other value.
func compareKeys(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}
	c, ok := lookups.Compare(a, b)
	if !ok {
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}
	return c, nil
}
