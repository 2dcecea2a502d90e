// Package store executes queries against a backend, with optional result
// caching and adapter materialization.
//
// A Store is the single entry point used by query sets. It validates the
// query, answers from the cache when possible, otherwise dispatches to the
// backend and caches the raw result. Shaping (distinct, window,
// cardinality), adaptation and projection happen after the cache, so the
// cache always holds raw backend output.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/solatis/lifter/internal/adapters"
	"github.com/solatis/lifter/internal/cache"
	"github.com/solatis/lifter/internal/logger"
	"github.com/solatis/lifter/internal/metrics"
	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/types"
)

// Backend evaluates filters and orderings against a medium. Backends
// ignore windows, distinct and projection; the Store applies those.
type Backend interface {
	Name() string
	Select(ctx context.Context, q query.Query, m *model.Model) ([]any, error)
	Count(ctx context.Context, q query.Query, m *model.Model) (int, error)
}

// Exister is implemented by backends that answer existence more cheaply
// than a count.
type Exister interface {
	Exists(ctx context.Context, q query.Query, m *model.Model) (bool, error)
}

// Store binds a backend to its cache, adapter and instrumentation.
type Store struct {
	backend    Backend
	identifier string
	cache      *cache.Cache
	adapter    adapters.Adapter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithIdentifier names the store in cache keys.
func WithIdentifier(id string) Option {
	return func(s *Store) { s.identifier = id }
}

// WithCache caches raw results. Requires WithIdentifier.
func WithCache(c *cache.Cache) Option {
	return func(s *Store) { s.cache = c }
}

// WithAdapter materializes raw results into records.
func WithAdapter(a adapters.Adapter) Option {
	return func(s *Store) { s.adapter = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New builds a store over backend.
func New(backend Backend, opts ...Option) (*Store, error) {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil && s.identifier == "" {
		return nil, types.ErrMissingIdentifier
	}
	s.logger = logger.OrDiscard(s.logger).With("store", backend.Name())
	return s, nil
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend { return s.backend }

// Cache returns the configured cache, or nil.
func (s *Store) Cache() *cache.Cache { return s.cache }

// Identifier returns the cache identifier.
func (s *Store) Identifier() string { return s.identifier }

// CacheKey returns "<identifier>:<app>:<name>:<hash>".
func (s *Store) CacheKey(q query.Query, m *model.Model) string {
	return strings.Join([]string{s.identifier, m.App(), m.Name(), q.Hash()}, ":")
}

// Result is the outcome of one execution. Which fields are set depends on
// Action.
type Result struct {
	Action     types.Action
	Records    []any // select, values
	Count      int
	Exists     bool
	Aggregates query.AggregateResult
}

// Execute runs q for model m.
func (s *Store) Execute(ctx context.Context, q query.Query, m *model.Model) (Result, error) {
	if m == nil {
		m = model.Generic
	}
	if err := q.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid query: %w", err)
	}

	raw, err := s.raw(ctx, q, m)
	if err != nil {
		return Result{}, err
	}
	return s.finish(q, m, raw)
}

func (s *Store) raw(ctx context.Context, q query.Query, m *model.Model) (any, error) {
	var key string
	cached := s.cache != nil && q.Cacheable()
	if s.cache != nil && !cached {
		s.logger.Debug("query bypasses cache", "reason", "unkeyed test predicate")
	}
	if cached {
		key = s.CacheKey(q, m)
		v, err := s.cache.Lookup(key)
		switch {
		case err == nil:
			s.metrics.CacheHit(s.backend.Name())
			s.logger.Debug("cache hit", "key", key, "action", q.Action)
			return v, nil
		case errors.Is(err, types.ErrNotInCache):
			s.metrics.CacheMiss(s.backend.Name())
			s.logger.Debug("cache miss", "key", key, "action", q.Action)
		case errors.Is(err, types.ErrDisabledCache):
		default:
			return nil, err
		}
	}

	raw, err := s.dispatch(ctx, q, m)
	if err != nil {
		return nil, err
	}
	s.metrics.Executed(s.backend.Name(), string(q.Action))
	s.logger.Debug("executed query", "action", q.Action, "filters", nodeString(q.Filters))

	if cached {
		if _, err := s.cache.Set(key, raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func (s *Store) dispatch(ctx context.Context, q query.Query, m *model.Model) (any, error) {
	switch q.Action {
	case types.ActionSelect, types.ActionValues, types.ActionAggregate:
		return s.backend.Select(ctx, q, m)
	case types.ActionCount:
		if q.Hints.Distinct || q.Window != nil {
			rows, err := s.backend.Select(ctx, q.WithoutOrderings(), m)
			if err != nil {
				return nil, err
			}
			return len(shape(q, rows)), nil
		}
		return s.backend.Count(ctx, q.WithoutOrderings(), m)
	case types.ActionExists:
		if ex, ok := s.backend.(Exister); ok && !q.Hints.Distinct && q.Window == nil {
			return ex.Exists(ctx, q.WithoutOrderings(), m)
		}
		n, err := s.dispatch(ctx, q.WithAction(types.ActionCount), m)
		if err != nil {
			return nil, err
		}
		return n.(int) > 0, nil
	default:
		return nil, fmt.Errorf("unsupported action %q", q.Action)
	}
}

func (s *Store) finish(q query.Query, m *model.Model, raw any) (Result, error) {
	res := Result{Action: q.Action}
	switch q.Action {
	case types.ActionCount:
		n, err := asCount(raw)
		if err != nil {
			return Result{}, err
		}
		res.Count = n
		return res, nil
	case types.ActionExists:
		b, ok := raw.(bool)
		if !ok {
			return Result{}, fmt.Errorf("exists result has type %T", raw)
		}
		res.Exists = b
		return res, nil
	}

	rows, err := asRows(raw)
	if err != nil {
		return Result{}, err
	}
	rows = shape(q, rows)

	if q.Hints.ForceSingle {
		switch {
		case len(rows) == 0:
			return Result{}, types.ErrDoesNotExist
		case len(rows) > 1:
			return Result{}, fmt.Errorf("%w: got %d", types.ErrMultipleObjectsReturned, len(rows))
		}
	}

	records, err := s.adapt(rows, m)
	if err != nil {
		return Result{}, err
	}

	switch q.Action {
	case types.ActionValues:
		res.Records, err = Project(records, q.Hints)
	case types.ActionAggregate:
		res.Aggregates, err = query.ComputeAggregates(records, q.Hints.Aggregates, q.Hints.Permissive)
	default:
		res.Records = records
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Store) adapt(rows []any, m *model.Model) ([]any, error) {
	if s.adapter == nil {
		return rows, nil
	}
	out := make([]any, len(rows))
	for i, row := range rows {
		r, err := s.adapter.Adapt(row, m)
		if err != nil {
			return nil, fmt.Errorf("adapt %s: %w", m.Name(), err)
		}
		out[i] = r
	}
	return out, nil
}

// shape applies distinct then the window.
func shape(q query.Query, rows []any) []any {
	if q.Hints.Distinct {
		rows = Distinct(rows)
	}
	if q.Window != nil {
		rows = q.Window.Apply(rows)
	}
	return rows
}

func asRows(raw any) ([]any, error) {
	switch rows := raw.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return rows, nil
	case []map[string]any:
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	default:
		return nil, fmt.Errorf("select result has type %T", raw)
	}
}

// asCount accepts the numeric forms a count takes after a cache round
// trip.
func asCount(raw any) (int, error) {
	switch n := raw.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("count result has type %T", raw)
	}
}

func nodeString(n query.Node) string {
	if n == nil {
		return ""
	}
	return n.String()
}
