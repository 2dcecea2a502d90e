package store

import (
	"context"
	"errors"
	"testing"

	"github.com/solatis/lifter/internal/adapters"
	"github.com/solatis/lifter/internal/cache"
	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/store/memory"
	"github.com/solatis/lifter/internal/types"
)

var testModel = model.MustNew("testmodel", model.WithApp("tests"))

func fixture() []any {
	return []any{
		map[string]any{"name": "test_1", "order": 2, "a": 1},
		map[string]any{"name": "test_2", "order": 3, "a": 1},
		map[string]any{"name": "test_3", "order": 1, "a": 2},
		map[string]any{"name": "test_4", "order": 4, "a": 2},
	}
}

// countingBackend records calls and can be told to fail.
type countingBackend struct {
	inner *memory.Backend
	calls int
	fail  bool
}

var errBackendDown = errors.New("backend down")

func (b *countingBackend) Name() string { return "counting" }

func (b *countingBackend) Select(ctx context.Context, q query.Query, m *model.Model) ([]any, error) {
	b.calls++
	if b.fail {
		return nil, errBackendDown
	}
	return b.inner.Select(ctx, q, m)
}

func (b *countingBackend) Count(ctx context.Context, q query.Query, m *model.Model) (int, error) {
	b.calls++
	if b.fail {
		return 0, errBackendDown
	}
	return b.inner.Count(ctx, q, m)
}

func newCounting() *countingBackend {
	return &countingBackend{inner: memory.New(fixture())}
}

func TestNew_RequiresIdentifierWithCache(t *testing.T) {
	_, err := New(newCounting(), WithCache(cache.New()))
	if !errors.Is(err, types.ErrMissingIdentifier) {
		t.Errorf("New() error = %v, want ErrMissingIdentifier", err)
	}
	if _, err := New(newCounting(), WithCache(cache.New()), WithIdentifier("test")); err != nil {
		t.Errorf("New() with identifier error = %v, want nil", err)
	}
}

func TestStore_CacheKey(t *testing.T) {
	s, _ := New(newCounting(), WithIdentifier("test"))
	q := query.New(types.ActionCount)
	want := "test:tests:testmodel:" + q.Hash()
	if got := s.CacheKey(q, testModel); got != want {
		t.Errorf("CacheKey() = %q, want %q", got, want)
	}
}

func TestStore_CachedCountSurvivesBackendFailure(t *testing.T) {
	ctx := context.Background()
	c := cache.New()
	backend := newCounting()
	s, err := New(backend, WithCache(c), WithIdentifier("test"))
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}

	q := query.New(types.ActionCount).WithFilter(query.F("a").Eq(1))
	res, err := s.Execute(ctx, q, testModel)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if res.Count != 2 {
		t.Errorf("Count = %d, want 2", res.Count)
	}
	if cached, err := c.Lookup(s.CacheKey(q, testModel)); err != nil || cached != 2 {
		t.Errorf("cache entry = %v, %v, want 2", cached, err)
	}

	backend.fail = true
	res, err = s.Execute(ctx, q, testModel)
	if err != nil {
		t.Fatalf("Execute() from cache error = %v, want nil", err)
	}
	if res.Count != 2 {
		t.Errorf("cached Count = %d, want 2", res.Count)
	}
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
}

func TestStore_TestPredicatesAndCache(t *testing.T) {
	ctx := context.Background()
	gt2 := func(v any) bool {
		n, _ := v.(int)
		return n > 2
	}
	lt2 := func(v any) bool {
		n, _ := v.(int)
		return n < 2
	}

	t.Run("keyed predicates get their own entries", func(t *testing.T) {
		backend := newCounting()
		s, err := New(backend, WithCache(cache.New()), WithIdentifier("test"))
		if err != nil {
			t.Fatalf("New() error = %v, want nil", err)
		}
		for _, tt := range []struct {
			key  string
			pred func(any) bool
			want int
		}{
			{"order>2", gt2, 2},
			{"order<2", lt2, 1},
			{"order>2", gt2, 2},
		} {
			q := query.New(types.ActionCount).WithFilter(query.F("order").KeyedTest(tt.key, tt.pred))
			res, err := s.Execute(ctx, q, testModel)
			if err != nil {
				t.Fatalf("Execute(%s) error = %v, want nil", tt.key, err)
			}
			if res.Count != tt.want {
				t.Errorf("Execute(%s) Count = %d, want %d", tt.key, res.Count, tt.want)
			}
		}
		if backend.calls != 2 {
			t.Errorf("backend calls = %d, want 2", backend.calls)
		}
	})

	t.Run("unkeyed predicates bypass the cache", func(t *testing.T) {
		backend := newCounting()
		c := cache.New()
		s, err := New(backend, WithCache(c), WithIdentifier("test"))
		if err != nil {
			t.Fatalf("New() error = %v, want nil", err)
		}
		for _, tt := range []struct {
			pred func(any) bool
			want int
		}{{gt2, 2}, {lt2, 1}} {
			q := query.New(types.ActionCount).WithFilter(query.F("order").Test(tt.pred))
			res, err := s.Execute(ctx, q, testModel)
			if err != nil {
				t.Fatalf("Execute() error = %v, want nil", err)
			}
			if res.Count != tt.want {
				t.Errorf("Count = %d, want %d", res.Count, tt.want)
			}
			if _, err := c.Lookup(s.CacheKey(q, testModel)); !errors.Is(err, types.ErrNotInCache) {
				t.Errorf("cache Lookup() error = %v, want ErrNotInCache", err)
			}
		}
		if backend.calls != 2 {
			t.Errorf("backend calls = %d, want 2", backend.calls)
		}
	})
}

func TestStore_DisabledCacheHitsBackend(t *testing.T) {
	ctx := context.Background()
	c := cache.New()
	backend := newCounting()
	s, _ := New(backend, WithCache(c), WithIdentifier("test"))
	q := query.New(types.ActionSelect)

	func() {
		defer c.Disable().Restore()
		for i := 0; i < 3; i++ {
			if _, err := s.Execute(ctx, q, testModel); err != nil {
				t.Fatalf("Execute() error = %v, want nil", err)
			}
		}
	}()
	if backend.calls != 3 {
		t.Errorf("backend calls = %d, want 3", backend.calls)
	}
	if _, err := c.Lookup(s.CacheKey(q, testModel)); !errors.Is(err, types.ErrNotInCache) {
		t.Errorf("Lookup() after disabled scope error = %v, want ErrNotInCache", err)
	}

	s.Execute(ctx, q, testModel)
	s.Execute(ctx, q, testModel)
	if backend.calls != 4 {
		t.Errorf("backend calls after re-enable = %d, want 4", backend.calls)
	}
}

func TestStore_CountFromJSONCache(t *testing.T) {
	c := cache.New()
	s, _ := New(newCounting(), WithCache(c), WithIdentifier("test"))
	q := query.New(types.ActionCount)
	c.Set(s.CacheKey(q, testModel), float64(7))

	res, err := s.Execute(context.Background(), q, testModel)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if res.Count != 7 {
		t.Errorf("Count = %d, want 7", res.Count)
	}
}

func TestStore_ForceSingle(t *testing.T) {
	ctx := context.Background()
	s, _ := New(memory.New(fixture()))
	single := func(n query.Node) query.Query {
		return query.New(types.ActionSelect).
			WithFilter(n).
			WithHints(func(h *query.Hints) { h.ForceSingle = true })
	}

	res, err := s.Execute(ctx, single(query.F("name").Eq("test_3")), testModel)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if len(res.Records) != 1 || res.Records[0].(map[string]any)["order"] != 1 {
		t.Errorf("Records = %v, want test_3", res.Records)
	}

	if _, err := s.Execute(ctx, single(query.F("a").Eq(1)), testModel); !errors.Is(err, types.ErrMultipleObjectsReturned) {
		t.Errorf("Execute() error = %v, want ErrMultipleObjectsReturned", err)
	}
	if _, err := s.Execute(ctx, single(query.F("a").Eq(9)), testModel); !errors.Is(err, types.ErrDoesNotExist) {
		t.Errorf("Execute() error = %v, want ErrDoesNotExist", err)
	}
}

func TestStore_DistinctAndWindow(t *testing.T) {
	ctx := context.Background()
	rows := []any{
		map[string]any{"v": 1}, map[string]any{"v": 2}, map[string]any{"v": 1}, map[string]any{"v": 3},
	}
	s, _ := New(memory.New(rows))
	w, _ := query.NewWindow(1, 3)

	q := query.New(types.ActionSelect).WithHints(func(h *query.Hints) { h.Distinct = true })
	res, err := s.Execute(ctx, q, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if len(res.Records) != 3 {
		t.Errorf("distinct Records = %v, want 3 rows", res.Records)
	}

	res, err = s.Execute(ctx, q.WithAction(types.ActionCount).WithWindow(w), nil)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if res.Count != 2 {
		t.Errorf("windowed distinct Count = %d, want 2", res.Count)
	}

	res, err = s.Execute(ctx, query.New(types.ActionExists).WithWindow(w), nil)
	if err != nil || !res.Exists {
		t.Errorf("Exists = %v, %v, want true", res.Exists, err)
	}
}

func TestStore_Values(t *testing.T) {
	ctx := context.Background()
	s, _ := New(memory.New(fixture()))
	paths := []query.Path{query.F("name"), query.F("a")}

	tests := []struct {
		name  string
		hints func(*query.Hints)
		check func(t *testing.T, first any)
	}{
		{
			name:  "mapping",
			hints: func(h *query.Hints) { h.Projection = paths },
			check: func(t *testing.T, first any) {
				row := first.(map[string]any)
				if row["name"] != "test_1" || row["a"] != 1 {
					t.Errorf("row = %v", row)
				}
			},
		},
		{
			name: "tuple",
			hints: func(h *query.Hints) {
				h.Projection = paths
				h.Mode = query.ProjectTuple
			},
			check: func(t *testing.T, first any) {
				row := first.([]any)
				if len(row) != 2 || row[0] != "test_1" || row[1] != 1 {
					t.Errorf("row = %v", row)
				}
			},
		},
		{
			name: "flat",
			hints: func(h *query.Hints) {
				h.Projection = paths[:1]
				h.Mode = query.ProjectTuple
				h.Flat = true
			},
			check: func(t *testing.T, first any) {
				if first != "test_1" {
					t.Errorf("row = %v", first)
				}
			},
		},
		{
			name: "permissive missing is nil",
			hints: func(h *query.Hints) {
				h.Projection = []query.Path{query.F("nope")}
				h.Permissive = true
			},
			check: func(t *testing.T, first any) {
				row := first.(map[string]any)
				if v, ok := row["nope"]; !ok || v != nil {
					t.Errorf("row = %v, want nope=nil", row)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Execute(ctx, query.New(types.ActionValues).WithHints(tt.hints), testModel)
			if err != nil {
				t.Fatalf("Execute() error = %v, want nil", err)
			}
			if len(res.Records) != 4 {
				t.Fatalf("Records = %d rows, want 4", len(res.Records))
			}
			tt.check(t, res.Records[0])
		})
	}
}

func TestStore_Aggregate(t *testing.T) {
	s, _ := New(memory.New(fixture()))
	q := query.New(types.ActionAggregate).WithHints(func(h *query.Hints) {
		h.Aggregates = []query.Aggregate{query.Sum(query.F("a")), query.Avg(query.F("a"))}
	})
	res, err := s.Execute(context.Background(), q, testModel)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if res.Aggregates.Values["a__sum"] != int64(6) || res.Aggregates.Values["a__avg"] != 1.5 {
		t.Errorf("Aggregates = %v, want a__sum=6 a__avg=1.5", res.Aggregates.Values)
	}
}

func TestStore_Adapter(t *testing.T) {
	raw := []any{map[string]any{"firstName": "Ada", "age": "36"}}
	m := model.MustNew("person", model.WithField(model.Field{Name: "age", Type: model.FieldTypeInteger}))
	s, _ := New(memory.New(raw), WithAdapter(adapters.Default()))

	res, err := s.Execute(context.Background(), query.New(types.ActionSelect), m)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	r := res.Records[0].(model.Record)
	if r["first_name"] != "Ada" || r["age"] != int64(36) {
		t.Errorf("Records[0] = %v", r)
	}
}

func TestStore_InvalidQuery(t *testing.T) {
	s, _ := New(memory.New(fixture()))
	_, err := s.Execute(context.Background(), query.New(types.ActionValues), testModel)
	if err == nil {
		t.Error("Execute() of values without paths succeeded")
	}
}

func TestDistinct(t *testing.T) {
	got := Distinct([]any{1, int64(1), "a", 2, "a", []any{1}, []any{1}})
	if len(got) != 4 {
		t.Errorf("Distinct() = %v, want [1 a 2 [1]]", got)
	}

	type tagged struct {
		Name  string
		Attrs any
	}
	rows := []any{
		tagged{"a", map[string]any{"k": 1}},
		tagged{"a", map[string]any{"k": 1}},
		tagged{"a", []any{1}},
	}
	if got := Distinct(rows); len(got) != 2 {
		t.Errorf("Distinct(structs holding maps) = %v, want 2 rows", got)
	}
}
