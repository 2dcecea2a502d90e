// Package document queries a whole payload loaded from a file, an HTTP URL
// or an object store. The payload is fetched once, parsed into raw items,
// adapted per model and evaluated in memory.
package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/solatis/lifter/internal/adapters"
	"github.com/solatis/lifter/internal/logger"
	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/parsers"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/store/memory"
	"github.com/solatis/lifter/internal/types"
)

// Backend serves queries over one document.
type Backend struct {
	source     Source
	parser     parsers.Parser
	resultsKey string
	adapter    adapters.Adapter
	logger     *slog.Logger

	mu     sync.Mutex
	raw    []any
	loaded bool
	models map[string]*memory.Backend
}

// Option configures a Backend.
type Option func(*Backend)

// WithParser forces a parser instead of choosing by content type.
func WithParser(p parsers.Parser) Option {
	return func(b *Backend) { b.parser = p }
}

// WithResultsKey unwraps JSON envelopes of the form {"<key>": [...]}.
func WithResultsKey(key string) Option {
	return func(b *Backend) { b.resultsKey = key }
}

// WithAdapter converts raw items before evaluation. Without one, mappings
// go through adapters.Default() and XML elements through adapters.NewXML().
func WithAdapter(a adapters.Adapter) Option {
	return func(b *Backend) { b.adapter = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// New builds a backend over source. Nothing is fetched until the first query.
func New(source Source, opts ...Option) *Backend {
	b := &Backend{
		source: source,
		models: make(map[string]*memory.Backend),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logger.OrDiscard(b.logger)
	return b
}

func (b *Backend) Name() string { return "document" }

// Source returns where the payload is read from.
func (b *Backend) Source() Source { return b.source }

// Reload drops the loaded payload; the next query fetches it again.
func (b *Backend) Reload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raw = nil
	b.loaded = false
	b.models = make(map[string]*memory.Backend)
}

func (b *Backend) Select(ctx context.Context, q query.Query, m *model.Model) ([]any, error) {
	mem, err := b.records(ctx, m)
	if err != nil {
		return nil, err
	}
	return mem.Select(ctx, q, m)
}

func (b *Backend) Count(ctx context.Context, q query.Query, m *model.Model) (int, error) {
	mem, err := b.records(ctx, m)
	if err != nil {
		return 0, err
	}
	return mem.Count(ctx, q, m)
}

func (b *Backend) Exists(ctx context.Context, q query.Query, m *model.Model) (bool, error) {
	mem, err := b.records(ctx, m)
	if err != nil {
		return false, err
	}
	return mem.Exists(ctx, q, m)
}

// records returns the adapted items for m, loading the payload on first use.
func (b *Backend) records(ctx context.Context, m *model.Model) (*memory.Backend, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if mem, ok := b.models[m.Name()]; ok {
		return mem, nil
	}
	if !b.loaded {
		raw, err := b.load(ctx)
		if err != nil {
			return nil, err
		}
		b.raw = raw
		b.loaded = true
	}

	adapted := make([]any, len(b.raw))
	for i, item := range b.raw {
		r, err := b.adapterFor(item).Adapt(item, m)
		if err != nil {
			return nil, fmt.Errorf("%s item %d: %w", b.source, i, err)
		}
		adapted[i] = r
	}
	mem := memory.New(adapted)
	b.models[m.Name()] = mem
	return mem, nil
}

func (b *Backend) adapterFor(item any) adapters.Adapter {
	if b.adapter != nil {
		return b.adapter
	}
	if _, ok := item.(*parsers.Element); ok {
		return adapters.NewXML()
	}
	return adapters.Default()
}

func (b *Backend) load(ctx context.Context) ([]any, error) {
	rc, contentType, err := b.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", types.ErrStoreError, b.source, err)
	}
	parser := b.parser
	if parser == nil {
		parser = parsers.ForContentType(contentType, b.resultsKey)
	}
	items, err := parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", types.ErrStoreError, b.source, err)
	}
	b.logger.Debug("loaded document", "source", b.source.String(), "content_type", contentType, "items", len(items))
	return items, nil
}
