// Package rest queries a remote HTTP API by translating filters into URL
// query parameters.
package rest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/solatis/lifter/internal/logger"
	"github.com/solatis/lifter/internal/metrics"
	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/parsers"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/types"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 4096

// Backend issues GET <base>/[<app>/]<resource>?<params> per query.
type Backend struct {
	client     *http.Client
	baseURL    string
	pluralize  bool
	builder    Builder
	parser     parsers.Parser
	resultsKey string
	userAgent  string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Backend.
type Option func(*Backend)

func WithClient(c *http.Client) Option {
	return func(b *Backend) { b.client = c }
}

// WithBuilder replaces the default eq/AND builder.
func WithBuilder(builder Builder) Option {
	return func(b *Backend) { b.builder = builder }
}

// WithParser forces a parser instead of choosing by Content-Type.
func WithParser(p parsers.Parser) Option {
	return func(b *Backend) { b.parser = p }
}

// WithResultsKey unwraps JSON envelopes such as {"results": [...]}.
func WithResultsKey(key string) Option {
	return func(b *Backend) { b.resultsKey = key }
}

// Singular uses the model name instead of its plural in URLs.
func Singular() Option {
	return func(b *Backend) { b.pluralize = false }
}

func WithUserAgent(ua string) Option {
	return func(b *Backend) { b.userAgent = ua }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Backend) { b.metrics = m }
}

// New creates a backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Backend {
	b := &Backend{
		client:    http.DefaultClient,
		baseURL:   baseURL,
		pluralize: true,
		builder:   NewSimpleBuilder(),
		userAgent: "Lifter/" + types.Version,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logger.OrDiscard(b.logger)
	return b
}

func (b *Backend) Name() string { return "rest" }

// ResourceURL returns the collection URL for m.
func (b *Backend) ResourceURL(m *model.Model) string {
	part := m.Name()
	if b.pluralize {
		part = m.Plural()
	}
	if m.App() != "" {
		part = m.App() + "/" + part
	}
	if strings.HasSuffix(b.baseURL, "/") {
		return b.baseURL + part
	}
	return b.baseURL + "/" + part
}

// Request builds the GET request for q without sending it.
func (b *Backend) Request(ctx context.Context, q query.Query, m *model.Model) (*http.Request, error) {
	params, err := b.builder.Build(q.Filters, q.Orderings)
	if err != nil {
		return nil, err
	}
	u := b.ResourceURL(m)
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("X-Request-Id", types.NewRequestID())
	return req, nil
}

func (b *Backend) Select(ctx context.Context, q query.Query, m *model.Model) ([]any, error) {
	req, err := b.Request(ctx, q, m)
	if err != nil {
		return nil, err
	}
	requestID := req.Header.Get("X-Request-Id")

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		b.metrics.ObserveRemote(0, time.Since(start))
		b.logger.Warn("remote request failed", "request_id", requestID, "url", req.URL.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", types.ErrStoreError, err)
	}
	defer resp.Body.Close()
	b.metrics.ObserveRemote(resp.StatusCode, time.Since(start))
	b.logger.Debug("remote request", "request_id", requestID, "url", req.URL.String(), "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &types.StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", types.ErrStoreError, err)
	}
	parser := b.parser
	if parser == nil {
		parser = parsers.ForContentType(resp.Header.Get("Content-Type"), b.resultsKey)
	}
	items, err := parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStoreError, err)
	}
	return items, nil
}

// Count has no remote equivalent; it selects and measures.
func (b *Backend) Count(ctx context.Context, q query.Query, m *model.Model) (int, error) {
	items, err := b.Select(ctx, q.WithoutOrderings(), m)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
