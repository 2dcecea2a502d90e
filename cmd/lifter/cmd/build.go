package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/solatis/lifter/internal/adapters"
	"github.com/solatis/lifter/internal/cache"
	"github.com/solatis/lifter/internal/cache/sqlcache"
	"github.com/solatis/lifter/internal/core/config"
	"github.com/solatis/lifter/internal/core/db"
	"github.com/solatis/lifter/internal/logger"
	"github.com/solatis/lifter/internal/metrics"
	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/store"
	"github.com/solatis/lifter/internal/store/document"
	"github.com/solatis/lifter/internal/store/rest"
	"github.com/solatis/lifter/internal/store/sqlstore"
)

// Source prefixes understood by the query command. Anything else is a
// document location (path, file://, http(s)://, s3://).
const (
	restPrefix = "rest:"
	sqlPrefix  = "sql:"
)

// sourceOptions carries the flags that shape backend construction.
type sourceOptions struct {
	modelName  string
	resultsKey string
	regex      string
	schemaFile string
}

// runtime holds what a command opened, so it can be closed in one place.
type runtime struct {
	store   *store.Store
	model   *model.Model
	cache   *cache.Cache
	metrics *prometheus.Registry
	log     *slog.Logger
	closers []func() error
}

// Close releases resources in reverse order of acquisition. Failures are
// logged, not returned: output has already been written.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Warn("failed to release resource", "error", err)
		}
	}
}

// openRuntime assembles backend, cache and store for source.
func openRuntime(source string, cfg *config.Config, opts sourceOptions, log *slog.Logger) (*runtime, error) {
	rt := &runtime{metrics: prometheus.NewRegistry(), log: logger.OrDiscard(log)}
	met, err := metrics.New(rt.metrics)
	if err != nil {
		return nil, err
	}

	backend, m, err := openBackend(rt, source, cfg, opts, log, met)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.model = m

	c, err := openCache(rt, cfg.Cache)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.cache = c

	storeOpts := []store.Option{store.WithLogger(log), store.WithMetrics(met)}
	if c != nil {
		id := fmt.Sprintf("%s-%016x", backend.Name(), xxhash.Sum64String(source))
		storeOpts = append(storeOpts, store.WithIdentifier(id), store.WithCache(c))
	}
	if _, isDocument := backend.(*document.Backend); !isDocument {
		a, err := buildAdapter(opts)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if a != nil {
			storeOpts = append(storeOpts, store.WithAdapter(a))
		}
	}
	rt.store, err = store.New(backend, storeOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func openBackend(rt *runtime, source string, cfg *config.Config, opts sourceOptions, log *slog.Logger, met *metrics.Metrics) (store.Backend, *model.Model, error) {
	switch {
	case strings.HasPrefix(source, restPrefix):
		if cfg.Remote.BaseURL == "" {
			return nil, nil, fmt.Errorf("remote.base_url is required for %s sources", restPrefix)
		}
		m, err := restModel(strings.TrimPrefix(source, restPrefix))
		if err != nil {
			return nil, nil, err
		}
		restOpts := []rest.Option{
			rest.WithClient(&http.Client{Timeout: cfg.Remote.Timeout}),
			rest.WithLogger(log),
			rest.WithMetrics(met),
		}
		if key := firstNonEmpty(opts.resultsKey, cfg.Remote.ResultsKey); key != "" {
			restOpts = append(restOpts, rest.WithResultsKey(key))
		}
		if !cfg.Remote.Pluralize {
			restOpts = append(restOpts, rest.Singular())
		}
		if cfg.Remote.UserAgent != "" {
			restOpts = append(restOpts, rest.WithUserAgent(cfg.Remote.UserAgent))
		}
		return rest.New(cfg.Remote.BaseURL, restOpts...), m, nil

	case strings.HasPrefix(source, sqlPrefix):
		table := strings.TrimPrefix(source, sqlPrefix)
		if dbURL == "" {
			return nil, nil, fmt.Errorf("--db-url required for %s sources", sqlPrefix)
		}
		conn, err := db.Open(dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		rt.closers = append(rt.closers, conn.Close)
		m, err := model.New(table, model.WithPlural(table))
		if err != nil {
			return nil, nil, err
		}
		return sqlstore.New(conn), m, nil

	default:
		src, err := document.ParseSource(source, document.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
		})
		if err != nil {
			return nil, nil, err
		}
		if h, ok := src.(document.HTTPSource); ok {
			h.Client = &http.Client{Timeout: cfg.Remote.Timeout}
			h.UserAgent = cfg.Remote.UserAgent
			src = h
		}
		docOpts := []document.Option{document.WithLogger(log)}
		if opts.resultsKey != "" {
			docOpts = append(docOpts, document.WithResultsKey(opts.resultsKey))
		}
		a, err := buildAdapter(opts)
		if err != nil {
			return nil, nil, err
		}
		if a != nil {
			docOpts = append(docOpts, document.WithAdapter(a))
		}
		m, err := model.New(firstNonEmpty(opts.modelName, "record"))
		if err != nil {
			return nil, nil, err
		}
		return document.New(src, docOpts...), m, nil
	}
}

// restModel parses "[app/]name".
func restModel(ref string) (*model.Model, error) {
	app, name, found := strings.Cut(ref, "/")
	if !found {
		return model.New(app)
	}
	return model.New(name, model.WithApp(app))
}

// buildAdapter returns nil when no adapter flag was given.
func buildAdapter(opts sourceOptions) (adapters.Adapter, error) {
	switch {
	case opts.regex != "":
		return adapters.NewRegex(opts.regex)
	case opts.schemaFile != "":
		schema, err := os.ReadFile(opts.schemaFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema: %w", err)
		}
		return adapters.NewMap([]adapters.MapOption{adapters.WithSchema(string(schema))})
	}
	return nil, nil
}

func openCache(rt *runtime, cfg config.CacheConfig) (*cache.Cache, error) {
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = cache.NoExpiry
	}
	opts := []cache.Option{cache.WithDefaultTimeout(timeout)}

	switch cfg.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheLRU:
		lru, err := cache.NewLRU(cfg.LRUSize)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cache.WithBackend(lru))
	case config.CacheSQL:
		conn, err := db.Open(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		rt.closers = append(rt.closers, conn.Close)
		statuses, err := db.MigrateStatus(conn)
		if err != nil {
			return nil, fmt.Errorf("failed to check migrations: %w", err)
		}
		for _, s := range statuses {
			if !s.Applied {
				return nil, fmt.Errorf("migration %s not applied - run 'lifter migrate' first", s.ID)
			}
		}
		queries, err := db.LoadQueries(conn)
		if err != nil {
			return nil, fmt.Errorf("failed to load queries: %w", err)
		}
		opts = append(opts, cache.WithBackend(sqlcache.New(queries)))
	}
	return cache.New(opts...), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
