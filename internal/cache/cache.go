// Package cache provides a keyed TTL cache with scoped enable/disable
// toggles and pluggable storage backends.
//
// Expiry is computed at write time as an absolute timestamp from the
// cache's clock, and checked lazily on read: an entry is absent once
// now >= expiresAt, and is deleted from the backend on that read.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/solatis/lifter/internal/types"
)

// NoExpiry stores entries that never expire.
const NoExpiry time.Duration = -1

// Entry is a stored value with an optional absolute expiry.
type Entry struct {
	Value     any
	ExpiresAt time.Time
	Expires   bool
}

// Backend stores entries by key. Implementations must be safe for
// concurrent use.
type Backend interface {
	Load(key string) (Entry, bool, error)
	Store(key string, e Entry) error
	Delete(key string) error
}

// Cache wraps a backend with TTL policy and an enabled flag.
type Cache struct {
	backend        Backend
	defaultTimeout time.Duration
	enabled        bool
	now            func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithBackend selects the storage backend. Defaults to NewMemory().
func WithBackend(b Backend) Option {
	return func(c *Cache) { c.backend = b }
}

// WithDefaultTimeout sets the TTL used by Set. Defaults to NoExpiry.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Cache) { c.defaultTimeout = d }
}

// WithClock replaces time.Now, for deterministic expiry in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Disabled starts the cache disabled.
func Disabled() Option {
	return func(c *Cache) { c.enabled = false }
}

// New creates an enabled cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		defaultTimeout: NoExpiry,
		enabled:        true,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backend == nil {
		c.backend = NewMemory()
	}
	return c
}

// Enabled reports whether reads and writes reach the backend.
func (c *Cache) Enabled() bool { return c.enabled }

// DefaultTimeout returns the TTL used by Set.
func (c *Cache) DefaultTimeout() time.Duration { return c.defaultTimeout }

// Lookup returns the value under key. It fails with types.ErrDisabledCache
// when the cache is disabled and types.ErrNotInCache on a miss or expiry.
func (c *Cache) Lookup(key string) (any, error) {
	if !c.enabled {
		return nil, types.ErrDisabledCache
	}
	e, ok, err := c.backend.Load(key)
	if err != nil {
		return nil, fmt.Errorf("cache load %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotInCache, key)
	}
	if e.Expires && !c.now().Before(e.ExpiresAt) {
		if err := c.backend.Delete(key); err != nil {
			return nil, fmt.Errorf("cache evict %s: %w", key, err)
		}
		return nil, fmt.Errorf("%w: %s", types.ErrNotInCache, key)
	}
	return e.Value, nil
}

// Get returns the value under key, or def when the cache is disabled or
// the key is absent. Backend failures are reported.
func (c *Cache) Get(key string, def any) (any, error) {
	v, err := c.Lookup(key)
	if errors.Is(err, types.ErrDisabledCache) || errors.Is(err, types.ErrNotInCache) {
		return def, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set stores value under key with the default timeout. A value of type
// func() any or func() (any, error) is called to produce the stored value.
// Returns false without storing when the cache is disabled.
func (c *Cache) Set(key string, value any) (bool, error) {
	return c.SetTimeout(key, value, c.defaultTimeout)
}

// SetTimeout is Set with an explicit TTL; NoExpiry never expires.
func (c *Cache) SetTimeout(key string, value any, timeout time.Duration) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	v, err := produce(value)
	if err != nil {
		return false, err
	}
	e := Entry{Value: v}
	if timeout != NoExpiry {
		e.Expires = true
		e.ExpiresAt = c.now().Add(timeout)
	}
	if err := c.backend.Store(key, e); err != nil {
		return false, fmt.Errorf("cache store %s: %w", key, err)
	}
	return true, nil
}

// GetOrSet returns the cached value, storing value first on a miss.
// Fails with types.ErrDisabledCache when disabled.
func (c *Cache) GetOrSet(key string, value any) (any, error) {
	v, err := c.Lookup(key)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, types.ErrNotInCache) {
		return nil, err
	}
	produced, err := produce(value)
	if err != nil {
		return nil, err
	}
	if _, err := c.Set(key, produced); err != nil {
		return nil, err
	}
	return produced, nil
}

func produce(value any) (any, error) {
	switch fn := value.(type) {
	case func() any:
		return fn(), nil
	case func() (any, error):
		return fn()
	default:
		return value, nil
	}
}

// Toggle restores the enabled flag captured when it was created.
type Toggle struct {
	cache    *Cache
	previous bool
}

// Restore puts back the previous enabled flag.
func (t *Toggle) Restore() { t.cache.enabled = t.previous }

// Enable forces the cache on until the returned toggle is restored:
//
//	defer c.Enable().Restore()
func (c *Cache) Enable() *Toggle { return c.toggle(true) }

// Disable bypasses the cache until the returned toggle is restored.
func (c *Cache) Disable() *Toggle { return c.toggle(false) }

func (c *Cache) toggle(enabled bool) *Toggle {
	t := &Toggle{cache: c, previous: c.enabled}
	c.enabled = enabled
	return t
}
