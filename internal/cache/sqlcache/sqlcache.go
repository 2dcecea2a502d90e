// Package sqlcache stores cache entries in a SQL table so cached query
// results survive restarts and can be shared between processes.
//
// Values are JSON-encoded. Decoding yields JSON-shaped values: numbers
// come back as float64, records as map[string]any. Callers that need
// exact Go types must normalize on read.
package sqlcache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/solatis/lifter/internal/cache"
	"github.com/solatis/lifter/internal/core/db"
)

// Backend implements cache.Backend over the cache_entries table.
type Backend struct {
	queries *db.Queries
	now     func() time.Time
}

// New wraps loaded queries. The schema must have been migrated.
func New(queries *db.Queries) *Backend {
	return &Backend{queries: queries, now: time.Now}
}

type row struct {
	Key       string        `db:"cache_key"`
	Value     string        `db:"value"`
	ExpiresAt sql.NullInt64 `db:"expires_at"`
}

func (b *Backend) Load(key string) (cache.Entry, bool, error) {
	var r row
	err := b.queries.Get("get-cache-entry", &r, key)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to load cache entry: %w", err)
	}

	var value any
	if err := json.Unmarshal([]byte(r.Value), &value); err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	e := cache.Entry{Value: value}
	if r.ExpiresAt.Valid {
		e.Expires = true
		e.ExpiresAt = time.Unix(0, r.ExpiresAt.Int64)
	}
	return e, true, nil
}

func (b *Backend) Store(key string, e cache.Entry) error {
	encoded, err := json.Marshal(e.Value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	var expiresAt sql.NullInt64
	if e.Expires {
		expiresAt = sql.NullInt64{Int64: e.ExpiresAt.UnixNano(), Valid: true}
	}
	if _, err := b.queries.Exec("upsert-cache-entry", key, string(encoded), expiresAt, b.now().UTC()); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

func (b *Backend) Delete(key string) error {
	if _, err := b.queries.Exec("delete-cache-entry", key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Purge deletes every entry expired at now and returns how many were removed.
func (b *Backend) Purge(now time.Time) (int64, error) {
	res, err := b.queries.Exec("purge-expired-cache-entries", now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache entries: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of stored entries, expired or not.
func (b *Backend) Len() (int, error) {
	var n int
	if err := b.queries.Get("count-cache-entries", &n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Keys lists stored keys in order.
func (b *Backend) Keys() ([]string, error) {
	var keys []string
	if err := b.queries.Select("list-cache-keys", &keys); err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	return keys, nil
}
