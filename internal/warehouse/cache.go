package warehouse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gkobilansky/ab-goat/internal/dataset"
	"github.com/gkobilansky/ab-goat/internal/store"
)

// CacheStore is the part of the store the cache needs.
type CacheStore interface {
	GetCachedResult(ctx context.Context, key string) (*store.CachedResult, error)
	PutCachedResult(ctx context.Context, key, query string, payload []byte) error
}

// Cached wraps a Runner and reuses result sets for identical query text
// until they are older than the TTL. Failed queries are never cached.
type Cached struct {
	runner Runner
	store  CacheStore
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// CacheOption customises a Cached runner.
type CacheOption func(*Cached)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cached) { c.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cached) { c.now = now }
}

func NewCached(runner Runner, s CacheStore, ttl time.Duration, opts ...CacheOption) *Cached {
	c := &Cached{
		runner: runner,
		store:  s,
		ttl:    ttl,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key of a query: a hash of its trimmed text.
func Key(sql string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sql)))
	return hex.EncodeToString(sum[:])
}

func (c *Cached) Query(ctx context.Context, sql string) (*dataset.Dataset, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, ErrEmptyQuery
	}

	key := Key(sql)
	if ds, ok := c.lookup(ctx, key); ok {
		return ds, nil
	}

	ds, err := c.runner.Query(ctx, sql)
	if err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	queriesTotal.WithLabelValues("ok").Inc()

	payload, err := json.Marshal(ds)
	if err != nil {
		c.logger.Warn("failed to encode result for cache", "key", key, "error", err)
		return ds, nil
	}
	if err := c.store.PutCachedResult(ctx, key, sql, payload); err != nil {
		c.logger.Warn("failed to cache result", "key", key, "error", err)
	}

	return ds, nil
}

func (c *Cached) lookup(ctx context.Context, key string) (*dataset.Dataset, bool) {
	entry, err := c.store.GetCachedResult(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache lookup failed", "key", key, "error", err)
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	if entry.Expired(c.now(), c.ttl) {
		cacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}

	var ds dataset.Dataset
	if err := json.Unmarshal(entry.Payload, &ds); err != nil {
		c.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	cacheLookups.WithLabelValues("hit").Inc()
	c.logger.Debug("query served from cache", "key", key, "rows", ds.Len())
	return &ds, true
}
