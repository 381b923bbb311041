// Package cache memoises search results in Redis, keyed by the canonical
// form of the parsed query so that equivalent spellings share an entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/redis"
)

const keyPrefix = "wq:search:"

// Store is the key-value backend. *pkgredis.Client satisfies it; Get must
// return pkgredis.ErrMiss for absent keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type QueryCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(store Store, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, canonical string, limit int) (*executor.SearchResult, bool) {
	key := Key(canonical, limit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgredis.ErrMiss) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache entry undecodable", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "canonical", canonical, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, canonical string, limit int, result *executor.SearchResult) {
	key := Key(canonical, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for canonical, or runs compute
// once per key across concurrent callers and stores its result. The bool
// reports a cache hit. Errors from compute are not cached.
//
// compute runs under a context detached from any one caller's cancellation,
// since its result is shared by every caller waiting on the key. Each caller
// gets its own copy with Query set to the query text it asked with.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	canonical string,
	limit int,
	compute func(context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, canonical, limit); ok {
		return withQuery(result, query), true, nil
	}
	key := Key(canonical, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		result, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, canonical, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return withQuery(val.(*executor.SearchResult), query), false, nil
}

func withQuery(result *executor.SearchResult, query string) *executor.SearchResult {
	out := *result
	out.Query = query
	return &out
}

// Invalidate drops every cached result, e.g. after a new index is loaded.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Key derives the store key for a canonical query and result limit.
func Key(canonical string, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00limit=%d", canonical, limit)))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}
