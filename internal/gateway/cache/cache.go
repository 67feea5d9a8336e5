// Package cache provides an optional redis-backed cache for search results,
// with singleflight deduplication of concurrent identical queries. The
// cache is invalidated wholesale on every ingest and delete, since any
// index mutation can change any query's ranking.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/redis"
)

const keyPrefix = "vsearch:"

// SearchCache caches ranked search results in Redis, keyed by a hash of the
// normalised query and top_k.
type SearchCache struct {
	client *pkgredis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a SearchCache over the given Redis client.
func New(client *pkgredis.Client, ttl time.Duration) *SearchCache {
	return &SearchCache{
		client: client,
		ttl:    ttl,
		logger: logger.WithComponent("search-cache"),
	}
}

// Get returns the cached results for (query, topK), if present.
func (c *SearchCache) Get(ctx context.Context, query string, topK int) ([]index.Record, bool) {
	key := c.buildKey(query, topK)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var records []index.Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return records, true
}

// Set stores results for (query, topK) with the configured TTL.
func (c *SearchCache) Set(ctx context.Context, query string, topK int, records []index.Record) {
	key := c.buildKey(query, topK)
	data, err := json.Marshal(records)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached results for (query, topK) or runs computeFn
// once, even under concurrent identical queries, caching its result. The
// bool reports whether the result came from cache.
func (c *SearchCache) GetOrCompute(
	ctx context.Context,
	query string,
	topK int,
	computeFn func() ([]index.Record, error),
) ([]index.Record, bool, error) {
	if records, ok := c.Get(ctx, query, topK); ok {
		return records, true, nil
	}
	key := c.buildKey(query, topK)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if records, ok := c.Get(ctx, query, topK); ok {
			return records, nil
		}
		records, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, topK, records)
		return records, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]index.Record), false, nil
}

// Invalidate drops every cached search result.
func (c *SearchCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Debug("search cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit/miss counters.
func (c *SearchCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *SearchCache) buildKey(query string, topK int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	raw := fmt.Sprintf("%s:k=%d", normalized, topK)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
