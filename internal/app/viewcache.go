/**
 * @description
 * This file implements the view cache used by dashboard and admin-listing reads.
 * Dependent read views must be refreshed whenever accounts or transactions
 * change, so every committed mutation invalidates the affected keys.
 *
 * The cache is Redis-backed when a client is configured and degrades to a no-op
 * otherwise, mirroring how the rate limiter handles a missing Redis.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: The Redis client library.
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const adminAccountsCacheKey = "views:admin:accounts"

func dashboardCacheKey(ownerID uuid.UUID) string {
	return "views:dashboard:" + ownerID.String()
}

// ViewCache caches rendered read views keyed by view name.
type ViewCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// NoopViewCache disables caching; every read goes to the database.
type NoopViewCache struct{}

func (NoopViewCache) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }

func (NoopViewCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {}

func (NoopViewCache) Invalidate(ctx context.Context, keys ...string) {}

// RedisViewCache stores serialized views in Redis with a short TTL. Cache
// failures are logged and treated as misses; the database remains the source
// of truth.
type RedisViewCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisViewCache creates a Redis-backed view cache. ttl <= 0 falls back to
// one minute.
func NewRedisViewCache(client redis.UniversalClient, ttl time.Duration) *RedisViewCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisViewCache{client: client, ttl: ttl}
}

func (c *RedisViewCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("level=warn component=view_cache op=get key=%s err=%v", key, err)
		}
		return nil, false
	}
	return val, true
}

func (c *RedisViewCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("level=warn component=view_cache op=set key=%s err=%v", key, err)
	}
}

func (c *RedisViewCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("level=warn component=view_cache op=invalidate err=%v", err)
	}
}

// cacheGetJSON reads and decodes a cached view. A decode failure counts as a miss.
func (s *Service) cacheGetJSON(ctx context.Context, key string, v interface{}) bool {
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Printf("level=warn component=view_cache op=decode key=%s err=%v", key, err)
		s.cache.Invalidate(ctx, key)
		return false
	}
	return true
}

// cacheSetJSON encodes and stores a view. Encoding failures are logged, not surfaced.
func (s *Service) cacheSetJSON(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("level=warn component=view_cache op=encode key=%s err=%v", key, err)
		return
	}
	s.cache.Set(ctx, key, raw, 0)
}
