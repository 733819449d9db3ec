package web

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "moviedw:"

// Cache keeps rendered query results in Redis. A Cache with a nil client
// always misses, so the front end runs without Redis.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *log.Helper
}

func NewCache(rdb *redis.Client, ttl time.Duration, logger log.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, log: log.NewHelper(logger)}
}

func (c *Cache) enabled() bool { return c != nil && c.rdb != nil && c.ttl > 0 }

// cached returns the value stored under key, or runs load and stores its
// result. Cache failures only cost a database round trip.
func cached[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if c.enabled() {
		if raw, err := c.rdb.Get(ctx, keyPrefix+key).Bytes(); err == nil {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				c.log.Debugf("cache hit key=%s", key)
				return v, nil
			}
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if c.enabled() {
		if raw, err := json.Marshal(v); err == nil {
			if err := c.rdb.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
				c.log.Warnf("cache set key=%s: %v", key, err)
			}
		}
	}
	return v, nil
}

// Invalidate drops every cached result. Called after each write.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	keys := []string{keyPrefix + apiMoviesKey}
	for _, m := range marts {
		keys = append(keys, keyPrefix+martKey(m.Slug))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warnf("cache invalidate: %v", err)
	}
}

const apiMoviesKey = "api:filmes"

func martKey(slug string) string { return "mart:" + slug }
