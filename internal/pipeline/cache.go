package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueryCache is the supplemental embedding cache (C14): embed_query
// consults it before calling the model, keyed on (model, text), and
// populates it on a cache miss. Caching is scoped to embed_query only —
// batch pipeline runs are not cached, since their chunk volume makes a
// cache ineffective and their results are already durable via the sink.
type QueryCache interface {
	Get(ctx context.Context, key string) (Vector, bool, error)
	Set(ctx context.Context, key string, v Vector, ttl time.Duration) error
}

// RedisQueryCache is a QueryCache backed by Redis, storing each vector as a
// JSON-encoded array under a namespaced key.
type RedisQueryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisQueryCache wraps an existing *redis.Client. ttl of 0 means
// entries never expire.
func NewRedisQueryCache(client *redis.Client, prefix string, ttl time.Duration) *RedisQueryCache {
	if prefix == "" {
		prefix = "embedflow:embed:"
	}
	return &RedisQueryCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisQueryCache) Get(ctx context.Context, key string) (Vector, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, NewSinkError(SinkTransient, err)
	}
	var v Vector
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, NewSinkError(SinkPermanent, err)
	}
	return v, true, nil
}

func (c *RedisQueryCache) Set(ctx context.Context, key string, v Vector, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return NewSinkError(SinkPermanent, err)
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return nil
}

// CacheKey builds the cache key for a (model, text) pair.
func CacheKey(model, text string) string {
	return model + ":" + text
}
