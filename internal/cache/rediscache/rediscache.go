// Package rediscache implements the courier cache contract on Redis.
//
// The cache is advisory: every backend failure is logged and degrades to
// a miss or a no-op, so cache downtime never fails a courier request.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type RedisCache struct {
	c      *redis.Client
	logger *otelzap.Logger
}

// New creates a cache backed by the Redis instance at addr. The client
// connects lazily on first use, so a down backend at startup is fine.
func New(addr string, logger *otelzap.Logger) *RedisCache {
	return &RedisCache{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		logger: logger,
	}
}

// NewWithClient wraps an existing client. Used by tests with miniredis.
func NewWithClient(c *redis.Client, logger *otelzap.Logger) *RedisCache {
	return &RedisCache{c: c, logger: logger}
}

// Get returns the cached value and whether it was present. Backend
// failures are reported as misses.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.degraded("get", key, err)
		return nil, false
	}
	return val, true
}

// Set stores a value with a TTL. Backend failures are dropped.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.c.Set(ctx, key, value, ttl).Err(); err != nil {
		r.degraded("set", key, err)
	}
}

// Del removes keys. Backend failures are dropped.
func (r *RedisCache) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := r.c.Del(ctx, keys...).Err(); err != nil {
		r.degraded("del", keys[0], err)
	}
}

// ClearPattern removes all keys matching a glob pattern, scanning in
// batches to keep the server responsive.
func (r *RedisCache) ClearPattern(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := r.c.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			r.degraded("scan", pattern, err)
			return
		}
		if len(keys) > 0 {
			if err := r.c.Del(ctx, keys...).Err(); err != nil {
				r.degraded("del", pattern, err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// Close releases the underlying connection.
func (r *RedisCache) Close() error {
	return r.c.Close()
}

func (r *RedisCache) degraded(op, key string, err error) {
	if r.logger != nil {
		r.logger.Warn("Cache backend unavailable, degrading",
			zap.String("op", op),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

var _ courier.Cache = (*RedisCache)(nil)
