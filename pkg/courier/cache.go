package courier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Namespace prefixes every cache key owned by the aggregation layer.
const Namespace = "courier"

// Cache TTLs per operation. Location data changes rarely; tracking churns.
const (
	TTLCities    = 24 * time.Hour
	TTLZones     = 2 * time.Hour
	TTLAreas     = 2 * time.Hour
	TTLCharge    = 30 * time.Minute
	TTLTracking  = 2 * time.Minute
	TTLBalance   = 10 * time.Minute
	TTLStores    = 1 * time.Hour
	TTLToken     = 1 * time.Hour
	TTLProviders = 5 * time.Minute
)

// Cache is the advisory key-value store used for upstream responses.
// Implementations degrade internally: backend failures are logged and
// surface as misses or no-ops, never as errors. Callers always fall
// through to a live fetch.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Del removes keys.
	Del(ctx context.Context, keys ...string)

	// ClearPattern removes all keys matching a glob pattern.
	ClearPattern(ctx context.Context, pattern string)
}

// GetOrSet returns the cached value for key, or invokes produce exactly
// once on a miss, caches its result, and returns it. Producer errors
// propagate uncached. A nil cache behaves as a permanent miss.
func GetOrSet[T any](ctx context.Context, c Cache, key string, ttl time.Duration, produce func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if c != nil {
		if raw, ok := c.Get(ctx, key); ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			// Undecodable entry: treat as a miss and overwrite below.
		}
	}

	v, err := produce(ctx)
	if err != nil {
		return zero, err
	}

	if c != nil {
		if raw, err := json.Marshal(v); err == nil {
			c.Set(ctx, key, raw, ttl)
		}
	}
	return v, nil
}

// CacheKey builds the canonical cache key for one logical request:
// "courier:<provider>:<method>:<canonical JSON of params>". Params are
// round-tripped through an untyped value so map keys serialize sorted and
// logically equal requests collide regardless of field order.
func CacheKey(provider, method string, params any) string {
	prefix := fmt.Sprintf("%s:%s:%s", Namespace, strings.ToLower(provider), method)
	if params == nil {
		return prefix
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return prefix
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return prefix + ":" + string(raw)
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return prefix + ":" + string(raw)
	}
	return prefix + ":" + string(canonical)
}

// ProviderPattern returns the glob matching every cached entry for one
// provider, or for one of its methods when method is non-empty.
func ProviderPattern(provider, method string) string {
	if provider == "" {
		return Namespace + ":*"
	}
	if method == "" {
		return fmt.Sprintf("%s:%s:*", Namespace, strings.ToLower(provider))
	}
	return fmt.Sprintf("%s:%s:%s:*", Namespace, strings.ToLower(provider), method)
}
