// Package cache provides the TTL cache used to keep hot lookups (ban status,
// token checks, search results) off the database.
package cache

import (
	"context"
	"time"

	"telegram-file-vault/internal/infra/metrics"
)

// Store is implemented by the in-memory cache and by the Redis cache.
// Values are JSON encoded so both behave the same.
type Store interface {
	// Get decodes the entry into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores v; ttl <= 0 selects the store's default TTL.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Recorder receives hit/miss events, usually the performance monitor.
type Recorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Remember returns the cached value under key or calls load and caches its
// result. Cache errors degrade to a direct load; load errors are not cached.
func Remember[T any](ctx context.Context, s Store, rec Recorder, name, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var v T
	if ok, err := s.Get(ctx, key, &v); err == nil && ok {
		metrics.IncCacheRequest(name, "hit")
		if rec != nil {
			rec.RecordCacheHit()
		}
		return v, nil
	}
	metrics.IncCacheRequest(name, "miss")
	if rec != nil {
		rec.RecordCacheMiss()
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = s.Set(ctx, key, v, ttl)
	return v, nil
}
