package application

import (
	"telegram-file-vault/internal/infra/cache"
	"telegram-file-vault/internal/infra/metrics"
)

// ---- small interfaces to decouple the facade from concrete infra types ----

// PerformanceSource reports the in-process performance counters.
type PerformanceSource interface {
	Snapshot() metrics.Snapshot
}

// CacheStatsSource is implemented by the in-memory cache. A shared Redis
// cache has no local size, so the facade accepts nil.
type CacheStatsSource interface {
	Stats() cache.Stats
}

// ThrottleSource exposes the outbound send bucket.
type ThrottleSource interface {
	Tokens() float64
}
