package metrics

import (
	"runtime"
	"sync"
	"time"
)

const responseWindow = 1000

// Snapshot is a point-in-time view of the bot's performance counters.
type Snapshot struct {
	Uptime            time.Duration `json:"-"`
	UptimeSeconds     float64       `json:"uptime_seconds"`
	RequestsTotal     int64         `json:"requests_total"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	AvgResponseMs     float64       `json:"average_response_time_ms"`
	ErrorRatePercent  float64       `json:"error_rate_percent"`
	ActiveUsers       int           `json:"active_users_count"`
	DatabaseQueries   int64         `json:"database_queries"`
	CacheHitPercent   float64       `json:"cache_hit_rate_percent"`
	MemoryMB          float64       `json:"memory_usage_mb"`
}

// Monitor aggregates request timings in-process. It complements the
// Prometheus collectors with the numbers shown by /performance.
type Monitor struct {
	mu sync.Mutex

	now       func() time.Time
	startedAt time.Time
	lastReset time.Time

	requests  int64
	errors    int64
	rps       float64
	durations []time.Duration // ring of the last responseWindow samples
	next      int
	users     map[int64]struct{}

	dbQueries   int64
	cacheHits   int64
	cacheMisses int64
}

func NewMonitor() *Monitor {
	return newMonitorAt(time.Now)
}

func newMonitorAt(now func() time.Time) *Monitor {
	t := now()
	return &Monitor{
		now:       now,
		startedAt: t,
		lastReset: t,
		durations: make([]time.Duration, 0, responseWindow),
		users:     make(map[int64]struct{}),
	}
}

// RecordRequest stores one handled update. userID 0 is not counted as active.
func (m *Monitor) RecordRequest(d time.Duration, userID int64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	if !success {
		m.errors++
	}
	if userID != 0 {
		m.users[userID] = struct{}{}
	}
	if len(m.durations) < responseWindow {
		m.durations = append(m.durations, d)
	} else {
		m.durations[m.next] = d
		m.next = (m.next + 1) % responseWindow
	}

	now := m.now()
	if elapsed := now.Sub(m.lastReset); elapsed >= time.Minute {
		m.rps = float64(m.requests) / elapsed.Seconds()
		m.lastReset = now
	}
}

func (m *Monitor) RecordDBQuery() {
	m.mu.Lock()
	m.dbQueries++
	m.mu.Unlock()
}

func (m *Monitor) RecordCacheHit() {
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

func (m *Monitor) RecordCacheMiss() {
	m.mu.Lock()
	m.cacheMisses++
	m.mu.Unlock()
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Uptime:            m.now().Sub(m.startedAt),
		RequestsTotal:     m.requests,
		RequestsPerSecond: m.rps,
		ActiveUsers:       len(m.users),
		DatabaseQueries:   m.dbQueries,
		MemoryMB:          memoryMB(),
	}
	s.UptimeSeconds = s.Uptime.Seconds()
	if n := len(m.durations); n > 0 {
		var sum time.Duration
		for _, d := range m.durations {
			sum += d
		}
		s.AvgResponseMs = float64(sum.Microseconds()) / float64(n) / 1000
	}
	if m.requests > 0 {
		s.ErrorRatePercent = float64(m.errors) / float64(m.requests) * 100
	}
	if total := m.cacheHits + m.cacheMisses; total > 0 {
		s.CacheHitPercent = float64(m.cacheHits) / float64(total) * 100
	}
	return s
}

func memoryMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.Sys) / 1024 / 1024
}
