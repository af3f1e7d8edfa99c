//go:build !integration

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestMonitor_Snapshot(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)}
	m := newMonitorAt(clk.Now)

	m.RecordRequest(100*time.Millisecond, 1, true)
	m.RecordRequest(300*time.Millisecond, 2, false)
	m.RecordRequest(200*time.Millisecond, 1, true)
	m.RecordRequest(200*time.Millisecond, 0, true)
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordDBQuery()

	s := m.Snapshot()
	assert.Equal(t, int64(4), s.RequestsTotal)
	assert.InDelta(t, 200.0, s.AvgResponseMs, 0.001)
	assert.InDelta(t, 25.0, s.ErrorRatePercent, 0.001)
	assert.Equal(t, 2, s.ActiveUsers)
	assert.Equal(t, int64(1), s.DatabaseQueries)
	assert.InDelta(t, 75.0, s.CacheHitPercent, 0.001)
	assert.Zero(t, s.RequestsPerSecond, "rps is only computed after a full minute")
	assert.Greater(t, s.MemoryMB, 0.0)
}

func TestMonitor_RequestsPerSecondAfterWindow(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)}
	m := newMonitorAt(clk.Now)

	for i := 0; i < 119; i++ {
		m.RecordRequest(time.Millisecond, 1, true)
	}
	clk.t = clk.t.Add(time.Minute)
	m.RecordRequest(time.Millisecond, 1, true)

	s := m.Snapshot()
	assert.InDelta(t, 2.0, s.RequestsPerSecond, 0.001)
	assert.Equal(t, time.Minute, s.Uptime)
}

func TestMonitor_KeepsLastThousandDurations(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < responseWindow; i++ {
		m.RecordRequest(time.Second, 1, true)
	}
	for i := 0; i < responseWindow; i++ {
		m.RecordRequest(10*time.Millisecond, 1, true)
	}
	assert.InDelta(t, 10.0, m.Snapshot().AvgResponseMs, 0.001)
}
