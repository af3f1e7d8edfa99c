// Package ratelimit throttles users per command scope.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter decides whether a user may run another command in scope. When it
// denies, retryAfter tells how long until the oldest request leaves the window.
type Limiter interface {
	Allow(ctx context.Context, userID int64, scope string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

// Rule is a per-scope limit.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Scopes used by the bot.
const (
	ScopeStart    = "start"
	ScopeDelivery = "delivery"
	ScopeSearch   = "search"
	ScopeDefault  = "default"
)

// DefaultRules are the per-command limits; ScopeDefault is overridden from config.
func DefaultRules(requests int, window time.Duration) map[string]Rule {
	return map[string]Rule{
		ScopeStart:    {Limit: 10, Window: time.Minute},
		ScopeDelivery: {Limit: 20, Window: time.Minute},
		ScopeSearch:   {Limit: 15, Window: time.Minute},
		ScopeDefault:  {Limit: requests, Window: window},
	}
}

// Message is the reply sent to throttled users.
func Message(retryAfter time.Duration) string {
	return fmt.Sprintf("⚠️ Rate limit exceeded. Please wait %d seconds.", int(retryAfter.Seconds()))
}

var _ Limiter = (*SlidingWindow)(nil)

type windowKey struct {
	userID int64
	scope  string
}

// SlidingWindow keeps request timestamps per user and scope in memory.
type SlidingWindow struct {
	mu      sync.Mutex
	windows map[windowKey][]time.Time
	spans   map[windowKey]time.Duration
	now     func() time.Time
}

func NewSlidingWindow() *SlidingWindow {
	return &SlidingWindow{
		windows: make(map[windowKey][]time.Time),
		spans:   make(map[windowKey]time.Duration),
		now:     time.Now,
	}
}

func (s *SlidingWindow) Allow(_ context.Context, userID int64, scope string, limit int, window time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := windowKey{userID, scope}
	now := s.now()
	reqs := trim(s.windows[k], now.Add(-window))
	s.spans[k] = window

	if len(reqs) < limit {
		s.windows[k] = append(reqs, now)
		return true, 0, nil
	}
	s.windows[k] = reqs
	return false, reqs[0].Add(window).Sub(now), nil
}

// Cleanup drops stale timestamps and empty windows. Returns the number of
// windows still tracked.
func (s *SlidingWindow) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, reqs := range s.windows {
		reqs = trim(reqs, now.Add(-s.spans[k]))
		if len(reqs) == 0 {
			delete(s.windows, k)
			delete(s.spans, k)
			continue
		}
		s.windows[k] = reqs
	}
	return len(s.windows)
}

// trim drops timestamps older than cutoff; reqs is sorted ascending.
func trim(reqs []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(reqs) && reqs[i].Before(cutoff) {
		i++
	}
	return reqs[i:]
}
