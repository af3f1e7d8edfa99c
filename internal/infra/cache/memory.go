package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"telegram-file-vault/internal/infra/metrics"
)

var _ Store = (*Memory)(nil)

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Stats mirrors what /performance reports about the cache.
type Stats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Memory is a TTL cache bounded by maxSize with least-recently-used eviction.
type Memory struct {
	mu         sync.Mutex
	defaultTTL time.Duration
	maxSize    int
	items      map[string]*list.Element
	lru        *list.List // front = most recently used
	hits       int64
	misses     int64
	now        func() time.Time
}

func NewMemory(defaultTTL time.Duration, maxSize int) *Memory {
	return &Memory{
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		items:      make(map[string]*list.Element),
		lru:        list.New(),
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	el, ok := m.items[key]
	if !ok {
		m.misses++
		m.mu.Unlock()
		return false, nil
	}
	e := el.Value.(*entry)
	if m.now().After(e.expiresAt) {
		m.removeElement(el)
		m.misses++
		m.mu.Unlock()
		return false, nil
	}
	m.lru.MoveToFront(el)
	m.hits++
	raw := e.value
	m.mu.Unlock()

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	exp := m.now().Add(ttl)
	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry)
		e.value, e.expiresAt = raw, exp
		m.lru.MoveToFront(el)
		return nil
	}
	m.items[key] = m.lru.PushFront(&entry{key: key, value: raw, expiresAt: exp})
	m.evictOverflow()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if el, ok := m.items[k]; ok {
			m.removeElement(el)
		}
	}
	return nil
}

// NewSessionStore returns an unbounded Memory for conversation state. Entries
// only leave on expiry or delete, never to make room for cache traffic.
func NewSessionStore() *Memory {
	return NewMemory(SessionTTL, 0)
}

// Sweep drops expired entries and trims to maxSize; it returns how many
// entries expired. Run periodically by the scheduler.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := 0
	for el := m.lru.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry).expiresAt) {
			m.removeElement(el)
			expired++
		}
		el = prev
	}
	m.evictOverflow()
	metrics.SetCacheEntries(len(m.items))
	return expired
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{Size: len(m.items), MaxSize: m.maxSize, Hits: m.hits, Misses: m.misses}
	if total := m.hits + m.misses; total > 0 {
		s.HitRate = float64(m.hits) / float64(total)
	}
	return s
}

func (m *Memory) evictOverflow() {
	if m.maxSize <= 0 {
		return
	}
	for len(m.items) > m.maxSize {
		m.removeElement(m.lru.Back())
	}
}

func (m *Memory) removeElement(el *list.Element) {
	m.lru.Remove(el)
	delete(m.items, el.Value.(*entry).key)
}
