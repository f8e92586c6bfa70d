package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process cache. When it holds more than maxItems entries
// the ones closest to expiry are evicted first.
type Memory struct {
	mu       sync.Mutex
	data     map[string]memoryEntry
	maxItems int
	now      func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemory(maxItems int) *Memory {
	if maxItems <= 0 {
		maxItems = 512
	}
	return &Memory{
		data:     make(map[string]memoryEntry),
		maxItems: maxItems,
		now:      time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.data, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores a copy of value. ttl <= 0 keeps it until evicted.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = e
	if len(m.data) > m.maxItems {
		m.evictLocked()
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.data = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

func (m *Memory) evictLocked() {
	now := m.now()
	type kv struct {
		key       string
		expiresAt time.Time
	}
	var live []kv
	for k, e := range m.data {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.data, k)
			continue
		}
		live = append(live, kv{k, e.expiresAt})
	}
	if len(live) <= m.maxItems {
		return
	}
	// Entries without expiry sort last.
	sort.Slice(live, func(i, j int) bool {
		a, b := live[i].expiresAt, live[j].expiresAt
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		if !a.Equal(b) {
			return a.Before(b)
		}
		return live[i].key < live[j].key
	})
	for _, e := range live[:len(live)-m.maxItems] {
		delete(m.data, e.key)
	}
}
