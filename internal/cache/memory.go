package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// memoryCache is a bounded LRU with lazy TTL expiry: entries past their
// TTL are dropped when touched, not by a background sweeper.
type memoryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[string]*list.Element
}

type memoryEntry struct {
	key      string
	result   *models.AnalysisResult
	storedAt time.Time
}

func newMemoryCache(capacity int, ttl time.Duration) *memoryCache {
	return &memoryCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (m *memoryCache) Get(key string) (*models.AnalysisResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*memoryEntry)
	if time.Since(entry.storedAt) > m.ttl {
		m.order.Remove(elem)
		delete(m.items, key)
		return nil, false
	}
	m.order.MoveToFront(elem)
	return entry.result, true
}

func (m *memoryCache) Set(key string, result *models.AnalysisResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.result = result
		entry.storedAt = time.Now()
		m.order.MoveToFront(elem)
		return
	}

	m.items[key] = m.order.PushFront(&memoryEntry{
		key:      key,
		result:   result,
		storedAt: time.Now(),
	})
	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memoryEntry).key)
	}
}

func (m *memoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *memoryCache) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order.Init()
	m.items = make(map[string]*list.Element)
}
