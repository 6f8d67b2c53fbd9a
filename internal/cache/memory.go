package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/flybeeper/flightlog-engine/internal/metrics"
)

const memoryBackend = "memory"

// entry запись кэша
type entry struct {
	value   []byte
	created time.Time
}

// MemoryCache потокобезопасный LRU кэш с TTL
type MemoryCache struct {
	ttl      time.Duration
	capacity int
	items    *lru.Cache[string, entry]
	mu       sync.Mutex

	// Статистика
	hits   uint64
	misses uint64

	now func() time.Time
}

// NewMemoryCache создает LRU кэш
func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = 1
	}
	// lru.New возвращает ошибку только для неположительного размера
	items, _ := lru.New[string, entry](capacity)
	return &MemoryCache{
		ttl:      ttl,
		capacity: capacity,
		items:    items,
		now:      time.Now,
	}
}

// Get возвращает копию значения; просроченная запись удаляется
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items.Get(key)
	if ok && c.expired(e) {
		c.items.Remove(key)
		ok = false
	}
	if !ok {
		c.misses++
		metrics.CacheMisses.WithLabelValues(memoryBackend).Inc()
		return nil, false, nil
	}

	c.hits++
	metrics.CacheHits.WithLabelValues(memoryBackend).Inc()
	return append([]byte(nil), e.value...), true, nil
}

// Set добавляет или обновляет значение. При заполненном кэше сначала
// удаляются просроченные записи, и только затем вытесняется самая старая.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.items.Contains(key) && c.items.Len() >= c.capacity {
		c.removeExpired()
	}
	c.items.Add(key, entry{value: append([]byte(nil), value...), created: c.now()})
	return nil
}

// Delete удаляет ключ
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Remove(key)
	return nil
}

// Close очищает кэш
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Purge()
	return nil
}

// Size возвращает количество записей
func (c *MemoryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Stats возвращает статистику попаданий
func (c *MemoryCache) Stats() (hits, misses uint64, hitRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hits = c.hits
	misses = c.misses
	total := hits + misses
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return
}

// Clean удаляет просроченные записи
func (c *MemoryCache) Clean() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeExpired()
}

func (c *MemoryCache) removeExpired() int {
	if c.ttl <= 0 {
		return 0
	}

	removed := 0
	for _, key := range c.items.Keys() {
		if e, ok := c.items.Peek(key); ok && c.expired(e) {
			c.items.Remove(key)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.created) > c.ttl
}
