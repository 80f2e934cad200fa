package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailybelle/sizeadvisor/internal/domain"
)

const defaultCleanupInterval = 10 * time.Minute

// cacheItem represents a single item in the cache with expiration.
// A zero Expiration never expires.
type cacheItem struct {
	Value      interface{}
	Expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.Expiration.IsZero() && now.After(i.Expiration)
}

// MemoryCache is a thread-safe in-memory cache with TTL support.
// Values are stored by reference; callers must treat them as immutable.
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64

	stop      chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithCleanup(defaultCleanupInterval)
}

// NewMemoryCacheWithCleanup creates a cache that sweeps expired entries every interval.
func NewMemoryCacheWithCleanup(interval time.Duration) *MemoryCache {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	cache := &MemoryCache{
		data: make(map[string]cacheItem),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go cache.cleanupExpired(interval)

	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists || item.expired(time.Now()) {
		c.misses.Add(1)
		return nil, domain.ErrCacheMiss
	}

	c.hits.Add(1)
	return item.Value, nil
}

// Set stores a value in the cache. ttl <= 0 keeps the value for the process lifetime.
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item := cacheItem{Value: value}
	if ttl > 0 {
		item.Expiration = time.Now().Add(ttl)
	}
	c.data[key] = item

	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}

	return !item.expired(time.Now()), nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, item := range c.data {
				if item.expired(now) {
					delete(c.data, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}

// Close stops the cleanup goroutine. The cache stays readable afterwards.
func (c *MemoryCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}

// Stats returns the number of Get hits and misses since creation
func (c *MemoryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
