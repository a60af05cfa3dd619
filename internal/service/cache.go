package service

import (
	"sync"
	"time"
)

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a small thread-safe key/value store with a fixed TTL.
type Cache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	ttl   time.Duration
	now   func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{items: map[string]cacheItem{}, ttl: ttl, now: time.Now}
}

func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.items[key] = cacheItem{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

func (c *Cache) Flush() {
	c.mu.Lock()
	c.items = map[string]cacheItem{}
	c.mu.Unlock()
}

// DeleteExpired drops stale entries and reports how many were removed.
func (c *Cache) DeleteExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}
