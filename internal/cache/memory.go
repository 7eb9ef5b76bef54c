package cache

import (
	"context"
	"sync"
	"time"
)

const defaultTTL = 7 * 24 * time.Hour

type memoryItem struct {
	value    []byte
	expireAt time.Time
	lastUsed uint64
}

// MemoryCache is an in-process Cache with TTL expiry and least-recently-used
// eviction once MaxSize entries are held. Expiry is judged against an
// injectable clock so tests can move time forward.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]*memoryItem
	maxSize int
	now     func() time.Time
	tick    uint64
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMaxSize caps the number of entries.
func WithMaxSize(n int) MemoryOption {
	return func(c *MemoryCache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates an empty cache holding up to 1000 entries by default.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		data:    make(map[string]*memoryItem),
		maxSize: 1000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !c.now().Before(item.expireAt) {
		delete(c.data, key)
		return nil, ErrCacheMiss
	}
	c.tick++
	item.lastUsed = c.tick
	return item.value, nil
}

// Set stores value for ttl. A non-positive ttl falls back to seven days.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = defaultTTL
	}
	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.purgeLocked()
		if len(c.data) >= c.maxSize {
			c.evictLRU()
		}
	}
	c.tick++
	c.data[key] = &memoryItem{
		value:    append([]byte(nil), value...),
		expireAt: c.now().Add(ttl),
		lastUsed: c.tick,
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// Purge drops every expired entry and returns how many were removed.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked()
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *MemoryCache) purgeLocked() int {
	now := c.now()
	n := 0
	for k, item := range c.data {
		if !now.Before(item.expireAt) {
			delete(c.data, k)
			n++
		}
	}
	return n
}

func (c *MemoryCache) evictLRU() {
	var oldestKey string
	var oldest uint64
	for k, item := range c.data {
		if oldestKey == "" || item.lastUsed < oldest {
			oldestKey, oldest = k, item.lastUsed
		}
	}
	if oldestKey != "" {
		delete(c.data, oldestKey)
	}
}
