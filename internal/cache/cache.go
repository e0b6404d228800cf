package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is an in-memory TTL cache. Expired entries are dropped on read and by
// a background sweep until Stop is called.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]item[V]
	ttl   time.Duration
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache whose entries live for ttl and sweeps every interval.
// interval <= 0 disables the sweep.
func New[V any](ttl, interval time.Duration) *Cache[V] {
	c := &Cache[V]{
		items: make(map[string]item[V]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if interval > 0 {
		go c.cleanupLoop(interval)
	}

	return c
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}

	if c.now().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return zero, false
	}

	return it.value, true
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the background sweep. Safe to call more than once.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Key hashes its parts into a stable cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
		}
	}
}
