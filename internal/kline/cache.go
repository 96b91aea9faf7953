// Package kline caches daily K-line windows fetched from the market-data
// client, keyed by symbol and requested window size.
package kline

import (
	"fmt"
	"sync"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
)

type entry struct {
	bars      []domain.KlineBar
	fetchedAt time.Time
}

// Cache is a TTL+LRU in-memory cache over (symbol, limit) K-line windows.
// Entries older than ttl are treated as misses; once the cache is at
// capacity, the single oldest entry is evicted to make room for a new
// key, mirroring a plain least-recently-fetched eviction rather than a
// full LRU list.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
}

// New creates a cache with the given TTL and maximum entry count.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

func cacheKey(symbol string, limit int) string {
	return fmt.Sprintf("%s_%d", symbol, limit)
}

// Get returns a cached window if present and not expired.
func (c *Cache) Get(symbol string, limit int) ([]domain.KlineBar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(symbol, limit)
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.bars, true
}

// Put stores a freshly-fetched window, evicting the oldest entry first
// if the cache is full and the key isn't already present.
func (c *Cache) Put(symbol string, limit int, bars []domain.KlineBar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(symbol, limit)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = entry{bars: bars, fetchedAt: time.Now()}
}

func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.fetchedAt.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.fetchedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len reports how many entries are currently cached, regardless of
// whether they've expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
