// Package cache is a bounded, thread-safe LRU over compiled-query results,
// keyed by a fingerprint hash of everything that can change a query's
// compiled SQL: the source text, the target dialect, the optimization
// level, the backend id, and the requesting user (so one user's cached
// row never leaks into another's lookup).
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Fingerprint computes the cache key for a query's full execution
// context. Changing any input changes the key, matching the original
// engine's cache-key composition (query text plus every parameter that
// affects its compiled output).
func Fingerprint(query, dialect, optimizationLevel, backendID, userID string) string {
	h := sha256.New()
	for _, part := range []string{query, dialect, optimizationLevel, backendID, userID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Stats reports cumulative cache activity.
type Stats struct {
	Size      int
	MaxSize   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns Hits / (Hits+Misses), or 0 if nothing has been looked up
// yet (matching the original's hits / max(total, 1)).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	key   string
	value any
}

// Cache is a fixed-capacity least-recently-used cache. All methods are
// safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recently used

	hits      int64
	misses    int64
	evictions int64
}

// New constructs a Cache holding at most maxSize entries. maxSize <= 0 is
// treated as 1000, the original engine's default.
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Cache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached value for key and whether it was present,
// promoting it to most-recently-used on a hit.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return el.Value.(*entry).value, true
}

// Put inserts or updates key, evicting the least-recently-used entry if
// the cache is over capacity.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: key, value: value})
	c.items[key] = el

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
			c.evictions++
		}
	}
}

// Clear empties the cache without resetting its hit/miss/eviction stats.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns a snapshot of the cache's current size and cumulative
// activity counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:      c.order.Len(),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
