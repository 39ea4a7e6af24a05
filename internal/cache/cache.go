// Package cache provides a generic bounded cache with write-based TTL
// expiry and least-recently-used eviction. The orchestrator runs two
// independently configured instances: one for search result lists keyed
// by normalized query, one for fetched page content keyed by URL.
//
// Expiry is lazy — entries are checked on read, there is no background
// sweep. Eviction happens on insert when the cache is at capacity.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// entry is one cached key/value pair with its expiry deadline.
type entry[K comparable, V any] struct {
	key        K
	value      V
	insertedAt time.Time
	expiresAt  time.Time
}

// Cache is a bounded TTL+LRU cache. All methods are safe for
// concurrent use. The TTL is measured from insertion, not last access.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = most recently used

	now func() time.Time // injectable for expiry boundary tests
}

// New creates a cache holding at most capacity entries, each expiring
// ttl after insertion.
func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:      ttl,
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached value for key. An entry past its expiry
// deadline is removed and reported as missing. A hit refreshes the
// entry's LRU position but never its TTL.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}

	ent := elem.Value.(*entry[K, V])
	if c.now().After(ent.expiresAt) {
		c.removeLocked(elem, ent.key)
		var zero V
		return zero, false
	}

	c.order.MoveToFront(elem)
	return ent.value, true
}

// Put inserts or replaces the value for key, restarting its TTL. When
// insertion would exceed capacity, the least-recently-used entry is
// evicted first.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.insertedAt = now
		ent.expiresAt = now.Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.removeLocked(oldest, oldest.Value.(*entry[K, V]).key)
		}
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{
		key:        key,
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(c.ttl),
	})
}

// Len returns the number of entries currently held, including any that
// have expired but not yet been read.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

func (c *Cache[K, V]) removeLocked(elem *list.Element, key K) {
	c.order.Remove(elem)
	delete(c.items, key)
}
