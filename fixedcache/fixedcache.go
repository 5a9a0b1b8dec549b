// Package fixedcache provides a fixed-capacity key/value store with
// insertion-order eviction. Unlike an LRU, reads do not affect eviction
// order: once the cache is full, every insert of a new key overwrites the
// oldest-inserted entry still present. Staleness of values is the caller's
// responsibility; there is no time-based expiry.
//
// All stateful moderation detectors store their per-key state here so that
// memory stays bounded regardless of guild or user cardinality.
package fixedcache

import (
	"fmt"
	"sync"
)

type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	values   map[string]V
	// ring of keys in insertion order; next points at the slot that will be
	// reclaimed by the next insert of a new key
	keys []string
	next int
}

func New[V any](capacity int) *Cache[V] {
	if capacity < 1 {
		panic(fmt.Sprintf("invalid cache capacity: %d", capacity))
	}
	return &Cache[V]{
		capacity: capacity,
		values:   make(map[string]V, capacity),
		keys:     make([]string, capacity),
	}
}

// Put inserts or replaces the value for key. Replacing an existing key does
// not change its position in the eviction order. Inserting a new key into a
// full cache evicts the oldest-inserted entry.
func (c *Cache[V]) Put(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.values[key]; ok {
		c.values[key] = val
		return
	}
	if old := c.keys[c.next]; old != "" {
		delete(c.values, old)
	}
	c.keys[c.next] = key
	c.values[key] = val
	c.next = (c.next + 1) % c.capacity
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *Cache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

// Remove deletes the entry for key, returning the removed value if it was
// present. The key's ring slot is cleared so a later re-insert of the same
// key cannot be evicted through the stale slot.
func (c *Cache[V]) Remove(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return v, false
	}
	delete(c.values, key)
	for i, k := range c.keys {
		if k == key {
			c.keys[i] = ""
			break
		}
	}
	return v, true
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

func (c *Cache[V]) Capacity() int {
	return c.capacity
}
