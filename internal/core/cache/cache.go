// Package cache provides the bounded response cache shared by the blocking and
// cooperative request paths.
//
// Entries are evicted strictly in insertion order. Reading an entry never
// refreshes its age, so the first key put is always the first key evicted.
package cache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
)

// DefaultSize is used when a non-positive capacity is requested.
const DefaultSize = 256

// ErrNotCached is matched by every KeyError.
var ErrNotCached = errors.New("not found in cache")

// KeyError reports a direct accessor call for a key that is not cached.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("'%s' not found in cache.", e.Key)
}

// Is lets errors.Is(err, ErrNotCached) match any KeyError.
func (e *KeyError) Is(target error) bool {
	return target == ErrNotCached
}

type entry struct {
	key   string
	value any
}

// Cache is a fixed-capacity FIFO mapping from endpoint path to decoded body.
type Cache struct {
	mu       sync.RWMutex
	enabled  bool
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = oldest insertion
	stats    Stats
}

// New creates a cache. When enabled is false every Get misses and Put is a
// no-op, but the cache can still be inspected.
func New(capacity int, enabled bool) *Cache {
	if capacity <= 0 {
		capacity = DefaultSize
	}
	return &Cache{
		enabled:  enabled,
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	if c == nil {
		return false
	}
	return c.enabled
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int {
	if c == nil {
		return 0
	}
	return c.capacity
}

// Get returns the cached value for key.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil || !c.enabled {
		c.recordMiss()
		return nil, false
	}

	c.mu.RLock()
	elem, ok := c.items[key]
	var value any
	if ok {
		value = elem.Value.(*entry).value
	}
	c.mu.RUnlock()

	if !ok {
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return value, true
}

// Put stores value under key, evicting the oldest insertion when full.
// Overwriting an existing key keeps its original insertion position.
func (c *Cache) Put(key string, value any) {
	if c == nil || !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry).value = value
		return
	}

	for c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	c.items[key] = c.order.PushBack(&entry{key: key, value: value})
}

// Contains reports whether key is cached. A disabled cache contains nothing.
func (c *Cache) Contains(key string) bool {
	if c == nil || !c.enabled {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[key]
	return ok
}

// Remove deletes key and reports whether it was present.
func (c *Cache) Remove(key string) bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, key)
	return true
}

// Lookup is Get with the error-on-missing contract of the item accessors.
func (c *Cache) Lookup(key string) (any, error) {
	value, ok := c.Get(key)
	if !ok {
		return nil, &KeyError{Key: key}
	}
	return value, nil
}

// Delete is Remove with the error-on-missing contract of the item accessors.
func (c *Cache) Delete(key string) error {
	if !c.Remove(key) {
		return &KeyError{Key: key}
	}
	return nil
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	if c == nil {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Keys returns cached keys from oldest to newest insertion.
func (c *Cache) Keys() []string {
	if c == nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry).key)
	}
	return keys
}

// Clear drops every entry.
func (c *Cache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// caller holds c.mu
func (c *Cache) evictOldest() {
	elem := c.order.Front()
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
	c.stats.addEviction()
}
