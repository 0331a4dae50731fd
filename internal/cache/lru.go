// Package cache holds the bounded in-memory stores owned by the quote engine.
package cache

import (
	"container/list"
	"sync"
)

// BoundedLRU is a thread-safe bounded LRU cache with generic key-value types.
// Set is last-write-wins.
type BoundedLRU[K comparable, V any] struct {
	mu      sync.Mutex
	cache   map[K]*list.Element
	lru     *list.List
	maxSize int
	onEvict func(K, V)
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func NewBoundedLRU[K comparable, V any](maxSize int) *BoundedLRU[K, V] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &BoundedLRU[K, V]{
		cache:   make(map[K]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// OnEvict registers a callback run under the cache lock for every eviction.
func (c *BoundedLRU[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get returns the value and promotes it to most recently used.
func (c *BoundedLRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*lruEntry[K, V]).value, true
}

// GetOrSet returns the existing value for key, or stores and returns the one
// built by mk. mk runs under the lock and must not call back into the cache.
func (c *BoundedLRU[K, V]) GetOrSet(key K, mk func() V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*lruEntry[K, V]).value, true
	}
	v := mk()
	c.insert(key, v)
	return v, false
}

func (c *BoundedLRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*lruEntry[K, V]).value = value
		return
	}
	c.insert(key, value)
}

// must be called with mu held
func (c *BoundedLRU[K, V]) insert(key K, value V) {
	for len(c.cache) >= c.maxSize {
		c.evictLRU()
	}
	elem := c.lru.PushFront(&lruEntry[K, V]{key: key, value: value})
	c.cache[key] = elem
}

// must be called with mu held
func (c *BoundedLRU[K, V]) evictLRU() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*lruEntry[K, V])
	c.lru.Remove(back)
	delete(c.cache, entry.key)
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}

func (c *BoundedLRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.Remove(elem)
		delete(c.cache, key)
	}
}

func (c *BoundedLRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

func (c *BoundedLRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[K]*list.Element, c.maxSize)
	c.lru.Init()
}
