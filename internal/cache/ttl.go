package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const ttlShards = 16

type ttlEntry[V any] struct {
	value  V
	expiry int64 // unix nano
}

type ttlShard[V any] struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
}

// TTL is a sharded expiring cache keyed by string. Each entry carries its own
// TTL; a background loop drops expired entries until Stop is called.
type TTL[V any] struct {
	shards   [ttlShards]ttlShard[V]
	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewTTL[V any](sweep time.Duration) *TTL[V] {
	c := &TTL[V]{
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]ttlEntry[V])
	}
	if sweep > 0 {
		go c.cleanupLoop(sweep)
	}
	return c
}

func (c *TTL[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *TTL[V]) shard(key string) *ttlShard[V] {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return &c.shards[h.Sum64()%ttlShards]
}

func (c *TTL[V]) Get(key string) (V, bool) {
	s := c.shard(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || c.now().UnixNano() > e.expiry {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	s := c.shard(key)
	s.mu.Lock()
	s.entries[key] = ttlEntry[V]{value: value, expiry: c.now().Add(ttl).UnixNano()}
	s.mu.Unlock()
}

func (c *TTL[V]) Len() int {
	total := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

func (c *TTL[V]) evictExpired() {
	now := c.now().UnixNano()
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for k, e := range s.entries {
			if now > e.expiry {
				delete(s.entries, k)
			}
		}
		s.mu.Unlock()
	}
}

func (c *TTL[V]) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
