package pools

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hxuan190/quote-engine/internal/cache"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

// Cached memoizes a Fetcher per CacheKey with a chain-dependent TTL.
// Concurrent misses of one key share a single upstream fetch, cancelled once
// every caller waiting on it has gone. Errors are not cached.
type Cached struct {
	next   Fetcher
	ttlFor func(domain.ChainID) time.Duration
	store  *cache.TTL[[]*domain.Pool]
	group  singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the shared fetch of one key and the number of callers on it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func NewCached(next Fetcher, ttlFor func(domain.ChainID) time.Duration) *Cached {
	return &Cached{
		next:    next,
		ttlFor:  ttlFor,
		store:   cache.NewTTL[[]*domain.Pool](30 * time.Second),
		flights: make(map[string]*flight),
	}
}

func (c *Cached) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops one caller. The last one out cancels the upstream fetch and
// forgets the key so a later miss starts afresh.
func (c *Cached) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
		c.group.Forget(key)
	}
}

func (c *Cached) Fetch(ctx context.Context, a, b domain.Currency, chainID domain.ChainID, blockNumber uint64, opts Options) ([]*domain.Pool, error) {
	key := CacheKey(a, b, chainID, opts)
	if pools, ok := c.store.Get(key); ok {
		metrics.PoolCacheHits.Inc()
		return pools, nil
	}
	metrics.PoolCacheMisses.Inc()

	f := c.join(ctx, key)
	defer c.leave(key, f)
	ch := c.group.DoChan(key, func() (any, error) {
		pools, err := c.next.Fetch(f.ctx, a, b, chainID, blockNumber, opts)
		if err != nil {
			return nil, err
		}
		c.store.Set(key, pools, c.ttlFor(chainID))
		metrics.PoolsFetched.Observe(float64(len(pools)))
		return pools, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*domain.Pool), nil
	}
}

func (c *Cached) Stop() {
	c.store.Stop()
}
