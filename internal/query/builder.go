// Package query builds fingerprinted, memoized quote queries.
package query

import (
	"time"

	"github.com/hxuan190/quote-engine/internal/cache"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/fingerprint"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

// Builder memoizes queries by fingerprint. Equal requests return the same
// *domain.QuoteQuery so callers can compare by pointer.
type Builder struct {
	cache  *cache.BoundedLRU[string, *domain.QuoteQuery]
	window time.Duration
	now    func() time.Time
}

func NewBuilder(size int, placeholderWindow time.Duration) *Builder {
	return &Builder{
		cache:  cache.NewBoundedLRU[string, *domain.QuoteQuery](size),
		window: placeholderWindow,
		now:    time.Now,
	}
}

// Build returns the cached descriptor for the fingerprint of p, or stamps and
// stores a copy of p. Hash, PlaceholderHash and CreateTime in p are ignored.
func (b *Builder) Build(p domain.QuoteQuery) *domain.QuoteQuery {
	hash := fingerprint.Query(&p)
	q, hit := b.cache.GetOrSet(hash, func() *domain.QuoteQuery {
		return b.stamp(p, hash)
	})
	if hit {
		metrics.QueryCacheHits.Inc()
	} else {
		metrics.QueryCacheMisses.Inc()
	}
	return q
}

func (b *Builder) stamp(p domain.QuoteQuery, hash string) *domain.QuoteQuery {
	q := p
	if p.Input != nil {
		in := *p.Input
		q.Input = &in
	}
	if p.Output != nil {
		out := *p.Output
		q.Output = &out
	}
	if p.Amount != nil {
		q.Amount = p.Amount.Clone()
	}
	q.Hash = hash
	q.CreateTime = b.now()
	q.PlaceholderHash = fingerprint.Placeholder(&q, q.CreateTime, b.window)
	return &q
}

// Lookup returns a previously built query by fingerprint.
func (b *Builder) Lookup(hash string) (*domain.QuoteQuery, bool) {
	return b.cache.Get(hash)
}

func (b *Builder) Len() int {
	return b.cache.Len()
}
