// Package placeholder shows the last good order of a query while its
// revalidation is pending.
package placeholder

import (
	"github.com/hxuan190/quote-engine/internal/cache"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/loadable"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

type Result = loadable.Loadable[domain.Order]

// Overlay keys orders by placeholder hash, so a stored order is only reused
// by queries of the same time bucket.
type Overlay struct {
	orders *cache.BoundedLRU[string, domain.Order]
}

func New(size int) *Overlay {
	return &Overlay{orders: cache.NewBoundedLRU[string, domain.Order](size)}
}

// Apply records Just results and replaces a bare Pending by a Pending that
// carries the stored order, flagged as a placeholder.
func (o *Overlay) Apply(q *domain.QuoteQuery, res Result) Result {
	if q == nil || q.PlaceholderHash == "" {
		return res
	}
	switch {
	case res.IsJust():
		o.orders.Set(q.PlaceholderHash, res.Unwrap())
	case res.IsPending() && !res.HasValue():
		if order, ok := o.orders.Get(q.PlaceholderHash); ok {
			metrics.PlaceholderHits.Inc()
			return loadable.PendingOf(order).
				SetFlag(loadable.FlagPlaceholder).
				SetExtra(loadable.ExtraPlaceholderHash, q.PlaceholderHash)
		}
	}
	return res
}

// Forget drops the order stored for hash.
func (o *Overlay) Forget(hash string) {
	o.orders.Delete(hash)
}

func (o *Overlay) Len() int {
	return o.orders.Len()
}
