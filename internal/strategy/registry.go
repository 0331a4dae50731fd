// Package strategy maps quote queries to prioritized quoting strategies.
package strategy

import (
	"context"
	"sort"
	"sync"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// Key names a registered strategy.
type Key string

const (
	KeySingleHopLight Key = "single-hop-light"
	KeyRoutingSDK     Key = "routing-sdk"
	KeyXAPI           Key = "x-api"
	KeyFullMultiHop   Key = "full-multi-hop"
)

// Strategy produces one quote for a same-chain query. A nil order with a nil
// error means the strategy does not apply to the query.
type Strategy interface {
	Key() Key
	Quote(ctx context.Context, q *domain.QuoteQuery) (domain.Order, error)
}

// Func adapts a function to Strategy.
type Func struct {
	Name Key
	Fn   func(ctx context.Context, q *domain.QuoteQuery) (domain.Order, error)
}

func (f Func) Key() Key { return f.Name }

func (f Func) Quote(ctx context.Context, q *domain.QuoteQuery) (domain.Order, error) {
	return f.Fn(ctx, q)
}

// DefaultRoutes apply when no token override matches.
var DefaultRoutes = []Route{
	{Key: KeySingleHopLight, Priority: 1},
	{Key: KeyRoutingSDK, Priority: 1},
	{Key: KeyXAPI, Priority: 1},
	{Key: KeyFullMultiHop, Priority: 2},
}

type Registry struct {
	mu         sync.RWMutex
	strategies map[Key]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[Key]Strategy)}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Key()] = s
}

func (r *Registry) Get(key Key) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[key]
	return s, ok
}

// Bound is a resolved route: the strategy plus its tier settings.
type Bound struct {
	Strategy  Strategy
	Priority  int
	IsShadow  bool
	overrides overrides
}

func (b Bound) Key() Key { return b.Strategy.Key() }

// Query applies the route overrides to q.
func (b Bound) Query(q *domain.QuoteQuery) *domain.QuoteQuery {
	if b.overrides.empty() {
		return q
	}
	cp := q.With(b.overrides.apply)
	return &cp
}

// Resolver turns a query into bound strategies ordered by priority.
type Resolver struct {
	registry *Registry
	loader   *ConfigLoader
}

func NewResolver(registry *Registry, loader *ConfigLoader) *Resolver {
	if loader == nil {
		loader = NewStaticConfigLoader(nil)
	}
	return &Resolver{registry: registry, loader: loader}
}

// Resolve looks up token overrides for either side of the pair and falls back
// to DefaultRoutes. An unknown strategy key or override is a
// *domain.MisconfigurationError.
func (r *Resolver) Resolve(ctx context.Context, q *domain.QuoteQuery) ([]Bound, error) {
	routes := DefaultRoutes
	if q.Input != nil && q.Output != nil {
		if found, ok := r.loader.Load(ctx).Lookup(*q.Input, *q.Output); ok {
			routes = found
		}
	}

	bound := make([]Bound, 0, len(routes))
	for _, route := range routes {
		s, ok := r.registry.Get(route.Key)
		if !ok {
			return nil, domain.Misconfigured("unknown strategy key %q", route.Key)
		}
		ov, err := parseOverrides(route.Override)
		if err != nil {
			return nil, err
		}
		bound = append(bound, Bound{Strategy: s, Priority: route.Priority, IsShadow: route.IsShadow, overrides: ov})
	}
	sort.SliceStable(bound, func(i, j int) bool { return bound[i].Priority < bound[j].Priority })
	return bound, nil
}

// Tiers groups priority-sorted routes into tiers.
func Tiers(bound []Bound) [][]Bound {
	var tiers [][]Bound
	for i, b := range bound {
		if i == 0 || b.Priority != bound[i-1].Priority {
			tiers = append(tiers, nil)
		}
		tiers[len(tiers)-1] = append(tiers[len(tiers)-1], b)
	}
	return tiers
}
