package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/pools"
	"github.com/hxuan190/quote-engine/internal/worker"
)

// TradeFinder is the in-process worker.
type TradeFinder interface {
	GetBestTrade(ctx context.Context, req worker.Request) (*domain.Trade, error)
}

// OffchainTradeFinder is the off-chain routing API.
type OffchainTradeFinder interface {
	GetBestTradeOffchain(ctx context.Context, req worker.Request) (*domain.Trade, error)
}

// XQuoter quotes on the external order-flow network.
type XQuoter interface {
	Quote(ctx context.Context, q *domain.QuoteQuery) (*domain.XOrder, error)
}

func request(q *domain.QuoteQuery, candidates []*domain.Pool) worker.Request {
	return worker.Request{
		TradeType: q.TradeType,
		Input:     *q.Input,
		Output:    *q.Output,
		Amount:    q.Amount,
		Pools:     candidates,
		MaxHops:   q.MaxHops,
		MaxSplits: q.MaxSplits,
	}
}

func classic(key Key, t *domain.Trade) domain.Order {
	t.Source = string(key)
	return &domain.ClassicOrder{Trade: t}
}

func fetchOptions(q *domain.QuoteQuery, mode domain.FetchMode) (pools.Options, bool) {
	protocols := q.Protocols()
	return pools.Options{Protocols: protocols, Mode: mode}, len(protocols) > 0
}

// singleHopLight checks the direct pair with a topology-only fetch before
// paying for full pool state, then quotes direct routes only.
type singleHopLight struct {
	pools  pools.Fetcher
	finder TradeFinder
}

func NewSingleHopLight(f pools.Fetcher, finder TradeFinder) Strategy {
	return &singleHopLight{pools: f, finder: finder}
}

func (s *singleHopLight) Key() Key { return KeySingleHopLight }

func (s *singleHopLight) Quote(ctx context.Context, q *domain.QuoteQuery) (domain.Order, error) {
	if !q.Complete() {
		return nil, domain.ErrIncompleteTask
	}
	opts, ok := fetchOptions(q, domain.ModeLight)
	if !ok {
		return nil, nil
	}
	light, err := s.pools.Fetch(ctx, *q.Input, *q.Output, q.ChainID(), q.BlockNumber, opts)
	if err != nil {
		return nil, err
	}
	if len(light) == 0 {
		return nil, domain.ErrNoPoolFound
	}

	opts.Mode = domain.ModeFull
	full, err := s.pools.Fetch(ctx, *q.Input, *q.Output, q.ChainID(), q.BlockNumber, opts)
	if err != nil {
		return nil, err
	}
	req := request(q, full)
	req.MaxHops, req.MaxSplits = 1, 1
	trade, err := s.finder.GetBestTrade(ctx, req)
	if err != nil {
		return nil, err
	}
	return classic(s.Key(), trade), nil
}

// fullMultiHop quotes over the expanded candidate pair set in process.
type fullMultiHop struct {
	pools  pools.Fetcher
	finder TradeFinder
}

func NewFullMultiHop(f pools.Fetcher, finder TradeFinder) Strategy {
	return &fullMultiHop{pools: f, finder: finder}
}

func (s *fullMultiHop) Key() Key { return KeyFullMultiHop }

func (s *fullMultiHop) Quote(ctx context.Context, q *domain.QuoteQuery) (domain.Order, error) {
	if !q.Complete() {
		return nil, domain.ErrIncompleteTask
	}
	opts, ok := fetchOptions(q, domain.ModeFull)
	if !ok {
		return nil, nil
	}
	candidates, err := pools.FetchCandidates(ctx, s.pools, *q.Input, *q.Output, q.BlockNumber, opts)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("pools", len(candidates)).Str("hash", q.Hash).Msg("[strategy] full multi-hop candidates")
	trade, err := s.finder.GetBestTrade(ctx, request(q, candidates))
	if err != nil {
		return nil, err
	}
	return classic(s.Key(), trade), nil
}

// routingSDK sends the candidate pools to the off-chain routing API.
type routingSDK struct {
	pools  pools.Fetcher
	finder OffchainTradeFinder
}

// NewRoutingSDK returns a strategy that never applies when finder is nil.
func NewRoutingSDK(f pools.Fetcher, finder OffchainTradeFinder) Strategy {
	return &routingSDK{pools: f, finder: finder}
}

func (s *routingSDK) Key() Key { return KeyRoutingSDK }

func (s *routingSDK) Quote(ctx context.Context, q *domain.QuoteQuery) (domain.Order, error) {
	if s.finder == nil {
		return nil, nil
	}
	if !q.Complete() {
		return nil, domain.ErrIncompleteTask
	}
	opts, ok := fetchOptions(q, domain.ModeFull)
	if !ok {
		return nil, nil
	}
	candidates, err := pools.FetchCandidates(ctx, s.pools, *q.Input, *q.Output, q.BlockNumber, opts)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoPoolFound
	}
	trade, err := s.finder.GetBestTradeOffchain(ctx, request(q, candidates))
	if err != nil {
		return nil, fmt.Errorf("routing api: %w", err)
	}
	return classic(s.Key(), trade), nil
}

// xAPI quotes through the order-flow network when the query enables it.
type xAPI struct {
	client XQuoter
}

func NewXAPI(client XQuoter) Strategy {
	return &xAPI{client: client}
}

func (s *xAPI) Key() Key { return KeyXAPI }

func (s *xAPI) Quote(ctx context.Context, q *domain.QuoteQuery) (domain.Order, error) {
	if s.client == nil || !q.X {
		return nil, nil
	}
	order, err := s.client.Quote(ctx, q)
	if err != nil {
		return nil, err
	}
	order.Trade.Source = string(s.Key())
	return order, nil
}
