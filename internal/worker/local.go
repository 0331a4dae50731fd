// Package worker computes best trades over candidate pools, in process or
// through the off-chain routing API.
package worker

import (
	"context"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

// MaxHops bounds path enumeration.
const MaxHops = 2

// MinSplitPercent is the minimum percent allocation per route
const MinSplitPercent = 10

const maxQuotedPaths = 64

// Gas units per hop by protocol, plus a fixed overhead per trade.
const (
	baseGas    uint64 = 60_000
	defaultGas uint64 = 130_000
)

var gasPerHop = map[domain.Protocol]uint64{
	domain.ProtocolV2:       90_000,
	domain.ProtocolV3:       130_000,
	domain.ProtocolInfinity: 120_000,
	domain.ProtocolStable:   150_000,
}

// Request is the input of a best-trade computation. Amount is of Input for
// exact input trades and of Output for exact output trades.
type Request struct {
	TradeType domain.TradeType
	Input     domain.Currency
	Output    domain.Currency
	Amount    *uint256.Int
	Pools     []*domain.Pool
	MaxHops   int
	MaxSplits int
	// GasPriceInOutput prices one gas unit in output currency units; nil
	// leaves Trade.GasCost unset.
	GasPriceInOutput *uint256.Int
}

func (r Request) exactIn() bool {
	return r.TradeType == domain.ExactInput
}

// Local is the in-process worker.
type Local struct {
	Quoter *QuoterRegistry
}

func NewLocal(quoter *QuoterRegistry) *Local {
	if quoter == nil {
		quoter = NewDefaultQuoterRegistry()
	}
	return &Local{Quoter: quoter}
}

type path struct {
	pools  []*domain.Pool
	tokens []domain.Currency // len(pools)+1
}

type pathQuote struct {
	path      path
	hops      []domain.HopQuote
	amountIn  *uint256.Int
	amountOut *uint256.Int
	impact    uint16
}

// GetBestTrade enumerates direct and two-hop paths over req.Pools, quotes
// them in parallel and returns the best single route, or a two-way split when
// MaxSplits allows and it beats the single route.
func (l *Local) GetBestTrade(ctx context.Context, req Request) (*domain.Trade, error) {
	if req.Amount == nil || req.Amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}
	in, out := common.Wrapped(req.Input), common.Wrapped(req.Output)
	if in.Equal(out) {
		return nil, domain.ErrNoValidRoute
	}
	maxHops := req.MaxHops
	if maxHops <= 0 || maxHops > MaxHops {
		maxHops = MaxHops
	}

	paths := findPaths(req.Pools, in, out, maxHops)
	if len(paths) == 0 {
		return nil, domain.ErrNoPoolFound
	}
	if len(paths) > maxQuotedPaths {
		paths = paths[:maxQuotedPaths]
	}

	quotes := l.quotePaths(ctx, paths, req.Amount, req.exactIn())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, domain.ErrNoLiquidity
	}
	sortQuotes(quotes, req.exactIn())
	best := quotes[0]
	trade := l.tradeFromQuotes(req, []pathQuote{best}, []uint8{100})

	if req.MaxSplits >= 2 && len(quotes) >= 2 {
		if second, ok := disjointRunnerUp(quotes); ok {
			if split := l.bestTwoWaySplit(ctx, req, best.path, second.path); split != nil && isBetterTrade(split, trade, req.exactIn()) {
				trade = split
			}
		}
	}
	return trade, nil
}

// findPaths lists pools that connect in and out directly, then in->mid->out
// pairs through any shared intermediate token.
func findPaths(pools []*domain.Pool, in, out domain.Currency, maxHops int) []path {
	var paths []path
	byToken := make(map[string][]*domain.Pool)
	for _, p := range pools {
		if p == nil {
			continue
		}
		byToken[p.Token0.Key()] = append(byToken[p.Token0.Key()], p)
		byToken[p.Token1.Key()] = append(byToken[p.Token1.Key()], p)
	}

	for _, p := range byToken[in.Key()] {
		if p.Involves(out) {
			paths = append(paths, path{pools: []*domain.Pool{p}, tokens: []domain.Currency{in, out}})
		}
	}
	if maxHops < 2 {
		return paths
	}

	for _, first := range byToken[in.Key()] {
		mid := first.Other(in)
		if mid.Equal(out) {
			continue
		}
		for _, second := range byToken[mid.Key()] {
			if second == first || !second.Involves(out) || second.Involves(in) {
				continue
			}
			paths = append(paths, path{pools: []*domain.Pool{first, second}, tokens: []domain.Currency{in, mid, out}})
		}
	}
	return paths
}

func (l *Local) quotePaths(ctx context.Context, paths []path, amount *uint256.Int, exactIn bool) []pathQuote {
	results := make([]*pathQuote, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(idx int, p path) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if q, err := l.quotePath(p, amount, exactIn); err == nil {
				results[idx] = q
			}
		}(i, p)
	}
	wg.Wait()

	out := make([]pathQuote, 0, len(paths))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// quotePath walks forward for exact input and backward for exact output.
func (l *Local) quotePath(p path, amount *uint256.Int, exactIn bool) (*pathQuote, error) {
	hops := make([]domain.HopQuote, len(p.pools))
	cur := amount
	impact := 0

	for step := 0; step < len(p.pools); step++ {
		i := step
		if !exactIn {
			i = len(p.pools) - 1 - step
		}
		pool := p.pools[i]
		tokenIn, tokenOut := p.tokens[i], p.tokens[i+1]
		q, err := l.Quoter.GetQuote(pool, cur, pool.ZeroForOne(tokenIn), exactIn)
		if err != nil {
			return nil, err
		}
		hops[i] = domain.HopQuote{
			Pool:           pool,
			Input:          tokenIn,
			Output:         tokenOut,
			AmountIn:       q.AmountIn,
			AmountOut:      q.AmountOut,
			FeeAmount:      q.Fee,
			PriceImpactBps: q.PriceImpactBps,
		}
		impact += int(q.PriceImpactBps)
		if exactIn {
			cur = q.AmountOut
		} else {
			cur = q.AmountIn
		}
	}

	return &pathQuote{
		path:      p,
		hops:      hops,
		amountIn:  hops[0].AmountIn,
		amountOut: hops[len(hops)-1].AmountOut,
		impact:    uint16(min(impact, domain.BpsDenominator)),
	}, nil
}

func sortQuotes(quotes []pathQuote, exactIn bool) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if exactIn {
			return quotes[i].amountOut.Cmp(quotes[j].amountOut) > 0
		}
		return quotes[i].amountIn.Cmp(quotes[j].amountIn) < 0
	})
}

// disjointRunnerUp returns the best quote after quotes[0] that shares no pool
// with it.
func disjointRunnerUp(quotes []pathQuote) (pathQuote, bool) {
	used := make(map[string]struct{})
	for _, p := range quotes[0].path.pools {
		used[p.Key()] = struct{}{}
	}
	for _, q := range quotes[1:] {
		shared := false
		for _, p := range q.path.pools {
			if _, ok := used[p.Key()]; ok {
				shared = true
				break
			}
		}
		if !shared {
			return q, true
		}
	}
	return pathQuote{}, false
}

// bestTwoWaySplit scans allocations from 10% to 90% in 10% steps.
func (l *Local) bestTwoWaySplit(ctx context.Context, req Request, a, b path) *domain.Trade {
	var best *domain.Trade
	for p := uint8(MinSplitPercent); p <= 100-MinSplitPercent; p += 10 {
		if ctx.Err() != nil {
			return best
		}
		qa, errA := l.quotePath(a, percentOf(req.Amount, p), req.exactIn())
		qb, errB := l.quotePath(b, new(uint256.Int).Sub(req.Amount, percentOf(req.Amount, p)), req.exactIn())
		if errA != nil || errB != nil {
			continue
		}
		t := l.tradeFromQuotes(req, []pathQuote{*qa, *qb}, []uint8{p, 100 - p})
		if isBetterTrade(t, best, req.exactIn()) {
			best = t
		}
	}
	return best
}

func isBetterTrade(candidate, best *domain.Trade, exactIn bool) bool {
	if best == nil {
		return true
	}
	if candidate == nil {
		return false
	}
	if exactIn {
		return candidate.OutputAmount.Cmp(best.OutputAmount) > 0
	}
	return candidate.InputAmount.Cmp(best.InputAmount) < 0
}

func (l *Local) tradeFromQuotes(req Request, quotes []pathQuote, percents []uint8) *domain.Trade {
	totalIn, totalOut := new(uint256.Int), new(uint256.Int)
	routes := make([]domain.Route, len(quotes))
	weighted := 0
	gas := baseGas
	for i, q := range quotes {
		routes[i] = domain.Route{Hops: q.hops, Percent: percents[i], AmountIn: q.amountIn, AmountOut: q.amountOut}
		totalIn.Add(totalIn, q.amountIn)
		totalOut.Add(totalOut, q.amountOut)
		weighted += int(q.impact) * int(percents[i])
		for _, h := range q.hops {
			if g, ok := gasPerHop[h.Pool.Protocol]; ok {
				gas += g
			} else {
				gas += defaultGas
			}
		}
	}

	t := &domain.Trade{
		TradeType:      req.TradeType,
		Input:          req.Input,
		Output:         req.Output,
		InputAmount:    totalIn,
		OutputAmount:   totalOut,
		Routes:         routes,
		PriceImpactBps: uint16(weighted / 100),
	}
	if req.GasPriceInOutput != nil {
		t.GasCost = new(uint256.Int).Mul(req.GasPriceInOutput, uint256.NewInt(gas))
	}
	return t
}
