package crosschain

import (
	"context"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/bridge"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
	"github.com/hxuan190/quote-engine/internal/selector"
)

type RouteSource interface {
	Routes(ctx context.Context, origin, destination domain.ChainID, originToken, destinationToken string) ([]domain.BridgeRoute, error)
}

type BridgeQuoter interface {
	Metadata(ctx context.Context, req bridge.MetadataRequest) (*domain.BridgeQuote, error)
}

// SwapQuoter prices the swap legs of a cross-chain query.
type SwapQuoter interface {
	SwapQuote(ctx context.Context, parent *domain.QuoteQuery, in, out domain.Currency, amount *uint256.Int) (*domain.Trade, error)
}

// Quoter produces the best cross-chain order for a query.
type Quoter struct {
	routes RouteSource
	bridge BridgeQuoter
	swaps  SwapQuoter
	tokens TokenMap
}

func NewQuoter(routes RouteSource, bridge BridgeQuoter, swaps SwapQuoter, tokens TokenMap) *Quoter {
	if tokens == nil {
		tokens = DefaultTokenMap()
	}
	return &Quoter{routes: routes, bridge: bridge, swaps: swaps, tokens: tokens}
}

func (q *Quoter) Quote(ctx context.Context, query *domain.QuoteQuery) (*domain.BridgeOrder, error) {
	if !query.Complete() {
		return nil, domain.ErrIncompleteTask
	}
	routes, err := q.routes.Routes(ctx, query.Input.ChainID, query.Output.ChainID, "", "")
	if err != nil {
		return nil, err
	}
	qc, err := NewQuoteContext(routes, query, q.tokens, q.bridgeFunc(query), q.swapFunc(query))
	if err != nil {
		return nil, err
	}

	pattern := Classify(routes, qc.Base, qc.Quote)
	metrics.CrossChainPatterns.WithLabelValues(string(pattern)).Inc()
	start := time.Now()
	order, err := Patterns[pattern](ctx, qc)
	log.Debug().
		Str("hash", query.Hash).
		Str("pattern", string(pattern)).
		Dur("took", time.Since(start)).
		Err(err).
		Msg("[crosschain] pattern evaluated")
	return order, err
}

func (q *Quoter) bridgeFunc(query *domain.QuoteQuery) BridgeQuoteFunc {
	return func(ctx context.Context, in, out domain.Currency, amount *uint256.Int, commands []domain.Command) (*domain.BridgeQuote, error) {
		return q.bridge.Metadata(ctx, bridge.MetadataRequest{
			Input:     in,
			Output:    out,
			Amount:    amount,
			Recipient: query.Account,
			Commands:  commands,
		})
	}
}

func (q *Quoter) swapFunc(query *domain.QuoteQuery) SwapQuoteFunc {
	return func(ctx context.Context, in, out domain.Currency, amount *uint256.Int) (*domain.Trade, error) {
		return q.swaps.SwapQuote(ctx, query, in, out, amount)
	}
}

// SelectorSwaps prices swap legs with the same-chain selector. X quotes are
// disabled because their fills cannot be chained into a bridge.
type SelectorSwaps struct {
	Selector *selector.Selector
}

func (s SelectorSwaps) SwapQuote(ctx context.Context, parent *domain.QuoteQuery, in, out domain.Currency, amount *uint256.Int) (*domain.Trade, error) {
	sub := parent.With(func(q *domain.QuoteQuery) {
		q.Input, q.Output = &in, &out
		q.Amount = amount
		q.TradeType = domain.ExactInput
		q.X = false
		if parent.Output != nil && in.ChainID == parent.Output.ChainID {
			q.BlockNumber = parent.DestBlockNumber
		}
	})
	res, err := s.Selector.Select(ctx, &sub, nil)
	if err != nil {
		return nil, err
	}
	if res.IsFail() {
		return nil, res.Error()
	}
	if order, ok := res.Value(); ok && res.IsJust() {
		if t := domain.TradeOf(order); t != nil {
			return t, nil
		}
	}
	return nil, domain.ErrNoValidRoute
}
