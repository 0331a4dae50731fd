package crosschain

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// BridgeQuoteFunc quotes one bridge transfer. commands are post-bridge steps
// the bridge must execute on the destination chain.
type BridgeQuoteFunc func(ctx context.Context, in, out domain.Currency, amount *uint256.Int, commands []domain.Command) (*domain.BridgeQuote, error)

// SwapQuoteFunc quotes an exact input swap on in's chain.
type SwapQuoteFunc func(ctx context.Context, in, out domain.Currency, amount *uint256.Int) (*domain.Trade, error)

// QuoteContext carries everything a pattern needs. It is built only from a
// resolved route lookup.
type QuoteContext struct {
	Routes      []domain.BridgeRoute
	SlippageBps uint32
	Amount      *uint256.Int
	Base        domain.Currency
	Quote       domain.Currency
	Tokens      TokenMap

	GetBridgeQuote BridgeQuoteFunc
	GetSwapQuote   SwapQuoteFunc
}

// NewQuoteContext fails with "No available routes" when routes is empty.
func NewQuoteContext(routes []domain.BridgeRoute, q *domain.QuoteQuery, tokens TokenMap, bridge BridgeQuoteFunc, swap SwapQuoteFunc) (*QuoteContext, error) {
	if !q.Complete() {
		return nil, domain.ErrIncompleteTask
	}
	if !q.IsCrossChain() {
		return nil, domain.NewBridgeTradeError("Input and output are on the same chain")
	}
	if q.TradeType != domain.ExactInput {
		return nil, domain.NewBridgeTradeError("Cross-chain quotes are exact input only")
	}
	if len(routes) == 0 {
		return nil, domain.NewBridgeTradeError("No available routes")
	}
	return &QuoteContext{
		Routes:         routes,
		SlippageBps:    q.SlippageBps,
		Amount:         q.Amount,
		Base:           *q.Input,
		Quote:          *q.Output,
		Tokens:         tokens.With(*q.Input, *q.Output),
		GetBridgeQuote: bridge,
		GetSwapQuote:   swap,
	}, nil
}

func (qc *QuoteContext) resolve(chainID domain.ChainID, addr string) (domain.Currency, error) {
	c, ok := qc.Tokens.Lookup(chainID, addr)
	if !ok {
		return domain.Currency{}, domain.NewBridgeTradeError("Missing token mapping for " + addr + " on chain " + chainID.String())
	}
	return c, nil
}

// originRoutes lists routes that start at base.
func (qc *QuoteContext) originRoutes() []domain.BridgeRoute {
	var out []domain.BridgeRoute
	for _, r := range qc.Routes {
		if matches(qc.Base, r.OriginChainID, r.OriginToken) {
			out = append(out, r)
		}
	}
	return out
}

// destinationRoutes lists routes that end at quote.
func (qc *QuoteContext) destinationRoutes() []domain.BridgeRoute {
	var out []domain.BridgeRoute
	for _, r := range qc.Routes {
		if matches(qc.Quote, r.DestinationChainID, r.DestinationToken) {
			out = append(out, r)
		}
	}
	return out
}
