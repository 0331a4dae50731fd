package crosschain

import (
	"context"
	"sync"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/selector"
)

// Pattern composes a cross-chain order for one classification.
type Pattern func(ctx context.Context, qc *QuoteContext) (*domain.BridgeOrder, error)

var Patterns = map[domain.PatternType]Pattern{
	domain.PatternBridgeOnly:         BridgeOnly,
	domain.PatternBridgeToSwap:       BridgeToSwap,
	domain.PatternSwapToBridge:       SwapToBridge,
	domain.PatternSwapToBridgeToSwap: SwapToBridgeToSwap,
}

func BridgeOnly(ctx context.Context, qc *QuoteContext) (*domain.BridgeOrder, error) {
	var direct *domain.BridgeRoute
	for _, r := range qc.originRoutes() {
		if matches(qc.Quote, r.DestinationChainID, r.DestinationToken) {
			direct = &r
			break
		}
	}
	if direct == nil {
		return nil, domain.NewBridgeTradeError("No direct bridge route")
	}
	bq, err := qc.GetBridgeQuote(ctx, qc.Base, qc.Quote, qc.Amount, nil)
	if err != nil {
		return nil, err
	}
	cmds := []domain.Command{domain.BridgeCommand(bq)}
	return finish(domain.PatternBridgeOnly, cmds, cmds, qc.SlippageBps)
}

func BridgeToSwap(ctx context.Context, qc *QuoteContext) (*domain.BridgeOrder, error) {
	routes := qc.originRoutes()
	if len(routes) == 0 {
		return nil, domain.NewBridgeTradeError("Input token is not bridgeable")
	}
	via, err := qc.resolve(routes[0].DestinationChainID, routes[0].DestinationToken)
	if err != nil {
		return nil, err
	}
	slip, noSlip, err := qc.twoTracks(ctx, qc.Base, via, qc.Amount, qc.Amount)
	if err != nil {
		return nil, err
	}
	return finish(domain.PatternBridgeToSwap, slip.commands(), noSlip.commands(), qc.SlippageBps)
}

func SwapToBridge(ctx context.Context, qc *QuoteContext) (*domain.BridgeOrder, error) {
	routes := qc.destinationRoutes()
	if len(routes) == 0 {
		return nil, domain.NewBridgeTradeError("Output token is not bridgeable")
	}
	via, err := qc.resolve(routes[0].OriginChainID, routes[0].OriginToken)
	if err != nil {
		return nil, err
	}
	swap, err := qc.GetSwapQuote(ctx, qc.Base, via, qc.Amount)
	if err != nil {
		return nil, err
	}

	var bqSlip, bqNoSlip *domain.BridgeQuote
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		bqNoSlip, err = qc.GetBridgeQuote(gctx, via, qc.Quote, swap.OutputAmount, nil)
		return err
	})
	g.Go(func() (err error) {
		bqSlip, err = qc.GetBridgeQuote(gctx, via, qc.Quote, domain.MinimumAmountOut(swap.OutputAmount, qc.SlippageBps), nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmds := []domain.Command{domain.SwapCommand(swap), domain.BridgeCommand(bqSlip)}
	noSlip := []domain.Command{domain.SwapCommand(swap), domain.BridgeCommand(bqNoSlip)}
	return finish(domain.PatternSwapToBridge, cmds, noSlip, qc.SlippageBps)
}

type candidate struct {
	origin domain.Currency
	dest   domain.Currency
	swap   *domain.Trade
	out    *uint256.Int
}

// SwapToBridgeToSwap tries every bridgeable origin token, estimates the
// destination swap for every lane out of it and keeps the lane with the
// greatest destination output.
func SwapToBridgeToSwap(ctx context.Context, qc *QuoteContext) (*domain.BridgeOrder, error) {
	origins := qc.originTokens()
	if len(origins) == 0 {
		return nil, domain.NewBridgeTradeError("No bridgeable origin token")
	}

	swaps := make([]*domain.Trade, len(origins))
	originErrs := make([]error, len(origins))
	g, gctx := errgroup.WithContext(ctx)
	for i, o := range origins {
		g.Go(func() error {
			t, err := qc.GetSwapQuote(gctx, qc.Base, o, qc.Amount)
			if selector.IsFatal(err) {
				return err
			}
			swaps[i], originErrs[i] = t, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		lanes    []candidate
		destErrs []error
	)
	dests, dctx := errgroup.WithContext(ctx)
	anyOrigin := false
	for i, o := range origins {
		if swaps[i] == nil {
			continue
		}
		anyOrigin = true
		for _, r := range qc.Routes {
			if !matches(o, r.OriginChainID, r.OriginToken) || r.DestinationChainID != qc.Quote.ChainID {
				continue
			}
			dest, ok := qc.Tokens.Lookup(r.DestinationChainID, r.DestinationToken)
			if !ok {
				continue
			}
			c := candidate{origin: o, dest: dest, swap: swaps[i]}
			dests.Go(func() error {
				est := domain.ScaleDecimals(c.swap.OutputAmount, c.origin.Decimals, c.dest.Decimals)
				t, err := qc.GetSwapQuote(dctx, c.dest, qc.Quote, est)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case selector.IsFatal(err):
					return err
				case err != nil:
					destErrs = append(destErrs, err)
				default:
					c.out = t.OutputAmount
					lanes = append(lanes, c)
				}
				return nil
			})
		}
	}
	if err := dests.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !anyOrigin {
		if te := firstTimeout(originErrs); te != nil {
			return nil, te
		}
		return nil, domain.ErrNoValidRoute
	}

	best := pickLane(lanes, origins)
	if best == nil {
		return nil, &domain.BridgeTradeError{Reason: "No destination swap route", Err: firstTimeout(destErrs)}
	}

	slip, noSlip, err := qc.twoTracks(ctx, best.origin, best.dest, best.swap.OutputAmount, domain.MinimumAmountOut(best.swap.OutputAmount, qc.SlippageBps))
	if err != nil {
		return nil, err
	}
	lead := domain.SwapCommand(best.swap)
	return finish(domain.PatternSwapToBridgeToSwap,
		append([]domain.Command{lead}, slip.commands()...),
		append([]domain.Command{lead}, noSlip.commands()...),
		qc.SlippageBps)
}

func firstTimeout(errs []error) error {
	for _, err := range errs {
		if domain.IsTimeout(err) {
			return err
		}
	}
	return nil
}

// pickLane returns the lane with the strictly greatest output; ties go to the
// earlier origin token.
func pickLane(lanes []candidate, origins []domain.Currency) *candidate {
	rank := make(map[string]int, len(origins))
	for i, o := range origins {
		rank[o.Key()] = i
	}
	var best *candidate
	for i := range lanes {
		c := &lanes[i]
		switch {
		case best == nil:
			best = c
		case c.out.Cmp(best.out) > 0:
			best = c
		case c.out.Cmp(best.out) == 0 && rank[c.origin.Key()] < rank[best.origin.Key()]:
			best = c
		}
	}
	return best
}

// originTokens lists resolvable origin-chain route tokens, in route order.
func (qc *QuoteContext) originTokens() []domain.Currency {
	seen := make(map[string]struct{})
	var out []domain.Currency
	for _, r := range qc.Routes {
		if r.OriginChainID != qc.Base.ChainID || r.DestinationChainID != qc.Quote.ChainID {
			continue
		}
		c, ok := qc.Tokens.Lookup(r.OriginChainID, r.OriginToken)
		if !ok {
			continue
		}
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	return out
}

// track is a bridge followed by the destination swap.
type track struct {
	bridge *domain.BridgeQuote
	swap   *domain.Trade
}

func (t track) commands() []domain.Command {
	return []domain.Command{domain.BridgeCommand(t.bridge), domain.SwapCommand(t.swap)}
}

// bridgeThenSwap quotes the bridge, prices the destination swap, re-quotes the
// bridge with that swap attached and re-prices the swap on the corrected
// bridge output.
func (qc *QuoteContext) bridgeThenSwap(ctx context.Context, from, via domain.Currency, amount *uint256.Int) (track, error) {
	first, err := qc.GetBridgeQuote(ctx, from, via, amount, nil)
	if err != nil {
		return track{}, err
	}
	draft, err := qc.GetSwapQuote(ctx, via, qc.Quote, first.OutputAmount)
	if err != nil {
		return track{}, err
	}
	bq, err := qc.GetBridgeQuote(ctx, from, via, amount, []domain.Command{domain.SwapCommand(draft)})
	if err != nil {
		return track{}, err
	}
	swap, err := qc.GetSwapQuote(ctx, via, qc.Quote, bq.OutputAmount)
	if err != nil {
		return track{}, err
	}
	return track{bridge: bq, swap: swap}, nil
}

// twoTracks runs the execution track on slipAmount and the display track on
// noSlipAmount concurrently, or once when the amounts are equal.
func (qc *QuoteContext) twoTracks(ctx context.Context, from, via domain.Currency, noSlipAmount, slipAmount *uint256.Int) (slip, noSlip track, err error) {
	if noSlipAmount.Eq(slipAmount) {
		t, err := qc.bridgeThenSwap(ctx, from, via, slipAmount)
		return t, t, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		slip, err = qc.bridgeThenSwap(gctx, from, via, slipAmount)
		return err
	})
	g.Go(func() (err error) {
		noSlip, err = qc.bridgeThenSwap(gctx, from, via, noSlipAmount)
		return err
	})
	err = g.Wait()
	return slip, noSlip, err
}

func finish(pattern domain.PatternType, cmds, noSlip []domain.Command, slippageBps uint32) (*domain.BridgeOrder, error) {
	order, err := ConstructFinalQuote(cmds, noSlip, slippageBps)
	if err != nil {
		return nil, err
	}
	order.Pattern = pattern
	return order, nil
}
