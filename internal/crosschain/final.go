package crosschain

import (
	"github.com/holiman/uint256"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// ConstructFinalQuote stitches a bridge order from the execution track
// (commands) and the display track (noSlippage). Exactly one command must be
// a bridge. Swap outputs of the execution track are replaced by their
// slippage minimums.
func ConstructFinalQuote(commands, noSlippage []domain.Command, slippageBps uint32) (*domain.BridgeOrder, error) {
	if len(commands) == 0 || len(noSlippage) == 0 {
		return nil, domain.Misconfigured("cross-chain quote has no commands")
	}
	bridges := 0
	var fill int
	for _, c := range commands {
		if c.IsBridge() {
			bridges++
			if c.Bridge != nil {
				fill = c.Bridge.ExpectedFillTimeSec
			}
		}
	}
	if bridges != 1 {
		return nil, domain.Misconfigured("cross-chain quote has %d bridge commands", bridges)
	}

	out := make([]domain.Command, len(commands))
	impact := 0
	for i, c := range commands {
		if !c.IsBridge() {
			c.AmountOut = domain.MinimumAmountOut(c.AmountOut, slippageBps)
			if c.Trade != nil {
				impact += int(c.Trade.PriceImpactBps)
			}
		}
		out[i] = c
	}

	first, last := out[0], out[len(out)-1]
	return &domain.BridgeOrder{
		Input:               first.Input,
		Output:              last.Output,
		AmountIn:            first.AmountIn,
		ExpectedAmountOut:   new(uint256.Int).Set(noSlippage[len(noSlippage)-1].AmountOut),
		MinAmountOut:        last.AmountOut,
		Commands:            out,
		ExpectedFillTimeSec: fill,
		SlippageBps:         slippageBps,
		ImpactBps:           uint16(min(impact, domain.BpsDenominator)),
	}, nil
}
