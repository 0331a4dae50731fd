package domain

import (
	"github.com/holiman/uint256"
)

// HopQuote is one pool traversal inside a route.
type HopQuote struct {
	Pool           *Pool
	Input          Currency
	Output         Currency
	AmountIn       *uint256.Int
	AmountOut      *uint256.Int
	FeeAmount      *uint256.Int
	PriceImpactBps uint16
}

// Route is one path through pools carrying Percent of the trade amount.
type Route struct {
	Hops      []HopQuote
	Percent   uint8
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
}

func (r Route) Path() []Currency {
	if len(r.Hops) == 0 {
		return nil
	}
	out := make([]Currency, 0, len(r.Hops)+1)
	out = append(out, r.Hops[0].Input)
	for _, h := range r.Hops {
		out = append(out, h.Output)
	}
	return out
}

// Trade is the result of an AMM routing computation.
type Trade struct {
	TradeType      TradeType
	Input          Currency
	Output         Currency
	InputAmount    *uint256.Int
	OutputAmount   *uint256.Int
	Routes         []Route
	PriceImpactBps uint16
	// GasCost is the estimated execution cost denominated in Output units.
	GasCost *uint256.Int
	// Source names the strategy that produced the trade.
	Source string
}

func (t *Trade) IsSplit() bool {
	return len(t.Routes) > 1
}

func (t *Trade) HopCount() int {
	n := 0
	for _, r := range t.Routes {
		if len(r.Hops) > n {
			n = len(r.Hops)
		}
	}
	return n
}
