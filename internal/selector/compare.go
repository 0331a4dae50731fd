package selector

import (
	"github.com/holiman/uint256"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// Better reports whether a strictly beats b. Exact input compares output
// amounts, net of gas when factorGas is set and both sides carry a gas cost.
// Exact output compares input amounts. Ties keep b.
func Better(a, b domain.Order, factorGas bool) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	if a.TradeType() == domain.ExactOutput {
		return a.InputAmount().Cmp(b.InputAmount()) < 0
	}
	if factorGas && a.GasCost() != nil && b.GasCost() != nil {
		return netOutput(a).Cmp(netOutput(b)) > 0
	}
	return a.OutputAmount().Cmp(b.OutputAmount()) > 0
}

// netOutput floors at zero when gas exceeds the output.
func netOutput(o domain.Order) *uint256.Int {
	out, gas := o.OutputAmount(), o.GasCost()
	if gas.Cmp(out) >= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(out, gas)
}
