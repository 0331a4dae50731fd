package domain

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const BpsDenominator = 10_000

var bpsDenom = uint256.NewInt(BpsDenominator)

// ParseAmount accepts decimal or 0x-prefixed hex integers.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := uint256.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return v, nil
}

// FormatAmount renders nil as "0".
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// MinimumAmountOut applies slippage downwards.
func MinimumAmountOut(amount *uint256.Int, slippageBps uint32) *uint256.Int {
	if amount == nil {
		return nil
	}
	if slippageBps >= BpsDenominator {
		return new(uint256.Int)
	}
	out := new(uint256.Int).Mul(amount, uint256.NewInt(uint64(BpsDenominator-slippageBps)))
	return out.Div(out, bpsDenom)
}

// MaximumAmountIn applies slippage upwards.
func MaximumAmountIn(amount *uint256.Int, slippageBps uint32) *uint256.Int {
	if amount == nil {
		return nil
	}
	out := new(uint256.Int).Mul(amount, uint256.NewInt(uint64(BpsDenominator+slippageBps)))
	return out.Div(out, bpsDenom)
}

// ScaleDecimals converts an amount between currencies of different precision.
func ScaleDecimals(amount *uint256.Int, from, to uint8) *uint256.Int {
	if amount == nil {
		return nil
	}
	out := new(uint256.Int).Set(amount)
	switch {
	case from < to:
		return out.Mul(out, new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(to-from))))
	case from > to:
		return out.Div(out, new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(from-to))))
	default:
		return out
	}
}
