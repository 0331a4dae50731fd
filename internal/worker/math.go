package worker

import (
	"github.com/holiman/uint256"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// Pre-computed constants
var (
	// Q96 = 2^96 for sqrtPriceX96 fixed-point math
	u256Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	// fees are in hundredths of a bip
	u256FeeBase  = uint256.NewInt(1_000_000)
	u256BpsDenom = uint256.NewInt(domain.BpsDenominator)
	u256Hundred  = uint256.NewInt(100)
	u256One      = uint256.NewInt(1)
)

// mulDiv returns x*y/d with a 512-bit intermediate; ok is false on overflow or
// division by zero.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, bool) {
	if d.IsZero() {
		return nil, false
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	return z, !overflow
}

// percentOf returns amount*percent/100.
func percentOf(amount *uint256.Int, percent uint8) *uint256.Int {
	out := new(uint256.Int).Mul(amount, uint256.NewInt(uint64(percent)))
	return out.Div(out, u256Hundred)
}

// impactBps is (spot-actual)/spot in basis points, capped at 10000. Better
// than spot counts as zero impact.
func impactBps(spot, actual *uint256.Int) uint16 {
	if spot == nil || spot.IsZero() || actual.Cmp(spot) >= 0 {
		return 0
	}
	diff := new(uint256.Int).Sub(spot, actual)
	v, ok := mulDiv(diff, u256BpsDenom, spot)
	if !ok || v.Uint64() > domain.BpsDenominator {
		return domain.BpsDenominator
	}
	return uint16(v.Uint64())
}
