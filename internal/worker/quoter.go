package worker

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// SwapQuote is the result of quoting one pool.
type SwapQuote struct {
	AmountIn       *uint256.Int
	AmountOut      *uint256.Int
	Fee            *uint256.Int
	PriceImpactBps uint16
}

// PoolQuoter prices swaps through pools of the protocols it supports.
type PoolQuoter interface {
	GetQuoteExactIn(pool *domain.Pool, amountIn *uint256.Int, zeroForOne bool) (*SwapQuote, error)
	GetQuoteExactOut(pool *domain.Pool, amountOut *uint256.Int, zeroForOne bool) (*SwapQuote, error)
	SupportsProtocol(p domain.Protocol) bool
}

// QuoterRegistry dispatches to the first quoter supporting a pool's protocol.
type QuoterRegistry struct {
	quoters []PoolQuoter
}

func NewQuoterRegistry() *QuoterRegistry {
	return &QuoterRegistry{}
}

// NewDefaultQuoterRegistry registers constant-product, stable and
// concentrated liquidity quoters.
func NewDefaultQuoterRegistry() *QuoterRegistry {
	r := NewQuoterRegistry()
	r.RegisterQuoter(virtualReserveQuoter{protocols: []domain.Protocol{domain.ProtocolV2}, reserves: constantProductReserves})
	r.RegisterQuoter(virtualReserveQuoter{protocols: []domain.Protocol{domain.ProtocolStable}, reserves: stableReserves})
	r.RegisterQuoter(virtualReserveQuoter{protocols: []domain.Protocol{domain.ProtocolV3, domain.ProtocolInfinity}, reserves: concentratedReserves})
	return r
}

func (r *QuoterRegistry) RegisterQuoter(q PoolQuoter) {
	r.quoters = append(r.quoters, q)
}

func (r *QuoterRegistry) GetQuote(pool *domain.Pool, amount *uint256.Int, zeroForOne bool, exactIn bool) (*SwapQuote, error) {
	for _, q := range r.quoters {
		if !q.SupportsProtocol(pool.Protocol) {
			continue
		}
		if exactIn {
			return q.GetQuoteExactIn(pool, amount, zeroForOne)
		}
		return q.GetQuoteExactOut(pool, amount, zeroForOne)
	}
	return nil, fmt.Errorf("no quoter found for protocol: %s", pool.Protocol)
}

// reservesFunc returns the (virtual) reserves a swap trades against and the
// real output reserve that caps it.
type reservesFunc func(pool *domain.Pool, zeroForOne bool) (rIn, rOut, limit *uint256.Int, err error)

func constantProductReserves(pool *domain.Pool, zeroForOne bool) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	if pool.Reserve0 == nil || pool.Reserve1 == nil || pool.Reserve0.IsZero() || pool.Reserve1.IsZero() {
		return nil, nil, nil, domain.ErrNoLiquidity
	}
	if zeroForOne {
		return pool.Reserve0, pool.Reserve1, pool.Reserve1, nil
	}
	return pool.Reserve1, pool.Reserve0, pool.Reserve0, nil
}

// stableReserves amplifies both reserves by the pool amplifier, flattening
// the curve around the balance point; output stays capped by the real reserve.
func stableReserves(pool *domain.Pool, zeroForOne bool) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	rIn, rOut, limit, err := constantProductReserves(pool, zeroForOne)
	if err != nil {
		return nil, nil, nil, err
	}
	amp := uint64(pool.Amplifier)
	if amp == 0 {
		amp = 1
	}
	a := uint256.NewInt(amp)
	vIn, overflowIn := new(uint256.Int).MulOverflow(rIn, a)
	vOut, overflowOut := new(uint256.Int).MulOverflow(rOut, a)
	if overflowIn || overflowOut {
		return nil, nil, nil, domain.ErrInvalidPool
	}
	return vIn, vOut, limit, nil
}

// concentratedReserves derives in-range virtual reserves from liquidity and
// sqrtPriceX96: x = L*2^96/sqrtP, y = L*sqrtP/2^96.
func concentratedReserves(pool *domain.Pool, zeroForOne bool) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	if pool.Liquidity == nil || pool.SqrtPriceX96 == nil || pool.Liquidity.IsZero() || pool.SqrtPriceX96.IsZero() {
		return nil, nil, nil, domain.ErrNoLiquidity
	}
	x, ok := mulDiv(pool.Liquidity, u256Q96, pool.SqrtPriceX96)
	if !ok {
		return nil, nil, nil, domain.ErrInvalidPool
	}
	y, ok := mulDiv(pool.Liquidity, pool.SqrtPriceX96, u256Q96)
	if !ok {
		return nil, nil, nil, domain.ErrInvalidPool
	}
	if x.IsZero() || y.IsZero() {
		return nil, nil, nil, domain.ErrNoLiquidity
	}
	if zeroForOne {
		return x, y, nil, nil
	}
	return y, x, nil, nil
}

type virtualReserveQuoter struct {
	protocols []domain.Protocol
	reserves  reservesFunc
}

func (q virtualReserveQuoter) SupportsProtocol(p domain.Protocol) bool {
	for _, s := range q.protocols {
		if s == p {
			return true
		}
	}
	return false
}

func feeComplement(fee uint32) (*uint256.Int, error) {
	if uint64(fee) >= u256FeeBase.Uint64() {
		return nil, domain.ErrInvalidPool
	}
	return uint256.NewInt(u256FeeBase.Uint64() - uint64(fee)), nil
}

func (q virtualReserveQuoter) GetQuoteExactIn(pool *domain.Pool, amountIn *uint256.Int, zeroForOne bool) (*SwapQuote, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, domain.ErrInvalidAmount
	}
	rIn, rOut, limit, err := q.reserves(pool, zeroForOne)
	if err != nil {
		return nil, err
	}
	keep, err := feeComplement(pool.Fee)
	if err != nil {
		return nil, err
	}

	inAfterFee, ok := mulDiv(amountIn, keep, u256FeeBase)
	if !ok {
		return nil, domain.ErrInvalidAmount
	}
	den := new(uint256.Int).Add(rIn, inAfterFee)
	out, ok := mulDiv(inAfterFee, rOut, den)
	if !ok || out.IsZero() {
		return nil, domain.ErrNoLiquidity
	}
	if limit != nil && out.Cmp(limit) >= 0 {
		return nil, domain.ErrNoLiquidity
	}
	spot, _ := mulDiv(inAfterFee, rOut, rIn)

	return &SwapQuote{
		AmountIn:       amountIn.Clone(),
		AmountOut:      out,
		Fee:            new(uint256.Int).Sub(amountIn, inAfterFee),
		PriceImpactBps: impactBps(spot, out),
	}, nil
}

func (q virtualReserveQuoter) GetQuoteExactOut(pool *domain.Pool, amountOut *uint256.Int, zeroForOne bool) (*SwapQuote, error) {
	if amountOut == nil || amountOut.IsZero() {
		return nil, domain.ErrInvalidAmount
	}
	rIn, rOut, limit, err := q.reserves(pool, zeroForOne)
	if err != nil {
		return nil, err
	}
	if amountOut.Cmp(rOut) >= 0 || (limit != nil && amountOut.Cmp(limit) >= 0) {
		return nil, domain.ErrNoLiquidity
	}
	keep, err := feeComplement(pool.Fee)
	if err != nil {
		return nil, err
	}

	inAfterFee, ok := mulDiv(rIn, amountOut, new(uint256.Int).Sub(rOut, amountOut))
	if !ok {
		return nil, domain.ErrNoLiquidity
	}
	inAfterFee.Add(inAfterFee, u256One)
	amountIn, ok := mulDiv(inAfterFee, u256FeeBase, keep)
	if !ok {
		return nil, domain.ErrNoLiquidity
	}
	amountIn.Add(amountIn, u256One)
	spot, _ := mulDiv(inAfterFee, rOut, rIn)

	return &SwapQuote{
		AmountIn:       amountIn,
		AmountOut:      amountOut.Clone(),
		Fee:            new(uint256.Int).Sub(amountIn, inAfterFee),
		PriceImpactBps: impactBps(spot, amountOut),
	}, nil
}
