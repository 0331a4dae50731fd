package domain

import (
	"github.com/holiman/uint256"
)

type Protocol string

const (
	ProtocolV2       Protocol = "V2"
	ProtocolV3       Protocol = "V3"
	ProtocolStable   Protocol = "STABLE"
	ProtocolInfinity Protocol = "INFINITY_CL"
)

var AllProtocols = []Protocol{ProtocolV2, ProtocolV3, ProtocolStable, ProtocolInfinity}

// IsConcentrated reports whether the pool prices from sqrtPrice/liquidity
// instead of reserves.
func (p Protocol) IsConcentrated() bool {
	return p == ProtocolV3 || p == ProtocolInfinity
}

// FetchMode selects the candidate pool payload size.
type FetchMode string

const (
	// ModeLight carries topology only: address, tokens, fee.
	ModeLight FetchMode = "light"
	// ModeFull carries reserves, liquidity and price state.
	ModeFull FetchMode = "full"
)

type PoolFlags uint8

const (
	FlagHasState PoolFlags = 1 << 0
	FlagLowFee   PoolFlags = 1 << 1
)

// Pool is a candidate liquidity pool. Amount fields are nil for light pools.
type Pool struct {
	Address  string
	Protocol Protocol
	ChainID  ChainID
	Token0   Currency
	Token1   Currency
	// Fee in hundredths of a bip (3000 = 0.3%).
	Fee uint32

	Reserve0 *uint256.Int
	Reserve1 *uint256.Int

	Liquidity    *uint256.Int
	SqrtPriceX96 *uint256.Int
	Tick         int32

	// Amplification coefficient for stable pools.
	Amplifier uint32

	Flags PoolFlags
}

func (p *Pool) UpdateFlags() {
	p.Flags = 0
	switch {
	case p.Protocol.IsConcentrated():
		if p.Liquidity != nil && p.SqrtPriceX96 != nil && !p.Liquidity.IsZero() && !p.SqrtPriceX96.IsZero() {
			p.Flags |= FlagHasState
		}
	default:
		if p.Reserve0 != nil && p.Reserve1 != nil && !p.Reserve0.IsZero() && !p.Reserve1.IsZero() {
			p.Flags |= FlagHasState
		}
	}
	if p.Fee < 500 {
		p.Flags |= FlagLowFee
	}
}

func (p *Pool) HasFlags(mask PoolFlags) bool {
	return p.Flags&mask == mask
}

// Involves reports whether c is one of the pool tokens.
func (p *Pool) Involves(c Currency) bool {
	return p.Token0.Equal(c) || p.Token1.Equal(c)
}

// ZeroForOne reports whether swapping in from c moves token0 -> token1.
func (p *Pool) ZeroForOne(in Currency) bool {
	return p.Token0.Equal(in)
}

// Other returns the pool token that is not c.
func (p *Pool) Other(c Currency) Currency {
	if p.Token0.Equal(c) {
		return p.Token1
	}
	return p.Token0
}

// Key identifies a pool across sources; duplicates are merged on it.
func (p *Pool) Key() string {
	return p.ChainID.String() + ":" + string(p.Protocol) + ":" + p.Address
}
