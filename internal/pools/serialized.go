package pools

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/hxuan190/quote-engine/internal/domain"
)

type SerializedToken struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// SerializedPool is the wire shape shared by the pool API and the routing
// API. Amounts are decimal strings; light pools leave them empty.
type SerializedPool struct {
	Address      string          `json:"address"`
	Protocol     domain.Protocol `json:"protocol"`
	Token0       SerializedToken `json:"token0"`
	Token1       SerializedToken `json:"token1"`
	Fee          uint32          `json:"fee"`
	Reserve0     string          `json:"reserve0,omitempty"`
	Reserve1     string          `json:"reserve1,omitempty"`
	Liquidity    string          `json:"liquidity,omitempty"`
	SqrtPriceX96 string          `json:"sqrtPriceX96,omitempty"`
	Tick         int32           `json:"tick,omitempty"`
	Amplifier    uint32          `json:"amplifier,omitempty"`
}

func optionalAmount(field, s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := domain.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidPool, field, err)
	}
	return v, nil
}

// ToDomain converts a wire pool of chainID.
func (s SerializedPool) ToDomain(chainID domain.ChainID) (*domain.Pool, error) {
	if s.Address == "" || s.Token0.Address == "" || s.Token1.Address == "" {
		return nil, fmt.Errorf("%w: missing address", domain.ErrInvalidPool)
	}
	p := &domain.Pool{
		Address:   s.Address,
		Protocol:  s.Protocol,
		ChainID:   chainID,
		Token0:    domain.Token(chainID, s.Token0.Address, s.Token0.Symbol, s.Token0.Decimals),
		Token1:    domain.Token(chainID, s.Token1.Address, s.Token1.Symbol, s.Token1.Decimals),
		Fee:       s.Fee,
		Tick:      s.Tick,
		Amplifier: s.Amplifier,
	}
	var err error
	if p.Reserve0, err = optionalAmount("reserve0", s.Reserve0); err != nil {
		return nil, err
	}
	if p.Reserve1, err = optionalAmount("reserve1", s.Reserve1); err != nil {
		return nil, err
	}
	if p.Liquidity, err = optionalAmount("liquidity", s.Liquidity); err != nil {
		return nil, err
	}
	if p.SqrtPriceX96, err = optionalAmount("sqrtPriceX96", s.SqrtPriceX96); err != nil {
		return nil, err
	}
	p.UpdateFlags()
	return p, nil
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}

// Serialize is the inverse of ToDomain.
func Serialize(p *domain.Pool) SerializedPool {
	return SerializedPool{
		Address:      p.Address,
		Protocol:     p.Protocol,
		Token0:       SerializedToken{Address: p.Token0.Address, Symbol: p.Token0.Symbol, Decimals: p.Token0.Decimals},
		Token1:       SerializedToken{Address: p.Token1.Address, Symbol: p.Token1.Symbol, Decimals: p.Token1.Decimals},
		Fee:          p.Fee,
		Reserve0:     amountString(p.Reserve0),
		Reserve1:     amountString(p.Reserve1),
		Liquidity:    amountString(p.Liquidity),
		SqrtPriceX96: amountString(p.SqrtPriceX96),
		Tick:         p.Tick,
		Amplifier:    p.Amplifier,
	}
}

func parseUint32(s string) uint32 {
	v, _ := strconv.ParseUint(s, 10, 32)
	return uint32(v)
}
