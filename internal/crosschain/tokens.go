package crosschain

import (
	"strings"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// TokenMap resolves bridge route token addresses to currencies.
type TokenMap map[string]domain.Currency

func tokenKey(chainID domain.ChainID, addr string) string {
	if !chainID.IsSolana() {
		addr = strings.ToLower(addr)
	}
	return chainID.String() + ":" + addr
}

// NewTokenMap indexes currencies by address. Natives are indexed under the
// zero address on EVM chains.
func NewTokenMap(currencies ...domain.Currency) TokenMap {
	m := make(TokenMap, len(currencies))
	m.Add(currencies...)
	return m
}

func (m TokenMap) Add(currencies ...domain.Currency) {
	for _, c := range currencies {
		addr := c.Address
		if c.IsNative {
			if c.ChainID.IsSolana() {
				continue
			}
			addr = zeroAddress
		}
		m[tokenKey(c.ChainID, addr)] = c
	}
}

func (m TokenMap) Lookup(chainID domain.ChainID, addr string) (domain.Currency, bool) {
	c, ok := m[tokenKey(chainID, addr)]
	return c, ok
}

// With returns a copy extended with currencies.
func (m TokenMap) With(currencies ...domain.Currency) TokenMap {
	out := make(TokenMap, len(m)+len(currencies))
	for k, v := range m {
		out[k] = v
	}
	out.Add(currencies...)
	return out
}

// DefaultTokenMap holds every native, wrapped native and base token of the
// chain registry.
func DefaultTokenMap() TokenMap {
	m := make(TokenMap)
	for _, c := range common.Chains() {
		m.Add(c.Native, c.Wrapped)
		m.Add(c.BaseTokens...)
	}
	return m
}

// matches reports whether a route token is c. A native also matches its
// wrapped token.
func matches(c domain.Currency, chainID domain.ChainID, addr string) bool {
	if c.ChainID != chainID {
		return false
	}
	if c.IsNative {
		if !chainID.IsSolana() && strings.EqualFold(addr, zeroAddress) {
			return true
		}
		c = common.Wrapped(c)
	}
	if chainID.IsSolana() {
		return c.Address == addr
	}
	return strings.EqualFold(c.Address, addr)
}
