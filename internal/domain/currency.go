package domain

import (
	"fmt"
	"strings"
)

type ChainID uint64

const (
	ChainEthereum   ChainID = 1
	ChainBSC        ChainID = 56
	ChainArbitrum   ChainID = 42161
	ChainBase       ChainID = 8453
	ChainBSCTestnet ChainID = 97
	ChainSepolia    ChainID = 11155111
	ChainSolana     ChainID = 8000001001
)

// IsSolana reports whether addresses on this chain are base58 public keys.
func (c ChainID) IsSolana() bool {
	return c == ChainSolana
}

func (c ChainID) String() string {
	return fmt.Sprintf("%d", uint64(c))
}

// Currency is either a chain's native coin (empty Address) or a token.
type Currency struct {
	ChainID  ChainID `json:"chainId"`
	Address  string  `json:"address,omitempty"`
	Symbol   string  `json:"symbol"`
	Decimals uint8   `json:"decimals"`
	IsNative bool    `json:"isNative,omitempty"`
}

func Native(chainID ChainID, symbol string, decimals uint8) Currency {
	return Currency{ChainID: chainID, Symbol: symbol, Decimals: decimals, IsNative: true}
}

func Token(chainID ChainID, address, symbol string, decimals uint8) Currency {
	return Currency{ChainID: chainID, Address: address, Symbol: symbol, Decimals: decimals}
}

// Key is the canonical identity of the currency, used in fingerprints and maps.
func (c Currency) Key() string {
	if c.IsNative {
		return c.ChainID.String() + ":native"
	}
	addr := c.Address
	if !c.ChainID.IsSolana() {
		addr = strings.ToLower(addr)
	}
	return c.ChainID.String() + ":" + addr
}

func (c Currency) Equal(o Currency) bool {
	return c.Key() == o.Key()
}

// SortsBefore orders currencies of the same chain by address; native first.
func (c Currency) SortsBefore(o Currency) bool {
	return c.Key() < o.Key()
}

func (c Currency) String() string {
	if c.Symbol != "" {
		return c.Symbol + "@" + c.ChainID.String()
	}
	return c.Key()
}
