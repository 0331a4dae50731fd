// Package common contains the chain registry and helpers shared by services.
package common

import (
	"sort"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// Chain describes one supported network.
type Chain struct {
	ID      domain.ChainID
	Name    string
	Testnet bool
	Native  domain.Currency
	Wrapped domain.Currency
	// BaseTokens are intermediates used for candidate pair expansion.
	BaseTokens []domain.Currency
}

var chains = map[domain.ChainID]*Chain{}
var chainsByName = map[string]*Chain{}

func register(c *Chain) {
	chains[c.ID] = c
	chainsByName[c.Name] = c
}

func init() {
	weth := domain.Token(domain.ChainEthereum, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "WETH", 18)
	register(&Chain{
		ID:      domain.ChainEthereum,
		Name:    "eth",
		Native:  domain.Native(domain.ChainEthereum, "ETH", 18),
		Wrapped: weth,
		BaseTokens: []domain.Currency{
			weth,
			domain.Token(domain.ChainEthereum, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC", 6),
			domain.Token(domain.ChainEthereum, "0xdAC17F958D2ee523a2206206994597C13D831ec7", "USDT", 6),
		},
	})

	wbnb := domain.Token(domain.ChainBSC, "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", "WBNB", 18)
	register(&Chain{
		ID:      domain.ChainBSC,
		Name:    "bsc",
		Native:  domain.Native(domain.ChainBSC, "BNB", 18),
		Wrapped: wbnb,
		BaseTokens: []domain.Currency{
			wbnb,
			domain.Token(domain.ChainBSC, "0x55d398326f99059fF775485246999027B3197955", "USDT", 18),
			domain.Token(domain.ChainBSC, "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", "USDC", 18),
		},
	})

	arbWeth := domain.Token(domain.ChainArbitrum, "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", "WETH", 18)
	register(&Chain{
		ID:      domain.ChainArbitrum,
		Name:    "arb",
		Native:  domain.Native(domain.ChainArbitrum, "ETH", 18),
		Wrapped: arbWeth,
		BaseTokens: []domain.Currency{
			arbWeth,
			domain.Token(domain.ChainArbitrum, "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", "USDC", 6),
		},
	})

	baseWeth := domain.Token(domain.ChainBase, "0x4200000000000000000000000000000000000006", "WETH", 18)
	register(&Chain{
		ID:      domain.ChainBase,
		Name:    "base",
		Native:  domain.Native(domain.ChainBase, "ETH", 18),
		Wrapped: baseWeth,
		BaseTokens: []domain.Currency{
			baseWeth,
			domain.Token(domain.ChainBase, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", "USDC", 6),
		},
	})

	tbnb := domain.Token(domain.ChainBSCTestnet, "0xae13d989daC2f0dEbFf460aC112a837C89BAa7cd", "WBNB", 18)
	register(&Chain{
		ID:         domain.ChainBSCTestnet,
		Name:       "bscTestnet",
		Testnet:    true,
		Native:     domain.Native(domain.ChainBSCTestnet, "tBNB", 18),
		Wrapped:    tbnb,
		BaseTokens: []domain.Currency{tbnb},
	})

	sepWeth := domain.Token(domain.ChainSepolia, "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14", "WETH", 18)
	register(&Chain{
		ID:         domain.ChainSepolia,
		Name:       "sepolia",
		Testnet:    true,
		Native:     domain.Native(domain.ChainSepolia, "ETH", 18),
		Wrapped:    sepWeth,
		BaseTokens: []domain.Currency{sepWeth},
	})

	wsol := domain.Token(domain.ChainSolana, "So11111111111111111111111111111111111111112", "WSOL", 9)
	register(&Chain{
		ID:      domain.ChainSolana,
		Name:    "sol",
		Native:  domain.Native(domain.ChainSolana, "SOL", 9),
		Wrapped: wsol,
		BaseTokens: []domain.Currency{
			wsol,
			domain.Token(domain.ChainSolana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "USDC", 6),
		},
	})
}

func ChainByID(id domain.ChainID) (*Chain, bool) {
	c, ok := chains[id]
	return c, ok
}

// Chains lists the registry ordered by chain id.
func Chains() []*Chain {
	out := make([]*Chain, 0, len(chains))
	for _, c := range chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func ChainByName(name string) (*Chain, bool) {
	c, ok := chainsByName[name]
	return c, ok
}

// IsTestnet treats unknown chains as mainnets.
func IsTestnet(id domain.ChainID) bool {
	c, ok := chains[id]
	return ok && c.Testnet
}

// IsWrap reports whether in/out is the native/wrapped-native pair of one chain.
func IsWrap(in, out domain.Currency) bool {
	if in.ChainID != out.ChainID {
		return false
	}
	c, ok := chains[in.ChainID]
	if !ok {
		return false
	}
	return (in.IsNative && out.Equal(c.Wrapped)) || (out.IsNative && in.Equal(c.Wrapped))
}

// Wrapped maps a native currency to its wrapped token; tokens map to themselves.
func Wrapped(c domain.Currency) domain.Currency {
	if !c.IsNative {
		return c
	}
	if ch, ok := chains[c.ChainID]; ok {
		return ch.Wrapped
	}
	return c
}

func BaseTokens(id domain.ChainID) []domain.Currency {
	if c, ok := chains[id]; ok {
		return c.BaseTokens
	}
	return nil
}
