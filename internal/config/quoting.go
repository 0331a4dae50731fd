package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"

	"github.com/hxuan190/quote-engine/internal/domain"
)

type QuotingConfig struct {
	// QuoteTimeout bounds one strategy evaluation.
	QuoteTimeout time.Duration
	// CrossChainTimeout bounds a whole cross-chain composition.
	CrossChainTimeout time.Duration
	// QuoteValidity is how long a resolved session quote stays fresh.
	QuoteValidity time.Duration
	// PoolFallbackTimeout is how long the remote pool endpoint gets before the
	// local sources are raced against it.
	PoolFallbackTimeout time.Duration
	PoolCacheTTL        time.Duration
	// PoolCacheTTLByChain overrides PoolCacheTTL for fast-moving chains.
	PoolCacheTTLByChain map[domain.ChainID]time.Duration
	PlaceholderWindow   time.Duration

	QueryCacheSize       int
	PlaceholderCacheSize int

	// FactorGasCost enables gas-adjusted comparison of exact-input quotes.
	FactorGasCost      bool
	DefaultSlippageBps uint32
}

func (c *QuotingConfig) Key() string {
	return QUOTING_CONFIG_KEY
}

func (c *QuotingConfig) Load() error {
	c.QuoteTimeout = time.Duration(common.GetEnvOrDefaultInt("QUOTE_TIMEOUT_MS", 8000)) * time.Millisecond
	c.CrossChainTimeout = time.Duration(common.GetEnvOrDefaultInt("CROSS_CHAIN_TIMEOUT_MS", 15000)) * time.Millisecond
	c.QuoteValidity = time.Duration(common.GetEnvOrDefaultInt("QUOTE_VALIDITY_SEC", 30)) * time.Second
	c.PoolFallbackTimeout = time.Duration(common.GetEnvOrDefaultInt("POOL_FALLBACK_TIMEOUT_MS", 2000)) * time.Millisecond
	c.PoolCacheTTL = time.Duration(common.GetEnvOrDefaultInt("POOL_CACHE_TTL_MS", 10000)) * time.Millisecond
	c.PoolCacheTTLByChain = make(map[domain.ChainID]time.Duration)
	// shorter TTLs on fast block-time chains
	defaults := map[domain.ChainID]int{
		domain.ChainBSC:      5000,
		domain.ChainArbitrum: 3000,
		domain.ChainBase:     3000,
	}
	for _, id := range []domain.ChainID{domain.ChainEthereum, domain.ChainBSC, domain.ChainArbitrum, domain.ChainBase, domain.ChainBSCTestnet, domain.ChainSepolia, domain.ChainSolana} {
		def, ok := defaults[id]
		if !ok {
			def = int(c.PoolCacheTTL / time.Millisecond)
		}
		ms := common.GetEnvOrDefaultInt(fmt.Sprintf("POOL_CACHE_TTL_MS_%d", id), def)
		c.PoolCacheTTLByChain[id] = time.Duration(ms) * time.Millisecond
	}
	c.PlaceholderWindow = time.Duration(common.GetEnvOrDefaultInt("PLACEHOLDER_WINDOW_SEC", 120)) * time.Second
	c.QueryCacheSize = common.GetEnvOrDefaultInt("QUERY_CACHE_SIZE", 4096)
	c.PlaceholderCacheSize = common.GetEnvOrDefaultInt("PLACEHOLDER_CACHE_SIZE", 1024)
	c.FactorGasCost = common.GetEnvOrDefault("FACTOR_GAS_COST", "false") == "true"
	c.DefaultSlippageBps = uint32(common.GetEnvOrDefaultInt("DEFAULT_SLIPPAGE_BPS", 50))
	return c.Validate()
}

func (c *QuotingConfig) Validate() error {
	if c.QuoteTimeout <= 0 || c.CrossChainTimeout <= 0 || c.PoolFallbackTimeout <= 0 || c.PoolCacheTTL <= 0 {
		return errors.New("invalid quoting timeouts")
	}
	if c.PlaceholderWindow <= 0 || c.QuoteValidity <= 0 {
		return errors.New("invalid placeholder window")
	}
	if c.QueryCacheSize <= 0 || c.PlaceholderCacheSize <= 0 {
		return errors.New("invalid cache sizes")
	}
	if c.DefaultSlippageBps >= domain.BpsDenominator {
		return errors.New("invalid default slippage")
	}
	return nil
}

// TTLFor returns the pool cache TTL for chainID.
func (c *QuotingConfig) TTLFor(chainID domain.ChainID) time.Duration {
	if ttl, ok := c.PoolCacheTTLByChain[chainID]; ok && ttl > 0 {
		return ttl
	}
	return c.PoolCacheTTL
}

// DefaultQuotingConfig is used by tests and the CLI.
func DefaultQuotingConfig() *QuotingConfig {
	return &QuotingConfig{
		QuoteTimeout:         8 * time.Second,
		CrossChainTimeout:    15 * time.Second,
		QuoteValidity:        30 * time.Second,
		PoolFallbackTimeout:  2 * time.Second,
		PoolCacheTTL:         10 * time.Second,
		PoolCacheTTLByChain:  map[domain.ChainID]time.Duration{},
		PlaceholderWindow:    120 * time.Second,
		QueryCacheSize:       4096,
		PlaceholderCacheSize: 1024,
		DefaultSlippageBps:   50,
	}
}
