package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hxuan190/quote-engine/internal/domain"
)

func TestQuotingConfigLoad(t *testing.T) {
	t.Setenv("QUOTE_TIMEOUT_MS", "3000")
	t.Setenv("POOL_CACHE_TTL_MS_1", "12000")
	t.Setenv("FACTOR_GAS_COST", "true")

	c := &QuotingConfig{}
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}
	if c.QuoteTimeout != 3*time.Second {
		t.Errorf("QuoteTimeout = %s", c.QuoteTimeout)
	}
	if c.PoolFallbackTimeout != 2*time.Second {
		t.Errorf("PoolFallbackTimeout = %s", c.PoolFallbackTimeout)
	}
	if got := c.TTLFor(domain.ChainEthereum); got != 12*time.Second {
		t.Errorf("TTLFor(eth) = %s", got)
	}
	if got := c.TTLFor(domain.ChainArbitrum); got != 3*time.Second {
		t.Errorf("TTLFor(arb) = %s", got)
	}
	if got := c.TTLFor(domain.ChainID(999)); got != c.PoolCacheTTL {
		t.Errorf("TTLFor(unknown) = %s", got)
	}
	if !c.FactorGasCost {
		t.Error("FactorGasCost not loaded")
	}
	if c.PlaceholderWindow != 120*time.Second {
		t.Errorf("PlaceholderWindow = %s", c.PlaceholderWindow)
	}
}

func TestQuotingConfigValidate(t *testing.T) {
	c := DefaultQuotingConfig()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	c.DefaultSlippageBps = 10_000
	if err := c.Validate(); err == nil {
		t.Error("expected slippage validation error")
	}
}

func TestParseSubgraphURLs(t *testing.T) {
	env := []string{
		"SUBGRAPH_URL_V2_56=https://v2.bsc",
		"SUBGRAPH_URL_INFINITY_CL_56=https://cl.bsc",
		"SUBGRAPH_URL_V3_abc=https://bad",
		"OTHER=1",
	}
	got := parseSubgraphURLs(env)
	if got[domain.ProtocolV2][domain.ChainBSC] != "https://v2.bsc" {
		t.Errorf("v2 url missing: %+v", got)
	}
	if got[domain.ProtocolInfinity][domain.ChainBSC] != "https://cl.bsc" {
		t.Errorf("infinity url missing: %+v", got)
	}
	if _, ok := got[domain.ProtocolV3]; ok {
		t.Error("invalid chain id must be skipped")
	}
}

func TestGeneralConfigLevel(t *testing.T) {
	gc := &GeneralConfig{LogLevel: "DEBUG"}
	if gc.ZerologLevel() != zerolog.DebugLevel {
		t.Errorf("got %s", gc.ZerologLevel())
	}
	gc.LogLevel = "nonsense"
	if gc.ZerologLevel() != zerolog.InfoLevel {
		t.Errorf("got %s", gc.ZerologLevel())
	}
}
