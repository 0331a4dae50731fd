package fingerprint

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"github.com/hxuan190/quote-engine/internal/domain"
)

var (
	eth  = domain.Native(domain.ChainEthereum, "ETH", 18)
	usdc = domain.Token(domain.ChainEthereum, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC", 6)
	bUSD = domain.Token(domain.ChainBSC, "0x55d398326f99059fF775485246999027B3197955", "USDT", 18)
)

func baseQuery() *domain.QuoteQuery {
	in, out := eth, usdc
	return &domain.QuoteQuery{
		Input:       &in,
		Output:      &out,
		Amount:      uint256.NewInt(1e18),
		MaxHops:     3,
		MaxSplits:   2,
		V2:          true,
		V3:          true,
		Stable:      true,
		SlippageBps: 50,
		GasLimit:    500_000,
		BlockNumber: 100,
		Nonce:       1,
	}
}

func TestHashStableAcrossExcludedFields(t *testing.T) {
	q1 := baseQuery()
	q2 := baseQuery()
	q2.SlippageBps = 100
	q2.GasLimit = 1
	q2.BlockNumber = 999
	q2.DestBlockNumber = 5
	q2.CreateTime = time.Now()
	q2.Hash = "0xdead"
	q2.PlaceholderHash = "0xbeef"

	assert.Equal(t, Query(q1), Query(q2))
}

func TestHashSensitivity(t *testing.T) {
	base := Query(baseQuery())
	mutations := map[string]func(q *domain.QuoteQuery){
		"amount":    func(q *domain.QuoteQuery) { q.Amount = uint256.NewInt(2e18) },
		"input":     func(q *domain.QuoteQuery) { c := usdc; q.Input = &c; o := eth; q.Output = &o },
		"output":    func(q *domain.QuoteQuery) { c := domain.Token(domain.ChainEthereum, "0xdAC17F958D2ee523a2206206994597C13D831ec7", "USDT", 6); q.Output = &c },
		"v2":        func(q *domain.QuoteQuery) { q.V2 = false },
		"v3":        func(q *domain.QuoteQuery) { q.V3 = false },
		"stable":    func(q *domain.QuoteQuery) { q.Stable = false },
		"infinity":  func(q *domain.QuoteQuery) { q.Infinity = true },
		"x":         func(q *domain.QuoteQuery) { q.X = true },
		"nonce":     func(q *domain.QuoteQuery) { q.Nonce = 2 },
		"tradeType": func(q *domain.QuoteQuery) { q.TradeType = domain.ExactOutput },
		"chain":     func(q *domain.QuoteQuery) { c := bUSD; q.Output = &c },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			q := baseQuery()
			mutate(q)
			assert.NotEqual(t, base, Query(q))
		})
	}
}

func TestAddressCaseInsensitiveOnEVM(t *testing.T) {
	q1 := baseQuery()
	q2 := baseQuery()
	lower := domain.Token(domain.ChainEthereum, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "USDC", 6)
	q2.Output = &lower
	assert.Equal(t, Query(q1), Query(q2))
}

func TestCrossChainKeepsDirection(t *testing.T) {
	a, b := usdc, bUSD
	q1 := baseQuery()
	q1.Input, q1.Output = &a, &b
	q2 := baseQuery()
	q2.Input, q2.Output = &b, &a
	assert.NotEqual(t, Query(q1), Query(q2))
}

func TestPlaceholderBuckets(t *testing.T) {
	q := baseQuery()
	t0 := time.UnixMilli(1_700_000_040_000)
	window := 120 * time.Second

	h0 := Placeholder(q, t0, window)
	assert.Equal(t, h0, Placeholder(q, t0.Add(10*time.Second), window))
	assert.NotEqual(t, h0, Placeholder(q, t0.Add(window), window))

	q.Nonce = 42
	assert.Equal(t, h0, Placeholder(q, t0, window), "nonce does not rotate placeholders")
	assert.NotEqual(t, Query(q), h0)
}

func BenchmarkQuery(b *testing.B) {
	q := baseQuery()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Query(q)
	}
}
