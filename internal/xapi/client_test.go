package xapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

var (
	eth  = domain.Native(domain.ChainEthereum, "ETH", 18)
	usdc = domain.Token(domain.ChainEthereum, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC", 6)
)

func query() *domain.QuoteQuery {
	return &domain.QuoteQuery{
		Input: &eth, Output: &usdc, Amount: uint256.NewInt(1e18), TradeType: domain.ExactInput,
		V2: true, V3: true, X: true, SlippageBps: 50, Account: "0xswapper",
	}
}

func TestQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var req quoteRequest
		require.NoError(t, sonic.Unmarshal(data, &req))
		assert.Equal(t, "1000000000000000000", req.Amount)
		assert.Equal(t, common.Wrapped(eth).Address, req.BaseCurrency.Address)
		assert.Equal(t, 0.5, req.Slippage)
		assert.Equal(t, "0xswapper", req.X.Swapper)
		assert.Equal(t, []domain.Protocol{domain.ProtocolV2, domain.ProtocolV3}, req.AMM.Protocols)
		_, _ = io.WriteString(w, `{"routing":"X","quote":{"quoteId":"q-1","filler":"0xfiller","deadline":1700000000,
			"input":{"token":"0xC02a","amount":"1000000000000000000"},"output":{"token":"0xA0b8","amount":"1800000000"}}}`)
	}))
	defer srv.Close()

	order, err := NewClient(srv.URL, common.NewHTTPClient(time.Second)).Quote(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, "q-1", order.QuoteID)
	assert.Equal(t, uint64(1_800_000_000), order.OutputAmount().Uint64())
	assert.Equal(t, domain.OrderX, order.Kind())
	assert.True(t, order.InputCurrency().IsNative)
}

func TestQuoteRoutedClassic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"routing":"CLASSIC"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, common.NewHTTPClient(time.Second)).Quote(context.Background(), query())
	assert.ErrorIs(t, err, domain.ErrNoValidRoute)
}

func TestQuoteIncomplete(t *testing.T) {
	q := query()
	q.Amount = nil
	_, err := NewClient("http://unused", common.NewHTTPClient(time.Second)).Quote(context.Background(), q)
	assert.ErrorIs(t, err, domain.ErrIncompleteTask)
}
