package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/hxuan190/quote-engine/internal/domain"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name    string
		chain   domain.ChainID
		in      string
		want    string
		wantErr bool
	}{
		{"evm lowercase", domain.ChainEthereum, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", false},
		{"evm garbage", domain.ChainEthereum, "0x1234", "", true},
		{"solana mint", domain.ChainSolana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", false},
		{"solana garbage", domain.ChainSolana, "0xa0b86991", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAddress(tt.chain, tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveCurrency(t *testing.T) {
	c, err := ResolveCurrency(domain.ChainEthereum, "native", 0)
	if err != nil || !c.IsNative {
		t.Fatalf("expected native currency, got %+v %v", c, err)
	}
	c, err = ResolveCurrency(domain.ChainEthereum, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Symbol != "USDC" || c.Decimals != 6 {
		t.Errorf("expected registry USDC, got %+v", c)
	}
}

func TestIsWrap(t *testing.T) {
	eth, _ := ChainByID(domain.ChainEthereum)
	bsc, _ := ChainByID(domain.ChainBSC)
	if !IsWrap(eth.Native, eth.Wrapped) || !IsWrap(eth.Wrapped, eth.Native) {
		t.Error("ETH <-> WETH must be a wrap")
	}
	if IsWrap(eth.Native, eth.BaseTokens[1]) {
		t.Error("ETH -> USDC is not a wrap")
	}
	if IsWrap(eth.Native, bsc.Wrapped) {
		t.Error("cross-chain pair is not a wrap")
	}
	if !IsTestnet(domain.ChainBSCTestnet) || IsTestnet(domain.ChainBSC) {
		t.Error("testnet flags wrong")
	}
}

func TestWithDeadline(t *testing.T) {
	ok := WithDeadline(context.Background(), "fast", time.Second, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if ok.Outcome != OutcomeOk || ok.Value != 7 {
		t.Fatalf("unexpected %+v", ok)
	}

	slow := WithDeadline(context.Background(), "slow", 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if slow.Outcome != OutcomeTimeout || !domain.IsTimeout(slow.Err) {
		t.Fatalf("expected timeout, got %+v", slow)
	}

	boom := errors.New("boom")
	failed := WithDeadline(context.Background(), "err", time.Second, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	if failed.Outcome != OutcomeErr || !errors.Is(failed.Err, boom) {
		t.Fatalf("expected err, got %+v", failed)
	}

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	cancelled := WithDeadline(parent, "cancelled", time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if cancelled.Outcome != OutcomeErr {
		t.Fatalf("parent cancellation must not be a timeout, got %+v", cancelled)
	}
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewTimeoutError("q", time.Second), http.StatusGatewayTimeout},
		{fmt.Errorf("wrap: %w", domain.ErrNoValidRoute), http.StatusUnprocessableEntity},
		{domain.NewBridgeTradeError("No available routes"), http.StatusUnprocessableEntity},
		{&domain.NetworkError{Op: "GET", URL: "x", StatusCode: 502}, http.StatusBadGateway},
		{domain.Misconfigured("unknown strategy %q", "x"), http.StatusInternalServerError},
		{HTTPErrorBadRequest("bad"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		if got := ToHTTPError(tt.err); got.StatusCode != tt.want {
			t.Errorf("%v: got %d, want %d", tt.err, got.StatusCode, tt.want)
		}
	}
	if ToHTTPError(nil) != nil {
		t.Error("nil error must map to nil")
	}
}
