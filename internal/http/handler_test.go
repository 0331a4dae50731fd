package http

import (
	"context"
	"errors"
	gohttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/quote-engine/internal/config"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/engine"
	"github.com/hxuan190/quote-engine/internal/http/httputil"
	"github.com/hxuan190/quote-engine/internal/http/middlewares"
	"github.com/hxuan190/quote-engine/internal/pools"
	"github.com/hxuan190/quote-engine/internal/selector"
	"github.com/hxuan190/quote-engine/internal/strategy"
)

const usdcAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"

var (
	eth    = domain.Native(domain.ChainEthereum, "ETH", 18)
	arbETH = domain.Native(domain.ChainArbitrum, "ETH", 18)
)

func ethToUSDC(fail bool) strategy.Strategy {
	return strategy.Func{Name: strategy.KeyFullMultiHop, Fn: func(ctx context.Context, q *domain.QuoteQuery) (domain.Order, error) {
		if fail {
			return nil, errors.New("no pools")
		}
		out := new(uint256.Int).Div(new(uint256.Int).Mul(q.Amount, uint256.NewInt(1800e6)), uint256.NewInt(1e18))
		return &domain.ClassicOrder{Trade: &domain.Trade{
			TradeType:    domain.ExactInput,
			Input:        *q.Input,
			Output:       *q.Output,
			InputAmount:  q.Amount.Clone(),
			OutputAmount: out,
			Source:       string(strategy.KeyFullMultiHop),
		}}, nil
	}}
}

type fakeCross struct{}

func (fakeCross) Quote(ctx context.Context, q *domain.QuoteQuery) (*domain.BridgeOrder, error) {
	return &domain.BridgeOrder{
		Pattern:           domain.PatternBridgeOnly,
		Input:             *q.Input,
		Output:            *q.Output,
		AmountIn:          q.Amount.Clone(),
		ExpectedAmountOut: q.Amount.Clone(),
		MinAmountOut:      q.Amount.Clone(),
		SlippageBps:       q.SlippageBps,
		Commands: []domain.Command{{
			Type: domain.CommandBridge, ChainID: q.Input.ChainID,
			Input: *q.Input, Output: *q.Output, AmountIn: q.Amount.Clone(), AmountOut: q.Amount.Clone(),
		}},
	}, nil
}

type fakeBridge struct {
	calldata domain.CalldataRequest
}

func (f *fakeBridge) Routes(ctx context.Context, origin, destination domain.ChainID, originToken, destinationToken string) ([]domain.BridgeRoute, error) {
	return []domain.BridgeRoute{{OriginChainID: origin, DestinationChainID: destination, OriginToken: "native", DestinationToken: "native"}}, nil
}

func (f *fakeBridge) Calldata(ctx context.Context, req domain.CalldataRequest) (*domain.CalldataResponse, error) {
	f.calldata = req
	return &domain.CalldataResponse{TransactionData: domain.TransactionData{Router: "0xrouter", Calldata: "0xdead"}, GasFee: "21000"}, nil
}

type fakeChecker struct {
	err error
}

func (f fakeChecker) Check(ctx context.Context, chainName, txHash string) (domain.BridgeStatus, *domain.BridgeStatusReport, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return domain.StatusSuccess, &domain.BridgeStatusReport{Status: domain.StatusSuccess}, nil
}

type fixture struct {
	router *gin.Engine
	engine *engine.Engine
	bridge *fakeBridge
}

func newFixture(t *testing.T, fail bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultQuotingConfig()
	rc := strategy.RoutingConfig{domain.ChainEthereum: {strategy.TokenKey(eth): {{Key: strategy.KeyFullMultiHop, Priority: 1}}}}
	resolver := strategy.NewResolver(strategy.NewRegistry(ethToUSDC(fail)), strategy.NewStaticConfigLoader(rc))
	e := engine.New(cfg, selector.New(resolver, cfg), fakeCross{})

	b := &fakeBridge{}
	empty := pools.FetcherFunc(func(ctx context.Context, a, b domain.Currency, chainID domain.ChainID, blockNumber uint64, opts pools.Options) ([]*domain.Pool, error) {
		return nil, nil
	})
	svc := &HTTPService{
		rateLimiter: middlewares.NewRateLimiter(1000, 1000),
		handlers: []httputil.IHttpHandler{
			NewQuoteHandler(e, cfg, func(c *gin.Context) int { return 3 }),
			NewBridgeHandler(e, b, fakeChecker{}),
			NewPoolHandler(empty),
		},
	}
	return &fixture{router: svc.router(), engine: e, bridge: b}
}

type envelope struct {
	Success bool          `json:"success"`
	Data    QuoteResponse `json:"data"`
	Error   string        `json:"error"`
	Code    string        `json:"code"`
}

func (f *fixture) do(t *testing.T, method, path string, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	_ = sonic.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func quotePath(output string, outputChain domain.ChainID, amount string) string {
	v := url.Values{}
	v.Set("inputChainId", "1")
	v.Set("inputToken", "native")
	v.Set("outputChainId", outputChain.String())
	v.Set("outputToken", output)
	v.Set("amount", amount)
	return "/api/v1/quote?" + v.Encode()
}

func TestGetQuote(t *testing.T) {
	f := newFixture(t, false)

	w, env := f.do(t, gohttp.MethodGet, quotePath(usdcAddr, domain.ChainEthereum, "2000000000000000000"), "")
	require.Equal(t, gohttp.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, "just", env.Data.State)
	assert.NotEmpty(t, env.Data.Hash)
	require.NotNil(t, env.Data.Order)
	assert.Equal(t, "CLASSIC", env.Data.Order.Type)
	assert.Equal(t, "3600000000", env.Data.Order.AmountOut)
	assert.Equal(t, "3600", env.Data.Order.AmountOutFormatted)
	assert.Equal(t, "2", env.Data.Order.AmountInFormatted)
	// 50 bps default slippage
	assert.Equal(t, "3582000000", env.Data.Order.OtherAmountThreshold)

	w, latest := f.do(t, gohttp.MethodGet, "/api/v1/quote/"+env.Data.Hash, "")
	require.Equal(t, gohttp.StatusOK, w.Code)
	assert.Equal(t, "3600000000", latest.Data.Order.AmountOut)

	w, _ = f.do(t, gohttp.MethodGet, "/api/v1/quote/unknown", "")
	assert.Equal(t, gohttp.StatusNotFound, w.Code)
}

func TestGetQuoteBadRequest(t *testing.T) {
	f := newFixture(t, false)

	cases := map[string]string{
		"zero amount":       quotePath(usdcAddr, domain.ChainEthereum, "0"),
		"bad amount":        quotePath(usdcAddr, domain.ChainEthereum, "1.5"),
		"bad token":         quotePath("0xnope", domain.ChainEthereum, "1000"),
		"unlisted decimals": quotePath("0x0000000000000000000000000000000000000bad", domain.ChainEthereum, "1000"),
		"unknown protocol":  quotePath(usdcAddr, domain.ChainEthereum, "1000") + "&protocols=V9",
		"slippage":          quotePath(usdcAddr, domain.ChainEthereum, "1000") + "&slippageBps=10000",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			w, env := f.do(t, gohttp.MethodGet, path, "")
			assert.Equal(t, gohttp.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestGetQuoteNoRoute(t *testing.T) {
	f := newFixture(t, true)

	w, env := f.do(t, gohttp.MethodGet, quotePath(usdcAddr, domain.ChainEthereum, "1000000000000000000"), "")
	assert.Equal(t, gohttp.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "NO_VALID_ROUTE", env.Code)
	assert.Equal(t, "fail", env.Data.State)
}

func TestReloadRoutingConfig(t *testing.T) {
	f := newFixture(t, false)

	w, _ := f.do(t, gohttp.MethodPost, "/api/v1/admin/quote/routing-config/reload", "")
	assert.Equal(t, gohttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"chains":3`)
}

func TestBridgeCalldata(t *testing.T) {
	f := newFixture(t, false)

	w, cross := f.do(t, gohttp.MethodGet, quotePath("native", domain.ChainArbitrum, "1000000000000000000"), "")
	require.Equal(t, gohttp.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "BRIDGE", cross.Data.Order.Type)
	assert.Equal(t, string(domain.PatternBridgeOnly), cross.Data.Order.Pattern)

	body := `{"quoteHash":"` + cross.Data.Hash + `","account":"0x0000000000000000000000000000000000000001","slippageBps":75}`
	w, _ = f.do(t, gohttp.MethodPost, "/api/v1/bridge/calldata", body)
	require.Equal(t, gohttp.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"calldata":"0xdead"`)
	assert.Equal(t, uint32(75), f.bridge.calldata.SlippageBps)
	assert.Equal(t, f.bridge.calldata.Account, f.bridge.calldata.Recipient)
	require.NotNil(t, f.bridge.calldata.Order)
	assert.Equal(t, arbETH, f.bridge.calldata.Order.Output)

	_, same := f.do(t, gohttp.MethodGet, quotePath(usdcAddr, domain.ChainEthereum, "1000000000000000000"), "")
	w, env := f.do(t, gohttp.MethodPost, "/api/v1/bridge/calldata", `{"quoteHash":"`+same.Data.Hash+`","account":"0x01"}`)
	assert.Equal(t, gohttp.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "BRIDGE_TRADE_ERROR", env.Code)

	w, _ = f.do(t, gohttp.MethodPost, "/api/v1/bridge/calldata", `{"quoteHash":"missing","account":"0x01"}`)
	assert.Equal(t, gohttp.StatusNotFound, w.Code)
}

func TestBridgeStatus(t *testing.T) {
	f := newFixture(t, false)

	w, _ := f.do(t, gohttp.MethodGet, "/api/v1/bridge/status/ethereum?txHash=0xabc", "")
	require.Equal(t, gohttp.StatusOK, w.Code)
	var env struct {
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, domain.StatusSuccess, env.Data.Status)
	assert.True(t, env.Data.Terminal)
	assert.Equal(t, "ethereum", env.Data.Chain)

	w, _ = f.do(t, gohttp.MethodGet, "/api/v1/bridge/status/ethereum", "")
	assert.Equal(t, gohttp.StatusBadRequest, w.Code)
}

func TestBridgeStatusUpstreamDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewBridgeHandler(nil, &fakeBridge{}, fakeChecker{err: &domain.NetworkError{Op: "GET", URL: "http://bridge", Err: errors.New("connection refused")}})
	h.SetRoutes(r.Group(h.Root()), r.Group(h.Root()), r.Group("/admin"+h.Root()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(gohttp.MethodGet, "/bridge/status/base?txHash=0x1", nil))
	assert.Equal(t, gohttp.StatusBadGateway, w.Code)
}

func TestPoolPairs(t *testing.T) {
	f := newFixture(t, false)

	w, _ := f.do(t, gohttp.MethodGet, "/api/v1/pools/pairs?chainId=1&tokenA=native&tokenB="+usdcAddr, "")
	require.Equal(t, gohttp.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"symbol":"USDC"`)

	w, _ = f.do(t, gohttp.MethodGet, "/api/v1/pools/candidates?chainId=1&tokenA=native&tokenB="+usdcAddr+"&mode=light", "")
	require.Equal(t, gohttp.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total":0`)

	w, _ = f.do(t, gohttp.MethodGet, "/api/v1/pools/candidates?chainId=1&tokenA=native&tokenB="+usdcAddr+"&mode=huge", "")
	assert.Equal(t, gohttp.StatusBadRequest, w.Code)
}

func readFrame(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m StreamMessage
	require.NoError(t, sonic.Unmarshal(data, &m))
	return m
}

func TestQuoteStream(t *testing.T) {
	f := newFixture(t, false)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/quote/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readFrame(t, conn)
	assert.Equal(t, "connected", hello.Type)
	assert.NotEmpty(t, hello.Session)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"inputChainId":1}`)))
	bad := readFrame(t, conn)
	assert.Equal(t, "error", bad.Type)

	req := `{"inputChainId":1,"inputToken":"native","outputChainId":1,"outputToken":"` + usdcAddr + `","amount":"1000000000000000000"}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(req)))

	var (
		states []string
		phases []string
	)
	for {
		m := readFrame(t, conn)
		if m.Type == "phase" {
			phases = append(phases, m.Phase)
			continue
		}
		require.Equal(t, "quote", m.Type)
		states = append(states, m.Quote.State)
		if m.Quote.State == "just" {
			assert.Equal(t, "1800000000", m.Quote.Order.AmountOut)
			break
		}
	}
	assert.Equal(t, "pending", states[0])
	assert.Contains(t, phases, string(engine.PhaseQuoting))
}
