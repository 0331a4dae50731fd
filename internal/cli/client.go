package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
	api "github.com/hxuan190/quote-engine/internal/http"
)

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// APIClient calls the quote engine HTTP API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: common.NewHTTPClient(timeout)}
}

func quoteValues(req api.QuoteRequest) url.Values {
	v := url.Values{}
	v.Set("inputChainId", strconv.FormatUint(req.InputChainID, 10))
	v.Set("inputToken", req.InputToken)
	v.Set("outputChainId", strconv.FormatUint(req.OutputChainID, 10))
	v.Set("outputToken", req.OutputToken)
	v.Set("amount", req.Amount)
	if req.InputDecimals != 0 {
		v.Set("inputDecimals", strconv.Itoa(int(req.InputDecimals)))
	}
	if req.OutputDecimals != 0 {
		v.Set("outputDecimals", strconv.Itoa(int(req.OutputDecimals)))
	}
	if req.TradeType != "" {
		v.Set("tradeType", req.TradeType)
	}
	if req.SlippageBps != nil {
		v.Set("slippageBps", strconv.FormatUint(uint64(*req.SlippageBps), 10))
	}
	if req.Protocols != "" {
		v.Set("protocols", req.Protocols)
	}
	if req.X {
		v.Set("x", "true")
	}
	return v
}

// Quote resolves one quote with a blocking request.
func (c *APIClient) Quote(ctx context.Context, req api.QuoteRequest) (*api.QuoteResponse, error) {
	var resp envelope[api.QuoteResponse]
	u := c.baseURL + "/api/v1/quote?" + quoteValues(req).Encode()
	if err := common.DoJSON(ctx, c.httpClient, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Status fetches the status report of a submitted order. It lets the bridge
// tracker poll through the engine instead of the bridge API.
func (c *APIClient) Status(ctx context.Context, chainName, txHash string) (*domain.BridgeStatusReport, error) {
	var resp envelope[api.StatusResponse]
	u := fmt.Sprintf("%s/api/v1/bridge/status/%s?txHash=%s", c.baseURL, url.PathEscape(chainName), url.QueryEscape(txHash))
	if err := common.DoJSON(ctx, c.httpClient, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Report != nil {
		return resp.Data.Report, nil
	}
	return &domain.BridgeStatusReport{Status: resp.Data.Status}, nil
}

func (c *APIClient) streamURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/quote/stream")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// Stream sends req over the quote stream and calls onFrame for every server
// frame until onFrame returns false, the server closes or ctx is done.
func (c *APIClient) Stream(ctx context.Context, req api.QuoteRequest, onFrame func(api.StreamMessage) bool) error {
	u, err := c.streamURL()
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return &domain.NetworkError{Op: "DIAL", URL: u, Err: err}
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	payload, err := sonic.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return &domain.NetworkError{Op: "WRITE", URL: u, Err: err}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return &domain.NetworkError{Op: "READ", URL: u, Err: err}
		}
		var m api.StreamMessage
		if err := sonic.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("invalid frame: %w", err)
		}
		if !onFrame(m) {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}
