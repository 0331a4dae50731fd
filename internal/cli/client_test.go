package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/quote-engine/internal/bridge"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/events"
	api "github.com/hxuan190/quote-engine/internal/http"
)

func TestQuoteValues(t *testing.T) {
	bps := uint32(30)
	v := quoteValues(api.QuoteRequest{
		InputChainID: 1, InputToken: "native", OutputChainID: 8453, OutputToken: "0xabc",
		Amount: "100", SlippageBps: &bps, X: true,
	})
	assert.Equal(t, "8453", v.Get("outputChainId"))
	assert.Equal(t, "30", v.Get("slippageBps"))
	assert.Equal(t, "true", v.Get("x"))
	assert.Empty(t, v.Get("inputDecimals"))
	assert.Empty(t, v.Get("tradeType"))
}

func TestStreamURL(t *testing.T) {
	u, err := NewAPIClient("https://quotes.example.com/", time.Second).streamURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://quotes.example.com/api/v1/quote/stream", u)

	u, err = NewAPIClient("http://localhost:8080", time.Second).streamURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/v1/quote/stream", u)
}

// statusServer reports PENDING for the first polls, then SUCCESS.
func statusServer(t *testing.T, pending int32) (*httptest.Server, *atomic.Int32) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bridge/status/base", r.URL.Path)
		assert.Equal(t, "0xfeed", r.URL.Query().Get("txHash"))
		status := domain.StatusPending
		if polls.Add(1) > pending {
			status = domain.StatusSuccess
		}
		body, _ := sonic.Marshal(envelope[api.StatusResponse]{Success: true, Data: api.StatusResponse{
			TxHash: "0xfeed", Chain: "base", Status: status,
			Report: &domain.BridgeStatusReport{Status: status, Steps: []domain.StepStatus{{Command: domain.CommandBridge, Status: status}}},
		}})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &polls
}

func TestTrackThroughAPI(t *testing.T) {
	srv, polls := statusServer(t, 2)
	client := NewAPIClient(srv.URL, time.Second)
	rec := &events.Recorder{}
	tracker := bridge.NewTracker(client, rec, 10*time.Millisecond)

	var states []bridge.OrderState
	final, err := tracker.Track(context.Background(), "base", "0xfeed", func(u bridge.Update) {
		states = append(states, u.State)
	})
	require.NoError(t, err)
	assert.Equal(t, bridge.OrderSuccess, final.State)
	assert.Equal(t, []bridge.OrderState{bridge.OrderSubmitted, bridge.OrderPending, bridge.OrderSuccess}, states)
	assert.Equal(t, int32(3), polls.Load())
	assert.Len(t, rec.Events(), 3)
}

func TestStatusUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"success":false,"error":"bad gateway"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, time.Second).Status(context.Background(), "base", "0x1")
	var ne *domain.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusBadGateway, ne.StatusCode)
}

func TestStreamStopsOnTerminalFrame(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan api.QuoteRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		send := func(m api.StreamMessage) {
			data, _ := sonic.Marshal(m)
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		send(api.StreamMessage{Type: "connected", Session: "s1"})

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req api.QuoteRequest
		_ = sonic.Unmarshal(data, &req)
		received <- req

		send(api.StreamMessage{Type: "phase", Phase: "quoting"})
		send(api.StreamMessage{Type: "quote", Quote: &api.QuoteResponse{Hash: "h", State: "pending"}})
		send(api.StreamMessage{Type: "quote", Quote: &api.QuoteResponse{Hash: "h", State: "just", Order: &api.OrderView{AmountOut: "42"}}})
		// drain until the client closes
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, time.Second)
	final, err := quoteStream(context.Background(), client, api.QuoteRequest{InputChainID: 1, Amount: "7"}, 5*time.Second, true)
	require.NoError(t, err)
	assert.Equal(t, "just", final.State)
	assert.Equal(t, "42", final.Order.AmountOut)
	assert.Equal(t, "7", (<-received).Amount)
}

func TestStreamErrorFrame(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
		data, _ := sonic.Marshal(api.StreamMessage{Type: "error", Error: "invalid amount: must be a positive integer"})
		_ = conn.WriteMessage(websocket.TextMessage, data)
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	_, err := quoteStream(context.Background(), NewAPIClient(srv.URL, time.Second), api.QuoteRequest{}, 5*time.Second, true)
	require.EqualError(t, err, "invalid amount: must be a positive integer")
}
