package http

import (
	"context"
	gohttp "net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/engine"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 8 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *gohttp.Request) bool {
		return true
	},
}

// StreamMessage is a server frame of the quote stream. Quote frames carry
// the query hash; clients drop frames of a hash they no longer display.
type StreamMessage struct {
	Type    string         `json:"type" enums:"connected,quote,phase,error"`
	Session string         `json:"session,omitempty"`
	Phase   string         `json:"phase,omitempty"`
	Quote   *QuoteResponse `json:"quote,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type streamConn struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	out    chan StreamMessage
}

func (s *streamConn) send(m StreamMessage) bool {
	select {
	case s.out <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// trySend drops m when the outbox is full.
func (s *streamConn) trySend(m StreamMessage) {
	select {
	case s.out <- m:
	default:
	}
}

func (s *streamConn) writeLoop() {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	defer s.cancel()
	for {
		select {
		case <-s.ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		case m := <-s.out:
			payload, err := sonic.Marshal(m)
			if err != nil {
				log.Error().Err(err).Msg("[quoteStream] failed to encode frame")
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// @Summary Stream quotes
// @Description WebSocket. Each client message is a QuoteRequest; the server answers with
// @Description quote frames for every state of the latest request. A new request cancels
// @Description the previous one. Phase frames report the session lifecycle.
// @Tags quote
// @Router /api/v1/quote/stream [get]
func (h *QuoteHandler) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[quoteStream] websocket upgrade failed")
		return
	}
	defer conn.Close()

	scope := uuid.NewString()
	metrics.WebsocketStreams.Inc()
	defer metrics.WebsocketStreams.Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	s := &streamConn{conn: conn, ctx: ctx, cancel: cancel, out: make(chan StreamMessage, 64)}
	go s.writeLoop()

	defer h.engine.Close(scope)
	stop := h.engine.Session(scope).Observe(func(p engine.Phase) {
		s.trySend(StreamMessage{Type: "phase", Phase: string(p)})
	})
	defer stop()

	s.send(StreamMessage{Type: "connected", Session: scope})
	log.Debug().Str("session", scope).Msg("[quoteStream] client connected")

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("session", scope).Msg("[quoteStream] read failed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var req QuoteRequest
		if err := sonic.Unmarshal(data, &req); err != nil {
			s.send(StreamMessage{Type: "error", Error: "invalid message: " + err.Error()})
			continue
		}
		p, err := req.toParams(h.quoting)
		if err != nil {
			s.send(StreamMessage{Type: "error", Error: err.Error()})
			continue
		}
		q := h.engine.Build(p)
		go h.forward(s, q, h.engine.Subscribe(ctx, scope, q))
	}
}

func (h *QuoteHandler) forward(s *streamConn, q *domain.QuoteQuery, st *engine.Stream) {
	for res := range st.C {
		resp := newQuoteResponse(q, res)
		if !s.send(StreamMessage{Type: "quote", Quote: &resp}) {
			return
		}
	}
	if err := st.Err(); err != nil {
		s.send(StreamMessage{Type: "error", Error: "quote aborted"})
	}
}
