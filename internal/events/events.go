// Package events publishes order lifecycle events.
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

// OrderStatusEvent is emitted whenever a tracked order enters a new state.
type OrderStatusEvent struct {
	ID        string              `json:"id"`
	ChainName string              `json:"chainName"`
	TxHash    string              `json:"txHash"`
	State     string              `json:"state"`
	Status    domain.BridgeStatus `json:"status"`
	Steps     []domain.StepStatus `json:"steps,omitempty"`
	At        time.Time           `json:"at"`
}

func NewOrderStatusEvent(chainName, txHash, state string, status domain.BridgeStatus, steps []domain.StepStatus) OrderStatusEvent {
	return OrderStatusEvent{
		ID:        uuid.NewString(),
		ChainName: chainName,
		TxHash:    txHash,
		State:     state,
		Status:    status,
		Steps:     steps,
		At:        time.Now().UTC(),
	}
}

type Publisher interface {
	PublishOrderStatus(ctx context.Context, ev OrderStatusEvent) error
	Close() error
}

// NATSPublisher publishes to "<prefix>.order.<state>".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("quote-engine"),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("[events] nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("[events] nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) Subject(state string) string {
	return p.prefix + ".order." + strings.ToLower(state)
}

func (p *NATSPublisher) PublishOrderStatus(ctx context.Context, ev OrderStatusEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.Subject(ev.State), data); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return err
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Noop drops events; used when NATS_URL is unset.
type Noop struct{}

func (Noop) PublishOrderStatus(context.Context, OrderStatusEvent) error { return nil }
func (Noop) Close() error                                               { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []OrderStatusEvent
}

func (r *Recorder) PublishOrderStatus(_ context.Context, ev OrderStatusEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Events() []OrderStatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OrderStatusEvent(nil), r.events...)
}

func (r *Recorder) Close() error { return nil }
