package bridge

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/events"
	"github.com/hxuan190/quote-engine/internal/fsm"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

type OrderState string

const (
	OrderSubmitted      OrderState = "SUBMITTED"
	OrderPending        OrderState = "PENDING"
	OrderSuccess        OrderState = "SUCCESS"
	OrderPartialSuccess OrderState = "PARTIAL_SUCCESS"
	OrderFailed         OrderState = "FAILED"
)

func (s OrderState) IsTerminal() bool {
	return s == OrderSuccess || s == OrderPartialSuccess || s == OrderFailed
}

const DefaultPollInterval = 3 * time.Second

// StatusSource is the part of Client the tracker needs.
type StatusSource interface {
	Status(ctx context.Context, chainName, txHash string) (*domain.BridgeStatusReport, error)
}

// Update is one observed state of a tracked order.
type Update struct {
	State  OrderState
	Status domain.BridgeStatus
	Report *domain.BridgeStatusReport
}

// Tracker polls the status of submitted bridge orders until they settle.
type Tracker struct {
	source    StatusSource
	publisher events.Publisher
	interval  time.Duration
}

func NewTracker(source StatusSource, publisher events.Publisher, interval time.Duration) *Tracker {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tracker{source: source, publisher: publisher, interval: interval}
}

// Check fetches and reduces the current status once.
func (t *Tracker) Check(ctx context.Context, chainName, txHash string) (domain.BridgeStatus, *domain.BridgeStatusReport, error) {
	report, err := t.source.Status(ctx, chainName, txHash)
	if err != nil {
		metrics.BridgeStatusPolls.WithLabelValues("error").Inc()
		return "", nil, err
	}
	status := ReduceReport(report)
	metrics.BridgeStatusPolls.WithLabelValues(string(status)).Inc()
	return status, report, nil
}

type orderRun struct {
	ctx       context.Context
	chainName string
	txHash    string
	publisher events.Publisher
	last      *domain.BridgeStatusReport
	status    domain.BridgeStatus
}

func (r *orderRun) publish(state OrderState) func() {
	return func() {
		var steps []domain.StepStatus
		if r.last != nil {
			steps = r.last.Steps
		}
		ev := events.NewOrderStatusEvent(r.chainName, r.txHash, string(state), r.status, steps)
		if err := r.publisher.PublishOrderStatus(r.ctx, ev); err != nil {
			log.Warn().Err(err).Str("txHash", r.txHash).Str("state", string(state)).Msg("[bridge] failed to publish order status")
		}
	}
}

func orderMachine(r *orderRun) *fsm.Config[OrderState, domain.BridgeStatus] {
	settle := map[domain.BridgeStatus]fsm.Transition[OrderState]{
		domain.StatusSuccess:        {Target: OrderSuccess},
		domain.StatusPartialSuccess: {Target: OrderPartialSuccess},
		domain.StatusFailed:         {Target: OrderFailed},
	}
	fromSubmitted := map[domain.BridgeStatus]fsm.Transition[OrderState]{
		domain.StatusPending:       {Target: OrderPending},
		domain.StatusBridgePending: {Target: OrderPending},
	}
	for k, v := range settle {
		fromSubmitted[k] = v
	}
	return &fsm.Config[OrderState, domain.BridgeStatus]{
		Name:    "order_status",
		Initial: OrderSubmitted,
		States: map[OrderState]fsm.State[OrderState, domain.BridgeStatus]{
			OrderSubmitted:      {On: fromSubmitted, Entry: r.publish(OrderSubmitted)},
			OrderPending:        {On: settle, Entry: r.publish(OrderPending)},
			OrderSuccess:        {Entry: r.publish(OrderSuccess)},
			OrderPartialSuccess: {Entry: r.publish(OrderPartialSuccess)},
			OrderFailed:         {Entry: r.publish(OrderFailed)},
		},
	}
}

// Track polls until the order reaches a terminal state or ctx is done.
// Transient poll errors are logged and retried on the next tick. onUpdate,
// when set, sees every state change.
func (t *Tracker) Track(ctx context.Context, chainName, txHash string, onUpdate func(Update)) (Update, error) {
	run := &orderRun{ctx: ctx, chainName: chainName, txHash: txHash, publisher: t.publisher}
	m := fsm.New(orderMachine(run))
	cur := Update{State: OrderSubmitted}
	if onUpdate != nil {
		onUpdate(cur)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		status, report, err := t.Check(ctx, chainName, txHash)
		if err != nil {
			if ctx.Err() != nil {
				return cur, ctx.Err()
			}
			log.Warn().Err(err).Str("chain", chainName).Str("txHash", txHash).Msg("[bridge] status poll failed")
		} else {
			run.last = report
			run.status = status
			if m.Send(status) {
				cur = Update{State: m.State(), Status: status, Report: report}
				if onUpdate != nil {
					onUpdate(cur)
				}
			}
			if cur.State.IsTerminal() {
				return cur, nil
			}
		}

		select {
		case <-ctx.Done():
			return cur, ctx.Err()
		case <-ticker.C:
		}
	}
}
