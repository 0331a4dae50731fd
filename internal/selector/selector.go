// Package selector picks the best same-chain quote across prioritized tiers
// of strategies.
package selector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/config"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/loadable"
	"github.com/hxuan190/quote-engine/internal/metrics"
	"github.com/hxuan190/quote-engine/internal/strategy"
	"github.com/hxuan190/quote-engine/internal/worker"
)

type Result = loadable.Loadable[domain.Order]

// PanicError wraps a recovered panic of a strategy or composer.
type PanicError struct {
	Source string
	Value  any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Source, e.Value)
}

type Selector struct {
	resolver  *strategy.Resolver
	timeout   time.Duration
	factorGas bool
}

func New(resolver *strategy.Resolver, cfg *config.QuotingConfig) *Selector {
	return &Selector{resolver: resolver, timeout: cfg.QuoteTimeout, factorGas: cfg.FactorGasCost}
}

// Skip reports queries that are never quoted: trivial wraps, disabled or
// incomplete queries, identical currencies and cross-chain pairs.
func Skip(q *domain.QuoteQuery) bool {
	if q == nil || q.Disabled || !q.Complete() || q.IsCrossChain() {
		return true
	}
	return q.Input.Equal(*q.Output) || common.IsWrap(*q.Input, *q.Output)
}

// Select evaluates q tier by tier. emit, when set, receives every state in
// order, ending with the terminal one that is also returned. The error is
// non-nil only for misconfiguration and programmer errors.
func (s *Selector) Select(ctx context.Context, q *domain.QuoteQuery, emit func(Result)) (res Result, err error) {
	r := &reporter{emit: emit}
	defer func() {
		if v := recover(); v != nil {
			res, err = r.recovered(v)
			return
		}
		if err == nil {
			r.send(res)
		}
	}()

	if Skip(q) {
		return loadable.Nothing[domain.Order](), nil
	}
	bound, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		log.Error().Err(err).Str("hash", q.Hash).Msg("[selector] failed to resolve strategies")
		return Result{}, err
	}
	r.send(loadable.Pending[domain.Order]())

	tiers := strategy.Tiers(bound)
	var errs []error
	for i, tier := range tiers {
		last := i == len(tiers)-1
		out, err := s.runTier(ctx, q, tier, r)
		if err != nil {
			return Result{}, err
		}
		if ctx.Err() != nil {
			return loadable.Fail[domain.Order](ctx.Err()), nil
		}
		errs = append(errs, out.errs...)

		switch {
		case out.best == nil:
			if !last {
				metrics.TierFallbacks.WithLabelValues("empty").Inc()
				continue
			}
		case domain.IsBridgeOrder(out.best):
			metrics.TierFallbacks.WithLabelValues("bridge_order").Inc()
			log.Warn().Str("hash", q.Hash).Int("tier", out.priority).Msg("[selector] bridge order in same-chain tier skipped")
		case !last && worker.IsHighPriceImpact(out.best.PriceImpactBps()):
			metrics.TierFallbacks.WithLabelValues("high_impact").Inc()
		case !last && out.shadowFailed:
			metrics.TierFallbacks.WithLabelValues("shadow_failed").Inc()
		default:
			out.logShadows(q)
			return loadable.Just(out.best), nil
		}
	}

	if len(errs) > 0 {
		log.Debug().Errs("errors", errs).Str("hash", q.Hash).Msg("[selector] no tier produced a quote")
		return loadable.Fail[domain.Order](pickError(errs)), nil
	}
	return loadable.Nothing[domain.Order](), nil
}

// pickError prefers a timeout over the generic no-route error.
func pickError(errs []error) error {
	for _, err := range errs {
		if domain.IsTimeout(err) {
			return err
		}
	}
	return domain.ErrNoValidRoute
}

type slot struct {
	bound   strategy.Bound
	done    bool
	order   domain.Order
	err     error
	timeout bool
}

type outcome struct {
	idx     int
	order   domain.Order
	err     error
	timeout bool
}

type tierOutcome struct {
	priority     int
	best         domain.Order
	shadowFailed bool
	shadows      []domain.Order
	errs         []error
}

func (t tierOutcome) logShadows(q *domain.QuoteQuery) {
	for _, sh := range t.shadows {
		log.Debug().
			Str("hash", q.Hash).
			Str("best", domain.FormatAmount(t.best.OutputAmount())).
			Str("shadow", domain.FormatAmount(sh.OutputAmount())).
			Bool("shadowBetter", Better(sh, t.best, false)).
			Msg("[selector] shadow comparison")
	}
}

// runTier starts every strategy of the tier and returns as soon as the tier
// can be decided: all strategies settled, or a best exists and one of them
// timed out. Strategies still running are cancelled on return.
func (s *Selector) runTier(ctx context.Context, q *domain.QuoteQuery, tier []strategy.Bound, r *reporter) (tierOutcome, error) {
	tctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, len(tier))
	slots := make([]slot, len(tier))
	for i, b := range tier {
		slots[i].bound = b
		go s.run(tctx, q, i, b, results)
	}

	for remaining := len(tier); remaining > 0; remaining-- {
		var o outcome
		select {
		case <-ctx.Done():
			return tierOutcome{}, nil
		case o = <-results:
		}
		if IsFatal(o.err) {
			return tierOutcome{}, o.err
		}
		slots[o.idx].done = true
		slots[o.idx].order, slots[o.idx].err, slots[o.idx].timeout = o.order, o.err, o.timeout

		st := s.summarize(slots)
		if remaining == 1 {
			return st.tierOutcome, nil
		}
		if st.best != nil && st.anyTimeout {
			return st.tierOutcome, nil
		}
		r.send(loadable.Pending[domain.Order]())
	}
	return s.summarize(slots).tierOutcome, nil
}

type tierState struct {
	tierOutcome
	anyTimeout bool
}

func (s *Selector) summarize(slots []slot) tierState {
	var st tierState
	if len(slots) > 0 {
		st.priority = slots[0].bound.Priority
	}
	for _, sl := range slots {
		if !sl.done {
			continue
		}
		if sl.timeout {
			st.anyTimeout = true
		}
		if sl.err != nil {
			st.errs = append(st.errs, sl.err)
			if sl.bound.IsShadow {
				st.shadowFailed = true
			}
			continue
		}
		if sl.order == nil {
			continue
		}
		if sl.bound.IsShadow {
			st.shadows = append(st.shadows, sl.order)
			continue
		}
		if Better(sl.order, st.best, s.factorGas) {
			st.best = sl.order
		}
	}
	return st
}

func (s *Selector) run(ctx context.Context, q *domain.QuoteQuery, idx int, b strategy.Bound, out chan<- outcome) {
	key := b.Key()
	start := time.Now()
	res := common.WithDeadline(ctx, string(key), s.timeout, func(ctx context.Context) (domain.Order, error) {
		return guarded(ctx, b.Strategy, b.Query(q))
	})
	metrics.StrategyDuration.WithLabelValues(string(key)).Observe(time.Since(start).Seconds())

	label := "just"
	switch {
	case res.Outcome == common.OutcomeTimeout:
		label = "timeout"
	case res.Err != nil:
		label = "fail"
	case res.Value == nil:
		label = "nothing"
	}
	metrics.StrategyOutcomes.WithLabelValues(string(key), label).Inc()
	if res.Err != nil && ctx.Err() == nil {
		log.Debug().Err(res.Err).Str("strategy", string(key)).Str("hash", q.Hash).Msg("[selector] strategy failed")
	}

	out <- outcome{idx: idx, order: res.Value, err: res.Err, timeout: res.Outcome == common.OutcomeTimeout}
}

// guarded converts a strategy panic into an error. Misconfiguration and
// loadable contract violations keep their type so they stay fatal.
func guarded(ctx context.Context, s strategy.Strategy, q *domain.QuoteQuery) (order domain.Order, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = Recovered(string(s.Key()), v)
		}
	}()
	return s.Quote(ctx, q)
}

// Recovered converts a recovered panic value into an error.
func Recovered(source string, v any) error {
	switch e := v.(type) {
	case *domain.MisconfigurationError:
		return e
	case *loadable.ProgrammerError:
		return e
	default:
		log.Error().Str("source", source).Interface("panic", v).Msg("[selector] recovered panic")
		return &PanicError{Source: source, Value: v}
	}
}

// IsFatal reports errors that abort a quote instead of becoming Fail.
func IsFatal(err error) bool {
	var pe *loadable.ProgrammerError
	return domain.IsMisconfiguration(err) || errors.As(err, &pe)
}

// reporter forwards states to emit, dropping repeated Pendings.
type reporter struct {
	emit        func(Result)
	lastPending bool
}

func (r *reporter) send(res Result) {
	if r.emit == nil {
		return
	}
	if res.IsPending() {
		if r.lastPending {
			return
		}
		r.lastPending = true
	} else {
		r.lastPending = false
	}
	r.emit(res)
}

// recovered turns a panic in the selector itself into Fail, keeping fatal
// panics fatal.
func (r *reporter) recovered(v any) (Result, error) {
	err := Recovered("selector", v)
	if IsFatal(err) {
		return Result{}, err
	}
	res := loadable.Fail[domain.Order](err)
	r.send(res)
	return res, nil
}
