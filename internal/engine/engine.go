// Package engine ties query building, same-chain selection and cross-chain
// composition together, and serves the results as blocking resolves or as
// per-scope snapshot streams.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/hxuan190/quote-engine/internal/cache"
	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/config"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/loadable"
	"github.com/hxuan190/quote-engine/internal/metrics"
	"github.com/hxuan190/quote-engine/internal/placeholder"
	"github.com/hxuan190/quote-engine/internal/query"
	"github.com/hxuan190/quote-engine/internal/selector"
)

type Result = loadable.Loadable[domain.Order]

// CrossChainQuoter composes bridge orders.
type CrossChainQuoter interface {
	Quote(ctx context.Context, q *domain.QuoteQuery) (*domain.BridgeOrder, error)
}

type Engine struct {
	builder      *query.Builder
	selector     *selector.Selector
	cross        CrossChainQuoter
	overlay      *placeholder.Overlay
	latest       *cache.BoundedLRU[string, domain.Order]
	crossTimeout time.Duration
	validity     time.Duration

	flight singleflight.Group

	mu       sync.Mutex
	sessions map[string]*Session
}

func New(cfg *config.QuotingConfig, sel *selector.Selector, cross CrossChainQuoter) *Engine {
	return &Engine{
		builder:      query.NewBuilder(cfg.QueryCacheSize, cfg.PlaceholderWindow),
		selector:     sel,
		cross:        cross,
		overlay:      placeholder.New(cfg.PlaceholderCacheSize),
		latest:       cache.NewBoundedLRU[string, domain.Order](cfg.PlaceholderCacheSize),
		crossTimeout: cfg.CrossChainTimeout,
		validity:     cfg.QuoteValidity,
		sessions:     make(map[string]*Session),
	}
}

// Build returns the memoized query for p.
func (e *Engine) Build(p domain.QuoteQuery) *domain.QuoteQuery {
	return e.builder.Build(p)
}

func (e *Engine) Lookup(hash string) (*domain.QuoteQuery, bool) {
	return e.builder.Lookup(hash)
}

// Latest returns the last order resolved for the query fingerprint hash.
func (e *Engine) Latest(hash string) (domain.Order, bool) {
	return e.latest.Get(hash)
}

func kindOf(q *domain.QuoteQuery) string {
	if q != nil && q.IsCrossChain() {
		return "cross_chain"
	}
	return "same_chain"
}

// Evaluate runs one full evaluation of q. emit, when set, receives every
// state with the placeholder overlay applied, ending with the returned
// terminal state. The error is non-nil only for misconfiguration and
// programmer errors.
func (e *Engine) Evaluate(ctx context.Context, q *domain.QuoteQuery, emit func(Result)) (Result, error) {
	kind := kindOf(q)
	start := time.Now()
	overlaid := func(r Result) {
		if emit != nil {
			emit(e.overlay.Apply(q, r))
		}
	}

	var (
		res Result
		err error
	)
	if kind == "cross_chain" {
		res, err = e.crossChain(ctx, q, overlaid)
	} else {
		res, err = e.selector.Select(ctx, q, overlaid)
	}
	if err != nil {
		metrics.QuoteRequests.WithLabelValues(kind, "error").Inc()
		log.Error().Err(err).Str("hash", q.Hash).Str("kind", kind).Msg("[engine] quote aborted")
		return Result{}, err
	}

	res = e.overlay.Apply(q, res)
	if order, ok := res.Value(); ok && res.IsJust() && q.Hash != "" {
		e.latest.Set(q.Hash, order)
	}
	metrics.QuoteRequests.WithLabelValues(kind, res.Kind().String()).Inc()
	metrics.QuoteDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return res, nil
}

func (e *Engine) crossChain(ctx context.Context, q *domain.QuoteQuery, emit func(Result)) (Result, error) {
	if q.Disabled || !q.Complete() {
		res := loadable.Nothing[domain.Order]()
		emit(res)
		return res, nil
	}
	emit(loadable.Pending[domain.Order]())

	r := common.WithDeadline(ctx, "crosschain", e.crossTimeout, func(ctx context.Context) (order *domain.BridgeOrder, err error) {
		defer func() {
			if v := recover(); v != nil {
				err = selector.Recovered("crosschain", v)
			}
		}()
		return e.cross.Quote(ctx, q)
	})

	var res Result
	switch {
	case selector.IsFatal(r.Err):
		return Result{}, r.Err
	case r.Err != nil:
		log.Debug().Err(r.Err).Str("hash", q.Hash).Msg("[engine] cross-chain quote failed")
		res = loadable.Fail[domain.Order](r.Err)
	case r.Value == nil:
		res = loadable.Nothing[domain.Order]()
	default:
		res = loadable.Just[domain.Order](r.Value)
	}
	emit(res)
	return res, nil
}

// Resolve blocks until q is terminal. Concurrent resolves of one fingerprint
// share a single evaluation, which outlives callers that give up early.
func (e *Engine) Resolve(ctx context.Context, q *domain.QuoteQuery) (Result, error) {
	if q == nil || q.Hash == "" {
		return e.Evaluate(ctx, q, nil)
	}
	ch := e.flight.DoChan(q.Hash, func() (any, error) {
		return e.Evaluate(context.WithoutCancel(ctx), q, nil)
	})
	select {
	case <-ctx.Done():
		return loadable.Fail[domain.Order](ctx.Err()), nil
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

// Stream carries the states of one subscription. C is closed after the
// terminal state, when the subscription is superseded, or when its context
// ends.
type Stream struct {
	C <-chan Result

	done chan struct{}
	err  error
}

// Err blocks until C is closed and returns the fatal error, if any.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Session returns the session of scope, creating it on first use.
func (e *Engine) Session(scope string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[scope]
	if !ok {
		s = newSession(scope)
		e.sessions[scope] = s
	}
	return s
}

// Close cancels the evaluation of scope and forgets the session.
func (e *Engine) Close(scope string) {
	e.mu.Lock()
	s, ok := e.sessions[scope]
	delete(e.sessions, scope)
	e.mu.Unlock()
	if ok {
		s.close()
	}
}

// Subscribe evaluates q in scope. Starting a new subscription in the same
// scope cancels the previous one, whose stream closes without a terminal
// state.
func (e *Engine) Subscribe(ctx context.Context, scope string, q *domain.QuoteQuery) *Stream {
	s := e.Session(scope)
	sctx, gen := s.begin(ctx, q)

	out := make(chan Result, 8)
	st := &Stream{C: out, done: make(chan struct{})}
	go func() {
		defer close(st.done)
		defer close(out)
		metrics.ActiveSessions.Inc()
		defer metrics.ActiveSessions.Dec()

		res, err := e.Evaluate(sctx, q, func(r Result) {
			if sctx.Err() != nil || !s.current(gen) {
				return
			}
			select {
			case out <- r:
			case <-sctx.Done():
			}
		})
		if err != nil {
			st.err = err
			s.settle(gen, loadable.Fail[domain.Order](err), 0)
			return
		}
		if sctx.Err() == nil {
			s.settle(gen, res, e.validity)
		}
	}()
	return st
}
