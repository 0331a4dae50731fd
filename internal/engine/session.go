package engine

import (
	"context"
	"sync"
	"time"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/fsm"
	"github.com/hxuan190/quote-engine/internal/loadable"
)

// Session is one quoting scope, typically a client connection or UI widget.
// Only its latest evaluation may publish states.
type Session struct {
	scope     string
	lifecycle *fsm.Config[Phase, Event]
	machine   *fsm.Machine[Phase, Event]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	expiry *time.Timer
}

func newSession(scope string) *Session {
	cfg := lifecycle(scope)
	return &Session{scope: scope, lifecycle: cfg, machine: fsm.New(cfg, "")}
}

func (s *Session) Scope() string { return s.scope }

func (s *Session) Phase() Phase { return s.machine.State() }

// Observe registers fn for lifecycle changes. fn must not call back into the
// session.
func (s *Session) Observe(fn func(Phase)) func() {
	return s.machine.Observe(fn)
}

// begin cancels the running evaluation and starts a new generation for q.
func (s *Session) begin(ctx context.Context, q *domain.QuoteQuery) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	sctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.gen++

	hash := ""
	if q != nil {
		hash = q.Hash
	}
	s.machine.UpdateDeps(s.lifecycle, hash)
	if !s.machine.Send(EventRefresh) {
		s.machine.Send(EventQuote)
	}
	return sctx, s.gen
}

// settle records the terminal state of generation gen. Resolved quotes expire
// after validity.
func (s *Session) settle(gen uint64, res Result, validity time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	switch res.Kind() {
	case loadable.KindJust:
		s.machine.Send(EventResolved)
		if validity > 0 {
			s.expiry = time.AfterFunc(validity, func() { s.expire(gen) })
		}
	case loadable.KindFail:
		s.machine.Send(EventFailed)
	default:
		s.machine.Send(EventCleared)
	}
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.machine.Send(EventExpire)
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
}

// must be called with mu held
func (s *Session) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
}
