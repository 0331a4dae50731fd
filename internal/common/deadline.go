package common

import (
	"context"
	"time"

	"github.com/hxuan190/quote-engine/internal/domain"
)

type Outcome uint8

const (
	OutcomeOk Outcome = iota
	OutcomeTimeout
	OutcomeErr
)

// Result is the tagged outcome of WithDeadline.
type Result[T any] struct {
	Outcome Outcome
	Value   T
	Err     error
}

// WithDeadline runs fn under a context that is cancelled after d. A run that
// outlives the deadline reports OutcomeTimeout with a *domain.TimeoutError,
// even if fn returns a context error afterwards. Parent cancellation is
// reported as OutcomeErr.
func WithDeadline[T any](ctx context.Context, op string, d time.Duration, fn func(context.Context) (T, error)) Result[T] {
	dctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type ret struct {
		v   T
		err error
	}
	done := make(chan ret, 1)
	go func() {
		v, err := fn(dctx)
		done <- ret{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if ctx.Err() == nil && dctx.Err() == context.DeadlineExceeded {
				return Result[T]{Outcome: OutcomeTimeout, Err: domain.NewTimeoutError(op, d)}
			}
			return Result[T]{Outcome: OutcomeErr, Err: r.err}
		}
		return Result[T]{Outcome: OutcomeOk, Value: r.v}
	case <-dctx.Done():
		if ctx.Err() != nil {
			return Result[T]{Outcome: OutcomeErr, Err: ctx.Err()}
		}
		return Result[T]{Outcome: OutcomeTimeout, Err: domain.NewTimeoutError(op, d)}
	}
}

// Unpack converts a Result back into the (value, error) convention.
func (r Result[T]) Unpack() (T, error) {
	return r.Value, r.Err
}
