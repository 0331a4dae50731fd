package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoValidRoute   = errors.New("no valid route")
	ErrNoPoolFound    = errors.New("no pool found")
	ErrInvalidPool    = errors.New("invalid pool")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNoLiquidity    = errors.New("insufficient liquidity")
	ErrIncompleteTask = errors.New("query is missing required fields")
)

// TimeoutError is produced when an operation outlives its deadline.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

func NewTimeoutError(op string, after time.Duration) *TimeoutError {
	return &TimeoutError{Op: op, After: after}
}

// BridgeTradeError is a cross-chain composition precondition failure.
type BridgeTradeError struct {
	Reason string
	Err    error
}

func (e *BridgeTradeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bridge trade: %s: %v", e.Reason, e.Err)
	}
	return "bridge trade: " + e.Reason
}

func (e *BridgeTradeError) Unwrap() error { return e.Err }

func NewBridgeTradeError(reason string) *BridgeTradeError {
	return &BridgeTradeError{Reason: reason}
}

// NetworkError wraps a failed call to a remote collaborator.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MisconfigurationError signals a deployment or programming error. It is
// never folded into a Loadable.
type MisconfigurationError struct {
	Reason string
}

func (e *MisconfigurationError) Error() string {
	return "misconfiguration: " + e.Reason
}

func Misconfigured(format string, args ...any) *MisconfigurationError {
	return &MisconfigurationError{Reason: fmt.Sprintf(format, args...)}
}

func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

func IsMisconfiguration(err error) bool {
	var me *MisconfigurationError
	return errors.As(err, &me)
}
