// Package loadable provides a four-state result container used by every quoting
// component: Nothing, Pending (optionally carrying a value), Just and Fail.
//
// A Loadable is an immutable value. Combinators return new values and never
// mutate the receiver; flags and extras attached to a Loadable survive Map.
package loadable

import (
	"fmt"
	"maps"
)

type Kind uint8

const (
	KindNothing Kind = iota
	KindPending
	KindJust
	KindFail
)

func (k Kind) String() string {
	switch k {
	case KindNothing:
		return "nothing"
	case KindPending:
		return "pending"
	case KindJust:
		return "just"
	case KindFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Well-known flag and extra names.
const (
	FlagPlaceholder      = "placeholder"
	ExtraPlaceholderHash = "placeholderHash"
)

// ProgrammerError is the panic value raised when a Loadable is used against its
// contract, e.g. unwrapping a variant that holds no value.
type ProgrammerError struct {
	Op   string
	Kind Kind
}

func (e *ProgrammerError) Error() string {
	return fmt.Sprintf("loadable: %s called on %s", e.Op, e.Kind)
}

type Loadable[T any] struct {
	kind     Kind
	value    T
	hasValue bool
	err      error
	flags    map[string]struct{}
	extras   map[string]any
}

func Nothing[T any]() Loadable[T] {
	return Loadable[T]{kind: KindNothing}
}

func Pending[T any]() Loadable[T] {
	return Loadable[T]{kind: KindPending}
}

// PendingOf is a Pending that carries the best value known so far.
func PendingOf[T any](v T) Loadable[T] {
	return Loadable[T]{kind: KindPending, value: v, hasValue: true}
}

func Just[T any](v T) Loadable[T] {
	return Loadable[T]{kind: KindJust, value: v, hasValue: true}
}

func Fail[T any](err error) Loadable[T] {
	return Loadable[T]{kind: KindFail, err: err}
}

func (l Loadable[T]) Kind() Kind       { return l.kind }
func (l Loadable[T]) IsNothing() bool  { return l.kind == KindNothing }
func (l Loadable[T]) IsPending() bool  { return l.kind == KindPending }
func (l Loadable[T]) IsJust() bool     { return l.kind == KindJust }
func (l Loadable[T]) IsFail() bool     { return l.kind == KindFail }
func (l Loadable[T]) HasValue() bool   { return l.hasValue }
func (l Loadable[T]) Error() error     { return l.err }
func (l Loadable[T]) IsTerminal() bool { return l.kind != KindPending }

// Value returns the carried value of a Just or a valued Pending.
func (l Loadable[T]) Value() (T, bool) {
	return l.value, l.hasValue
}

func (l Loadable[T]) UnwrapOr(def T) T {
	if l.kind == KindJust {
		return l.value
	}
	return def
}

// Unwrap returns the value of a Just. Calling it on any other variant is a
// contract violation and panics with a *ProgrammerError.
func (l Loadable[T]) Unwrap() T {
	if l.kind != KindJust {
		panic(&ProgrammerError{Op: "Unwrap", Kind: l.kind})
	}
	return l.value
}

func (l Loadable[T]) SetFlag(name string) Loadable[T] {
	out := l
	out.flags = maps.Clone(l.flags)
	if out.flags == nil {
		out.flags = make(map[string]struct{}, 1)
	}
	out.flags[name] = struct{}{}
	return out
}

func (l Loadable[T]) HasFlag(name string) bool {
	_, ok := l.flags[name]
	return ok
}

func (l Loadable[T]) Flags() []string {
	out := make([]string, 0, len(l.flags))
	for f := range l.flags {
		out = append(out, f)
	}
	return out
}

func (l Loadable[T]) SetExtra(key string, v any) Loadable[T] {
	out := l
	out.extras = maps.Clone(l.extras)
	if out.extras == nil {
		out.extras = make(map[string]any, 1)
	}
	out.extras[key] = v
	return out
}

func (l Loadable[T]) GetExtra(key string) (any, bool) {
	v, ok := l.extras[key]
	return v, ok
}

func (l Loadable[T]) String() string {
	switch l.kind {
	case KindJust:
		return fmt.Sprintf("Just(%v)", l.value)
	case KindFail:
		return fmt.Sprintf("Fail(%v)", l.err)
	case KindPending:
		if l.hasValue {
			return fmt.Sprintf("Pending(%v)", l.value)
		}
		return "Pending"
	default:
		return "Nothing"
	}
}

// Map applies fn to the value of a Just. Every other variant passes through
// with its variant, error, flags and extras unchanged; a valued Pending drops
// its value since it cannot be converted without running fn on stale data.
func Map[T, U any](l Loadable[T], fn func(T) U) Loadable[U] {
	out := Loadable[U]{kind: l.kind, err: l.err, flags: l.flags, extras: l.extras}
	if l.kind == KindJust {
		out.value = fn(l.value)
		out.hasValue = true
	}
	return out
}

// Cast re-types a non-Just variant, keeping metadata. Used to propagate
// Pending/Fail/Nothing through compositions that produce a different type.
func Cast[U, T any](l Loadable[T]) Loadable[U] {
	if l.kind == KindJust {
		panic(&ProgrammerError{Op: "Cast", Kind: l.kind})
	}
	return Loadable[U]{kind: l.kind, err: l.err, flags: l.flags, extras: l.extras}
}

// Equal reports whether two loadables hold the same variant, error and value
// according to eq. Metadata is not compared.
func Equal[T any](a, b Loadable[T], eq func(x, y T) bool) bool {
	if a.kind != b.kind || a.hasValue != b.hasValue || a.err != b.err {
		return false
	}
	if !a.hasValue {
		return true
	}
	return eq(a.value, b.value)
}
