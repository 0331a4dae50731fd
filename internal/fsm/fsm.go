// Package fsm is a small declarative state machine runtime.
package fsm

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hxuan190/quote-engine/internal/metrics"
)

type Transition[S comparable] struct {
	Target S
	// Guard blocks the transition when it returns false.
	Guard  func() bool
	Action func()
}

type State[S, E comparable] struct {
	On    map[E]Transition[S]
	Entry func()
	Exit  func()
}

type Config[S, E comparable] struct {
	// Name labels transition metrics.
	Name    string
	Initial S
	States  map[S]State[S, E]
}

// Machine holds the current state of one Config. Actions run synchronously
// under the machine lock, in the order exit, transition action, entry, and
// must not call back into the machine. Observers run after the lock is
// released.
type Machine[S, E comparable] struct {
	mu        sync.Mutex
	cfg       *Config[S, E]
	deps      []any
	state     S
	observers map[int]func(S)
	nextObs   int
}

// New creates a machine in cfg.Initial and fires its entry action once.
func New[S, E comparable](cfg *Config[S, E], deps ...any) *Machine[S, E] {
	m := &Machine[S, E]{
		cfg:       cfg,
		deps:      deps,
		state:     cfg.Initial,
		observers: make(map[int]func(S)),
	}
	if st, ok := cfg.States[cfg.Initial]; ok && st.Entry != nil {
		st.Entry()
	}
	return m
}

func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Send fires e. Unknown events and failing guards are ignored; the return
// value reports whether a transition happened.
func (m *Machine[S, E]) Send(e E) bool {
	m.mu.Lock()
	from := m.state
	tr, ok := m.cfg.States[from].On[e]
	if !ok || (tr.Guard != nil && !tr.Guard()) {
		m.mu.Unlock()
		return false
	}

	if exit := m.cfg.States[from].Exit; exit != nil {
		exit()
	}
	if tr.Action != nil {
		tr.Action()
	}
	m.state = tr.Target
	if entry := m.cfg.States[tr.Target].Entry; entry != nil {
		entry()
	}
	obs := m.snapshotObservers()
	name := m.cfg.Name
	m.mu.Unlock()

	metrics.FSMTransitions.WithLabelValues(name, fmt.Sprint(from), fmt.Sprint(tr.Target)).Inc()
	notify(obs, tr.Target)
	return true
}

// Reset returns to the initial state. It does nothing when already there.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	if !m.resetLocked() {
		m.mu.Unlock()
		return
	}
	obs := m.snapshotObservers()
	initial := m.state
	m.mu.Unlock()
	notify(obs, initial)
}

// must be called with mu held
func (m *Machine[S, E]) resetLocked() bool {
	if m.state == m.cfg.Initial {
		return false
	}
	if exit := m.cfg.States[m.state].Exit; exit != nil {
		exit()
	}
	m.state = m.cfg.Initial
	if entry := m.cfg.States[m.cfg.Initial].Entry; entry != nil {
		entry()
	}
	return true
}

// UpdateDeps resets the machine when cfg or any dependency value changed
// since the previous call.
func (m *Machine[S, E]) UpdateDeps(cfg *Config[S, E], deps ...any) {
	m.mu.Lock()
	if cfg == m.cfg && reflect.DeepEqual(deps, m.deps) {
		m.mu.Unlock()
		return
	}
	prev := m.cfg
	m.cfg = cfg
	m.deps = deps
	if m.state == cfg.Initial {
		m.mu.Unlock()
		return
	}
	if exit := prev.States[m.state].Exit; exit != nil {
		exit()
	}
	m.state = cfg.Initial
	if entry := cfg.States[cfg.Initial].Entry; entry != nil {
		entry()
	}
	obs := m.snapshotObservers()
	m.mu.Unlock()
	notify(obs, cfg.Initial)
}

// Observe registers fn for state changes and returns its cancel function.
func (m *Machine[S, E]) Observe(fn func(S)) func() {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// must be called with mu held
func (m *Machine[S, E]) snapshotObservers() []func(S) {
	out := make([]func(S), 0, len(m.observers))
	for i := 0; i < m.nextObs; i++ {
		if fn, ok := m.observers[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify[S any](obs []func(S), s S) {
	for _, fn := range obs {
		fn(s)
	}
}
