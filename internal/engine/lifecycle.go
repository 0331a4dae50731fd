package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/fsm"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseQuoting Phase = "quoting"
	PhaseQuoted  Phase = "quoted"
	PhaseFailed  Phase = "failed"
	PhaseExpired Phase = "expired"
)

type Event string

const (
	EventQuote    Event = "QUOTE"
	EventRefresh  Event = "REFRESH"
	EventResolved Event = "RESOLVED"
	EventFailed   Event = "FAILED"
	EventCleared  Event = "CLEARED"
	EventExpire   Event = "EXPIRE"
)

// lifecycle is the per-session quote machine. A fingerprint change resets it
// to idle through UpdateDeps.
func lifecycle(scope string) *fsm.Config[Phase, Event] {
	entered := func(p Phase) func() {
		return func() {
			log.Debug().Str("scope", scope).Str("phase", string(p)).Msg("[engine] session phase")
		}
	}
	refresh := fsm.Transition[Phase]{Target: PhaseQuoting}
	return &fsm.Config[Phase, Event]{
		Name:    "quote_lifecycle",
		Initial: PhaseIdle,
		States: map[Phase]fsm.State[Phase, Event]{
			PhaseIdle: {
				On: map[Event]fsm.Transition[Phase]{EventQuote: {Target: PhaseQuoting}},
			},
			PhaseQuoting: {
				On: map[Event]fsm.Transition[Phase]{
					EventRefresh:  refresh,
					EventResolved: {Target: PhaseQuoted},
					EventFailed:   {Target: PhaseFailed},
					EventCleared:  {Target: PhaseIdle},
				},
				Entry: entered(PhaseQuoting),
			},
			PhaseQuoted: {
				On: map[Event]fsm.Transition[Phase]{
					EventRefresh: refresh,
					EventExpire:  {Target: PhaseExpired},
				},
				Entry: entered(PhaseQuoted),
			},
			PhaseFailed: {
				On:    map[Event]fsm.Transition[Phase]{EventRefresh: refresh},
				Entry: entered(PhaseFailed),
			},
			PhaseExpired: {
				On:    map[Event]fsm.Transition[Phase]{EventRefresh: refresh},
				Entry: entered(PhaseExpired),
			},
		},
	}
}
