package system

import (
	"github.com/rs/zerolog"

	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
)

// EventLogSystem drains the world event queue, logging notices and coupling
// events and handing them to optional sinks.
type EventLogSystem struct {
	log        zerolog.Logger
	OnNotice   func(ecs.Notice)
	OnCoupling func(coupling.Event)
}

func NewEventLogSystem(logger *zerolog.Logger) *EventLogSystem {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "events").Logger()
	}
	return &EventLogSystem{log: l}
}

func (s *EventLogSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	for _, ev := range w.Events().Drain() {
		switch data := ev.Data.(type) {
		case ecs.Notice:
			s.log.Info().
				Stringer("to", data.To).
				Str("key", string(data.Message.Key)).
				Str("text", data.Message.Text).
				Msg("notice")
			if s.OnNotice != nil {
				s.OnNotice(data)
			}
		case coupling.Event:
			e := s.log.Info().
				Str("kind", string(data.Kind)).
				Stringer("captor", data.Captor).
				Stringer("target", data.Target)
			if data.Reason != "" {
				e = e.Str("reason", string(data.Reason))
			}
			e.Msg("coupling")
			if s.OnCoupling != nil {
				s.OnCoupling(data)
			}
		default:
			s.log.Debug().Str("type", string(ev.Type)).Msg("unhandled event")
		}
	}
}
