package system

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
	"github.com/milk9111/tether/prefabs"
)

// TimelineSystem turns scripted scenario steps into request components when
// their time comes.
type TimelineSystem struct {
	host  *ecs.Host
	clock *ecs.Clock
	start time.Time
	steps []prefabs.StepSpec
	next  int
	log   zerolog.Logger
}

// NewTimelineSystem plays steps, which must be sorted by time, starting now.
func NewTimelineSystem(host *ecs.Host, clock *ecs.Clock, steps []prefabs.StepSpec, logger *zerolog.Logger) *TimelineSystem {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "timeline").Logger()
	}
	return &TimelineSystem{
		host:  host,
		clock: clock,
		start: clock.Now(),
		steps: steps,
		log:   l,
	}
}

// Done reports whether every step has fired.
func (s *TimelineSystem) Done() bool {
	return s.next >= len(s.steps)
}

func (s *TimelineSystem) Update(w *ecs.World) {
	if w == nil || s.host == nil {
		return
	}
	elapsed := s.clock.Now().Sub(s.start)
	for s.next < len(s.steps) {
		step := s.steps[s.next]
		if time.Duration(step.At*float64(time.Second)) > elapsed {
			return
		}
		s.next++
		s.apply(w, step)
	}
}

func (s *TimelineSystem) apply(w *ecs.World, step prefabs.StepSpec) {
	if step.Action == prefabs.ActionDrive {
		ve, ok := s.host.VehicleEntity(coupling.VehicleID(step.Vehicle))
		if !ok {
			s.log.Warn().Uint64("vehicle", step.Vehicle).Msg("step vehicle missing")
			return
		}
		if v, ok := ecs.Get(w, ve, component.VehicleComponent.Kind()); ok {
			v.Velocity = common.Vec3{X: step.X}
		}
		return
	}

	id := coupling.ActorID(step.Actor)
	e, ok := s.host.ActorEntity(id)
	if !ok {
		s.log.Warn().Stringer("actor", id).Str("action", step.Action).Msg("step actor missing")
		return
	}

	var err error
	switch step.Action {
	case prefabs.ActionSurrender:
		err = ecs.Add(w, e, component.GestureRequestComponent.Kind(), &component.GestureRequest{Gesture: coupling.GestureSurrenderStart})
	case prefabs.ActionStand:
		err = ecs.Add(w, e, component.GestureRequestComponent.Kind(), &component.GestureRequest{Gesture: coupling.GestureSurrenderStop})
	case prefabs.ActionAim:
		err = ecs.Add(w, e, component.AimRequestComponent.Kind(), &component.AimRequest{Forward: common.Vec3{X: step.X, Y: step.Y}})
	case prefabs.ActionWalk:
		err = ecs.Add(w, e, component.WalkRequestComponent.Kind(), &component.WalkRequest{Velocity: common.Vec3{X: step.X}})
	case prefabs.ActionEnter:
		err = ecs.Add(w, e, component.EnterVehicleRequestComponent.Kind(), &component.EnterVehicleRequest{Vehicle: coupling.VehicleID(step.Vehicle)})
	case prefabs.ActionExit:
		err = ecs.Add(w, e, component.ExitVehicleRequestComponent.Kind(), &component.ExitVehicleRequest{})
	case prefabs.ActionUse:
		err = ecs.Add(w, e, component.UseItemRequestComponent.Kind(), &component.UseItemRequest{})
	case prefabs.ActionDie:
		err = ecs.Add(w, e, component.LifecycleRequestComponent.Kind(), &component.LifecycleRequest{Event: component.LifecycleDeath})
	case prefabs.ActionRevive:
		err = ecs.Add(w, e, component.LifecycleRequestComponent.Kind(), &component.LifecycleRequest{Event: component.LifecycleRevive})
	case prefabs.ActionDisconnect:
		err = ecs.Add(w, e, component.LifecycleRequestComponent.Kind(), &component.LifecycleRequest{Event: component.LifecycleDisconnect})
	default:
		s.log.Warn().Str("action", step.Action).Msg("unknown step action")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Stringer("actor", id).Str("action", step.Action).Msg("apply step")
		return
	}
	s.log.Debug().Stringer("actor", id).Str("action", step.Action).Float64("at", step.At).Msg("step")
}
