package system

import (
	"math"
	"time"

	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
)

// stepProbe is how far above and below the next position walking looks for
// ground.
const stepProbe = 1.0

// MovementSystem integrates walking actors and driven vehicles over one
// fixed frame.
type MovementSystem struct {
	host *ecs.Host
	dt   float64
}

func NewMovementSystem(host *ecs.Host, frame time.Duration) *MovementSystem {
	return &MovementSystem{host: host, dt: frame.Seconds()}
}

func (s *MovementSystem) Update(w *ecs.World) {
	if w == nil || s.host == nil {
		return
	}

	ecs.ForEach2(w, component.AimRequestComponent.Kind(), component.LookComponent.Kind(), func(e ecs.Entity, req *component.AimRequest, look *component.Look) {
		_ = ecs.Remove(w, e, component.AimRequestComponent.Kind())
		look.Forward = req.Forward
		if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok && req.Forward.X != 0 {
			t.Yaw = yawFor(req.Forward.X)
		}
	})

	ecs.ForEach2(w, component.WalkRequestComponent.Kind(), component.MovementComponent.Kind(), func(e ecs.Entity, req *component.WalkRequest, mv *component.Movement) {
		_ = ecs.Remove(w, e, component.WalkRequestComponent.Kind())
		mv.Velocity = req.Velocity
	})

	ecs.ForEach4(w, component.ActorComponent.Kind(), component.MovementComponent.Kind(), component.TransformComponent.Kind(), component.LifeComponent.Kind(), func(e ecs.Entity, _ *component.Actor, mv *component.Movement, t *component.Transform, life *component.Life) {
		if !life.Alive || mv.Velocity.SqrLen() == 0 || ecs.Has(w, e, component.PassengerComponent.Kind()) {
			return
		}
		next := t.Position.Add(mv.Velocity.Scale(s.dt))
		if ground, ok := s.host.SnapToGround(next.Add(common.Vec3{Y: stepProbe}), 2*stepProbe); ok {
			next.Y = ground.Y
		}
		yaw := t.Yaw
		if mv.Velocity.X != 0 {
			yaw = yawFor(mv.Velocity.X)
		}
		s.host.Place(e, next, yaw)
	})

	ecs.ForEach(w, component.VehicleComponent.Kind(), func(_ ecs.Entity, v *component.Vehicle) {
		if v.Velocity.SqrLen() == 0 {
			return
		}
		s.host.MoveVehicle(v.ID, v.Velocity.Scale(s.dt))
	})
}

func yawFor(dx float64) float64 {
	if dx < 0 {
		return math.Pi
	}
	return 0
}
