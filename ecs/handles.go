package ecs

import (
	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs/component"
)

// actorHandle reads and writes an actor's components on demand, so it never
// goes stale between calls.
type actorHandle struct {
	h  *Host
	e  Entity
	id coupling.ActorID
}

func (a *actorHandle) ID() coupling.ActorID { return a.id }

func (a *actorHandle) Alive() bool {
	life, ok := Get(a.h.w, a.e, component.LifeComponent.Kind())
	return ok && life.Alive
}

func (a *actorHandle) Ready() bool {
	life, ok := Get(a.h.w, a.e, component.LifeComponent.Kind())
	if !ok || !life.Ready {
		return false
	}
	w := a.h.w
	return Has(w, a.e, component.AnimatorComponent.Kind()) &&
		Has(w, a.e, component.MovementComponent.Kind()) &&
		Has(w, a.e, component.LookComponent.Kind())
}

func (a *actorHandle) animator() *component.Animator {
	anim, ok := Get(a.h.w, a.e, component.AnimatorComponent.Kind())
	if !ok {
		anim = &component.Animator{}
		_ = Add(a.h.w, a.e, component.AnimatorComponent.Kind(), anim)
	}
	return anim
}

func (a *actorHandle) Gesture() coupling.Gesture {
	if anim, ok := Get(a.h.w, a.e, component.AnimatorComponent.Kind()); ok {
		return anim.Gesture
	}
	return coupling.GestureNone
}

func (a *actorHandle) SendGesture(g coupling.Gesture) {
	a.animator().Gesture = g
}

func (a *actorHandle) Restraint() coupling.Restraint {
	if anim, ok := Get(a.h.w, a.e, component.AnimatorComponent.Kind()); ok {
		return anim.Restraint
	}
	return coupling.Restraint{}
}

func (a *actorHandle) SetRestraint(r coupling.Restraint) {
	a.animator().Restraint = r
}

func (a *actorHandle) Pose() coupling.Pose {
	var pose coupling.Pose
	if t, ok := Get(a.h.w, a.e, component.TransformComponent.Kind()); ok {
		pose.Position = t.Position
		pose.Yaw = t.Yaw
	}
	pose.Facing = yawDir(pose.Yaw)
	pose.AimOrigin = pose.Position
	pose.AimForward = pose.Facing
	if look, ok := Get(a.h.w, a.e, component.LookComponent.Kind()); ok {
		pose.AimOrigin = pose.Position.Add(common.Vec3{Y: look.EyeHeight})
		if look.Forward.SqrLen() > 0 {
			pose.AimForward = look.Forward.Normalized()
		}
	}
	return pose
}

func (a *actorHandle) Vehicle() coupling.Vehicle {
	p, ok := Get(a.h.w, a.e, component.PassengerComponent.Kind())
	if !ok {
		return nil
	}
	ve, ok := a.h.VehicleEntity(p.Vehicle)
	if !ok {
		return nil
	}
	return &vehicleHandle{h: a.h, e: ve, id: p.Vehicle}
}

func (a *actorHandle) DropHeldItem() {
	eq, ok := Get(a.h.w, a.e, component.EquipmentComponent.Kind())
	if !ok || eq.Held == "" {
		return
	}
	eq.Dropped = append(eq.Dropped, eq.Held)
	eq.Held = ""
}

func (a *actorHandle) Teleport(pos common.Vec3, yaw float64) bool {
	mv, ok := Get(a.h.w, a.e, component.MovementComponent.Kind())
	if !ok || mv.TeleportBlocked || Has(a.h.w, a.e, component.PassengerComponent.Kind()) {
		return false
	}
	mv.Teleports++
	a.h.Place(a.e, pos, yaw)
	return true
}

func (a *actorHandle) TeleportUnsafe(pos common.Vec3, yaw float64) {
	if mv, ok := Get(a.h.w, a.e, component.MovementComponent.Kind()); ok {
		mv.UnsafeTeleports++
	}
	a.h.Place(a.e, pos, yaw)
}

type vehicleHandle struct {
	h  *Host
	e  Entity
	id coupling.VehicleID
}

func (v *vehicleHandle) ID() coupling.VehicleID { return v.id }

func (v *vehicleHandle) Position() common.Vec3 {
	if t, ok := Get(v.h.w, v.e, component.TransformComponent.Kind()); ok {
		return t.Position
	}
	return common.Vec3{}
}

func (v *vehicleHandle) Seats() []coupling.Seat {
	c, ok := Get(v.h.w, v.e, component.VehicleComponent.Kind())
	if !ok {
		return nil
	}
	return append([]coupling.Seat(nil), c.Seats...)
}

func (v *vehicleHandle) SeatOf(id coupling.ActorID) (int, bool) {
	c, ok := Get(v.h.w, v.e, component.VehicleComponent.Kind())
	if !ok || !id.Valid() {
		return -1, false
	}
	for i, s := range c.Seats {
		if s.Occupant == id {
			return i, true
		}
	}
	return -1, false
}
