package ecs

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs/component"
)

var (
	ErrDuplicateActor   = errors.New("ecs: duplicate actor id")
	ErrDuplicateVehicle = errors.New("ecs: duplicate vehicle id")
	ErrMissingID        = errors.New("ecs: entity has no id")
)

// exitOffset is how far beside its vehicle an exiting actor lands.
const exitOffset = 1.5

// Host exposes a World to the coupling core and routes vehicle and
// lifecycle entry points through the core's hooks.
type Host struct {
	w        *World
	mgr      *coupling.Manager
	actors   map[coupling.ActorID]Entity
	vehicles map[coupling.VehicleID]Entity
}

var (
	_ coupling.World    = (*Host)(nil)
	_ coupling.Notifier = (*Host)(nil)
	_ coupling.Journal  = (*Host)(nil)
)

// NewHost wraps w, attaching a physics world when w has none.
func NewHost(w *World) *Host {
	if w.PhysicsWorld() == nil {
		w.SetPhysicsWorld(NewPhysicsWorld())
	}
	return &Host{
		w:        w,
		actors:   make(map[coupling.ActorID]Entity),
		vehicles: make(map[coupling.VehicleID]Entity),
	}
}

// Bind attaches the manager whose hooks the host calls.
func (h *Host) Bind(m *coupling.Manager) {
	h.mgr = m
}

func (h *Host) Manager() *coupling.Manager {
	return h.mgr
}

func (h *Host) World() *World {
	return h.w
}

// Register indexes e by the actor, vehicle or ground component it carries.
func (h *Host) Register(e Entity) error {
	if a, ok := Get(h.w, e, component.ActorComponent.Kind()); ok {
		if !a.ID.Valid() {
			return fmt.Errorf("register actor %q: %w", a.Name, ErrMissingID)
		}
		if prev, dup := h.actors[a.ID]; dup && prev != e {
			return fmt.Errorf("register actor %v: %w", a.ID, ErrDuplicateActor)
		}
		h.actors[a.ID] = e
		if t, ok := Get(h.w, e, component.TransformComponent.Kind()); ok && !Has(h.w, e, component.PassengerComponent.Kind()) {
			h.w.PhysicsWorld().SetActor(e, t.Position)
		}
	}
	if v, ok := Get(h.w, e, component.VehicleComponent.Kind()); ok {
		if v.ID == 0 {
			return fmt.Errorf("register vehicle %q: %w", v.Name, ErrMissingID)
		}
		if prev, dup := h.vehicles[v.ID]; dup && prev != e {
			return fmt.Errorf("register vehicle %d: %w", v.ID, ErrDuplicateVehicle)
		}
		h.vehicles[v.ID] = e
	}
	if g, ok := Get(h.w, e, component.GroundComponent.Kind()); ok {
		h.w.PhysicsWorld().AddGround(g.From, g.To)
	}
	return nil
}

// ActorEntity returns the entity of a connected actor.
func (h *Host) ActorEntity(id coupling.ActorID) (Entity, bool) {
	e, ok := h.actors[id]
	if !ok || !IsAlive(h.w, e) {
		return 0, false
	}
	return e, true
}

func (h *Host) VehicleEntity(id coupling.VehicleID) (Entity, bool) {
	e, ok := h.vehicles[id]
	if !ok || !IsAlive(h.w, e) {
		return 0, false
	}
	return e, true
}

// Actor implements coupling.World.
func (h *Host) Actor(id coupling.ActorID) (coupling.Actor, bool) {
	e, ok := h.ActorEntity(id)
	if !ok {
		return nil, false
	}
	return &actorHandle{h: h, e: e, id: id}, true
}

// Actors lists connected actors by id.
func (h *Host) Actors() []coupling.Actor {
	ids := make([]coupling.ActorID, 0, len(h.actors))
	for id := range h.actors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]coupling.Actor, 0, len(ids))
	for _, id := range ids {
		if a, ok := h.Actor(id); ok {
			out = append(out, a)
		}
	}
	return out
}

func (h *Host) RaycastActor(origin, dir common.Vec3, maxDistance float64, ignore coupling.ActorID) (coupling.Actor, bool) {
	flat := common.Vec3{X: dir.X, Y: dir.Y}
	if flat.SqrLen() < 1e-6 || maxDistance <= 0 {
		return nil, false
	}
	end := origin.Add(flat.Normalized().Scale(maxDistance))
	skip := h.actors[ignore]
	e, ok := h.w.PhysicsWorld().Raycast(origin, end, skip)
	if !ok {
		return nil, false
	}
	return h.actorAt(e)
}

func (h *Host) ActorsInRange(origin common.Vec3, maxDistance float64) []coupling.Actor {
	var out []coupling.Actor
	for _, e := range h.w.PhysicsWorld().ActorsNear(origin, maxDistance) {
		if a, ok := h.actorAt(e); ok {
			out = append(out, a)
		}
	}
	return out
}

func (h *Host) SnapToGround(p common.Vec3, depth float64) (common.Vec3, bool) {
	return h.w.PhysicsWorld().GroundBelow(p, depth)
}

// ForceSeat seats a into v on the core's behalf. Locked vehicles still
// require an entry allowance.
func (h *Host) ForceSeat(a coupling.Actor, v coupling.Vehicle) bool {
	ae, ok := h.entityOf(a)
	if !ok || v == nil {
		return false
	}
	ve, ok := h.VehicleEntity(v.ID())
	if !ok || Has(h.w, ae, component.PassengerComponent.Kind()) {
		return false
	}
	if !h.entryAllowed(a.ID(), ve) {
		return false
	}
	if !h.seat(ae, ve, 1) {
		return false
	}
	if h.mgr != nil {
		h.mgr.OnSeatTaken(a.ID(), v)
	}
	return true
}

func (h *Host) ForceExit(a coupling.Actor) bool {
	e, ok := h.entityOf(a)
	if !ok || !Has(h.w, e, component.PassengerComponent.Kind()) {
		return false
	}
	h.RemoveFromVehicle(e)
	return true
}

// TryEnterVehicle is a voluntary boarding by id.
func (h *Host) TryEnterVehicle(id coupling.ActorID, vid coupling.VehicleID) bool {
	ae, ok := h.ActorEntity(id)
	if !ok {
		return false
	}
	ve, ok := h.VehicleEntity(vid)
	if !ok || Has(h.w, ae, component.PassengerComponent.Kind()) {
		return false
	}
	if life, ok := Get(h.w, ae, component.LifeComponent.Kind()); !ok || !life.Alive {
		return false
	}
	if !h.entryAllowed(id, ve) {
		return false
	}
	vh := &vehicleHandle{h: h, e: ve, id: vid}
	if h.mgr != nil && !h.mgr.AllowSeatEntry(id, vh) {
		return false
	}
	if !h.seat(ae, ve, 0) {
		return false
	}
	if h.mgr != nil {
		h.mgr.OnSeatTaken(id, vh)
	}
	return true
}

// RequestExit is a voluntary exit by id.
func (h *Host) RequestExit(id coupling.ActorID) bool {
	e, ok := h.ActorEntity(id)
	if !ok || !Has(h.w, e, component.PassengerComponent.Kind()) {
		return false
	}
	if h.mgr != nil && !h.mgr.AllowExitRequest(id) {
		return false
	}
	h.RemoveFromVehicle(e)
	return true
}

// RemoveFromVehicle frees e's seat for any reason and lands it beside the
// vehicle. The core may put a coupled target straight back.
func (h *Host) RemoveFromVehicle(e Entity) {
	p, ok := Get(h.w, e, component.PassengerComponent.Kind())
	if !ok {
		return
	}
	a, ok := Get(h.w, e, component.ActorComponent.Kind())
	if !ok {
		Remove(h.w, e, component.PassengerComponent.Kind())
		return
	}
	ve, vok := h.VehicleEntity(p.Vehicle)
	var vh coupling.Vehicle
	if vok {
		vh = &vehicleHandle{h: h, e: ve, id: p.Vehicle}
	}

	keep := false
	if h.mgr != nil && vh != nil {
		keep = h.mgr.BeforeSeatRemoval(a.ID, vh)
	}

	landing := common.Vec3{}
	if vok {
		v, _ := Get(h.w, ve, component.VehicleComponent.Kind())
		if p.Seat >= 0 && p.Seat < len(v.Seats) && v.Seats[p.Seat].Occupant == a.ID {
			v.Seats[p.Seat].Occupant = coupling.NilActor
		}
		if t, ok := Get(h.w, ve, component.TransformComponent.Kind()); ok {
			landing = t.Position.Add(common.Vec3{X: exitOffset})
		}
	}
	Remove(h.w, e, component.PassengerComponent.Kind())
	if ground, ok := h.SnapToGround(landing.Add(common.Vec3{Y: 2}), 6); ok {
		landing = ground
	}
	h.Place(e, landing, h.yawOf(e))

	if h.mgr != nil {
		h.mgr.AfterSeatRemoval(a.ID, vh, keep)
	}
}

// Disconnect lets the core release id's couplings and then removes the
// actor from the world.
func (h *Host) Disconnect(id coupling.ActorID) {
	e, ok := h.ActorEntity(id)
	if !ok {
		return
	}
	if h.mgr != nil {
		h.mgr.OnDisconnect(id)
	}
	if p, ok := Get(h.w, e, component.PassengerComponent.Kind()); ok {
		h.freeSeat(p.Vehicle, id)
	}
	h.w.PhysicsWorld().RemoveActor(e)
	DestroyEntity(h.w, e)
	delete(h.actors, id)
}

// MoveVehicle shifts a vehicle and everyone seated in it.
func (h *Host) MoveVehicle(vid coupling.VehicleID, delta common.Vec3) {
	ve, ok := h.VehicleEntity(vid)
	if !ok {
		return
	}
	t, ok := Get(h.w, ve, component.TransformComponent.Kind())
	if !ok {
		return
	}
	t.Position = t.Position.Add(delta)
	v, _ := Get(h.w, ve, component.VehicleComponent.Kind())
	for _, s := range v.Seats {
		if e, ok := h.ActorEntity(s.Occupant); ok {
			if at, ok := Get(h.w, e, component.TransformComponent.Kind()); ok {
				at.Position = t.Position
			}
		}
	}
}

// Notify queues msg for delivery to its actor.
func (h *Host) Notify(to coupling.ActorID, msg coupling.Message) {
	h.w.Events().Push(Event{Type: EventNotice, Data: Notice{To: to, Message: msg}})
}

// Record queues a coupling lifecycle event.
func (h *Host) Record(e coupling.Event) {
	h.w.Events().Push(Event{Type: EventCoupling, Data: e})
}

func (h *Host) entryAllowed(id coupling.ActorID, ve Entity) bool {
	v, ok := Get(h.w, ve, component.VehicleComponent.Kind())
	if !ok {
		return false
	}
	if !v.Locked {
		return true
	}
	return h.mgr != nil && h.mgr.BypassEntryCheck(id, v.ID)
}

// seat puts e in the first free seat of ve, scanning from index from.
func (h *Host) seat(e, ve Entity, from int) bool {
	a, ok := Get(h.w, e, component.ActorComponent.Kind())
	if !ok {
		return false
	}
	v, ok := Get(h.w, ve, component.VehicleComponent.Kind())
	if !ok || len(v.Seats) == 0 {
		return false
	}
	for i := range v.Seats {
		idx := (from + i) % len(v.Seats)
		if !v.Seats[idx].Free() {
			continue
		}
		v.Seats[idx].Occupant = a.ID
		_ = Add(h.w, e, component.PassengerComponent.Kind(), &component.Passenger{Vehicle: v.ID, Seat: idx})
		if vt, ok := Get(h.w, ve, component.TransformComponent.Kind()); ok {
			if t, ok := Get(h.w, e, component.TransformComponent.Kind()); ok {
				t.Position = vt.Position
			}
		}
		h.w.PhysicsWorld().RemoveActor(e)
		return true
	}
	return false
}

func (h *Host) freeSeat(vid coupling.VehicleID, id coupling.ActorID) {
	ve, ok := h.VehicleEntity(vid)
	if !ok {
		return
	}
	v, _ := Get(h.w, ve, component.VehicleComponent.Kind())
	for i := range v.Seats {
		if v.Seats[i].Occupant == id {
			v.Seats[i].Occupant = coupling.NilActor
		}
	}
}

// Place moves e, keeping its physics capsule in step unless it is seated.
func (h *Host) Place(e Entity, pos common.Vec3, yaw float64) {
	t, ok := Get(h.w, e, component.TransformComponent.Kind())
	if !ok {
		t = &component.Transform{}
		_ = Add(h.w, e, component.TransformComponent.Kind(), t)
	}
	t.Position = pos
	t.Yaw = yaw
	if !Has(h.w, e, component.PassengerComponent.Kind()) {
		h.w.PhysicsWorld().SetActor(e, pos)
	}
}

func (h *Host) yawOf(e Entity) float64 {
	if t, ok := Get(h.w, e, component.TransformComponent.Kind()); ok {
		return t.Yaw
	}
	return 0
}

func (h *Host) actorAt(e Entity) (coupling.Actor, bool) {
	a, ok := Get(h.w, e, component.ActorComponent.Kind())
	if !ok {
		return nil, false
	}
	return h.Actor(a.ID)
}

func (h *Host) entityOf(a coupling.Actor) (Entity, bool) {
	if a == nil {
		return 0, false
	}
	if ah, ok := a.(*actorHandle); ok && ah.h == h && IsAlive(h.w, ah.e) {
		return ah.e, true
	}
	return h.ActorEntity(a.ID())
}

// yawDir is the horizontal facing for yaw; yaw 0 faces +X.
func yawDir(yaw float64) common.Vec3 {
	return common.Vec3{X: math.Cos(yaw), Z: math.Sin(yaw)}
}
