package coupling

import (
	"time"

	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/config"
)

type fakeActor struct {
	id        ActorID
	alive     bool
	ready     bool
	gesture   Gesture
	sent      []Gesture
	restraint Restraint
	pose      Pose
	vehicle   *fakeVehicle
	drops     int

	refuseTeleport bool
	teleports      []common.Vec3
	unsafe         int
	seatRefusals   int
}

func (a *fakeActor) ID() ActorID      { return a.id }
func (a *fakeActor) Alive() bool      { return a.alive }
func (a *fakeActor) Ready() bool      { return a.ready }
func (a *fakeActor) Gesture() Gesture { return a.gesture }
func (a *fakeActor) SendGesture(g Gesture) {
	a.gesture = g
	a.sent = append(a.sent, g)
}
func (a *fakeActor) Restraint() Restraint     { return a.restraint }
func (a *fakeActor) SetRestraint(r Restraint) { a.restraint = r }
func (a *fakeActor) Pose() Pose               { return a.pose }
func (a *fakeActor) Vehicle() Vehicle {
	if a.vehicle == nil {
		return nil
	}
	return a.vehicle
}
func (a *fakeActor) DropHeldItem() { a.drops++ }
func (a *fakeActor) Teleport(p common.Vec3, yaw float64) bool {
	if a.refuseTeleport {
		return false
	}
	a.place(p, yaw)
	return true
}
func (a *fakeActor) TeleportUnsafe(p common.Vec3, yaw float64) {
	a.unsafe++
	a.place(p, yaw)
}

func (a *fakeActor) place(p common.Vec3, yaw float64) {
	a.teleports = append(a.teleports, p)
	a.pose.Position = p
	a.pose.AimOrigin = p.Add(common.Vec3{Y: 1.5})
	a.pose.Yaw = yaw
}

func (a *fakeActor) sentGesture(g Gesture) bool {
	for _, s := range a.sent {
		if s == g {
			return true
		}
	}
	return false
}

type fakeVehicle struct {
	id    VehicleID
	pos   common.Vec3
	seats []Seat
}

func (v *fakeVehicle) ID() VehicleID         { return v.id }
func (v *fakeVehicle) Position() common.Vec3 { return v.pos }
func (v *fakeVehicle) Seats() []Seat         { return v.seats }
func (v *fakeVehicle) SeatOf(id ActorID) (int, bool) {
	for i, s := range v.seats {
		if s.Occupant == id {
			return i, true
		}
	}
	return -1, false
}

func (v *fakeVehicle) free(id ActorID) {
	if i, ok := v.SeatOf(id); ok {
		v.seats[i].Occupant = NilActor
	}
}

// fakeWorld is a host driving the manager hooks the way a simulation would.
type fakeWorld struct {
	m       *Manager
	actors  map[ActorID]*fakeActor
	order   []ActorID
	groundY float64
	ground  bool
	noRay   bool
	panics  bool

	seatCalls int
	snapCalls int
	onSnap    func()
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{actors: make(map[ActorID]*fakeActor), ground: true}
}

func (w *fakeWorld) add(id ActorID, pos common.Vec3) *fakeActor {
	a := &fakeActor{
		id:    id,
		alive: true,
		ready: true,
		pose: Pose{
			Position:   pos,
			Facing:     common.Vec3{X: 1},
			AimOrigin:  pos.Add(common.Vec3{Y: 1.5}),
			AimForward: common.Vec3{X: 1},
		},
	}
	w.actors[id] = a
	w.order = append(w.order, id)
	return a
}

func (w *fakeWorld) remove(id ActorID) {
	a, ok := w.actors[id]
	if !ok {
		return
	}
	if a.vehicle != nil {
		a.vehicle.free(id)
	}
	delete(w.actors, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *fakeWorld) Actor(id ActorID) (Actor, bool) {
	a, ok := w.actors[id]
	if !ok {
		return nil, false
	}
	return a, true
}

func (w *fakeWorld) Actors() []Actor {
	if w.panics {
		panic("roster unavailable")
	}
	out := make([]Actor, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.actors[id])
	}
	return out
}

func (w *fakeWorld) RaycastActor(origin, dir common.Vec3, maxDistance float64, ignore ActorID) (Actor, bool) {
	if w.noRay {
		return nil, false
	}
	var (
		best     Actor
		bestProj = maxDistance
	)
	for _, id := range w.order {
		a := w.actors[id]
		if id == ignore || !a.alive {
			continue
		}
		to := a.pose.AimOrigin.Sub(origin)
		proj := to.Dot(dir)
		if proj <= 0 || proj > bestProj {
			continue
		}
		if to.Sub(dir.Scale(proj)).Len() > 0.4 {
			continue
		}
		best, bestProj = a, proj
	}
	return best, best != nil
}

func (w *fakeWorld) ActorsInRange(origin common.Vec3, maxDistance float64) []Actor {
	var out []Actor
	for _, id := range w.order {
		a := w.actors[id]
		if common.Distance(a.pose.AimOrigin, origin) <= maxDistance {
			out = append(out, a)
		}
	}
	return out
}

func (w *fakeWorld) SnapToGround(p common.Vec3, depth float64) (common.Vec3, bool) {
	w.snapCalls++
	if w.onSnap != nil {
		w.onSnap()
	}
	if !w.ground || p.Y < w.groundY || p.Y-w.groundY > depth {
		return common.Vec3{}, false
	}
	return common.Vec3{X: p.X, Y: w.groundY, Z: p.Z}, true
}

func (w *fakeWorld) ForceSeat(a Actor, v Vehicle) bool {
	fa := a.(*fakeActor)
	fv := v.(*fakeVehicle)
	w.seatCalls++
	if !w.m.BypassEntryCheck(fa.id, fv.id) {
		return false
	}
	if fa.seatRefusals > 0 {
		fa.seatRefusals--
		return false
	}
	return w.seat(fa, fv, 1)
}

func (w *fakeWorld) ForceExit(a Actor) bool {
	fa := a.(*fakeActor)
	if fa.vehicle == nil {
		return false
	}
	w.removeFromVehicle(fa)
	return true
}

// board is a voluntary entry by a.
func (w *fakeWorld) board(a *fakeActor, v *fakeVehicle) bool {
	if !w.m.AllowSeatEntry(a.id, v) {
		return false
	}
	if !w.seat(a, v, 0) {
		return false
	}
	w.m.OnSeatTaken(a.id, v)
	return true
}

// requestExit is a voluntary exit request by a.
func (w *fakeWorld) requestExit(a *fakeActor) bool {
	if a.vehicle == nil || !w.m.AllowExitRequest(a.id) {
		return false
	}
	w.removeFromVehicle(a)
	return true
}

func (w *fakeWorld) removeFromVehicle(a *fakeActor) {
	v := a.vehicle
	keep := w.m.BeforeSeatRemoval(a.id, v)
	v.free(a.id)
	a.vehicle = nil
	w.m.AfterSeatRemoval(a.id, v, keep)
}

func (w *fakeWorld) seat(a *fakeActor, v *fakeVehicle, from int) bool {
	if a.vehicle != nil {
		return false
	}
	for i := 0; i < len(v.seats); i++ {
		idx := (from + i) % len(v.seats)
		if v.seats[idx].Free() {
			v.seats[idx].Occupant = a.id
			a.vehicle = v
			return true
		}
	}
	return false
}

type sentMessage struct {
	to  ActorID
	msg Message
}

type fakeNotifier struct {
	sent []sentMessage
}

func (n *fakeNotifier) Notify(to ActorID, msg Message) {
	n.sent = append(n.sent, sentMessage{to, msg})
}

func (n *fakeNotifier) count(to ActorID, key MessageKey) int {
	c := 0
	for _, s := range n.sent {
		if s.to == to && s.msg.Key == key {
			c++
		}
	}
	return c
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

type fakeRecorder struct {
	nopRecorder
	started  int
	released map[ReleaseReason]int
	purged   int
	faults   int
	forced   int
}

func (r *fakeRecorder) CouplingStarted() { r.started++ }
func (r *fakeRecorder) CouplingReleased(reason ReleaseReason) {
	if r.released == nil {
		r.released = make(map[ReleaseReason]int)
	}
	r.released[reason]++
}
func (r *fakeRecorder) SweepPurged(n int) { r.purged += n }
func (r *fakeRecorder) SweepFault()       { r.faults++ }
func (r *fakeRecorder) Teleport(forced bool) {
	if forced {
		r.forced++
	}
}

type fakePerms map[ActorID]bool

func (p fakePerms) HasPermission(id ActorID, _ string) bool { return p[id] }

type harness struct {
	world *fakeWorld
	m     *Manager
	notes *fakeNotifier
	clock *fakeClock
	rec   *fakeRecorder
}

func newHarness(mutate func(*config.Config), perms Permissions) *harness {
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		world: newFakeWorld(),
		notes: &fakeNotifier{},
		clock: &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
		rec:   &fakeRecorder{},
	}
	m, err := NewManager(cfg.Sanitize(), Deps{
		World:       h.world,
		Permissions: perms,
		Notifier:    h.notes,
		Clock:       h.clock,
		Recorder:    h.rec,
	})
	if err != nil {
		panic(err)
	}
	h.m = m
	h.world.m = m
	return h
}

// pair places a captor at the origin looking along +X and a surrendered
// target two units in front of it.
func (h *harness) pair() (*fakeActor, *fakeActor) {
	captor := h.world.add(1, common.Vec3{})
	target := h.world.add(2, common.Vec3{X: 2})
	target.gesture = GestureSurrenderStart
	return captor, target
}

// start raises the captor's surrender gesture.
func (h *harness) start(captor *fakeActor) {
	captor.gesture = GestureSurrenderStart
	h.m.OnGesture(captor.id, GestureSurrenderStart)
}

func (h *harness) stop(captor *fakeActor) {
	captor.gesture = GestureSurrenderStop
	h.m.OnGesture(captor.id, GestureSurrenderStop)
}

// tick advances the clock past the follow interval and runs one update.
func (h *harness) tick() {
	h.m.Update(h.clock.advance(h.m.Settings().FollowInterval))
}

func newVehicle(id VehicleID, pos common.Vec3, seats int) *fakeVehicle {
	return &fakeVehicle{id: id, pos: pos, seats: make([]Seat, seats)}
}

// checkInvariants fails when the registry and the mirrors disagree.
func checkInvariants(h *harness) string {
	captors := make(map[ActorID]ActorID)
	targets := make(map[ActorID]ActorID)
	for _, l := range h.m.Links() {
		if prev, ok := targets[l.Target]; ok {
			return "target " + l.Target.String() + " held by " + prev.String() + " and " + l.Captor.String()
		}
		if _, ok := captors[l.Captor]; ok {
			return "captor " + l.Captor.String() + " holds two targets"
		}
		captors[l.Captor] = l.Target
		targets[l.Target] = l.Captor
		if c, ok := h.m.CaptorOf(l.Target); ok && c != l.Captor {
			return "asymmetric link for " + l.Target.String()
		}
	}
	return ""
}
