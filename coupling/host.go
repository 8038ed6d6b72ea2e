package coupling

import (
	"time"

	"github.com/milk9111/tether/common"
)

// Actor is the live simulation handle of a connected participant.
type Actor interface {
	ID() ActorID
	Alive() bool
	// Ready reports whether the sub-systems a coupling needs (animator,
	// movement, look) are attached.
	Ready() bool
	Gesture() Gesture
	SendGesture(g Gesture)
	Restraint() Restraint
	SetRestraint(r Restraint)
	Pose() Pose
	// Vehicle returns nil when the actor is on foot.
	Vehicle() Vehicle
	DropHeldItem()
	// Teleport is the validated relocation; it may refuse.
	Teleport(pos common.Vec3, yaw float64) bool
	// TeleportUnsafe places the actor without validation.
	TeleportUnsafe(pos common.Vec3, yaw float64)
}

// Vehicle is a seat array with a position.
type Vehicle interface {
	ID() VehicleID
	Position() common.Vec3
	Seats() []Seat
	SeatOf(id ActorID) (int, bool)
}

// World is the simulation capability surface the core calls.
type World interface {
	// Actor resolves an identifier to its live handle.
	Actor(id ActorID) (Actor, bool)
	// Actors is the active-session roster.
	Actors() []Actor
	// RaycastActor returns the first actor hit by a line-of-sight ray, ignoring
	// the actor identified by ignore.
	RaycastActor(origin, dir common.Vec3, maxDistance float64, ignore ActorID) (Actor, bool)
	ActorsInRange(origin common.Vec3, maxDistance float64) []Actor
	// SnapToGround probes straight down from p for at most depth and returns
	// the ground point found.
	SnapToGround(p common.Vec3, depth float64) (common.Vec3, bool)
	ForceSeat(a Actor, v Vehicle) bool
	ForceExit(a Actor) bool
}

type Permissions interface {
	HasPermission(id ActorID, key string) bool
}

// Notifier delivers notices. It must not block or panic.
type Notifier interface {
	Notify(to ActorID, msg Message)
}

type Clock interface {
	Now() time.Time
}

// Recorder receives operational measurements.
type Recorder interface {
	CouplingStarted()
	CouplingReleased(reason ReleaseReason)
	Notice(key MessageKey)
	SeatAttempt(ok bool)
	Teleport(forced bool)
	ActiveCouplings(n int)
	FollowPass(d time.Duration)
	SweepPurged(n int)
	SweepFault()
}

// Journal receives audit events. Record must not block.
type Journal interface {
	Record(e Event)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

type allowAll struct{}

func (allowAll) HasPermission(ActorID, string) bool { return true }

type nopNotifier struct{}

func (nopNotifier) Notify(ActorID, Message) {}

type nopRecorder struct{}

func (nopRecorder) CouplingStarted()               {}
func (nopRecorder) CouplingReleased(ReleaseReason) {}
func (nopRecorder) Notice(MessageKey)              {}
func (nopRecorder) SeatAttempt(bool)               {}
func (nopRecorder) Teleport(bool)                  {}
func (nopRecorder) ActiveCouplings(int)            {}
func (nopRecorder) FollowPass(time.Duration)       {}
func (nopRecorder) SweepPurged(int)                {}
func (nopRecorder) SweepFault()                    {}

type nopJournal struct{}

func (nopJournal) Record(Event) {}
