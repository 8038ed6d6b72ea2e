package coupling

import (
	"strconv"
	"time"

	"github.com/milk9111/tether/common"
)

// ActorID identifies one connected participant. NilActor means "no actor".
type ActorID uint64

const NilActor ActorID = 0

func (id ActorID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ActorID) Valid() bool {
	return id != NilActor
}

// VehicleID identifies a vehicle. Zero means "no vehicle".
type VehicleID uint64

// Gesture is the replicated gesture signal of an actor.
type Gesture uint8

const (
	GestureNone Gesture = iota
	GestureSurrenderStart
	GestureSurrenderStop
	GestureArrestStart
	GestureArrestStop
)

func (g Gesture) String() string {
	switch g {
	case GestureSurrenderStart:
		return "surrender_start"
	case GestureSurrenderStop:
		return "surrender_stop"
	case GestureArrestStart:
		return "arrest_start"
	case GestureArrestStop:
		return "arrest_stop"
	default:
		return "none"
	}
}

// ParseGesture is the inverse of Gesture.String.
func ParseGesture(s string) (Gesture, bool) {
	for g := GestureNone; g <= GestureArrestStop; g++ {
		if g.String() == s {
			return g, true
		}
	}
	return GestureNone, false
}

// Restraint mirrors the restraint fields the simulation keeps on every actor.
// A restraint with a captor and no item is a coupling owned by this package;
// a non-zero Item belongs to the engine's own restraint tools.
type Restraint struct {
	Captor   ActorID
	Item     uint16
	Strength uint16
}

// Custom reports whether r marks a coupling created by this package.
func (r Restraint) Custom() bool {
	return r.Captor != NilActor && r.Item == 0
}

// Pose is the spatial state of an actor.
type Pose struct {
	Position   common.Vec3
	Facing     common.Vec3
	AimOrigin  common.Vec3
	AimForward common.Vec3
	Yaw        float64
}

// Seat is one passenger slot of a vehicle. Index 0 is the driver seat.
type Seat struct {
	Occupant ActorID
	Turret   bool
}

// Free reports whether nobody occupies the seat.
func (s Seat) Free() bool {
	return s.Occupant == NilActor
}

// Style hints how a notice should be presented.
type Style uint8

const (
	StyleSuccess Style = iota
	StyleWarning
	StyleError
)

// MessageKey names a signal this package emits.
type MessageKey string

const (
	MsgCouplingStarted      MessageKey = "coupling-started"
	MsgCouplingStopped      MessageKey = "coupling-stopped"
	MsgPermissionDenied     MessageKey = "permission-denied"
	MsgTargetNotFound       MessageKey = "target-not-found"
	MsgTargetAlreadyCoupled MessageKey = "target-already-coupled"
	MsgTargetNotSurrendered MessageKey = "target-not-surrendered"
	MsgCaptorAlreadyCoupled MessageKey = "captor-already-coupled"
	MsgVehicleNeedsTwoSeats MessageKey = "vehicle-needs-two-seats"
	MsgCannotExitVehicle    MessageKey = "cannot-exit-while-coupled"
)

// Message is a notice handed to the Notifier.
type Message struct {
	Key   MessageKey
	Text  string
	Style Style
}

// ReleaseReason records why a coupling ended.
type ReleaseReason string

const (
	ReasonStop           ReleaseReason = "stop"
	ReasonCaptorLost     ReleaseReason = "captor_lost"
	ReasonGestureDropped ReleaseReason = "gesture_dropped"
	ReasonTargetInvalid  ReleaseReason = "target_invalid"
	ReasonDeath          ReleaseReason = "death"
	ReasonRevive         ReleaseReason = "revive"
	ReasonDisconnect     ReleaseReason = "disconnect"
	ReasonStale          ReleaseReason = "stale"
	ReasonShutdown       ReleaseReason = "shutdown"
)

// EventKind classifies journal events.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventResumed  EventKind = "resumed"
	EventReleased EventKind = "released"
	EventSeated   EventKind = "seated"
)

// Event is one audit record of a coupling transition.
type Event struct {
	At     time.Time
	Kind   EventKind
	Captor ActorID
	Target ActorID
	Reason ReleaseReason
}

// Link is one captor to target pair as held by the registry.
type Link struct {
	Captor ActorID
	Target ActorID
}
