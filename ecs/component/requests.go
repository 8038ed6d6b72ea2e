package component

import (
	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
)

// GestureRequest asks the animator to switch gesture.
type GestureRequest struct {
	Gesture coupling.Gesture
}

var GestureRequestComponent = NewComponent[GestureRequest]()

// EnterVehicleRequest is a voluntary boarding attempt.
type EnterVehicleRequest struct {
	Vehicle coupling.VehicleID
}

var EnterVehicleRequestComponent = NewComponent[EnterVehicleRequest]()

// ExitVehicleRequest is a voluntary exit attempt.
type ExitVehicleRequest struct{}

var ExitVehicleRequestComponent = NewComponent[ExitVehicleRequest]()

type LifecycleEvent string

const (
	LifecycleDeath      LifecycleEvent = "death"
	LifecycleRevive     LifecycleEvent = "revive"
	LifecycleDisconnect LifecycleEvent = "disconnect"
)

type LifecycleRequest struct {
	Event LifecycleEvent
}

var LifecycleRequestComponent = NewComponent[LifecycleRequest]()

// UseItemRequest asks to use the held item.
type UseItemRequest struct{}

var UseItemRequestComponent = NewComponent[UseItemRequest]()

// AimRequest turns the actor's look direction.
type AimRequest struct {
	Forward common.Vec3
}

var AimRequestComponent = NewComponent[AimRequest]()

// WalkRequest sets the actor's on-foot velocity.
type WalkRequest struct {
	Velocity common.Vec3
}

var WalkRequestComponent = NewComponent[WalkRequest]()
