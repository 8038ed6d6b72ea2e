package component

import (
	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
)

// Actor marks a connected participant.
type Actor struct {
	ID   coupling.ActorID
	Name string
}

var ActorComponent = NewComponent[Actor]()

// Look is where the actor aims from and toward.
type Look struct {
	Forward   common.Vec3
	EyeHeight float64
}

var LookComponent = NewComponent[Look]()

// Life tracks death and whether the actor's rig has finished attaching.
type Life struct {
	Alive bool
	Ready bool
}

var LifeComponent = NewComponent[Life]()

// Animator holds the replicated gesture and the restraint block.
type Animator struct {
	Gesture   coupling.Gesture
	Restraint coupling.Restraint
}

var AnimatorComponent = NewComponent[Animator]()

// Equipment is what the actor carries.
type Equipment struct {
	Held    string
	Dropped []string
	Uses    int
	Blocked int
}

var EquipmentComponent = NewComponent[Equipment]()

// Movement is the locomotion state of an actor on foot.
type Movement struct {
	Velocity common.Vec3
	// TeleportBlocked makes validated teleports fail.
	TeleportBlocked bool
	Teleports       int
	UnsafeTeleports int
}

var MovementComponent = NewComponent[Movement]()
