package component

import (
	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
)

// Vehicle is a seat array. Seat 0 is the driver's.
type Vehicle struct {
	ID       coupling.VehicleID
	Name     string
	Seats    []coupling.Seat
	Velocity common.Vec3
	// Locked vehicles only admit forced entries.
	Locked bool
}

var VehicleComponent = NewComponent[Vehicle]()

// Passenger links a seated actor to its vehicle.
type Passenger struct {
	Vehicle coupling.VehicleID
	Seat    int
}

var PassengerComponent = NewComponent[Passenger]()

// Ground is a static walkable segment.
type Ground struct {
	From common.Vec3
	To   common.Vec3
}

var GroundComponent = NewComponent[Ground]()
