package component

import "github.com/milk9111/tether/common"

// Transform places an entity. Position is the feet of an actor or the
// origin of a vehicle.
type Transform struct {
	Position common.Vec3
	Yaw      float64
}

var TransformComponent = NewComponent[Transform]()
