package ecs

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tether/common"
)

const (
	categoryGround uint = 1 << iota
	categoryActor
)

const (
	// ActorRadius is the half width of an actor's capsule.
	ActorRadius = 0.4
	// ActorHeight is the capsule's total height above the feet.
	ActorHeight = 1.8
)

// PhysicsWorld owns the Chipmunk space the sandbox uses for line of sight
// and ground queries. The simulation plane is X (horizontal) by Y (up).
type PhysicsWorld struct {
	space  *cp.Space
	actors map[Entity]*cp.Shape
	ground []*cp.Shape
}

func NewPhysicsWorld() *PhysicsWorld {
	space := cp.NewSpace()
	space.Iterations = 10
	space.SetGravity(cp.Vector{X: 0, Y: -common.Gravity})
	return &PhysicsWorld{
		space:  space,
		actors: make(map[Entity]*cp.Shape),
	}
}

// AddGround adds a static ground segment from a to b.
func (pw *PhysicsWorld) AddGround(a, b common.Vec3) {
	if pw == nil {
		return
	}
	shape := cp.NewSegment(pw.space.StaticBody, toCP(a), toCP(b), 0)
	shape.SetFriction(0.8)
	shape.SetFilter(cp.NewShapeFilter(cp.NO_GROUP, categoryGround, cp.ALL_CATEGORIES))
	pw.space.AddShape(shape)
	pw.ground = append(pw.ground, shape)
}

// GroundCount reports how many ground segments exist.
func (pw *PhysicsWorld) GroundCount() int {
	if pw == nil {
		return 0
	}
	return len(pw.ground)
}

// SetActor places e's capsule with its feet at pos.
func (pw *PhysicsWorld) SetActor(e Entity, pos common.Vec3) {
	if pw == nil {
		return
	}
	if shape, ok := pw.actors[e]; ok {
		body := shape.Body()
		// Kinematic shapes are only reindexed on Step, so move by reinserting.
		pw.space.RemoveShape(shape)
		body.SetPosition(toCP(pos))
		pw.space.AddShape(shape)
		return
	}

	body := cp.NewKinematicBody()
	body.SetPosition(toCP(pos))
	shape := cp.NewSegment(body, cp.Vector{Y: ActorRadius}, cp.Vector{Y: ActorHeight - ActorRadius}, ActorRadius)
	shape.SetFilter(cp.NewShapeFilter(cp.NO_GROUP, categoryActor, categoryGround))
	shape.SetSensor(true)
	shape.UserData = e
	pw.space.AddBody(body)
	pw.space.AddShape(shape)
	pw.actors[e] = shape
}

// RemoveActor drops e's capsule.
func (pw *PhysicsWorld) RemoveActor(e Entity) {
	if pw == nil {
		return
	}
	shape, ok := pw.actors[e]
	if !ok {
		return
	}
	body := shape.Body()
	pw.space.RemoveShape(shape)
	pw.space.RemoveBody(body)
	delete(pw.actors, e)
}

// HasActor reports whether e has a capsule.
func (pw *PhysicsWorld) HasActor(e Entity) bool {
	if pw == nil {
		return false
	}
	_, ok := pw.actors[e]
	return ok
}

// Raycast returns the first actor the segment from..to touches before any
// ground, skipping ignore.
func (pw *PhysicsWorld) Raycast(from, to common.Vec3, ignore Entity) (Entity, bool) {
	if pw == nil {
		return 0, false
	}
	var (
		hit       Entity
		hitActor  bool
		bestAlpha = math.Inf(1)
	)
	filter := cp.NewShapeFilter(cp.NO_GROUP, cp.ALL_CATEGORIES, categoryActor|categoryGround)
	pw.space.SegmentQuery(toCP(from), toCP(to), 0, filter, func(shape *cp.Shape, _, _ cp.Vector, alpha float64, _ interface{}) {
		e, isActor := shape.UserData.(Entity)
		if isActor && e == ignore {
			return
		}
		if alpha >= bestAlpha {
			return
		}
		bestAlpha = alpha
		hit, hitActor = e, isActor
	}, nil)
	if !hitActor {
		return 0, false
	}
	return hit, true
}

// ActorsNear returns actors whose capsule bounds fall within radius of
// center, in slot order.
func (pw *PhysicsWorld) ActorsNear(center common.Vec3, radius float64) []Entity {
	if pw == nil {
		return nil
	}
	seen := make(map[Entity]struct{})
	var out []Entity
	filter := cp.NewShapeFilter(cp.NO_GROUP, cp.ALL_CATEGORIES, categoryActor)
	bb := cp.NewBBForCircle(toCP(center), radius+ActorHeight)
	pw.space.BBQuery(bb, filter, func(shape *cp.Shape, _ interface{}) {
		e, ok := shape.UserData.(Entity)
		if !ok {
			return
		}
		if _, dup := seen[e]; dup {
			return
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}, nil)
	sort.Slice(out, func(i, j int) bool { return out[i].id() < out[j].id() })
	return out
}

// GroundBelow probes straight down from p for at most depth.
func (pw *PhysicsWorld) GroundBelow(p common.Vec3, depth float64) (common.Vec3, bool) {
	if pw == nil || depth <= 0 {
		return common.Vec3{}, false
	}
	filter := cp.NewShapeFilter(cp.NO_GROUP, cp.ALL_CATEGORIES, categoryGround)
	info := pw.space.SegmentQueryFirst(toCP(p), cp.Vector{X: p.X, Y: p.Y - depth}, 0, filter)
	if info.Shape == nil {
		return common.Vec3{}, false
	}
	return common.Vec3{X: p.X, Y: info.Point.Y, Z: p.Z}, true
}

// Step advances the space.
func (pw *PhysicsWorld) Step(dt float64) {
	if pw == nil {
		return
	}
	pw.space.Step(dt)
}

func toCP(v common.Vec3) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}
