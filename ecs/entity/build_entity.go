// Package entity builds sandbox entities from prefab specs.
package entity

import (
	"fmt"
	"sort"

	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
	"github.com/milk9111/tether/prefabs"
)

type buildContext struct {
	Name string
	// seatIn is the vehicle the entity starts seated in, applied once every
	// vehicle of the scenario exists.
	seatIn coupling.VehicleID
}

type componentBuildFn func(w *ecs.World, e ecs.Entity, raw any, ctx *buildContext) error

var componentRegistry = map[string]componentBuildFn{
	"actor":     addActor,
	"transform": addTransform,
	"look":      addLook,
	"life":      addLife,
	"animator":  addAnimator,
	"equipment": addEquipment,
	"movement":  addMovement,
	"vehicle":   addVehicle,
	"passenger": addPassenger,
}

var componentBuildOrder = []string{
	"actor",
	"transform",
	"look",
	"life",
	"animator",
	"equipment",
	"movement",
	"vehicle",
	"passenger",
}

// BuildEntity creates an entity from spec without registering it with a
// host.
func BuildEntity(w *ecs.World, spec prefabs.EntityBuildSpec) (ecs.Entity, error) {
	e, _, err := build(w, spec)
	return e, err
}

func build(w *ecs.World, spec prefabs.EntityBuildSpec) (ecs.Entity, *buildContext, error) {
	if w == nil {
		return 0, nil, fmt.Errorf("build entity: world is nil")
	}
	if len(spec.Components) == 0 {
		return 0, nil, fmt.Errorf("build entity: %q does not define components", spec.Name)
	}

	for name := range spec.Components {
		if _, ok := componentRegistry[name]; !ok {
			return 0, nil, fmt.Errorf("build entity: %q: no builder for component %q", spec.Name, name)
		}
	}

	e := ecs.CreateEntity(w)
	ctx := &buildContext{Name: spec.Name}
	for _, name := range componentBuildOrder {
		raw, ok := spec.Components[name]
		if !ok {
			continue
		}
		if err := componentRegistry[name](w, e, raw, ctx); err != nil {
			ecs.DestroyEntity(w, e)
			return 0, nil, fmt.Errorf("build entity: %q: add %q: %w", spec.Name, name, err)
		}
	}
	return e, ctx, nil
}

// BuildScenario populates host's world with scenario and seats any entity
// that starts in a vehicle.
func BuildScenario(host *ecs.Host, scenario prefabs.ScenarioSpec) ([]ecs.Entity, error) {
	w := host.World()
	var built []ecs.Entity

	for i, seg := range scenario.Ground {
		e := ecs.CreateEntity(w)
		g := &component.Ground{
			From: common.Vec3{X: seg.From.X, Y: seg.From.Y},
			To:   common.Vec3{X: seg.To.X, Y: seg.To.Y},
		}
		if err := ecs.Add(w, e, component.GroundComponent.Kind(), g); err != nil {
			return built, fmt.Errorf("build scenario %q: ground %d: %w", scenario.Name, i, err)
		}
		if err := host.Register(e); err != nil {
			return built, fmt.Errorf("build scenario %q: ground %d: %w", scenario.Name, i, err)
		}
		built = append(built, e)
	}

	type seating struct {
		actor   coupling.ActorID
		vehicle coupling.VehicleID
	}
	var seats []seating

	for _, spec := range scenario.Entities {
		e, ctx, err := build(w, spec)
		if err != nil {
			return built, fmt.Errorf("build scenario %q: %w", scenario.Name, err)
		}
		if err := host.Register(e); err != nil {
			ecs.DestroyEntity(w, e)
			return built, fmt.Errorf("build scenario %q: %q: %w", scenario.Name, spec.Name, err)
		}
		built = append(built, e)
		if ctx.seatIn != 0 {
			a, ok := ecs.Get(w, e, component.ActorComponent.Kind())
			if !ok {
				return built, fmt.Errorf("build scenario %q: %q: passenger without actor", scenario.Name, spec.Name)
			}
			seats = append(seats, seating{actor: a.ID, vehicle: ctx.seatIn})
		}
	}

	sort.SliceStable(seats, func(i, j int) bool { return seats[i].actor < seats[j].actor })
	for _, s := range seats {
		if !host.TryEnterVehicle(s.actor, s.vehicle) {
			return built, fmt.Errorf("build scenario %q: seat actor %v in vehicle %d: refused", scenario.Name, s.actor, s.vehicle)
		}
	}
	return built, nil
}

func addActor(w *ecs.World, e ecs.Entity, raw any, ctx *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.ActorComponentSpec](raw)
	if err != nil {
		return err
	}
	name := spec.Name
	if name == "" {
		name = ctx.Name
	}
	return ecs.Add(w, e, component.ActorComponent.Kind(), &component.Actor{ID: coupling.ActorID(spec.ID), Name: name})
}

func addTransform(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.TransformComponentSpec](raw)
	if err != nil {
		return err
	}
	return ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{
		Position: common.Vec3{X: spec.X, Y: spec.Y},
		Yaw:      spec.Yaw,
	})
}

func addLook(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.LookComponentSpec](raw)
	if err != nil {
		return err
	}
	eye := spec.EyeHeight
	if eye <= 0 {
		eye = 1.5
	}
	return ecs.Add(w, e, component.LookComponent.Kind(), &component.Look{
		Forward:   common.Vec3{X: spec.ForwardX, Y: spec.ForwardY},
		EyeHeight: eye,
	})
}

func addLife(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.LifeComponentSpec](raw)
	if err != nil {
		return err
	}
	life := &component.Life{Alive: true, Ready: true}
	if spec.Alive != nil {
		life.Alive = *spec.Alive
	}
	if spec.Ready != nil {
		life.Ready = *spec.Ready
	}
	return ecs.Add(w, e, component.LifeComponent.Kind(), life)
}

func addAnimator(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.AnimatorComponentSpec](raw)
	if err != nil {
		return err
	}
	g := coupling.GestureNone
	if spec.Gesture != "" {
		parsed, ok := coupling.ParseGesture(spec.Gesture)
		if !ok {
			return fmt.Errorf("unknown gesture %q", spec.Gesture)
		}
		g = parsed
	}
	return ecs.Add(w, e, component.AnimatorComponent.Kind(), &component.Animator{Gesture: g})
}

func addEquipment(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.EquipmentComponentSpec](raw)
	if err != nil {
		return err
	}
	return ecs.Add(w, e, component.EquipmentComponent.Kind(), &component.Equipment{Held: spec.Held})
}

func addMovement(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.MovementComponentSpec](raw)
	if err != nil {
		return err
	}
	return ecs.Add(w, e, component.MovementComponent.Kind(), &component.Movement{TeleportBlocked: spec.TeleportBlocked})
}

func addVehicle(w *ecs.World, e ecs.Entity, raw any, ctx *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.VehicleComponentSpec](raw)
	if err != nil {
		return err
	}
	if spec.Seats <= 0 {
		return fmt.Errorf("vehicle %d has no seats", spec.ID)
	}
	seats := make([]coupling.Seat, spec.Seats)
	for _, t := range spec.Turrets {
		if t < 0 || t >= len(seats) {
			return fmt.Errorf("vehicle %d: turret seat %d out of range", spec.ID, t)
		}
		seats[t].Turret = true
	}
	name := spec.Name
	if name == "" {
		name = ctx.Name
	}
	return ecs.Add(w, e, component.VehicleComponent.Kind(), &component.Vehicle{
		ID:     coupling.VehicleID(spec.ID),
		Name:   name,
		Seats:  seats,
		Locked: spec.Locked,
	})
}

func addPassenger(_ *ecs.World, _ ecs.Entity, raw any, ctx *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.PassengerComponentSpec](raw)
	if err != nil {
		return err
	}
	if spec.Vehicle == 0 {
		return fmt.Errorf("passenger without vehicle")
	}
	ctx.seatIn = coupling.VehicleID(spec.Vehicle)
	return nil
}
