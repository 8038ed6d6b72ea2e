package main

import (
	"math"
	"slices"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
)

const walkSpeed = 3.0

// handleInput turns keys into request components on the selected actor.
func (g *Game) handleInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.selectNext()
	}

	w := g.sim.World
	e, ok := g.sim.Host.ActorEntity(g.selected)
	if !ok {
		return
	}

	moveX := 0.0
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		moveX -= 1
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		moveX += 1
	}
	if moveX != 0 {
		_ = ecs.Add(w, e, component.AimRequestComponent.Kind(), &component.AimRequest{Forward: common.Vec3{X: moveX}})
	}
	if mv, ok := ecs.Get(w, e, component.MovementComponent.Kind()); ok && mv.Velocity.X != moveX*walkSpeed {
		_ = ecs.Add(w, e, component.WalkRequestComponent.Kind(), &component.WalkRequest{Velocity: common.Vec3{X: moveX * walkSpeed}})
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		gesture := coupling.GestureSurrenderStart
		if anim, ok := ecs.Get(w, e, component.AnimatorComponent.Kind()); ok && anim.Gesture == coupling.GestureSurrenderStart {
			gesture = coupling.GestureSurrenderStop
		}
		_ = ecs.Add(w, e, component.GestureRequestComponent.Kind(), &component.GestureRequest{Gesture: gesture})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyE) {
		if vid, ok := g.nearestVehicle(e); ok {
			_ = ecs.Add(w, e, component.EnterVehicleRequestComponent.Kind(), &component.EnterVehicleRequest{Vehicle: vid})
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		_ = ecs.Add(w, e, component.ExitVehicleRequestComponent.Kind(), &component.ExitVehicleRequest{})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		_ = ecs.Add(w, e, component.UseItemRequestComponent.Kind(), &component.UseItemRequest{})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyK) {
		_ = ecs.Add(w, e, component.LifecycleRequestComponent.Kind(), &component.LifecycleRequest{Event: component.LifecycleDeath})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		_ = ecs.Add(w, e, component.LifecycleRequestComponent.Kind(), &component.LifecycleRequest{Event: component.LifecycleRevive})
	}
}

func (g *Game) selectNext() {
	ids := g.actorIDs()
	if len(ids) == 0 {
		return
	}
	i := slices.Index(ids, g.selected)
	g.selected = ids[(i+1)%len(ids)]
}

func (g *Game) nearestVehicle(e ecs.Entity) (coupling.VehicleID, bool) {
	w := g.sim.World
	tr, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return 0, false
	}
	var (
		best     coupling.VehicleID
		bestDist = math.MaxFloat64
	)
	ecs.ForEach2(w, component.VehicleComponent.Kind(), component.TransformComponent.Kind(), func(_ ecs.Entity, v *component.Vehicle, vt *component.Transform) {
		if d := common.Distance(tr.Position, vt.Position); d < bestDist {
			best, bestDist = v.ID, d
		}
	})
	return best, best != 0
}
