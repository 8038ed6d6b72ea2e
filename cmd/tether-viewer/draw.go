package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"

	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
	"github.com/milk9111/tether/ecs/system"
)

const (
	pixelsPerUnit = 40.0
	horizonY      = baseHeight * 0.7

	actorWidth   = 0.6
	actorHeight  = 1.8
	vehicleWidth = 3.0
	vehicleHigh  = 1.4
)

var backgroundColor = color.RGBA{R: 24, G: 26, B: 32, A: 255}

// toScreen maps world X/Y to screen pixels. World Y grows upward.
func toScreen(p common.Vec3, camX float64) (float32, float32) {
	x := (p.X-camX)*pixelsPerUnit + baseWidth/2
	y := horizonY - p.Y*pixelsPerUnit
	return float32(x), float32(y)
}

func drawGround(screen *ebiten.Image, w *ecs.World, camX float64) {
	ecs.ForEach(w, component.GroundComponent.Kind(), func(_ ecs.Entity, g *component.Ground) {
		x0, y0 := toScreen(g.From, camX)
		x1, y1 := toScreen(g.To, camX)
		vector.StrokeLine(screen, x0, y0, x1, y1, 3, colornames.Darkolivegreen, true)
	})
}

func drawVehicles(screen *ebiten.Image, w *ecs.World, camX float64) {
	ecs.ForEach2(w, component.VehicleComponent.Kind(), component.TransformComponent.Kind(), func(_ ecs.Entity, v *component.Vehicle, tr *component.Transform) {
		x, y := toScreen(tr.Position, camX)
		wpx := float32(vehicleWidth * pixelsPerUnit)
		hpx := float32(vehicleHigh * pixelsPerUnit)
		fill := colornames.Steelblue
		if v.Locked {
			fill = colornames.Slategray
		}
		vector.FillRect(screen, x-wpx/2, y-hpx, wpx, hpx, fill, false)
		vector.StrokeRect(screen, x-wpx/2, y-hpx, wpx, hpx, 1, colornames.Lightsteelblue, false)

		seatW := wpx / float32(max(len(v.Seats), 1))
		for i, s := range v.Seats {
			c := colornames.Dimgray
			if !s.Free() {
				c = colornames.Gold
			}
			vector.FillRect(screen, x-wpx/2+float32(i)*seatW+2, y-hpx+4, seatW-4, 6, c, false)
		}
		ebitenutil.DebugPrintAt(screen, v.Name, int(x-wpx/2), int(y-hpx)-16)
	})
}

func drawActors(screen *ebiten.Image, w *ecs.World, selected coupling.ActorID, camX float64) {
	ecs.ForEach4(w, component.ActorComponent.Kind(), component.TransformComponent.Kind(), component.LifeComponent.Kind(), component.AnimatorComponent.Kind(),
		func(e ecs.Entity, a *component.Actor, tr *component.Transform, life *component.Life, anim *component.Animator) {
			if ecs.Has(w, e, component.PassengerComponent.Kind()) {
				return
			}
			x, y := toScreen(tr.Position, camX)
			wpx := float32(actorWidth * pixelsPerUnit)
			hpx := float32(actorHeight * pixelsPerUnit)

			vector.FillRect(screen, x-wpx/2, y-hpx, wpx, hpx, actorColor(life, anim), false)
			if a.ID == selected {
				vector.StrokeRect(screen, x-wpx/2-2, y-hpx-2, wpx+4, hpx+4, 2, colornames.White, false)
			}
			if look, ok := ecs.Get(w, e, component.LookComponent.Kind()); ok {
				eye := tr.Position.Add(common.Up.Scale(look.EyeHeight))
				ex, ey := toScreen(eye, camX)
				tx, ty := toScreen(eye.Add(look.Forward.Normalized().Scale(0.8)), camX)
				vector.StrokeLine(screen, ex, ey, tx, ty, 2, colornames.Lightgray, true)
			}
			label := a.Name
			if eq, ok := ecs.Get(w, e, component.EquipmentComponent.Kind()); ok && eq.Held != "" {
				label += " [" + eq.Held + "]"
			}
			ebitenutil.DebugPrintAt(screen, label, int(x-wpx/2), int(y-hpx)-16)
		})
}

func actorColor(life *component.Life, anim *component.Animator) color.Color {
	switch {
	case !life.Alive:
		return colornames.Dimgray
	case anim.Restraint.Custom():
		return colornames.Orange
	case anim.Gesture == coupling.GestureSurrenderStart:
		return colornames.Crimson
	default:
		return colornames.Mediumseagreen
	}
}

func drawLinks(screen *ebiten.Image, h *ecs.Host, links []coupling.Link, camX float64) {
	for _, l := range links {
		captor, ok := h.Actor(l.Captor)
		if !ok {
			continue
		}
		target, ok := h.Actor(l.Target)
		if !ok {
			continue
		}
		x0, y0 := toScreen(captor.Pose().AimOrigin, camX)
		x1, y1 := toScreen(target.Pose().AimOrigin, camX)
		vector.StrokeLine(screen, x0, y0, x1, y1, 2, colornames.Orange, true)
	}
}

func styleColor(s coupling.Style) color.Color {
	switch s {
	case coupling.StyleWarning:
		return colornames.Goldenrod
	case coupling.StyleError:
		return colornames.Indianred
	default:
		return colornames.Mediumseagreen
	}
}

// drawToasts lists entries bottom-up, each behind a marker in its style's
// colour.
func drawToasts(screen *ebiten.Image, entries []system.FeedEntry) {
	y := baseHeight - 20*len(entries) - 10
	for _, e := range entries {
		vector.FillRect(screen, 10, float32(y+3), 8, 8, styleColor(e.Style), false)
		ebitenutil.DebugPrintAt(screen, e.Text, 24, y)
		y += 20
	}
}
