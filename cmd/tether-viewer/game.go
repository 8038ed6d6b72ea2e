package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
	"github.com/milk9111/tether/ecs/system"
	"github.com/milk9111/tether/sim"
)

const (
	baseWidth  = 1280
	baseHeight = 720

	maxToasts = 6
	toastTTL  = 4 * time.Second

	cameraSmoothing = 0.1
)

type Game struct {
	sim    *sim.Sim
	paused bool
	ui     *ebitenui.UI

	// selected is the actor keyboard input drives.
	selected coupling.ActorID
	feed     *system.NoticeFeed
	camX     float64
}

func NewGame(s *sim.Sim) *Game {
	g := &Game{
		sim:  s,
		feed: system.NewNoticeFeed(s.Clock, toastTTL, maxToasts),
	}
	if ids := g.actorIDs(); len(ids) > 0 {
		g.selected = ids[0]
	}
	g.feed.Attach(s.Events)
	g.ui = NewPauseUI(g)
	return g
}

func (g *Game) Update() error {
	if g.paused {
		g.ui.Update()
	}
	g.handleInput()
	if !g.paused {
		g.sim.Step()
	}
	g.followCamera()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	w := g.sim.World
	drawGround(screen, w, g.camX)
	drawVehicles(screen, w, g.camX)
	drawLinks(screen, g.sim.Host, g.sim.Manager.Links(), g.camX)
	drawActors(screen, w, g.selected, g.camX)
	g.drawHUD(screen)
	if g.paused {
		g.ui.Draw(screen)
	}
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%.2fs  frames=%d  FPS: %.2f", g.sim.Elapsed().Seconds(), g.sim.Frames(), ebiten.ActualFPS())
	fmt.Fprintf(&b, "\nactor %s  links %d", g.selected, len(g.sim.Manager.Links()))
	b.WriteString("\nTab select  A/D walk  Q surrender  E enter  X exit  F use  K die  R revive  P pause")
	ebitenutil.DebugPrint(screen, b.String())

	drawToasts(screen, g.feed.Entries())
}

func (g *Game) actorIDs() []coupling.ActorID {
	var ids []coupling.ActorID
	ecs.ForEach(g.sim.World, component.ActorComponent.Kind(), func(_ ecs.Entity, a *component.Actor) {
		ids = append(ids, a.ID)
	})
	slices.Sort(ids)
	return ids
}

func (g *Game) followCamera() {
	e, ok := g.sim.Host.ActorEntity(g.selected)
	if !ok {
		return
	}
	if tr, ok := ecs.Get(g.sim.World, e, component.TransformComponent.Kind()); ok {
		g.camX = common.Lerp(g.camX, tr.Position.X, cameraSmoothing)
	}
}
