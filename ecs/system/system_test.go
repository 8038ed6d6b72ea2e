package system

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/milk9111/tether/common"
	"github.com/milk9111/tether/config"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
	"github.com/milk9111/tether/ecs/entity"
	"github.com/milk9111/tether/prefabs"
)

const testFrame = time.Second / 60

type fixture struct {
	host  *ecs.Host
	clock *ecs.Clock
	mgr   *coupling.Manager
	w     *ecs.World
}

func actorSpec(id uint64, x, forward float64, extra map[string]any) prefabs.EntityBuildSpec {
	c := map[string]any{
		"actor":     map[string]any{"id": id},
		"transform": map[string]any{"x": x},
		"look":      map[string]any{"forward_x": forward},
		"life":      map[string]any{},
		"animator":  map[string]any{},
		"movement":  map[string]any{},
		"equipment": map[string]any{"held": "baton"},
	}
	for k, v := range extra {
		c[k] = v
	}
	return prefabs.EntityBuildSpec{Components: c}
}

func newFixture(t *testing.T, entities ...prefabs.EntityBuildSpec) *fixture {
	t.Helper()
	w := ecs.NewWorld()
	host := ecs.NewHost(w)
	clock := ecs.NewClock(time.Unix(0, 0))
	mgr, err := coupling.NewManager(config.Default().Sanitize(), coupling.Deps{
		World:    host,
		Notifier: host,
		Clock:    clock,
		Journal:  host,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	host.Bind(mgr)

	scenario := prefabs.ScenarioSpec{
		Name:     "test",
		Ground:   []prefabs.SegmentSpec{{From: prefabs.Vec2Spec{X: -30}, To: prefabs.Vec2Spec{X: 30}}},
		Entities: entities,
	}
	if _, err := entity.BuildScenario(host, scenario); err != nil {
		t.Fatalf("build scenario: %v", err)
	}
	return &fixture{host: host, clock: clock, mgr: mgr, w: w}
}

func (f *fixture) entity(t *testing.T, id coupling.ActorID) ecs.Entity {
	t.Helper()
	e, ok := f.host.ActorEntity(id)
	if !ok {
		t.Fatalf("actor %v missing", id)
	}
	return e
}

func (f *fixture) request(t *testing.T, id coupling.ActorID, add func(ecs.Entity) error) {
	t.Helper()
	if err := add(f.entity(t, id)); err != nil {
		t.Fatalf("add request: %v", err)
	}
}

func (f *fixture) gesture(t *testing.T, id coupling.ActorID, g coupling.Gesture) {
	t.Helper()
	f.request(t, id, func(e ecs.Entity) error {
		return ecs.Add(f.w, e, component.GestureRequestComponent.Kind(), &component.GestureRequest{Gesture: g})
	})
}

func (f *fixture) couplingKinds() []coupling.EventKind {
	var kinds []coupling.EventKind
	for _, ev := range f.w.Events().Drain() {
		if e, ok := ev.Data.(coupling.Event); ok {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}

func TestGestureSystem(t *testing.T) {
	f := newFixture(t,
		actorSpec(1, 0, 1, nil),
		actorSpec(2, 2, -1, nil),
		actorSpec(3, -2, 1, map[string]any{"life": map[string]any{"alive": false}}),
	)
	gs := NewGestureSystem(f.host)

	f.gesture(t, 3, coupling.GestureSurrenderStart)
	f.gesture(t, 1, coupling.GestureSurrenderStart)
	gs.Update(f.w)

	if ecs.Has(f.w, f.entity(t, 1), component.GestureRequestComponent.Kind()) {
		t.Fatalf("request should be consumed")
	}
	dead, _ := ecs.Get(f.w, f.entity(t, 3), component.AnimatorComponent.Kind())
	if dead.Gesture != coupling.GestureNone {
		t.Fatalf("dead actor should not gesture, got %v", dead.Gesture)
	}
	if got, ok := f.mgr.TargetOf(1); !ok || got != 2 {
		t.Fatalf("expected coupling 1->2, got %v ok=%v", got, ok)
	}
	if kinds := f.couplingKinds(); len(kinds) != 1 || kinds[0] != coupling.EventStarted {
		t.Fatalf("expected one started event, got %v", kinds)
	}

	// Repeating the current gesture is not an edge.
	f.gesture(t, 1, coupling.GestureSurrenderStart)
	gs.Update(f.w)
	for _, ev := range f.w.Events().Drain() {
		if n, ok := ev.Data.(ecs.Notice); ok && n.Message.Key == coupling.MsgCaptorAlreadyCoupled {
			t.Fatalf("unchanged gesture reached the core")
		}
	}

	f.gesture(t, 1, coupling.GestureSurrenderStop)
	gs.Update(f.w)
	if _, ok := f.mgr.TargetOf(1); !ok {
		t.Fatalf("release should be deferred by the grace window")
	}
	if !f.mgr.Allowances().DelayRelease(1, f.clock.Now()) {
		t.Fatalf("expected a pending release")
	}
}

func TestLifecycleSystem(t *testing.T) {
	tests := []struct {
		name   string
		actor  coupling.ActorID
		event  component.LifecycleEvent
		reason coupling.ReleaseReason
	}{
		{"captor_dies", 1, component.LifecycleDeath, coupling.ReasonDeath},
		{"target_dies", 2, component.LifecycleDeath, coupling.ReasonDeath},
		{"captor_disconnects", 1, component.LifecycleDisconnect, coupling.ReasonDisconnect},
		{"target_disconnects", 2, component.LifecycleDisconnect, coupling.ReasonDisconnect},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, actorSpec(1, 0, 1, nil), actorSpec(2, 2, -1, nil))
			f.gesture(t, 1, coupling.GestureSurrenderStart)
			NewGestureSystem(f.host).Update(f.w)
			f.w.Events().Drain()

			f.request(t, tc.actor, func(e ecs.Entity) error {
				return ecs.Add(f.w, e, component.LifecycleRequestComponent.Kind(), &component.LifecycleRequest{Event: tc.event})
			})
			NewLifecycleSystem(f.host).Update(f.w)

			if links := f.mgr.Links(); len(links) != 0 {
				t.Fatalf("expected no links, got %v", links)
			}
			var reasons []coupling.ReleaseReason
			for _, ev := range f.w.Events().Drain() {
				if e, ok := ev.Data.(coupling.Event); ok && e.Kind == coupling.EventReleased {
					reasons = append(reasons, e.Reason)
				}
			}
			if len(reasons) != 1 || reasons[0] != tc.reason {
				t.Fatalf("expected one %q release, got %v", tc.reason, reasons)
			}

			e, alive := f.host.ActorEntity(tc.actor)
			switch tc.event {
			case component.LifecycleDisconnect:
				if alive {
					t.Fatalf("disconnected actor still present")
				}
			case component.LifecycleDeath:
				life, _ := ecs.Get(f.w, e, component.LifeComponent.Kind())
				anim, _ := ecs.Get(f.w, e, component.AnimatorComponent.Kind())
				if life.Alive || anim.Gesture != coupling.GestureNone {
					t.Fatalf("expected a dead actor without gesture, got %+v %+v", life, anim)
				}
			}
		})
	}

	t.Run("revive", func(t *testing.T) {
		f := newFixture(t, actorSpec(1, 0, 1, map[string]any{"life": map[string]any{"alive": false}}))
		f.request(t, 1, func(e ecs.Entity) error {
			return ecs.Add(f.w, e, component.LifecycleRequestComponent.Kind(), &component.LifecycleRequest{Event: component.LifecycleRevive})
		})
		NewLifecycleSystem(f.host).Update(f.w)
		life, _ := ecs.Get(f.w, f.entity(t, 1), component.LifeComponent.Kind())
		if !life.Alive {
			t.Fatalf("expected the actor revived")
		}
	})
}

func TestEquipmentSystem(t *testing.T) {
	f := newFixture(t, actorSpec(1, 0, 1, nil), actorSpec(2, 2, -1, nil), actorSpec(3, 8, 1, nil))
	use := func(id coupling.ActorID) {
		f.request(t, id, func(e ecs.Entity) error {
			return ecs.Add(f.w, e, component.UseItemRequestComponent.Kind(), &component.UseItemRequest{})
		})
	}
	eqOf := func(id coupling.ActorID) *component.Equipment {
		eq, _ := ecs.Get(f.w, f.entity(t, id), component.EquipmentComponent.Kind())
		return eq
	}
	es := NewEquipmentSystem(f.host)

	f.gesture(t, 1, coupling.GestureSurrenderStart)
	NewGestureSystem(f.host).Update(f.w)

	use(2)
	use(3)
	es.Update(f.w)
	if eq := eqOf(2); eq.Blocked != 1 || eq.Uses != 0 {
		t.Fatalf("coupled target should be blocked, got %+v", eq)
	}
	if eq := eqOf(3); eq.Uses != 1 {
		t.Fatalf("free actor should use, got %+v", eq)
	}

	f.mgr.ReleaseByCaptor(1, true, coupling.ReasonStop)
	use(2)
	es.Update(f.w)
	if eq := eqOf(2); eq.Blocked != 2 {
		t.Fatalf("released target should be locked, got %+v", eq)
	}

	f.clock.Advance(time.Second)
	use(2)
	es.Update(f.w)
	if eq := eqOf(2); eq.Uses != 1 {
		t.Fatalf("lock should have lapsed, got %+v", eq)
	}
}

func TestMovementSystem(t *testing.T) {
	f := newFixture(t,
		actorSpec(1, 0, 1, nil),
		actorSpec(2, 5, 1, map[string]any{"passenger": map[string]any{"vehicle": 10}}),
		prefabs.EntityBuildSpec{Name: "cart", Components: map[string]any{
			"transform": map[string]any{"x": 5},
			"vehicle":   map[string]any{"id": 10, "seats": 2},
		}},
	)
	ms := NewMovementSystem(f.host, testFrame)

	f.request(t, 1, func(e ecs.Entity) error {
		return ecs.Add(f.w, e, component.WalkRequestComponent.Kind(), &component.WalkRequest{Velocity: common.Vec3{X: -6}})
	})
	f.request(t, 1, func(e ecs.Entity) error {
		return ecs.Add(f.w, e, component.AimRequestComponent.Kind(), &component.AimRequest{Forward: common.Vec3{X: -1}})
	})
	for i := 0; i < 60; i++ {
		ms.Update(f.w)
	}

	walker, _ := ecs.Get(f.w, f.entity(t, 1), component.TransformComponent.Kind())
	if math.Abs(walker.Position.X+6) > 1e-6 || math.Abs(walker.Position.Y) > 1e-9 {
		t.Fatalf("expected walker at (-6,0), got %v", walker.Position)
	}
	if walker.Yaw != math.Pi {
		t.Fatalf("expected walker to face -X, got yaw %v", walker.Yaw)
	}
	look, _ := ecs.Get(f.w, f.entity(t, 1), component.LookComponent.Kind())
	if look.Forward.X != -1 {
		t.Fatalf("expected aim applied, got %v", look.Forward)
	}

	ve, _ := f.host.VehicleEntity(10)
	v, _ := ecs.Get(f.w, ve, component.VehicleComponent.Kind())
	v.Velocity = common.Vec3{X: 3}
	for i := 0; i < 30; i++ {
		ms.Update(f.w)
	}
	rider, _ := ecs.Get(f.w, f.entity(t, 2), component.TransformComponent.Kind())
	if math.Abs(rider.Position.X-6.5) > 1e-6 {
		t.Fatalf("expected the rider carried to 6.5, got %v", rider.Position)
	}
}

func TestVehicleSystem(t *testing.T) {
	f := newFixture(t,
		actorSpec(1, 0, 1, nil),
		prefabs.EntityBuildSpec{Name: "cart", Components: map[string]any{
			"transform": map[string]any{"x": 3},
			"vehicle":   map[string]any{"id": 10, "seats": 2},
		}},
	)
	vs := NewVehicleSystem(f.host)

	f.request(t, 1, func(e ecs.Entity) error {
		return ecs.Add(f.w, e, component.EnterVehicleRequestComponent.Kind(), &component.EnterVehicleRequest{Vehicle: 10})
	})
	vs.Update(f.w)
	if !ecs.Has(f.w, f.entity(t, 1), component.PassengerComponent.Kind()) {
		t.Fatalf("expected the actor seated")
	}

	f.request(t, 1, func(e ecs.Entity) error {
		return ecs.Add(f.w, e, component.ExitVehicleRequestComponent.Kind(), &component.ExitVehicleRequest{})
	})
	vs.Update(f.w)
	if ecs.Has(f.w, f.entity(t, 1), component.PassengerComponent.Kind()) {
		t.Fatalf("expected the actor on foot")
	}
}

func TestCouplingSystemFollows(t *testing.T) {
	f := newFixture(t, actorSpec(1, 0, 1, nil), actorSpec(2, 2, -1, nil))
	f.gesture(t, 1, coupling.GestureSurrenderStart)
	NewGestureSystem(f.host).Update(f.w)

	cs := NewCouplingSystem(f.host, f.clock)
	f.clock.Advance(testFrame)
	cs.Update(f.w)

	target, _ := ecs.Get(f.w, f.entity(t, 2), component.TransformComponent.Kind())
	want := -f.mgr.Settings().FollowDistance
	if math.Abs(target.Position.X-want) > 1e-6 {
		t.Fatalf("expected the target behind the captor at %v, got %v", want, target.Position)
	}
	mv, _ := ecs.Get(f.w, f.entity(t, 2), component.MovementComponent.Kind())
	if mv.Teleports != 1 {
		t.Fatalf("expected one teleport, got %d", mv.Teleports)
	}
}

func TestTimelineSystem(t *testing.T) {
	f := newFixture(t, actorSpec(1, 0, 1, nil))
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	steps := []prefabs.StepSpec{
		{At: 0.1, Actor: 1, Action: prefabs.ActionSurrender},
		{At: 0.2, Actor: 9, Action: prefabs.ActionStand},
		{At: 0.3, Actor: 1, Action: prefabs.ActionWalk, X: 2},
	}
	tl := NewTimelineSystem(f.host, f.clock, steps, &logger)

	f.clock.Advance(50 * time.Millisecond)
	tl.Update(f.w)
	if ecs.Has(f.w, f.entity(t, 1), component.GestureRequestComponent.Kind()) {
		t.Fatalf("step fired early")
	}

	f.clock.Advance(200 * time.Millisecond)
	tl.Update(f.w)
	req, ok := ecs.Get(f.w, f.entity(t, 1), component.GestureRequestComponent.Kind())
	if !ok || req.Gesture != coupling.GestureSurrenderStart {
		t.Fatalf("expected a surrender request, got %+v ok=%v", req, ok)
	}
	if !strings.Contains(buf.String(), "step actor missing") {
		t.Fatalf("expected a warning for the missing actor, got %q", buf.String())
	}
	if tl.Done() {
		t.Fatalf("walk step should still be pending")
	}

	f.clock.Advance(100 * time.Millisecond)
	tl.Update(f.w)
	if !tl.Done() {
		t.Fatalf("expected every step fired")
	}
	walk, ok := ecs.Get(f.w, f.entity(t, 1), component.WalkRequestComponent.Kind())
	if !ok || walk.Velocity.X != 2 {
		t.Fatalf("expected a walk request, got %+v ok=%v", walk, ok)
	}
}

func TestEventLogSystem(t *testing.T) {
	w := ecs.NewWorld()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	s := NewEventLogSystem(&logger)

	var notices []ecs.Notice
	var events []coupling.Event
	s.OnNotice = func(n ecs.Notice) { notices = append(notices, n) }
	s.OnCoupling = func(e coupling.Event) { events = append(events, e) }

	w.Events().Push(ecs.Event{Type: ecs.EventNotice, Data: ecs.Notice{To: 1, Message: coupling.Message{Key: coupling.MsgCouplingStarted, Text: "hi"}}})
	w.Events().Push(ecs.Event{Type: ecs.EventCoupling, Data: coupling.Event{Kind: coupling.EventReleased, Captor: 1, Target: 2, Reason: coupling.ReasonStop}})
	w.Events().Push(ecs.Event{Type: "other"})
	s.Update(w)

	if len(notices) != 1 || len(events) != 1 {
		t.Fatalf("expected one notice and one event, got %d and %d", len(notices), len(events))
	}
	out := buf.String()
	for _, want := range []string{`"message":"notice"`, `"reason":"stop"`, `"message":"coupling"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output %q", want, out)
		}
	}
	if w.Events().Len() != 0 {
		t.Fatalf("expected the queue drained")
	}
}

func TestNoticeFeed(t *testing.T) {
	clock := ecs.NewClock(time.Unix(0, 0))
	feed := NewNoticeFeed(clock, time.Second, 2)

	w := ecs.NewWorld()
	events := NewEventLogSystem(nil)
	feed.Attach(events)

	w.Events().Push(ecs.Event{Type: ecs.EventNotice, Data: ecs.Notice{To: 1, Message: coupling.Message{Text: "no", Style: coupling.StyleError}}})
	w.Events().Push(ecs.Event{Type: ecs.EventCoupling, Data: coupling.Event{Kind: coupling.EventStarted, Captor: 1, Target: 2}})
	events.Update(w)

	got := feed.Entries()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Style != coupling.StyleError || got[0].Text != "-> 1: no" {
		t.Fatalf("unexpected notice entry %+v", got[0])
	}
	if got[1].Style != coupling.StyleSuccess || got[1].Text != "started 1 -> 2" {
		t.Fatalf("unexpected event entry %+v", got[1])
	}

	releases := []struct {
		reason coupling.ReleaseReason
		want   coupling.Style
	}{
		{coupling.ReasonStop, coupling.StyleSuccess},
		{coupling.ReasonDeath, coupling.StyleWarning},
	}
	for _, r := range releases {
		feed.PushEvent(coupling.Event{Kind: coupling.EventReleased, Captor: 1, Target: 2, Reason: r.reason})
		got := feed.Entries()
		last := got[len(got)-1]
		if last.Style != r.want {
			t.Fatalf("release %s: expected style %v, got %v", r.reason, r.want, last.Style)
		}
	}
	if n := len(feed.Entries()); n != 2 {
		t.Fatalf("expected the feed capped at 2, got %d", n)
	}

	clock.Advance(2 * time.Second)
	if n := len(feed.Entries()); n != 0 {
		t.Fatalf("expected every entry expired, got %d", n)
	}
}
