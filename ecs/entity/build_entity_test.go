package entity

import (
	"strings"
	"testing"

	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
	"github.com/milk9111/tether/prefabs"
)

func TestBuildEntity(t *testing.T) {
	w := ecs.NewWorld()
	e, err := BuildEntity(w, prefabs.EntityBuildSpec{
		Name: "suspect",
		Components: map[string]any{
			"actor":     map[string]any{"id": 7},
			"transform": map[string]any{"x": 2, "yaw": 1.5},
			"look":      map[string]any{"forward_x": -1},
			"life":      map[string]any{"ready": false},
			"animator":  map[string]any{"gesture": "arrest_start"},
			"equipment": map[string]any{"held": "crowbar"},
			"movement":  map[string]any{"teleport_blocked": true},
		},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	actor, _ := ecs.Get(w, e, component.ActorComponent.Kind())
	if actor.ID != 7 || actor.Name != "suspect" {
		t.Fatalf("unexpected actor %+v", actor)
	}
	tr, _ := ecs.Get(w, e, component.TransformComponent.Kind())
	if tr.Position.X != 2 || tr.Yaw != 1.5 {
		t.Fatalf("unexpected transform %+v", tr)
	}
	look, _ := ecs.Get(w, e, component.LookComponent.Kind())
	if look.Forward.X != -1 || look.EyeHeight != 1.5 {
		t.Fatalf("unexpected look %+v", look)
	}
	life, _ := ecs.Get(w, e, component.LifeComponent.Kind())
	if !life.Alive || life.Ready {
		t.Fatalf("unexpected life %+v", life)
	}
	anim, _ := ecs.Get(w, e, component.AnimatorComponent.Kind())
	if anim.Gesture != coupling.GestureArrestStart {
		t.Fatalf("unexpected gesture %v", anim.Gesture)
	}
	eq, _ := ecs.Get(w, e, component.EquipmentComponent.Kind())
	mv, _ := ecs.Get(w, e, component.MovementComponent.Kind())
	if eq.Held != "crowbar" || !mv.TeleportBlocked {
		t.Fatalf("unexpected equipment %+v movement %+v", eq, mv)
	}
}

func TestBuildEntityErrors(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]any
		want       string
	}{
		{"empty", nil, "does not define components"},
		{"unknown_component", map[string]any{"sprite": map[string]any{}}, `no builder for component "sprite"`},
		{"bad_gesture", map[string]any{"animator": map[string]any{"gesture": "wave"}}, `unknown gesture "wave"`},
		{"seatless_vehicle", map[string]any{"vehicle": map[string]any{"id": 3}}, "has no seats"},
		{"turret_out_of_range", map[string]any{"vehicle": map[string]any{"id": 3, "seats": 2, "turrets": []int{2}}}, "out of range"},
		{"passenger_without_vehicle", map[string]any{"passenger": map[string]any{}}, "passenger without vehicle"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := ecs.NewWorld()
			_, err := BuildEntity(w, prefabs.EntityBuildSpec{Name: tc.name, Components: tc.components})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
			if n := len(ecs.Entities(w)); n != 0 {
				t.Fatalf("failed build left %d entities", n)
			}
		})
	}
}

func TestBuildScenario(t *testing.T) {
	scenario, err := prefabs.LoadScenario("checkpoint")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	host := ecs.NewHost(ecs.NewWorld())
	built, err := BuildScenario(host, scenario)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(built) != len(scenario.Ground)+len(scenario.Entities) {
		t.Fatalf("expected %d entities, got %d", len(scenario.Ground)+len(scenario.Entities), len(built))
	}
	if n := host.World().PhysicsWorld().GroundCount(); n != 1 {
		t.Fatalf("expected 1 ground segment, got %d", n)
	}
	if len(host.Actors()) != 4 {
		t.Fatalf("expected 4 actors, got %d", len(host.Actors()))
	}

	driver, ok := host.Actor(13)
	if !ok || driver.Vehicle() == nil || driver.Vehicle().ID() != 20 {
		t.Fatalf("expected the driver seated in vehicle 20")
	}
	if seat, ok := driver.Vehicle().SeatOf(13); !ok || seat != 0 {
		t.Fatalf("expected the driver seat, got %d ok=%v", seat, ok)
	}
}

func TestBuildScenarioErrors(t *testing.T) {
	actor := func(id int, extra map[string]any) prefabs.EntityBuildSpec {
		c := map[string]any{"actor": map[string]any{"id": id}, "transform": map[string]any{}}
		for k, v := range extra {
			c[k] = v
		}
		return prefabs.EntityBuildSpec{Name: "a", Components: c}
	}
	tests := []struct {
		name     string
		entities []prefabs.EntityBuildSpec
		want     string
	}{
		{"duplicate_actor", []prefabs.EntityBuildSpec{actor(1, nil), actor(1, nil)}, "duplicate actor"},
		{"missing_vehicle", []prefabs.EntityBuildSpec{actor(1, map[string]any{"passenger": map[string]any{"vehicle": 9}})}, "refused"},
		{"passenger_without_actor", []prefabs.EntityBuildSpec{{Name: "crate", Components: map[string]any{"passenger": map[string]any{"vehicle": 9}}}}, "passenger without actor"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			host := ecs.NewHost(ecs.NewWorld())
			_, err := BuildScenario(host, prefabs.ScenarioSpec{Name: tc.name, Entities: tc.entities})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
