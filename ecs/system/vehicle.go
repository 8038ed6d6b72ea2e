package system

import (
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
)

// VehicleSystem serves boarding and exit requests.
type VehicleSystem struct {
	host *ecs.Host
}

func NewVehicleSystem(host *ecs.Host) *VehicleSystem {
	return &VehicleSystem{host: host}
}

func (s *VehicleSystem) Update(w *ecs.World) {
	if w == nil || s.host == nil {
		return
	}

	ecs.ForEach2(w, component.ExitVehicleRequestComponent.Kind(), component.ActorComponent.Kind(), func(e ecs.Entity, _ *component.ExitVehicleRequest, actor *component.Actor) {
		_ = ecs.Remove(w, e, component.ExitVehicleRequestComponent.Kind())
		s.host.RequestExit(actor.ID)
	})

	ecs.ForEach2(w, component.EnterVehicleRequestComponent.Kind(), component.ActorComponent.Kind(), func(e ecs.Entity, req *component.EnterVehicleRequest, actor *component.Actor) {
		_ = ecs.Remove(w, e, component.EnterVehicleRequestComponent.Kind())
		s.host.TryEnterVehicle(actor.ID, req.Vehicle)
	})
}
