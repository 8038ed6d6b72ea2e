package system

import (
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
)

// EquipmentSystem serves item and unarmed use requests, honouring the
// post-release lock.
type EquipmentSystem struct {
	host *ecs.Host
}

func NewEquipmentSystem(host *ecs.Host) *EquipmentSystem {
	return &EquipmentSystem{host: host}
}

func (s *EquipmentSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}

	ecs.ForEach3(w, component.UseItemRequestComponent.Kind(), component.ActorComponent.Kind(), component.EquipmentComponent.Kind(), func(e ecs.Entity, _ *component.UseItemRequest, actor *component.Actor, eq *component.Equipment) {
		_ = ecs.Remove(w, e, component.UseItemRequestComponent.Kind())

		allowed := true
		if s.host != nil && s.host.Manager() != nil {
			allowed = s.host.Manager().AllowEquipmentUse(actor.ID)
		}
		if allowed {
			eq.Uses++
		} else {
			eq.Blocked++
		}
	})
}
