package system

import (
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
)

// LifecycleSystem applies death, revive and disconnect requests.
type LifecycleSystem struct {
	host *ecs.Host
}

func NewLifecycleSystem(host *ecs.Host) *LifecycleSystem {
	return &LifecycleSystem{host: host}
}

func (s *LifecycleSystem) Update(w *ecs.World) {
	if w == nil || s.host == nil {
		return
	}

	ecs.ForEach2(w, component.LifecycleRequestComponent.Kind(), component.ActorComponent.Kind(), func(e ecs.Entity, req *component.LifecycleRequest, actor *component.Actor) {
		_ = ecs.Remove(w, e, component.LifecycleRequestComponent.Kind())
		m := s.host.Manager()

		switch req.Event {
		case component.LifecycleDeath:
			life, ok := ecs.Get(w, e, component.LifeComponent.Kind())
			if !ok || !life.Alive {
				return
			}
			life.Alive = false
			if anim, ok := ecs.Get(w, e, component.AnimatorComponent.Kind()); ok {
				anim.Gesture = coupling.GestureNone
			}
			if m != nil {
				m.OnDeath(actor.ID)
			}
		case component.LifecycleRevive:
			life, ok := ecs.Get(w, e, component.LifeComponent.Kind())
			if !ok || life.Alive {
				return
			}
			life.Alive = true
			if m != nil {
				m.OnRevive(actor.ID)
			}
		case component.LifecycleDisconnect:
			s.host.Disconnect(actor.ID)
		}
	})
}
