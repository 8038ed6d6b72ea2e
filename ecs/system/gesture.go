package system

import (
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/component"
)

// GestureSystem applies gesture requests to the animator and then tells the
// coupling core about the transition.
type GestureSystem struct {
	host *ecs.Host
}

func NewGestureSystem(host *ecs.Host) *GestureSystem {
	return &GestureSystem{host: host}
}

func (s *GestureSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}

	ecs.ForEach2(w, component.GestureRequestComponent.Kind(), component.ActorComponent.Kind(), func(e ecs.Entity, req *component.GestureRequest, actor *component.Actor) {
		_ = ecs.Remove(w, e, component.GestureRequestComponent.Kind())

		if life, ok := ecs.Get(w, e, component.LifeComponent.Kind()); !ok || !life.Alive {
			return
		}
		anim, ok := ecs.Get(w, e, component.AnimatorComponent.Kind())
		if !ok || anim.Gesture == req.Gesture {
			return
		}
		anim.Gesture = req.Gesture

		if s.host != nil && s.host.Manager() != nil {
			s.host.Manager().OnGesture(actor.ID, req.Gesture)
		}
	})
}
