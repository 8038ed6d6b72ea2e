package system

import (
	"github.com/milk9111/tether/ecs"
)

// CouplingSystem advances the coupling core to the host clock.
type CouplingSystem struct {
	host  *ecs.Host
	clock *ecs.Clock
}

func NewCouplingSystem(host *ecs.Host, clock *ecs.Clock) *CouplingSystem {
	return &CouplingSystem{host: host, clock: clock}
}

func (s *CouplingSystem) Update(w *ecs.World) {
	if w == nil || s.host == nil || s.clock == nil {
		return
	}
	if m := s.host.Manager(); m != nil {
		m.Update(s.clock.Now())
	}
}
