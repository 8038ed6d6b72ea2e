package coupling

import "fmt"

// sweep reconciles the stores against the active roster. A panic from a
// host call abandons this pass only.
func (m *Manager) sweep() {
	defer func() {
		if r := recover(); r != nil {
			m.rec.SweepFault()
			m.log.Error().Err(fmt.Errorf("%v", r)).Msg("coupling sweep aborted")
		}
	}()

	roster := m.world.Actors()
	present := make(map[ActorID]Actor, len(roster))
	for _, a := range roster {
		if a != nil && a.ID().Valid() {
			present[a.ID()] = a
		}
	}
	isPresent := func(id ActorID) bool {
		_, ok := present[id]
		return ok
	}

	purged := m.allow.Sweep(isPresent)

	for _, l := range m.links.Pairs() {
		target, targetOK := present[l.Target]
		switch {
		case !targetOK:
			m.links.Unlink(l.Captor)
			purged++
		case !isPresent(l.Captor):
			m.releaseTarget(l.Captor, target, ReasonStale)
			purged++
		}
	}

	// Mirrors the registry does not back were left by a link dropped elsewhere.
	for _, a := range roster {
		if a == nil || !isCustomTarget(a) {
			continue
		}
		captor, ok := m.links.linkedCaptor(a.ID())
		if ok && captor == a.Restraint().Captor {
			continue
		}
		stale := a.Restraint().Captor
		m.clearTargetState(a, true)
		m.rec.CouplingReleased(ReasonStale)
		m.record(EventReleased, stale, a.ID(), ReasonStale)
		purged++
	}

	if purged > 0 {
		m.rec.SweepPurged(purged)
		m.debug().Int("purged", purged).Msg("sweep reconciled stale state")
	}
	m.rec.ActiveCouplings(m.links.Len())
}
