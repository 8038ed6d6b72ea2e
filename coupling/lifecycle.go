package coupling

import "time"

// ReleaseByCaptor ends the coupling held by captor. Releasing a coupling
// that does not exist does nothing. With notify the captor is told when
// something was released.
func (m *Manager) ReleaseByCaptor(captor ActorID, notify bool, reason ReleaseReason) {
	if !captor.Valid() {
		return
	}
	m.allow.ClearRelease(captor)

	released := false
	if target, ok := m.links.TargetOf(captor); ok {
		released = m.releaseTarget(captor, target, reason)
	}
	// Mirrors left without a registry entry still name this captor.
	for _, a := range m.world.Actors() {
		if a == nil || !isCustomTarget(a) || a.Restraint().Captor != captor {
			continue
		}
		if m.releaseTarget(captor, a, reason) {
			released = true
		}
	}
	m.links.Unlink(captor)

	if notify && released {
		m.notify(captor, MsgCouplingStopped)
	}
}

// releaseTarget clears the coupling mirrored on target and sends the
// release gesture. It reports whether target was coupled to captor.
func (m *Manager) releaseTarget(captor ActorID, target Actor, reason ReleaseReason) bool {
	targetID := target.ID()
	m.links.UnlinkTarget(targetID)
	if !mirrors(target, captor) {
		return false
	}

	now := m.clock.Now()
	m.allow.ClearNotices(targetID)
	m.allow.RevokeEntry(targetID)
	target.SetRestraint(Restraint{})
	target.SendGesture(GestureArrestStop)
	if m.cfg.PostReleaseLock {
		m.allow.LockActions(targetID, now, m.cfg.PostReleaseLockDuration)
	}

	m.rec.CouplingReleased(reason)
	m.rec.ActiveCouplings(m.links.Len())
	m.record(EventReleased, captor, targetID, reason)
	m.debug().Stringer("captor", captor).Stringer("target", targetID).Str("reason", string(reason)).Msg("coupling released")
	return true
}

// clearTargetState wipes every trace of a coupling from target, whether or
// not the registry still knows it. The release gesture is only sent to a
// living target when sendStop is set.
func (m *Manager) clearTargetState(target Actor, sendStop bool) {
	targetID := target.ID()
	if captor := target.Restraint().Captor; captor.Valid() {
		m.allow.ClearRelease(captor)
	}
	m.links.UnlinkTarget(targetID)
	m.allow.ClearNotices(targetID)
	m.allow.RevokeEntry(targetID)
	m.allow.RevokeExit(targetID)
	target.SetRestraint(Restraint{})
	if sendStop && target.Alive() {
		target.SendGesture(GestureArrestStop)
	}
}

// OnDeath releases the couplings of a dead actor. A dead target is cleared
// silently; the death itself is already broadcast.
func (m *Manager) OnDeath(id ActorID) {
	m.ReleaseByCaptor(id, false, ReasonDeath)

	a, ok := m.resolve(id)
	if !ok || !isCustomTarget(a) {
		return
	}
	captor := a.Restraint().Captor
	m.clearTargetState(a, false)
	m.rec.CouplingReleased(ReasonDeath)
	m.rec.ActiveCouplings(m.links.Len())
	m.record(EventReleased, captor, id, ReasonDeath)
	m.debug().Stringer("target", id).Msg("coupled target died")
}

// OnRevive removes a revived actor from any vehicle and clears leftover
// restraint state.
func (m *Manager) OnRevive(id ActorID) {
	a, ok := m.resolve(id)
	if !ok {
		return
	}
	m.ReleaseByCaptor(id, false, ReasonRevive)

	if a.Vehicle() != nil {
		m.evict(a)
	}

	r := a.Restraint()
	residual := r.Captor.Valid() || (a.Gesture() == GestureArrestStart && r.Item == 0)
	if !residual {
		return
	}
	m.clearTargetState(a, true)
	if r.Captor.Valid() {
		m.rec.CouplingReleased(ReasonRevive)
		m.record(EventReleased, r.Captor, id, ReasonRevive)
	}
	m.rec.ActiveCouplings(m.links.Len())
}

// OnDisconnect releases every coupling involving id and forgets all of its
// transient state.
func (m *Manager) OnDisconnect(id ActorID) {
	if !id.Valid() {
		return
	}
	m.ReleaseByCaptor(id, false, ReasonDisconnect)

	if a, ok := m.resolve(id); ok && isCustomTarget(a) {
		captor := a.Restraint().Captor
		m.clearTargetState(a, false)
		m.rec.CouplingReleased(ReasonDisconnect)
		m.record(EventReleased, captor, id, ReasonDisconnect)
	} else if captor, ok := m.links.linkedCaptor(id); ok {
		m.allow.ClearRelease(captor)
	}

	m.links.Unlink(id)
	m.links.UnlinkTarget(id)
	m.allow.Forget(id)
	m.rec.ActiveCouplings(m.links.Len())
}

// Shutdown releases every coupling and empties all stores. The manager can
// be reused afterwards.
func (m *Manager) Shutdown() {
	for _, l := range m.links.Pairs() {
		if target, ok := m.resolve(l.Target); ok {
			m.releaseTarget(l.Captor, target, ReasonShutdown)
		}
	}
	for _, a := range m.world.Actors() {
		if isCustomTarget(a) {
			m.clearTargetState(a, true)
		}
	}
	m.links.Reset()
	m.allow.Reset()
	m.nextFollow = time.Time{}
	m.nextSweep = time.Time{}
	m.rec.ActiveCouplings(0)
	m.log.Info().Msg("coupling state cleared")
}
