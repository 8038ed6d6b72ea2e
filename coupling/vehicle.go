package coupling

// SeatCoupledTarget moves target into vehicle v next to captor. A single
// failed attempt is not terminal: the result stays true and the follow tick
// retries every cycle. With notifyOnFailure the captor is told when v has no
// seat the target could take.
func (m *Manager) SeatCoupledTarget(captor, target Actor, v Vehicle, notifyOnFailure bool) bool {
	if captor == nil || target == nil || v == nil {
		return false
	}
	captorID, targetID := captor.ID(), target.ID()
	if !targetID.Valid() {
		return false
	}

	if inVehicle(target, v) {
		m.allow.ClearRelease(captorID)
		return true
	}
	if target.Vehicle() != nil {
		m.evict(target)
	}

	m.allow.GrantEntry(targetID, v.ID(), m.clock.Now(), DefaultEntryAllowance)
	seated := m.forceSeatWithRetry(target, v)
	m.rec.SeatAttempt(seated)
	if seated {
		m.allow.ClearRelease(captorID)
		m.allow.RevokeEntry(targetID)
		m.record(EventSeated, captorID, targetID, "")
		m.debug().Stringer("captor", captorID).Stringer("target", targetID).Uint64("vehicle", uint64(v.ID())).Msg("target seated")
		return true
	}

	if notifyOnFailure {
		blocked, ok := v.SeatOf(captorID)
		if !ok {
			blocked = -1
		}
		if _, free := findFreeSeat(v, target, blocked); !free {
			m.notifyLimited(captorID, MsgVehicleNeedsTwoSeats)
		}
	}
	return true
}

// forceSeatWithRetry seats target in v, dropping its held item and trying a
// second time when the first attempt is refused. The entry allowance must
// already be granted.
func (m *Manager) forceSeatWithRetry(target Actor, v Vehicle) bool {
	if m.world.ForceSeat(target, v) && inVehicle(target, v) {
		return true
	}
	target.DropHeldItem()
	m.allow.GrantEntry(target.ID(), v.ID(), m.clock.Now(), DefaultEntryAllowance)
	return m.world.ForceSeat(target, v) && inVehicle(target, v)
}

// evict forces a out of its vehicle through a one-shot exit allowance. The
// allowance never outlives the call.
func (m *Manager) evict(a Actor) bool {
	id := a.ID()
	m.allow.AllowExitOnce(id)
	ok := m.world.ForceExit(a)
	m.allow.RevokeExit(id)
	if ok {
		m.debug().Stringer("actor", id).Msg("evicted from vehicle")
	}
	return ok
}

// freeSeats counts unoccupied seats.
func freeSeats(v Vehicle) int {
	if v == nil {
		return 0
	}
	n := 0
	for _, s := range v.Seats() {
		if s.Free() {
			n++
		}
	}
	return n
}

// findFreeSeat returns a seat target may take, skipping blocked. An arrested
// target never takes a turret and takes the driver seat only when nothing
// else is free.
func findFreeSeat(v Vehicle, target Actor, blocked int) (int, bool) {
	arrested := target != nil && target.Gesture() == GestureArrestStart
	if i, ok := scanSeats(v.Seats(), blocked, arrested, false); ok {
		return i, true
	}
	if arrested {
		return scanSeats(v.Seats(), blocked, arrested, true)
	}
	return -1, false
}

func scanSeats(seats []Seat, blocked int, arrested, allowDriver bool) (int, bool) {
	for i, s := range seats {
		if !s.Free() || i == blocked {
			continue
		}
		if arrested && !allowDriver && i == 0 {
			continue
		}
		if arrested && s.Turret {
			continue
		}
		return i, true
	}
	return -1, false
}

// AllowSeatEntry is the capacity guard run before actor takes a seat in v.
// A captor may only board a vehicle with room for both, unless its target is
// already aboard.
func (m *Manager) AllowSeatEntry(actor ActorID, v Vehicle) bool {
	if !m.cfg.VehicleCoupling || v == nil {
		return true
	}
	target, ok := m.links.TargetOf(actor)
	if !ok || inVehicle(target, v) {
		return true
	}
	if freeSeats(v) >= 2 {
		return true
	}
	m.notifyLimited(actor, MsgVehicleNeedsTwoSeats)
	return false
}

// OnSeatTaken pulls the target of actor into v after actor boarded it.
func (m *Manager) OnSeatTaken(actor ActorID, v Vehicle) {
	if !m.cfg.VehicleCoupling || v == nil {
		return
	}
	captor, ok := m.resolve(actor)
	if !ok {
		return
	}
	target, ok := m.links.TargetOf(actor)
	if !ok {
		return
	}
	m.SeatCoupledTarget(captor, target, v, true)
}

// BypassEntryCheck reports whether actor holds a forced-entry allowance for
// v. Repeated checks before expiry all pass.
func (m *Manager) BypassEntryCheck(actor ActorID, v VehicleID) bool {
	return m.allow.HasEntry(actor, v, m.clock.Now())
}

// AllowExitRequest guards a voluntary exit request of actor. A coupled
// target stays seated unless it holds a one-shot exit allowance; the
// allowance is spent by BeforeSeatRemoval when the seat is actually freed.
func (m *Manager) AllowExitRequest(actor ActorID) bool {
	a, ok := m.resolve(actor)
	if !ok || a.Vehicle() == nil || !isCustomTarget(a) {
		return true
	}
	if m.allow.HasExit(actor) {
		return true
	}
	m.notifyLimited(actor, MsgCannotExitVehicle)
	return false
}

// BeforeSeatRemoval runs before the host removes actor from v for any
// reason. It reports whether a coupled target must be put back once the
// removal is done; pass the result to AfterSeatRemoval.
func (m *Manager) BeforeSeatRemoval(actor ActorID, v Vehicle) (keep bool) {
	if m.allow.ConsumeExit(actor) {
		return false
	}
	if !m.cfg.VehicleCoupling || v == nil {
		return false
	}
	a, ok := m.resolve(actor)
	if !ok || !isCustomTarget(a) {
		return false
	}
	if !a.Alive() {
		m.clearTargetState(a, false)
		return false
	}
	m.notifyLimited(actor, MsgCannotExitVehicle)
	return true
}

// AfterSeatRemoval forces an ejected target back into v.
func (m *Manager) AfterSeatRemoval(actor ActorID, v Vehicle, keep bool) {
	if !keep || v == nil {
		return
	}
	a, ok := m.resolve(actor)
	if !ok || inVehicle(a, v) {
		return
	}
	m.allow.GrantEntry(actor, v.ID(), m.clock.Now(), DefaultEntryAllowance)
	seated := m.forceSeatWithRetry(a, v)
	m.rec.SeatAttempt(seated)
	if seated {
		m.allow.RevokeEntry(actor)
	}
}
