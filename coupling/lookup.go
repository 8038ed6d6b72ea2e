package coupling

// resolve returns the live handle for id. Unknown and nil identifiers, and
// handles the host reports for the wrong identifier, resolve to false.
func (m *Manager) resolve(id ActorID) (Actor, bool) {
	if !id.Valid() {
		return nil, false
	}
	a, ok := m.world.Actor(id)
	if !ok || a == nil || a.ID() != id {
		return nil, false
	}
	return a, true
}

func idOf(a Actor) ActorID {
	if a == nil {
		return NilActor
	}
	return a.ID()
}

func vehicleID(v Vehicle) VehicleID {
	if v == nil {
		return 0
	}
	return v.ID()
}

// inVehicle reports whether a is seated in v.
func inVehicle(a Actor, v Vehicle) bool {
	if a == nil || v == nil {
		return false
	}
	cur := a.Vehicle()
	return cur != nil && cur.ID() == v.ID()
}

func sameVehicle(a, b Actor) bool {
	if a == nil || b == nil {
		return false
	}
	va := a.Vehicle()
	return va != nil && inVehicle(b, va)
}

// ready reports whether a can take part in a coupling.
func ready(a Actor) bool {
	return a != nil && a.Alive() && a.Ready()
}

// isCustomTarget is the mirrored-state predicate: a carries a coupling owned
// by this package. Gestures can flip while seated, so only the restraint
// fields count.
func isCustomTarget(a Actor) bool {
	return a != nil && a.Restraint().Custom()
}
