package coupling

import (
	"cmp"
	"slices"
)

// Registry is the bidirectional captor/target index. The restraint mirrored
// on the target is authoritative; lookups drop any link the mirror no longer
// confirms.
type Registry struct {
	resolve  func(ActorID) (Actor, bool)
	byCaptor map[ActorID]ActorID
	byTarget map[ActorID]ActorID
}

// NewRegistry creates an empty registry resolving targets with resolve.
func NewRegistry(resolve func(ActorID) (Actor, bool)) *Registry {
	return &Registry{
		resolve:  resolve,
		byCaptor: make(map[ActorID]ActorID),
		byTarget: make(map[ActorID]ActorID),
	}
}

// Link installs captor -> target, breaking any previous link of either party.
func (r *Registry) Link(captor, target ActorID) {
	if !captor.Valid() || !target.Valid() || captor == target {
		return
	}
	r.Unlink(captor)
	r.UnlinkTarget(target)
	r.byCaptor[captor] = target
	r.byTarget[target] = captor
}

// TargetOf returns the live target of captor.
func (r *Registry) TargetOf(captor ActorID) (Actor, bool) {
	target, ok := r.byCaptor[captor]
	if !ok {
		return nil, false
	}
	a, ok := r.resolve(target)
	if !ok || !mirrors(a, captor) {
		r.Unlink(captor)
		return nil, false
	}
	return a, true
}

// CaptorOf returns the captor holding target.
func (r *Registry) CaptorOf(target ActorID) (ActorID, bool) {
	captor, ok := r.byTarget[target]
	if !ok {
		return NilActor, false
	}
	a, ok := r.resolve(target)
	if !ok || !mirrors(a, captor) {
		r.UnlinkTarget(target)
		return NilActor, false
	}
	return captor, true
}

// Unlink removes the link owned by captor, if any.
func (r *Registry) Unlink(captor ActorID) {
	target, ok := r.byCaptor[captor]
	if !ok {
		return
	}
	delete(r.byCaptor, captor)
	if r.byTarget[target] == captor {
		delete(r.byTarget, target)
	}
}

// UnlinkTarget removes the link holding target, if any.
func (r *Registry) UnlinkTarget(target ActorID) {
	captor, ok := r.byTarget[target]
	if !ok {
		return
	}
	delete(r.byTarget, target)
	if r.byCaptor[captor] == target {
		delete(r.byCaptor, captor)
	}
}

// linkedCaptor reads the index without validation.
func (r *Registry) linkedCaptor(target ActorID) (ActorID, bool) {
	c, ok := r.byTarget[target]
	return c, ok
}

func (r *Registry) Len() int {
	return len(r.byCaptor)
}

// Pairs returns a snapshot of every link ordered by captor.
func (r *Registry) Pairs() []Link {
	out := make([]Link, 0, len(r.byCaptor))
	for c, t := range r.byCaptor {
		out = append(out, Link{Captor: c, Target: t})
	}
	slices.SortFunc(out, func(a, b Link) int { return cmp.Compare(a.Captor, b.Captor) })
	return out
}

func (r *Registry) Reset() {
	clear(r.byCaptor)
	clear(r.byTarget)
}

func mirrors(target Actor, captor ActorID) bool {
	rs := target.Restraint()
	return rs.Custom() && rs.Captor == captor
}
