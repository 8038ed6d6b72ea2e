package coupling

import (
	"math"
	"strings"

	"github.com/milk9111/tether/common"
)

// AimConeMinDot is the minimum alignment between the captor's aim and the
// direction to a candidate for the cone fallback of target acquisition.
const AimConeMinDot = 0.75

// minCandidateDistance discards candidates overlapping the aim origin.
const minCandidateDistance = 0.01

// resumeFloor is the smallest distance from which an on-foot captor can
// resume a coupling whose target is still seated.
const resumeFloor = 5.0

// OnGesture handles a gesture applied to actor id. Only the surrender edges
// are observed; the host calls this after the gesture is in place.
func (m *Manager) OnGesture(id ActorID, g Gesture) {
	actor, ok := m.resolve(id)
	if !ok {
		return
	}

	switch g {
	case GestureSurrenderStart:
		if actor.Gesture() != GestureSurrenderStart {
			return
		}
		m.allow.ClearRelease(id)
		m.startCoupling(actor)
	case GestureSurrenderStop:
		if m.cfg.VehicleCoupling {
			if _, ok := m.links.TargetOf(id); ok {
				m.allow.ScheduleRelease(id, m.clock.Now(), DefaultReleaseGrace)
				m.debug().Stringer("captor", id).Msg("release deferred")
				return
			}
		}
		if !m.keepAliveInVehicle(actor) {
			m.ReleaseByCaptor(id, true, ReasonStop)
		}
	}
}

func (m *Manager) startCoupling(captor Actor) {
	captorID := captor.ID()
	if perm := strings.TrimSpace(m.cfg.DragPermission); perm != "" && !m.perms.HasPermission(captorID, perm) {
		m.notify(captorID, MsgPermissionDenied)
		return
	}

	if existing, ok := m.links.TargetOf(captorID); ok {
		if m.revalidate(captor, existing) {
			return
		}
	}

	target, ok := m.acquireTarget(captor)
	if !ok {
		m.notify(captorID, MsgTargetNotFound)
		return
	}
	targetID := target.ID()

	if _, held := m.links.CaptorOf(targetID); held || target.Restraint().Captor.Valid() {
		m.notify(captorID, MsgTargetAlreadyCoupled)
		return
	}

	gesture := target.Gesture()
	if m.cfg.RequireTargetSurrendered && gesture != GestureSurrenderStart && gesture != GestureArrestStart {
		m.notify(captorID, MsgTargetNotSurrendered)
		return
	}

	target.DropHeldItem()
	if gesture != GestureSurrenderStart && gesture != GestureArrestStart {
		target.SendGesture(GestureSurrenderStart)
	}
	m.links.Link(captorID, targetID)
	target.SetRestraint(Restraint{Captor: captorID, Strength: m.cfg.DragStrength})
	target.SendGesture(GestureArrestStart)
	m.allow.RevokeExit(targetID)
	m.allow.ClearNotices(targetID)

	if captor.Vehicle() == nil && target.Vehicle() != nil {
		m.evict(target)
	}

	m.rec.CouplingStarted()
	m.rec.ActiveCouplings(m.links.Len())
	m.record(EventStarted, captorID, targetID, "")
	m.debug().Stringer("captor", captorID).Stringer("target", targetID).Msg("coupling started")
	m.notify(captorID, MsgCouplingStarted)
}

// revalidate handles a start edge from a captor that already holds target.
// It returns false when the old coupling was dropped and a new target may be
// acquired.
func (m *Manager) revalidate(captor, target Actor) bool {
	captorID := captor.ID()
	if !ready(target) {
		m.ReleaseByCaptor(captorID, false, ReasonTargetInvalid)
		return false
	}

	if m.cfg.VehicleCoupling && captor.Vehicle() == nil {
		if v := target.Vehicle(); v != nil {
			resume := common.MaxFloat(m.cfg.DragDistance+2, resumeFloor)
			if common.Distance(captor.Pose().Position, v.Position()) > resume {
				m.notify(captorID, MsgTargetNotFound)
				return true
			}
			m.evict(target)
			m.allow.ClearRelease(captorID)
			m.record(EventResumed, captorID, target.ID(), "")
			m.debug().Stringer("captor", captorID).Stringer("target", target.ID()).Msg("coupling resumed on foot")
			return true
		}
	}

	m.notify(captorID, MsgCaptorAlreadyCoupled)
	return true
}

// keepAliveInVehicle reports whether captor and its target share a vehicle.
func (m *Manager) keepAliveInVehicle(captor Actor) bool {
	if !m.cfg.VehicleCoupling || captor.Vehicle() == nil {
		return false
	}
	target, ok := m.links.TargetOf(captor.ID())
	if !ok {
		return false
	}
	return sameVehicle(captor, target)
}

// acquireTarget picks the actor the captor is aiming at: a direct line of
// sight hit first, then the closest actor inside the aim cone.
func (m *Manager) acquireTarget(captor Actor) (Actor, bool) {
	pose := captor.Pose()
	origin := pose.AimOrigin
	forward := pose.AimForward.Normalized()
	maxDistance := m.cfg.DragDistance
	self := captor.ID()

	if hit, ok := m.world.RaycastActor(origin, forward, maxDistance, self); ok && hit != nil && hit.ID() != self {
		return hit, true
	}

	var (
		best     Actor
		bestDist = math.MaxFloat64
		bestDot  float64
	)
	for _, c := range m.world.ActorsInRange(origin, maxDistance) {
		if c == nil || c.ID() == self || !c.Alive() {
			continue
		}
		to := c.Pose().AimOrigin.Sub(origin)
		dist := to.Len()
		if dist <= minCandidateDistance || dist > maxDistance {
			continue
		}
		dot := forward.Dot(to.Scale(1 / dist))
		if dot < AimConeMinDot {
			continue
		}
		if best == nil || dist < bestDist || (dist == bestDist && dot > bestDot) {
			best, bestDist, bestDot = c, dist, dot
		}
	}
	return best, best != nil
}
