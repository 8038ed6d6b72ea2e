package coupling

import (
	"time"

	"github.com/milk9111/tether/common"
)

// Ground probe used to place the follow point.
const (
	GroundProbeLift   = 3.0
	GroundProbeDepth  = 8.0
	GroundClearance   = 0.05
	minFollowDirSqLen = 0.001
)

// Update advances the coupling simulation to now. The follow pass runs at
// the configured interval and the sweep at its own, lower rate. Calls made
// while a previous Update is still running are ignored.
func (m *Manager) Update(now time.Time) {
	if m.ticking {
		return
	}
	m.ticking = true
	defer func() { m.ticking = false }()

	if !now.Before(m.nextFollow) {
		m.nextFollow = now.Add(m.cfg.FollowInterval)
		m.allow.PurgeExpiredEntries(now)
		m.followPass(now)
	}
	if !now.Before(m.nextSweep) {
		m.nextSweep = now.Add(m.cfg.SweepInterval)
		m.sweep()
	}
}

func (m *Manager) followPass(now time.Time) {
	start := time.Now()
	for _, l := range m.links.Pairs() {
		target, ok := m.links.TargetOf(l.Captor)
		if !ok || target.ID() != l.Target {
			continue
		}
		m.follow(l.Captor, target, now)
	}
	m.rec.FollowPass(time.Since(start))
	m.rec.ActiveCouplings(m.links.Len())
}

// follow runs one tick for a single coupled target.
func (m *Manager) follow(captorID ActorID, target Actor, now time.Time) {
	targetID := target.ID()
	target.DropHeldItem()

	captor, ok := m.resolve(captorID)
	if !ok || !ready(captor) {
		m.allow.ClearRelease(captorID)
		m.allow.RevokeEntry(targetID)
		m.releaseTarget(captorID, target, ReasonCaptorLost)
		return
	}

	if v := captor.Vehicle(); v != nil && m.cfg.VehicleCoupling {
		m.allow.ScheduleRelease(captorID, now, DefaultReleaseGrace)
		m.SeatCoupledTarget(captor, target, v, false)
		return
	}

	if target.Vehicle() != nil {
		// Wait for the captor to board the same vehicle or resume on foot.
		if !m.cfg.VehicleCoupling {
			m.evict(target)
		}
		return
	}

	if captor.Gesture() != GestureSurrenderStart {
		if m.allow.DelayRelease(captorID, now) {
			return
		}
		m.allow.RevokeEntry(targetID)
		m.releaseTarget(captorID, target, ReasonGestureDropped)
		return
	}
	m.allow.ClearRelease(captorID)

	pose := captor.Pose()
	point := m.followPoint(pose)
	if common.Distance(target.Pose().Position, point) < m.cfg.TeleportThreshold {
		return
	}
	if !m.allow.AllowTeleport(targetID, now, m.cfg.TeleportRateLimit) {
		return
	}
	forced := false
	if !target.Teleport(point, pose.Yaw) {
		target.TeleportUnsafe(point, pose.Yaw)
		forced = true
	}
	m.rec.Teleport(forced)
}

// followPoint is the spot the follow distance behind the captor, resting on
// the ground below it or at the captor's height when no ground is found.
func (m *Manager) followPoint(pose Pose) common.Vec3 {
	dir := pose.Facing.Flat()
	if dir.SqrLen() < minFollowDirSqLen {
		dir = pose.AimForward.Flat()
	}
	if dir.SqrLen() < minFollowDirSqLen {
		dir = common.Forward
	}
	dir = dir.Normalized()

	p := pose.Position.Sub(dir.Scale(m.cfg.FollowDistance))
	if ground, ok := m.world.SnapToGround(p.Add(common.Up.Scale(GroundProbeLift)), GroundProbeDepth); ok {
		p.Y = ground.Y + GroundClearance
	} else {
		p.Y = pose.Position.Y
	}
	return p
}
