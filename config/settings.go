package config

import (
	"time"

	"github.com/milk9111/tether/common"
)

// Safe ranges for every numeric option.
const (
	MinDragDistance = 0.5
	MaxDragDistance = 15.0

	MinFollowDistance = 0.6
	MaxFollowDistance = 3.0

	MinFollowInterval = 20 * time.Millisecond
	MaxFollowInterval = 250 * time.Millisecond

	MinTeleportRateLimit = 20 * time.Millisecond
	MaxTeleportRateLimit = time.Second

	MinTeleportThreshold = 0.05
	MaxTeleportThreshold = 1.25

	MinPostReleaseCooldown = 50 * time.Millisecond
	MaxPostReleaseCooldown = 3 * time.Second

	MinSweepInterval = time.Second
	MaxSweepInterval = time.Minute
)

// Settings is a sanitized Config: every value is inside its safe range and
// durations are typed.
type Settings struct {
	DragPermission           string
	DragDistance             float64
	DragStrength             uint16
	FollowDistance           float64
	FollowInterval           time.Duration
	TeleportRateLimit        time.Duration
	TeleportThreshold        float64
	RequireTargetSurrendered bool
	VehicleCoupling          bool
	PostReleaseLock          bool
	PostReleaseLockDuration  time.Duration
	SweepInterval            time.Duration
	Debug                    bool
	Messages                 Messages
}

// Sanitize clamps the raw configuration into Settings.
func (c Config) Sanitize() Settings {
	strength := c.DragStrength
	if strength == 0 {
		strength = 1
	}
	return Settings{
		DragPermission:           c.DragPermission,
		DragDistance:             common.Clamp(c.DragDistance, MinDragDistance, MaxDragDistance),
		DragStrength:             strength,
		FollowDistance:           common.Clamp(c.FollowDistance, MinFollowDistance, MaxFollowDistance),
		FollowInterval:           clampSeconds(c.FollowIntervalSeconds, MinFollowInterval, MaxFollowInterval),
		TeleportRateLimit:        clampSeconds(c.FollowTeleportRateLimitSeconds, MinTeleportRateLimit, MaxTeleportRateLimit),
		TeleportThreshold:        common.Clamp(c.FollowTeleportThreshold, MinTeleportThreshold, MaxTeleportThreshold),
		RequireTargetSurrendered: c.RequireTargetSurrendered,
		VehicleCoupling:          c.EnableVehicleDrag,
		PostReleaseLock:          c.EnablePostReleaseEquipUseCooldown,
		PostReleaseLockDuration:  clampSeconds(c.PostReleaseEquipUseCooldownSeconds, MinPostReleaseCooldown, MaxPostReleaseCooldown),
		SweepInterval:            clampSeconds(c.SweepIntervalSeconds, MinSweepInterval, MaxSweepInterval),
		Debug:                    c.EnableDebugLogging,
		Messages:                 c.Messages,
	}
}

// Seconds converts a float second count into a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clampSeconds(s float64, lo, hi time.Duration) time.Duration {
	return Seconds(common.Clamp(s, lo.Seconds(), hi.Seconds()))
}
