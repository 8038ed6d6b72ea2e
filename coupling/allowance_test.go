package coupling

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestExitAllowanceSingleUse(t *testing.T) {
	s := NewAllowances()
	if s.ConsumeExit(1) {
		t.Fatalf("consumed an allowance never granted")
	}
	s.AllowExitOnce(1)
	s.AllowExitOnce(1)
	if !s.HasExit(1) {
		t.Fatalf("HasExit = false after grant")
	}
	if !s.ConsumeExit(1) {
		t.Fatalf("first consume failed")
	}
	if s.ConsumeExit(1) {
		t.Fatalf("second consume succeeded")
	}

	s.AllowExitOnce(NilActor)
	if s.Len() != 0 {
		t.Fatalf("nil actor stored")
	}
}

func TestEntryAllowance(t *testing.T) {
	tests := []struct {
		name     string
		grant    time.Duration
		checkAt  time.Duration
		vehicle  VehicleID
		want     bool
		retained bool
	}{
		{"valid for granted vehicle", time.Second, 500 * time.Millisecond, 7, true, true},
		{"other vehicle", time.Second, 0, 8, false, true},
		{"expired", time.Second, 1001 * time.Millisecond, 7, false, false},
		{"exactly at expiry", time.Second, time.Second, 7, true, true},
		{"zero duration clamped up", 0, 50 * time.Millisecond, 7, true, true},
		{"long duration clamped down", time.Hour, 4 * time.Second, 7, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewAllowances()
			s.GrantEntry(1, 7, t0, tt.grant)
			if got := s.HasEntry(1, tt.vehicle, t0.Add(tt.checkAt)); got != tt.want {
				t.Fatalf("HasEntry = %v want %v", got, tt.want)
			}
			if _, ok := s.entry[1]; ok != tt.retained {
				t.Fatalf("entry retained = %v want %v", ok, tt.retained)
			}
		})
	}

	t.Run("repeated checks pass until revoked", func(t *testing.T) {
		s := NewAllowances()
		s.GrantEntry(1, 7, t0, DefaultEntryAllowance)
		for i := 0; i < 3; i++ {
			if !s.HasEntry(1, 7, t0) {
				t.Fatalf("check %d failed", i)
			}
		}
		s.RevokeEntry(1)
		if s.HasEntry(1, 7, t0) {
			t.Fatalf("revoked allowance still valid")
		}
	})

	t.Run("no vehicle grants nothing", func(t *testing.T) {
		s := NewAllowances()
		s.GrantEntry(1, 0, t0, time.Second)
		if s.HasEntry(1, 0, t0) {
			t.Fatalf("allowance without vehicle")
		}
	})

	t.Run("purge expired", func(t *testing.T) {
		s := NewAllowances()
		s.GrantEntry(1, 7, t0, 200*time.Millisecond)
		s.GrantEntry(2, 7, t0, 2*time.Second)
		if n := s.PurgeExpiredEntries(t0.Add(time.Second)); n != 1 {
			t.Fatalf("purged %d want 1", n)
		}
		if !s.HasEntry(2, 7, t0.Add(time.Second)) {
			t.Fatalf("live allowance purged")
		}
	})
}

func TestNoticeCooldown(t *testing.T) {
	s := NewAllowances()
	if !s.ShouldNotify(1, MsgCannotExitVehicle, t0, DefaultNoticeCooldown) {
		t.Fatalf("first notice suppressed")
	}
	if s.ShouldNotify(1, MsgCannotExitVehicle, t0.Add(time.Second), DefaultNoticeCooldown) {
		t.Fatalf("repeat inside cooldown allowed")
	}
	if !s.ShouldNotify(1, MsgVehicleNeedsTwoSeats, t0.Add(time.Second), DefaultNoticeCooldown) {
		t.Fatalf("other key shares the cooldown")
	}
	if !s.ShouldNotify(2, MsgCannotExitVehicle, t0, DefaultNoticeCooldown) {
		t.Fatalf("other actor shares the cooldown")
	}
	if !s.ShouldNotify(1, MsgCannotExitVehicle, t0.Add(DefaultNoticeCooldown), DefaultNoticeCooldown) {
		t.Fatalf("notice at deadline suppressed")
	}

	t.Run("zero cooldown clamped", func(t *testing.T) {
		s := NewAllowances()
		s.ShouldNotify(1, MsgCannotExitVehicle, t0, 0)
		if s.ShouldNotify(1, MsgCannotExitVehicle, t0.Add(MinNoticeCooldown-time.Millisecond), 0) {
			t.Fatalf("zero cooldown disabled the guard")
		}
	})

	t.Run("clear", func(t *testing.T) {
		s := NewAllowances()
		s.ShouldNotify(1, MsgCannotExitVehicle, t0, time.Second)
		s.ClearNotices(1)
		if !s.ShouldNotify(1, MsgCannotExitVehicle, t0, time.Second) {
			t.Fatalf("cleared cooldown still active")
		}
	})
}

func TestPendingRelease(t *testing.T) {
	s := NewAllowances()
	if s.DelayRelease(1, t0) {
		t.Fatalf("delay without window")
	}
	s.ScheduleRelease(1, t0, DefaultReleaseGrace)
	if !s.DelayRelease(1, t0.Add(DefaultReleaseGrace)) {
		t.Fatalf("deadline should be inclusive")
	}
	if s.DelayRelease(1, t0.Add(DefaultReleaseGrace+time.Millisecond)) {
		t.Fatalf("expired window still delays")
	}
	if _, ok := s.release[1]; ok {
		t.Fatalf("expired window not removed")
	}

	s.ScheduleRelease(1, t0, time.Minute)
	if s.DelayRelease(1, t0.Add(MaxReleaseGrace+time.Millisecond)) {
		t.Fatalf("grace not clamped")
	}
	s.ScheduleRelease(1, t0, time.Second)
	s.ClearRelease(1)
	if s.DelayRelease(1, t0) {
		t.Fatalf("cleared window delays")
	}
}

func TestTeleportRateLimit(t *testing.T) {
	s := NewAllowances()
	every := 75 * time.Millisecond
	if !s.AllowTeleport(1, t0, every) {
		t.Fatalf("first teleport refused")
	}
	if s.AllowTeleport(1, t0.Add(every/2), every) {
		t.Fatalf("teleport inside interval allowed")
	}
	if !s.AllowTeleport(1, t0.Add(every), every) {
		t.Fatalf("teleport at interval refused")
	}
	if !s.AllowTeleport(2, t0, every) {
		t.Fatalf("limit shared between actors")
	}
}

func TestActionLock(t *testing.T) {
	s := NewAllowances()
	s.LockActions(1, t0, 300*time.Millisecond)
	if !s.ActionsLocked(1, t0.Add(299*time.Millisecond)) {
		t.Fatalf("lock lapsed early")
	}
	if s.ActionsLocked(1, t0.Add(300*time.Millisecond)) {
		t.Fatalf("lock outlived its duration")
	}
	if s.Len() != 0 {
		t.Fatalf("lapsed lock kept")
	}
}

func TestAllowancesForgetAndSweep(t *testing.T) {
	fill := func(s *Allowances, id ActorID) {
		s.AllowExitOnce(id)
		s.GrantEntry(id, 3, t0, time.Second)
		s.ShouldNotify(id, MsgCannotExitVehicle, t0, time.Second)
		s.ShouldNotify(id, MsgVehicleNeedsTwoSeats, t0, time.Second)
		s.ScheduleRelease(id, t0, time.Second)
		s.AllowTeleport(id, t0, time.Second)
		s.LockActions(id, t0, time.Second)
	}

	t.Run("forget", func(t *testing.T) {
		s := NewAllowances()
		fill(s, 1)
		fill(s, 2)
		s.Forget(1)
		if s.Len() != 7 {
			t.Fatalf("Len = %d want 7", s.Len())
		}
	})

	t.Run("sweep", func(t *testing.T) {
		s := NewAllowances()
		fill(s, 1)
		fill(s, 2)
		n := s.Sweep(func(id ActorID) bool { return id == 2 })
		if n != 7 {
			t.Fatalf("swept %d want 7", n)
		}
		if !s.HasExit(2) || s.HasExit(1) {
			t.Fatalf("sweep removed the wrong actor")
		}
	})

	t.Run("reset", func(t *testing.T) {
		s := NewAllowances()
		fill(s, 1)
		s.Reset()
		if s.Len() != 0 {
			t.Fatalf("Len = %d after reset", s.Len())
		}
	})
}
