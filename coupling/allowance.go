package coupling

import (
	"maps"
	"time"
)

// Bounds for every allowance duration. Callers cannot disable a guard by
// passing zero or an unbounded value.
const (
	DefaultEntryAllowance = 1250 * time.Millisecond
	MinEntryAllowance     = 100 * time.Millisecond
	MaxEntryAllowance     = 3 * time.Second

	DefaultNoticeCooldown = 1500 * time.Millisecond
	MinNoticeCooldown     = 250 * time.Millisecond
	MaxNoticeCooldown     = 5 * time.Second

	DefaultReleaseGrace = 1250 * time.Millisecond
	MinReleaseGrace     = 100 * time.Millisecond
	MaxReleaseGrace     = 3 * time.Second

	MinTeleportInterval = 20 * time.Millisecond
	MaxTeleportInterval = time.Second

	MinActionLock = 50 * time.Millisecond
	MaxActionLock = 3 * time.Second
)

func clampDuration(d, lo, hi time.Duration) time.Duration {
	return max(lo, min(d, hi))
}

// deadlines maps a key to the instant its gate reopens.
type deadlines[K comparable] map[K]time.Time

// gate reports whether the effect may fire at now, advancing the deadline
// when it does.
func (d deadlines[K]) gate(k K, now time.Time, every time.Duration) bool {
	if at, ok := d[k]; ok && now.Before(at) {
		return false
	}
	d[k] = now.Add(every)
	return true
}

func (d deadlines[K]) active(k K, now time.Time) bool {
	at, ok := d[k]
	if !ok {
		return false
	}
	if now.Before(at) {
		return true
	}
	delete(d, k)
	return false
}

type entryAllowance struct {
	vehicle VehicleID
	expires time.Time
}

type noticeKey struct {
	actor ActorID
	key   MessageKey
}

// Allowances holds every time-bounded or single-use exception.
type Allowances struct {
	exitOnce map[ActorID]struct{}
	entry    map[ActorID]entryAllowance
	notices  deadlines[noticeKey]
	release  map[ActorID]time.Time
	teleport deadlines[ActorID]
	locks    deadlines[ActorID]
}

func NewAllowances() *Allowances {
	return &Allowances{
		exitOnce: make(map[ActorID]struct{}),
		entry:    make(map[ActorID]entryAllowance),
		notices:  make(deadlines[noticeKey]),
		release:  make(map[ActorID]time.Time),
		teleport: make(deadlines[ActorID]),
		locks:    make(deadlines[ActorID]),
	}
}

// AllowExitOnce grants a single vehicle exit bypass.
func (s *Allowances) AllowExitOnce(id ActorID) {
	if id.Valid() {
		s.exitOnce[id] = struct{}{}
	}
}

// ConsumeExit spends the exit bypass of id and reports whether one existed.
func (s *Allowances) ConsumeExit(id ActorID) bool {
	if _, ok := s.exitOnce[id]; !ok {
		return false
	}
	delete(s.exitOnce, id)
	return true
}

// HasExit reports whether id holds an unspent exit bypass.
func (s *Allowances) HasExit(id ActorID) bool {
	_, ok := s.exitOnce[id]
	return ok
}

func (s *Allowances) RevokeExit(id ActorID) {
	delete(s.exitOnce, id)
}

// GrantEntry lets target bypass the entry check of vehicle until now+d.
func (s *Allowances) GrantEntry(target ActorID, vehicle VehicleID, now time.Time, d time.Duration) {
	if !target.Valid() || vehicle == 0 {
		return
	}
	s.entry[target] = entryAllowance{
		vehicle: vehicle,
		expires: now.Add(clampDuration(d, MinEntryAllowance, MaxEntryAllowance)),
	}
}

// HasEntry reports whether target holds a valid entry allowance for vehicle.
// Expired allowances are dropped. The allowance survives a successful check.
func (s *Allowances) HasEntry(target ActorID, vehicle VehicleID, now time.Time) bool {
	if !target.Valid() || vehicle == 0 {
		return false
	}
	a, ok := s.entry[target]
	if !ok {
		return false
	}
	if a.vehicle == 0 || a.expires.Before(now) {
		delete(s.entry, target)
		return false
	}
	return a.vehicle == vehicle
}

func (s *Allowances) RevokeEntry(target ActorID) {
	delete(s.entry, target)
}

// PurgeExpiredEntries drops expired entry allowances and returns how many.
func (s *Allowances) PurgeExpiredEntries(now time.Time) int {
	n := len(s.entry)
	maps.DeleteFunc(s.entry, func(_ ActorID, a entryAllowance) bool {
		return a.vehicle == 0 || a.expires.Before(now)
	})
	return n - len(s.entry)
}

// ShouldNotify gates notice key for actor to once per cooldown.
func (s *Allowances) ShouldNotify(actor ActorID, key MessageKey, now time.Time, cooldown time.Duration) bool {
	if !actor.Valid() {
		return false
	}
	return s.notices.gate(noticeKey{actor, key}, now, clampDuration(cooldown, MinNoticeCooldown, MaxNoticeCooldown))
}

func (s *Allowances) ClearNotices(actor ActorID) {
	maps.DeleteFunc(s.notices, func(k noticeKey, _ time.Time) bool { return k.actor == actor })
}

// ScheduleRelease opens or refreshes the pending-release window of captor.
func (s *Allowances) ScheduleRelease(captor ActorID, now time.Time, grace time.Duration) {
	if captor.Valid() {
		s.release[captor] = now.Add(clampDuration(grace, MinReleaseGrace, MaxReleaseGrace))
	}
}

// DelayRelease reports whether a release of captor's coupling is still
// deferred at now. The deadline is inclusive; a lapsed window is removed.
func (s *Allowances) DelayRelease(captor ActorID, now time.Time) bool {
	deadline, ok := s.release[captor]
	if !ok {
		return false
	}
	if !now.After(deadline) {
		return true
	}
	delete(s.release, captor)
	return false
}

func (s *Allowances) ClearRelease(captor ActorID) {
	delete(s.release, captor)
}

// AllowTeleport gates position corrections of target to once per interval.
func (s *Allowances) AllowTeleport(target ActorID, now time.Time, interval time.Duration) bool {
	if !target.Valid() {
		return false
	}
	return s.teleport.gate(target, now, clampDuration(interval, MinTeleportInterval, MaxTeleportInterval))
}

// LockActions blocks item use by target until now+d.
func (s *Allowances) LockActions(target ActorID, now time.Time, d time.Duration) {
	if target.Valid() {
		s.locks[target] = now.Add(clampDuration(d, MinActionLock, MaxActionLock))
	}
}

func (s *Allowances) ActionsLocked(target ActorID, now time.Time) bool {
	return s.locks.active(target, now)
}

// Forget removes every entry keyed by id.
func (s *Allowances) Forget(id ActorID) {
	delete(s.exitOnce, id)
	delete(s.entry, id)
	s.ClearNotices(id)
	delete(s.release, id)
	delete(s.teleport, id)
	delete(s.locks, id)
}

// Sweep drops every entry whose actor is not present and returns how many
// entries were removed.
func (s *Allowances) Sweep(present func(ActorID) bool) int {
	gone := func(id ActorID) bool { return !present(id) }
	n := 0
	for id := range s.exitOnce {
		if gone(id) {
			delete(s.exitOnce, id)
			n++
		}
	}
	n += deleteFunc(s.entry, func(id ActorID, _ entryAllowance) bool { return gone(id) })
	n += deleteFunc(s.notices, func(k noticeKey, _ time.Time) bool { return gone(k.actor) })
	n += deleteFunc(s.release, func(id ActorID, _ time.Time) bool { return gone(id) })
	n += deleteFunc(s.teleport, func(id ActorID, _ time.Time) bool { return gone(id) })
	n += deleteFunc(s.locks, func(id ActorID, _ time.Time) bool { return gone(id) })
	return n
}

// Len is the total number of entries held.
func (s *Allowances) Len() int {
	return len(s.exitOnce) + len(s.entry) + len(s.notices) + len(s.release) + len(s.teleport) + len(s.locks)
}

func (s *Allowances) Reset() {
	clear(s.exitOnce)
	clear(s.entry)
	clear(s.notices)
	clear(s.release)
	clear(s.teleport)
	clear(s.locks)
}

func deleteFunc[M ~map[K]V, K comparable, V any](m M, del func(K, V) bool) int {
	n := len(m)
	maps.DeleteFunc(m, del)
	return n - len(m)
}
