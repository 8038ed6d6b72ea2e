// Package coupling implements the server-authoritative captor/target
// coupling: one actor restrains another and drags it along, on foot and
// through vehicles.
//
// A Manager owns every piece of coupling state for one hosting session. It is
// not safe for concurrent use; the host calls it from its simulation thread.
package coupling

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/milk9111/tether/config"
)

// ErrNoWorld is returned by NewManager without a World.
var ErrNoWorld = errors.New("coupling: nil world")

// Deps are the collaborators of a Manager. Only World is required.
type Deps struct {
	World       World
	Permissions Permissions
	Notifier    Notifier
	Clock       Clock
	Logger      *zerolog.Logger
	Recorder    Recorder
	Journal     Journal
}

type Manager struct {
	cfg      config.Settings
	world    World
	perms    Permissions
	notifier Notifier
	clock    Clock
	log      zerolog.Logger
	rec      Recorder
	journal  Journal

	links *Registry
	allow *Allowances

	ticking    bool
	nextFollow time.Time
	nextSweep  time.Time
}

// NewManager constructs the coupling manager of a session.
func NewManager(cfg config.Settings, deps Deps) (*Manager, error) {
	if deps.World == nil {
		return nil, ErrNoWorld
	}
	m := &Manager{
		cfg:      cfg,
		world:    deps.World,
		perms:    deps.Permissions,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		rec:      deps.Recorder,
		journal:  deps.Journal,
		allow:    NewAllowances(),
	}
	if m.perms == nil {
		m.perms = allowAll{}
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.clock == nil {
		m.clock = SystemClock
	}
	if m.rec == nil {
		m.rec = nopRecorder{}
	}
	if m.journal == nil {
		m.journal = nopJournal{}
	}
	if deps.Logger != nil {
		m.log = deps.Logger.With().Str("component", "coupling").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	m.links = NewRegistry(m.resolve)
	return m, nil
}

// SetConfig swaps the settings. Call it between ticks.
func (m *Manager) SetConfig(cfg config.Settings) {
	if cfg.FollowInterval < m.cfg.FollowInterval {
		m.nextFollow = time.Time{}
	}
	if cfg.SweepInterval < m.cfg.SweepInterval {
		m.nextSweep = time.Time{}
	}
	m.cfg = cfg
	m.debug().Dur("follow_interval", cfg.FollowInterval).Bool("vehicle_coupling", cfg.VehicleCoupling).Msg("settings applied")
}

func (m *Manager) Settings() config.Settings {
	return m.cfg
}

// TargetOf returns the validated target of captor.
func (m *Manager) TargetOf(captor ActorID) (ActorID, bool) {
	t, ok := m.links.TargetOf(captor)
	if !ok {
		return NilActor, false
	}
	return t.ID(), true
}

// CaptorOf returns the validated captor of target.
func (m *Manager) CaptorOf(target ActorID) (ActorID, bool) {
	return m.links.CaptorOf(target)
}

// Links returns a snapshot of the registry.
func (m *Manager) Links() []Link {
	return m.links.Pairs()
}

// Allowances exposes the transient store to hosts that arbitrate their own
// seating, and to tests.
func (m *Manager) Allowances() *Allowances {
	return m.allow
}

// AllowEquipmentUse reports whether id may use its held item. Coupled
// targets never may; released targets wait out the post-release lock.
func (m *Manager) AllowEquipmentUse(id ActorID) bool {
	if a, ok := m.resolve(id); ok && isCustomTarget(a) {
		return false
	}
	if m.cfg.PostReleaseLock && m.allow.ActionsLocked(id, m.clock.Now()) {
		return false
	}
	return true
}

func (m *Manager) debug() *zerolog.Event {
	if !m.cfg.Debug {
		return nil
	}
	return m.log.Debug()
}

func (m *Manager) messageText(key MessageKey) string {
	msgs := m.cfg.Messages
	switch key {
	case MsgCouplingStarted:
		return msgs.DragStarted
	case MsgCouplingStopped:
		return msgs.DragStopped
	case MsgPermissionDenied:
		return msgs.NoPermission
	case MsgTargetNotFound:
		return msgs.TargetNotFound
	case MsgTargetAlreadyCoupled:
		return msgs.TargetAlreadyDragged
	case MsgTargetNotSurrendered:
		return msgs.TargetNotSurrendered
	case MsgCaptorAlreadyCoupled:
		return msgs.CaptorAlreadyDragging
	case MsgVehicleNeedsTwoSeats:
		return msgs.VehicleNeedsTwoSeats
	case MsgCannotExitVehicle:
		return msgs.DraggedCannotExitVehicle
	}
	return ""
}

func styleOf(key MessageKey) Style {
	switch key {
	case MsgCouplingStarted, MsgCouplingStopped:
		return StyleSuccess
	case MsgPermissionDenied:
		return StyleError
	default:
		return StyleWarning
	}
}

// notify emits key to actor. Keys with a blank configured text are muted.
func (m *Manager) notify(to ActorID, key MessageKey) {
	if !to.Valid() {
		return
	}
	text := m.messageText(key)
	if strings.TrimSpace(text) == "" {
		return
	}
	m.rec.Notice(key)
	m.notifier.Notify(to, Message{Key: key, Text: text, Style: styleOf(key)})
}

// notifyLimited is notify behind the per-actor notice cooldown.
func (m *Manager) notifyLimited(to ActorID, key MessageKey) {
	if strings.TrimSpace(m.messageText(key)) == "" {
		return
	}
	if !m.allow.ShouldNotify(to, key, m.clock.Now(), DefaultNoticeCooldown) {
		return
	}
	m.notify(to, key)
}

func (m *Manager) record(kind EventKind, captor, target ActorID, reason ReleaseReason) {
	m.journal.Record(Event{
		At:     m.clock.Now(),
		Kind:   kind,
		Captor: captor,
		Target: target,
		Reason: reason,
	})
}
