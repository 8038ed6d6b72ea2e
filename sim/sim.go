// Package sim assembles the sandbox: world, host, coupling manager and the
// fixed-rate system schedule that plays a scenario.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/milk9111/tether/config"
	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
	"github.com/milk9111/tether/ecs/entity"
	"github.com/milk9111/tether/ecs/system"
	"github.com/milk9111/tether/prefabs"
)

// DefaultFrame is one simulation frame at 60 Hz.
const DefaultFrame = time.Second / 60

// Options are the optional collaborators of a Sim. Zero values fall back to
// the coupling defaults.
type Options struct {
	Frame       time.Duration
	Start       time.Time
	Permissions coupling.Permissions
	Recorder    coupling.Recorder
	// Journal receives coupling events in addition to the world event queue.
	Journal coupling.Journal
	Logger  *zerolog.Logger
	// Updates delivers reloaded settings; Run applies them between frames.
	Updates <-chan config.Settings
	// Observer, when set, times every system update.
	Observer ecs.Observer
}

type Sim struct {
	World    *ecs.World
	Host     *ecs.Host
	Clock    *ecs.Clock
	Manager  *coupling.Manager
	Timeline *system.TimelineSystem
	Events   *system.EventLogSystem

	scheduler *ecs.Scheduler
	updates   <-chan config.Settings
	log       zerolog.Logger
	scenario  prefabs.ScenarioSpec
	frame     time.Duration
	frames    int
	closed    bool
}

// New builds scenario into a fresh world.
func New(cfg config.Settings, scenario prefabs.ScenarioSpec, opts Options) (*Sim, error) {
	frame := opts.Frame
	if frame <= 0 {
		frame = DefaultFrame
	}
	start := opts.Start
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}

	w := ecs.NewWorld()
	host := ecs.NewHost(w)
	clock := ecs.NewClock(start)

	var journal coupling.Journal = host
	if opts.Journal != nil {
		journal = teeJournal{host, opts.Journal}
	}

	mgr, err := coupling.NewManager(cfg, coupling.Deps{
		World:       host,
		Permissions: opts.Permissions,
		Notifier:    host,
		Clock:       clock,
		Logger:      opts.Logger,
		Recorder:    opts.Recorder,
		Journal:     journal,
	})
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	host.Bind(mgr)

	if _, err := entity.BuildScenario(host, scenario); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	timeline := system.NewTimelineSystem(host, clock, scenario.Steps, opts.Logger)
	events := system.NewEventLogSystem(opts.Logger)
	scheduler := ecs.NewScheduler(
		timeline,
		system.NewLifecycleSystem(host),
		system.NewGestureSystem(host),
		system.NewVehicleSystem(host),
		system.NewEquipmentSystem(host),
		system.NewMovementSystem(host, frame),
		system.NewCouplingSystem(host, clock),
		events,
	)
	scheduler.SetObserver(opts.Observer)

	l := zerolog.Nop()
	if opts.Logger != nil {
		l = opts.Logger.With().Str("component", "sim").Logger()
	}

	return &Sim{
		World:     w,
		Host:      host,
		Clock:     clock,
		Manager:   mgr,
		Timeline:  timeline,
		Events:    events,
		scheduler: scheduler,
		updates:   opts.Updates,
		log:       l,
		scenario:  scenario,
		frame:     frame,
	}, nil
}

// Step advances the clock by one frame and runs every system once.
func (s *Sim) Step() {
	s.Clock.Advance(s.frame)
	s.scheduler.Update(s.World)
	s.frames++
}

func (s *Sim) Frame() time.Duration {
	return s.frame
}

func (s *Sim) Frames() int {
	return s.frames
}

// Elapsed is the simulated time played so far.
func (s *Sim) Elapsed() time.Duration {
	return time.Duration(s.frames) * s.frame
}

// Finished reports whether the scenario's run time has been played.
func (s *Sim) Finished() bool {
	return s.Elapsed().Seconds() >= s.scenario.End()
}

// Run steps until the scenario finishes or ctx is done. With realtime each
// frame waits for its wall-clock slot.
func (s *Sim) Run(ctx context.Context, realtime bool) error {
	var tick <-chan time.Time
	if realtime {
		ticker := time.NewTicker(s.frame)
		defer ticker.Stop()
		tick = ticker.C
	}
	for !s.Finished() {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case cfg, ok := <-s.updates:
				if ok {
					s.Apply(cfg)
				} else {
					s.updates = nil
				}
				continue
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		} else {
			s.drainUpdates()
		}
		s.Step()
	}
	return nil
}

// Apply swaps the coupling settings. Call it between frames.
func (s *Sim) Apply(cfg config.Settings) {
	s.Manager.SetConfig(cfg)
	s.log.Info().
		Float64("drag_distance", cfg.DragDistance).
		Bool("vehicle_coupling", cfg.VehicleCoupling).
		Bool("debug", cfg.Debug).
		Msg("settings reloaded")
}

// Adjust applies fn to a copy of the current settings and swaps the result
// in. It returns the settings now in effect.
func (s *Sim) Adjust(fn func(*config.Settings)) config.Settings {
	cfg := s.Manager.Settings()
	if fn != nil {
		fn(&cfg)
	}
	s.Apply(cfg)
	return cfg
}

func (s *Sim) drainUpdates() {
	for s.updates != nil {
		select {
		case cfg, ok := <-s.updates:
			if !ok {
				s.updates = nil
				return
			}
			s.Apply(cfg)
		default:
			return
		}
	}
}

// Close releases every coupling and flushes the resulting events.
func (s *Sim) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.Manager.Shutdown()
	s.Events.Update(s.World)
}

type teeJournal []coupling.Journal

func (t teeJournal) Record(e coupling.Event) {
	for _, j := range t {
		j.Record(e)
	}
}
