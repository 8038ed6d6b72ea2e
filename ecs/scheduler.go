package ecs

import (
	"reflect"
	"time"
)

// System updates a world once per frame.
type System interface {
	Update(w *World)
}

// Named lets a system choose the name it is reported under.
type Named interface {
	Name() string
}

// Observer receives the wall-clock run time of one system update.
type Observer func(name string, d time.Duration)

type scheduled struct {
	system System
	name   string
}

// Scheduler runs systems in registration order, optionally timing each.
type Scheduler struct {
	systems []scheduled
	observe Observer
}

func NewScheduler(systems ...System) *Scheduler {
	s := &Scheduler{}
	for _, system := range systems {
		s.Add(system)
	}
	return s
}

func (s *Scheduler) Add(system System) {
	if system == nil {
		return
	}
	s.systems = append(s.systems, scheduled{system: system, name: SystemName(system)})
}

// SetObserver installs o, or removes timing when o is nil.
func (s *Scheduler) SetObserver(o Observer) {
	s.observe = o
}

func (s *Scheduler) Update(w *World) {
	if s.observe == nil {
		for _, sc := range s.systems {
			sc.system.Update(w)
		}
		return
	}
	for _, sc := range s.systems {
		start := time.Now()
		sc.system.Update(w)
		s.observe(sc.name, time.Since(start))
	}
}

func (s *Scheduler) Systems() []System {
	systems := make([]System, 0, len(s.systems))
	for _, sc := range s.systems {
		systems = append(systems, sc.system)
	}
	return systems
}

// SystemName is the Name of a Named system, else its type name without
// package or pointer.
func SystemName(system System) string {
	if n, ok := system.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(system)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
