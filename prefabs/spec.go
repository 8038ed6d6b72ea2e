package prefabs

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadSpec reads filename and unmarshals it as T.
func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// ScenarioSpec is a sandbox setup plus a scripted timeline.
type ScenarioSpec struct {
	Name     string            `yaml:"name"`
	Ground   []SegmentSpec     `yaml:"ground"`
	Entities []EntityBuildSpec `yaml:"entities"`
	Steps    []StepSpec        `yaml:"steps"`
	// Duration is how long, in seconds, the headless runner plays the
	// scenario. Zero runs until the last step plus one second.
	Duration float64 `yaml:"duration"`
}

type SegmentSpec struct {
	From Vec2Spec `yaml:"from"`
	To   Vec2Spec `yaml:"to"`
}

type Vec2Spec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// StepSpec is one scripted input. At is seconds since the scenario began.
type StepSpec struct {
	At      float64 `yaml:"at"`
	Actor   uint64  `yaml:"actor"`
	Vehicle uint64  `yaml:"vehicle"`
	Action  string  `yaml:"action"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
}

// Step actions understood by the timeline.
const (
	ActionSurrender  = "surrender"
	ActionStand      = "stand"
	ActionAim        = "aim"
	ActionWalk       = "walk"
	ActionEnter      = "enter"
	ActionExit       = "exit"
	ActionDrive      = "drive"
	ActionUse        = "use"
	ActionDie        = "die"
	ActionRevive     = "revive"
	ActionDisconnect = "disconnect"
)

// LoadScenario loads and orders a scenario.
func LoadScenario(name string) (ScenarioSpec, error) {
	spec, err := LoadSpec[ScenarioSpec](scenarioPath(name))
	if err != nil {
		return ScenarioSpec{}, err
	}
	if err := spec.Validate(); err != nil {
		return ScenarioSpec{}, fmt.Errorf("prefabs: scenario %s: %w", name, err)
	}
	return spec, nil
}

// Validate sorts the timeline and rejects unknown actions.
func (s *ScenarioSpec) Validate() error {
	for i, step := range s.Steps {
		switch step.Action {
		case ActionSurrender, ActionStand, ActionAim, ActionWalk, ActionEnter, ActionExit,
			ActionDrive, ActionUse, ActionDie, ActionRevive, ActionDisconnect:
		default:
			return fmt.Errorf("step %d: unknown action %q", i, step.Action)
		}
		if step.At < 0 {
			return fmt.Errorf("step %d: negative time %v", i, step.At)
		}
	}
	sort.SliceStable(s.Steps, func(i, j int) bool { return s.Steps[i].At < s.Steps[j].At })
	return nil
}

// End is the time, in seconds, the scenario should run for.
func (s ScenarioSpec) End() float64 {
	if s.Duration > 0 {
		return s.Duration
	}
	end := 0.0
	for _, step := range s.Steps {
		end = max(end, step.At)
	}
	return end + 1
}
