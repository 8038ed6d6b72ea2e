package prefabs

import "gopkg.in/yaml.v3"

// EntityBuildSpec names an entity and the raw specs of its components.
type EntityBuildSpec struct {
	Name       string         `yaml:"name"`
	Components map[string]any `yaml:"components"`
}

func LoadEntityBuildSpec(filename string) (EntityBuildSpec, error) {
	return LoadSpec[EntityBuildSpec](filename)
}

// DecodeComponentSpec re-decodes a raw component block into T.
func DecodeComponentSpec[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return zero, err
	}
	var out T
	if err := yaml.Unmarshal(b, &out); err != nil {
		return zero, err
	}
	return out, nil
}

type ActorComponentSpec struct {
	ID   uint64 `yaml:"id"`
	Name string `yaml:"name"`
}

type TransformComponentSpec struct {
	X   float64 `yaml:"x"`
	Y   float64 `yaml:"y"`
	Yaw float64 `yaml:"yaw"`
}

type LookComponentSpec struct {
	ForwardX  float64 `yaml:"forward_x"`
	ForwardY  float64 `yaml:"forward_y"`
	EyeHeight float64 `yaml:"eye_height"`
}

type LifeComponentSpec struct {
	Alive *bool `yaml:"alive"`
	Ready *bool `yaml:"ready"`
}

type AnimatorComponentSpec struct {
	Gesture string `yaml:"gesture"`
}

type EquipmentComponentSpec struct {
	Held string `yaml:"held"`
}

type MovementComponentSpec struct {
	TeleportBlocked bool `yaml:"teleport_blocked"`
}

type VehicleComponentSpec struct {
	ID      uint64 `yaml:"id"`
	Name    string `yaml:"name"`
	Seats   int    `yaml:"seats"`
	Turrets []int  `yaml:"turrets"`
	Locked  bool   `yaml:"locked"`
}

type PassengerComponentSpec struct {
	Vehicle uint64 `yaml:"vehicle"`
}
