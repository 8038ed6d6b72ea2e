package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "TETHER_"

var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Config is the operator-facing configuration as written in files. Numeric
// values are raw; call Sanitize before handing them to the coupling core.
type Config struct {
	DragPermission                     string   `yaml:"drag_permission" toml:"drag_permission" env:"DRAG_PERMISSION"`
	DragDistance                       float64  `yaml:"drag_distance" toml:"drag_distance" env:"DRAG_DISTANCE"`
	DragStrength                       uint16   `yaml:"drag_strength" toml:"drag_strength" env:"DRAG_STRENGTH"`
	FollowDistance                     float64  `yaml:"follow_distance" toml:"follow_distance" env:"FOLLOW_DISTANCE"`
	FollowIntervalSeconds              float64  `yaml:"follow_interval_seconds" toml:"follow_interval_seconds" env:"FOLLOW_INTERVAL_SECONDS"`
	FollowTeleportRateLimitSeconds     float64  `yaml:"follow_teleport_rate_limit_seconds" toml:"follow_teleport_rate_limit_seconds" env:"FOLLOW_TELEPORT_RATE_LIMIT_SECONDS"`
	FollowTeleportThreshold            float64  `yaml:"follow_teleport_threshold" toml:"follow_teleport_threshold" env:"FOLLOW_TELEPORT_THRESHOLD"`
	RequireTargetSurrendered           bool     `yaml:"require_target_surrendered" toml:"require_target_surrendered" env:"REQUIRE_TARGET_SURRENDERED"`
	EnableVehicleDrag                  bool     `yaml:"enable_vehicle_drag" toml:"enable_vehicle_drag" env:"ENABLE_VEHICLE_DRAG"`
	EnablePostReleaseEquipUseCooldown  bool     `yaml:"enable_post_release_equip_use_cooldown" toml:"enable_post_release_equip_use_cooldown" env:"ENABLE_POST_RELEASE_EQUIP_USE_COOLDOWN"`
	PostReleaseEquipUseCooldownSeconds float64  `yaml:"post_release_equip_use_cooldown_seconds" toml:"post_release_equip_use_cooldown_seconds" env:"POST_RELEASE_EQUIP_USE_COOLDOWN_SECONDS"`
	SweepIntervalSeconds               float64  `yaml:"sweep_interval_seconds" toml:"sweep_interval_seconds" env:"SWEEP_INTERVAL_SECONDS"`
	EnableDebugLogging                 bool     `yaml:"enable_debug_logging" toml:"enable_debug_logging" env:"ENABLE_DEBUG_LOGGING"`
	Messages                           Messages `yaml:"messages" toml:"messages" envPrefix:"MSG_"`
}

// Messages holds every user-facing notice. A blank message is never sent.
type Messages struct {
	NoPermission             string `yaml:"no_permission" toml:"no_permission" env:"NO_PERMISSION"`
	TargetNotFound           string `yaml:"target_not_found" toml:"target_not_found" env:"TARGET_NOT_FOUND"`
	TargetNotSurrendered     string `yaml:"target_not_surrendered" toml:"target_not_surrendered" env:"TARGET_NOT_SURRENDERED"`
	TargetAlreadyDragged     string `yaml:"target_already_dragged" toml:"target_already_dragged" env:"TARGET_ALREADY_DRAGGED"`
	CaptorAlreadyDragging    string `yaml:"captor_already_dragging" toml:"captor_already_dragging" env:"CAPTOR_ALREADY_DRAGGING"`
	DragStarted              string `yaml:"drag_started" toml:"drag_started" env:"DRAG_STARTED"`
	DragStopped              string `yaml:"drag_stopped" toml:"drag_stopped" env:"DRAG_STOPPED"`
	VehicleNeedsTwoSeats     string `yaml:"vehicle_needs_two_seats" toml:"vehicle_needs_two_seats" env:"VEHICLE_NEEDS_TWO_SEATS"`
	DraggedCannotExitVehicle string `yaml:"dragged_cannot_exit_vehicle" toml:"dragged_cannot_exit_vehicle" env:"DRAGGED_CANNOT_EXIT_VEHICLE"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		DragPermission:                     "tether.drag",
		DragDistance:                       3,
		DragStrength:                       75,
		FollowDistance:                     1.3,
		FollowIntervalSeconds:              0.075,
		FollowTeleportRateLimitSeconds:     0.075,
		FollowTeleportThreshold:            0.35,
		RequireTargetSurrendered:           false,
		EnableVehicleDrag:                  true,
		EnablePostReleaseEquipUseCooldown:  true,
		PostReleaseEquipUseCooldownSeconds: 0.3,
		SweepIntervalSeconds:               5,
		EnableDebugLogging:                 false,
		Messages: Messages{
			NoPermission:             "You do not have permission to drag players.",
			TargetNotFound:           "Look directly at a player to drag them.",
			TargetNotSurrendered:     "Look at a surrendered player to drag them.",
			TargetAlreadyDragged:     "That player is already being dragged.",
			CaptorAlreadyDragging:    "You are already dragging a player.",
			DragStarted:              "You started dragging the player.",
			DragStopped:              "You stopped dragging the player.",
			VehicleNeedsTwoSeats:     "This vehicle does not have two free seats to carry a dragged player.",
			DraggedCannotExitVehicle: "You cannot leave the vehicle while being dragged.",
		},
	}
}

// Load reads path on top of Default. The format follows the extension.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := Decode(path, data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode unmarshals data into cfg using the format implied by name.
// Keys missing from data keep their current values.
func Decode(name string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: unmarshal %s: %w", name, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("config: decode %s: %w", name, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	return nil
}

// ApplyEnv overlays TETHER_* variables that are set in the environment.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// LoadWithEnv loads path (or the defaults when path is empty) and applies
// environment overrides.
func LoadWithEnv(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		loaded, err := Load(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml":
		return true
	}
	return false
}
