package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		file string
		body string
	}{
		{"yaml", "tether.yaml", "drag_distance: 4.5\nenable_vehicle_drag: false\nmessages:\n  drag_started: go\n"},
		{"yml", "tether.yml", "drag_distance: 4.5\nenable_vehicle_drag: false\nmessages:\n  drag_started: go\n"},
		{"toml", "tether.toml", "drag_distance = 4.5\nenable_vehicle_drag = false\n[messages]\ndrag_started = \"go\"\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, dir, c.file, c.body))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.DragDistance != 4.5 {
				t.Fatalf("expected drag distance 4.5, got %v", cfg.DragDistance)
			}
			if cfg.EnableVehicleDrag {
				t.Fatalf("expected vehicle drag disabled")
			}
			if cfg.Messages.DragStarted != "go" {
				t.Fatalf("expected overridden message, got %q", cfg.Messages.DragStarted)
			}
			// untouched keys keep defaults
			if cfg.DragStrength != 75 || cfg.Messages.DragStopped != Default().Messages.DragStopped {
				t.Fatalf("defaults lost: %+v", cfg)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := writeFile(t, dir, "tether.json", "{}")
	if _, err := Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	bad := writeFile(t, dir, "bad.yaml", "drag_distance: [\n")
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TETHER_DRAG_DISTANCE", "6")
	t.Setenv("TETHER_ENABLE_DEBUG_LOGGING", "true")
	t.Setenv("TETHER_MSG_DRAG_STOPPED", "stopped")

	cfg, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DragDistance != 6 || !cfg.EnableDebugLogging {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Messages.DragStopped != "stopped" {
		t.Fatalf("expected nested message override, got %q", cfg.Messages.DragStopped)
	}
	if cfg.FollowDistance != Default().FollowDistance {
		t.Fatalf("unset variables must not change values")
	}
}

func TestSanitizeClamps(t *testing.T) {
	cfg := Default()
	cfg.DragDistance = 0
	cfg.DragStrength = 0
	cfg.FollowDistance = 50
	cfg.FollowIntervalSeconds = 0
	cfg.FollowTeleportRateLimitSeconds = 100
	cfg.FollowTeleportThreshold = -1
	cfg.PostReleaseEquipUseCooldownSeconds = 0
	cfg.SweepIntervalSeconds = 0

	s := cfg.Sanitize()
	checks := []struct {
		name string
		ok   bool
	}{
		{"drag distance", s.DragDistance == MinDragDistance},
		{"drag strength", s.DragStrength == 1},
		{"follow distance", s.FollowDistance == MaxFollowDistance},
		{"follow interval", s.FollowInterval == MinFollowInterval},
		{"teleport rate", s.TeleportRateLimit == MaxTeleportRateLimit},
		{"teleport threshold", s.TeleportThreshold == MinTeleportThreshold},
		{"post release", s.PostReleaseLockDuration == MinPostReleaseCooldown},
		{"sweep", s.SweepInterval == MinSweepInterval},
	}
	for _, c := range checks {
		if !c.ok {
			t.Errorf("%s not clamped: %+v", c.name, s)
		}
	}

	d := Default().Sanitize()
	if d.FollowInterval != 75*time.Millisecond || d.DragDistance != 3 || !d.VehicleCoupling {
		t.Fatalf("defaults should pass through unchanged: %+v", d)
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tether.yaml", "drag_distance: 3\n")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Close()

	writeFile(t, dir, "tether.yaml", "drag_distance: 7\n")

	select {
	case cfg := <-w.Updates:
		if cfg.DragDistance != 7 {
			t.Fatalf("expected reloaded drag distance 7, got %v", cfg.DragDistance)
		}
	case err := <-w.Errors:
		t.Fatalf("unexpected watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}
}
