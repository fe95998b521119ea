package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Loop.FastPeriod != 10*time.Millisecond {
		t.Errorf("expected 10ms fast loop, got %v", cfg.Loop.FastPeriod)
	}
	if cfg.Plant.Integrator != "rk4" {
		t.Errorf("expected rk4 integrator, got %s", cfg.Plant.Integrator)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robocore.yaml")
	cfg := DefaultConfig()
	cfg.Mode = ModeConfig{Position: 9, StealBall: true}
	cfg.Loop.StatePeriod = 25 * time.Millisecond

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadPeriod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robocore.yaml")
	cfg := DefaultConfig()
	cfg.Loop.FastPeriod = 0
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for zero fast period")
	}
}

func TestGetPreset(t *testing.T) {
	p, ok := GetPreset("spybot")
	if !ok {
		t.Fatal("expected preset")
	}
	if p.Mode.Position != 9 {
		t.Errorf("expected position 9, got %d", p.Mode.Position)
	}
	if p.Program["AutonomousState2"] != "JustShoot" {
		t.Errorf("unexpected program %v", p.Program)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if _, ok := GetPreset("nonexistent"); ok {
		t.Error("expected no preset")
	}
}

func TestListPresets(t *testing.T) {
	want := []string{"do_nothing", "moat", "reach", "rough_terrain", "spybot"}
	if diff := cmp.Diff(want, ListPresets()); diff != "" {
		t.Errorf("presets mismatch (-want +got):\n%s", diff)
	}
}
