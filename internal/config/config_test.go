package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/pathtrack/internal/nav"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Controller.CycleTime <= 0 {
		t.Error("cycle time should be positive")
	}
	if cfg.Controller.MaxLookaheadDist < cfg.Controller.MinLookaheadDist {
		t.Error("lookahead bounds inverted")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		substr string
	}{
		{"zero cycle", func(c *Config) { c.Controller.CycleTime = 0 }, "cycle_time"},
		{"inverted lookahead", func(c *Config) { c.Controller.MaxLookaheadDist = 0.1 }, "max_lookahead_dist"},
		{"negative q", func(c *Config) { c.Controller.Q[1] = -1 }, "q[1]"},
		{"zero r", func(c *Config) { c.Controller.R[0] = 0 }, "r[0]"},
		{"zero iterations", func(c *Config) { c.Controller.MaxIter = 0 }, "max_iter"},
		{"zero eps", func(c *Config) { c.Controller.Eps = 0 }, "eps"},
		{"zero tolerance", func(c *Config) { c.Controller.GoalDistTol = 0 }, "goal_dist_tol"},
		{"bad fallback", func(c *Config) { c.Sim.Fallback = "panic" }, "fallback"},
		{"zero duration", func(c *Config) { c.Sim.Duration = 0 }, "duration"},
		{"negative ref speed", func(c *Config) { c.Controller.MinRefSpeed = -0.1 }, "min_ref_speed"},
		{"NaN cycle", func(c *Config) { c.Controller.CycleTime = math.NaN() }, "cycle_time"},
		{"NaN lookahead time", func(c *Config) { c.Controller.LookaheadTime = math.NaN() }, "lookahead_time"},
		{"infinite max lookahead", func(c *Config) { c.Controller.MaxLookaheadDist = math.Inf(1) }, "max_lookahead_dist"},
		{"NaN eps", func(c *Config) { c.Controller.Eps = math.NaN() }, "eps"},
		{"NaN heading tolerance", func(c *Config) { c.Controller.GoalHeadingTol = math.NaN() }, "goal_heading_tol"},
		{"NaN q", func(c *Config) { c.Controller.Q[0] = math.NaN() }, "q[0]"},
		{"infinite r", func(c *Config) { c.Controller.R[1] = math.Inf(1) }, "r[1]"},
		{"NaN duration", func(c *Config) { c.Sim.Duration = math.NaN() }, "duration"},
		{"NaN speed limit", func(c *Config) { c.Sim.MaxAngular = math.NaN() }, "speed limits"},
		{"NaN start", func(c *Config) { c.Sim.Start.Heading = math.NaN() }, "start pose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err, tt.substr)
			}
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	data := `
controller:
  cycle_time: 0.05
  q: [2, 3, 4]
  r: [0.5, 0.25]
path:
  waypoints:
    - {x: 0, y: 0, heading: 0}
    - {x: 1, y: 0, heading: 0}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Controller.CycleTime != 0.05 {
		t.Errorf("expected cycle time 0.05, got %f", cfg.Controller.CycleTime)
	}
	if cfg.Controller.Q != [3]float64{2, 3, 4} {
		t.Errorf("unexpected Q %v", cfg.Controller.Q)
	}
	if cfg.Controller.R != [2]float64{0.5, 0.25} {
		t.Errorf("unexpected R %v", cfg.Controller.R)
	}
	if cfg.Controller.MaxIter != DefaultMaxIter {
		t.Errorf("expected default max_iter, got %d", cfg.Controller.MaxIter)
	}

	p, err := cfg.BuildPath()
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 2 || p[1].X != 1 {
		t.Errorf("unexpected waypoints %v", p)
	}
}

func TestLoadRejectsNaN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := "controller:\n  cycle_time: .nan\n  q: [.nan, 1, 1]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !math.IsNaN(cfg.Controller.CycleTime) {
		t.Fatalf("expected NaN cycle time, got %f", cfg.Controller.CycleTime)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "cycle_time") {
		t.Errorf("expected cycle_time error, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := GetPreset("lane_change")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Sim.Start != (nav.Pose{Y: -0.5}) {
		t.Errorf("start pose lost: %v", loaded.Sim.Start)
	}
	if loaded.Controller.Q != cfg.Controller.Q {
		t.Errorf("weights lost: %v", loaded.Controller.Q)
	}
}

func TestLoadOverKeepsPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("sim:\n  duration: 12\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadOver(path, GetPreset("loop"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Sim.Duration != 12 {
		t.Errorf("expected duration 12, got %f", cfg.Sim.Duration)
	}
	if cfg.Path.Preset != "circle" {
		t.Errorf("preset path lost: %q", cfg.Path.Preset)
	}
	if cfg.Sim.MaxLinear != 0.6 {
		t.Errorf("preset speed limit lost: %f", cfg.Sim.MaxLinear)
	}
}

func TestBuildPathPresets(t *testing.T) {
	for _, name := range ListPaths() {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Path.Preset = name
			p, err := cfg.BuildPath()
			if err != nil {
				t.Fatal(err)
			}
			if len(p) < 2 {
				t.Fatalf("expected several waypoints, got %d", len(p))
			}
			for i := 1; i < len(p); i++ {
				if d := p[i-1].DistanceTo(p[i]); d > 2*cfg.Path.Spacing {
					t.Errorf("gap of %f between waypoints %d and %d", d, i-1, i)
					break
				}
			}
		})
	}
}

func TestBuildPathUnknownPreset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path.Preset = "spiral"
	if _, err := cfg.BuildPath(); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestStraightHeadings(t *testing.T) {
	p := PathGenerators["straight"](2, 0.5)
	for _, wp := range p {
		if math.Abs(wp.Heading) > 1e-12 {
			t.Errorf("expected zero heading, got %f", wp.Heading)
		}
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("loop")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Path.Preset != "circle" {
		t.Errorf("expected circle path, got %s", cfg.Path.Preset)
	}
	cfg.Sim.Duration = 1
	if Presets["loop"].Sim.Duration == 1 {
		t.Error("GetPreset should return a copy")
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != len(Presets) {
		t.Errorf("expected %d presets, got %d", len(Presets), len(presets))
	}
	for _, name := range presets {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}
