package config

import (
	"fmt"
	"math"
	"os"

	"github.com/san-kum/pathtrack/internal/nav"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLookaheadTime    = 1.5
	DefaultMinLookaheadDist = 0.3
	DefaultMaxLookaheadDist = 1.5
	DefaultMaxTrailingDist  = 1.0
	DefaultCycleTime        = 0.1
	DefaultMaxIter          = 500
	DefaultEps              = 1e-3
	DefaultGoalDistTol      = 0.2
	DefaultGoalHeadingTol   = 0.3
	DefaultMinRefSpeed      = 0.2
	DefaultDuration         = 60.0
	DefaultMaxLinear        = 1.0
	DefaultMaxAngular       = 1.5
)

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Sim        SimConfig        `yaml:"sim"`
	Path       PathConfig       `yaml:"path"`
}

// ControllerConfig is every option the control core recognises. It is
// static for the controller's lifetime. MinRefSpeed is the lowest speed
// the error model is linearised at; zero linearises at the measured speed.
type ControllerConfig struct {
	LookaheadTime    float64    `yaml:"lookahead_time"`
	MinLookaheadDist float64    `yaml:"min_lookahead_dist"`
	MaxLookaheadDist float64    `yaml:"max_lookahead_dist"`
	MaxTrailingDist  float64    `yaml:"max_trailing_dist"`
	CycleTime        float64    `yaml:"cycle_time"`
	Q                [3]float64 `yaml:"q"`
	R                [2]float64 `yaml:"r"`
	MaxIter          int        `yaml:"max_iter"`
	Eps              float64    `yaml:"eps"`
	GoalDistTol      float64    `yaml:"goal_dist_tol"`
	GoalHeadingTol   float64    `yaml:"goal_heading_tol"`
	MinRefSpeed      float64    `yaml:"min_ref_speed"`
}

// SimConfig holds host-side settings: actuator limits and the policy
// applied when the controller cannot produce a gain.
type SimConfig struct {
	Duration   float64  `yaml:"duration"`
	Integrator string   `yaml:"integrator"`
	MaxLinear  float64  `yaml:"max_linear"`
	MaxAngular float64  `yaml:"max_angular"`
	Fallback   string   `yaml:"fallback"`
	Start      nav.Pose `yaml:"start"`
}

type PathConfig struct {
	Preset    string     `yaml:"preset"`
	Scale     float64    `yaml:"scale"`
	Spacing   float64    `yaml:"spacing"`
	Waypoints []nav.Pose `yaml:"waypoints"`
}

const (
	FallbackPrevious = "previous"
	FallbackZero     = "zero"
	FallbackAbort    = "abort"
)

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		LookaheadTime:    DefaultLookaheadTime,
		MinLookaheadDist: DefaultMinLookaheadDist,
		MaxLookaheadDist: DefaultMaxLookaheadDist,
		MaxTrailingDist:  DefaultMaxTrailingDist,
		CycleTime:        DefaultCycleTime,
		Q:                [3]float64{1, 1, 1},
		R:                [2]float64{1, 1},
		MaxIter:          DefaultMaxIter,
		Eps:              DefaultEps,
		GoalDistTol:      DefaultGoalDistTol,
		GoalHeadingTol:   DefaultGoalHeadingTol,
		MinRefSpeed:      DefaultMinRefSpeed,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Controller: DefaultControllerConfig(),
		Sim: SimConfig{
			Duration:   DefaultDuration,
			Integrator: "rk4",
			MaxLinear:  DefaultMaxLinear,
			MaxAngular: DefaultMaxAngular,
			Fallback:   FallbackPrevious,
		},
		Path: PathConfig{
			Preset:  "s_curve",
			Scale:   5.0,
			Spacing: 0.1,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file on top of base; keys absent from the file
// keep base's values. base is modified and returned.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *ControllerConfig) Validate() error {
	switch {
	case !finite(c.CycleTime) || c.CycleTime <= 0:
		return fmt.Errorf("config: cycle_time must be positive, got %g", c.CycleTime)
	case !finite(c.LookaheadTime) || c.LookaheadTime < 0:
		return fmt.Errorf("config: lookahead_time must be non-negative, got %g", c.LookaheadTime)
	case !finite(c.MinLookaheadDist) || c.MinLookaheadDist < 0:
		return fmt.Errorf("config: min_lookahead_dist must be non-negative, got %g", c.MinLookaheadDist)
	case !finite(c.MaxLookaheadDist) || c.MaxLookaheadDist < c.MinLookaheadDist:
		return fmt.Errorf("config: max_lookahead_dist %g below min_lookahead_dist %g", c.MaxLookaheadDist, c.MinLookaheadDist)
	case !finite(c.MaxTrailingDist) || c.MaxTrailingDist < 0:
		return fmt.Errorf("config: max_trailing_dist must be non-negative, got %g", c.MaxTrailingDist)
	case c.MaxIter <= 0:
		return fmt.Errorf("config: max_iter must be positive, got %d", c.MaxIter)
	case !finite(c.Eps) || c.Eps <= 0:
		return fmt.Errorf("config: eps must be positive, got %g", c.Eps)
	case !finite(c.GoalDistTol) || c.GoalDistTol <= 0:
		return fmt.Errorf("config: goal_dist_tol must be positive, got %g", c.GoalDistTol)
	case !finite(c.GoalHeadingTol) || c.GoalHeadingTol <= 0:
		return fmt.Errorf("config: goal_heading_tol must be positive, got %g", c.GoalHeadingTol)
	case !finite(c.MinRefSpeed) || c.MinRefSpeed < 0:
		return fmt.Errorf("config: min_ref_speed must be non-negative, got %g", c.MinRefSpeed)
	}
	for i, q := range c.Q {
		if !finite(q) || q < 0 {
			return fmt.Errorf("config: q[%d] must be non-negative, got %g", i, q)
		}
	}
	for i, r := range c.R {
		if !finite(r) || r <= 0 {
			return fmt.Errorf("config: r[%d] must be positive, got %g", i, r)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Controller.Validate(); err != nil {
		return err
	}
	if !finite(c.Sim.Duration) || c.Sim.Duration <= 0 {
		return fmt.Errorf("config: sim duration must be positive, got %g", c.Sim.Duration)
	}
	if !finite(c.Sim.MaxLinear) || !finite(c.Sim.MaxAngular) || c.Sim.MaxLinear <= 0 || c.Sim.MaxAngular <= 0 {
		return fmt.Errorf("config: sim speed limits must be positive")
	}
	if !c.Sim.Start.IsValid() {
		return fmt.Errorf("config: sim start pose %s is not finite", c.Sim.Start)
	}
	switch c.Sim.Fallback {
	case FallbackPrevious, FallbackZero, FallbackAbort:
	default:
		return fmt.Errorf("config: unknown fallback policy %q", c.Sim.Fallback)
	}
	return nil
}

// finite rejects NaN, which passes every ordered comparison, and ±Inf.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BuildPath returns the explicit waypoints when present, otherwise the
// generated preset path.
func (c *Config) BuildPath() (nav.Path, error) {
	if len(c.Path.Waypoints) > 0 {
		return nav.Path(c.Path.Waypoints).Clone(), nil
	}
	gen, ok := PathGenerators[c.Path.Preset]
	if !ok {
		return nil, fmt.Errorf("config: unknown path preset %q", c.Path.Preset)
	}
	scale, spacing := c.Path.Scale, c.Path.Spacing
	if scale <= 0 {
		scale = 1
	}
	if spacing <= 0 {
		spacing = 0.1
	}
	return gen(scale, spacing), nil
}
