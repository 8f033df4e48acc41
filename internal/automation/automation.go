// Package automation runs scripted scenario batches and Monte Carlo start
// pose studies on top of the experiment package.
package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/san-kum/pathtrack/internal/config"
	"github.com/san-kum/pathtrack/internal/experiment"
	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/sim"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a named preset; every non-zero field
// overrides it.
type ScenarioStep struct {
	Preset     string     `yaml:"preset"`
	Path       string     `yaml:"path"`
	Integrator string     `yaml:"integrator"`
	Fallback   string     `yaml:"fallback"`
	Duration   float64    `yaml:"duration"`
	Start      *nav.Pose  `yaml:"start"`
	Q          []float64  `yaml:"q"`
	R          []float64  `yaml:"r"`
	Waypoints  []nav.Pose `yaml:"waypoints"`
	SaveAs     string     `yaml:"save_as"`
}

// StepResult pairs a finished run with the experiment that produced it so
// callers can store it.
type StepResult struct {
	Name       string
	Experiment *experiment.Experiment
	Result     *sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("automation: parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("automation: scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Config builds the step's configuration over its preset.
func (s ScenarioStep) Config() (*config.Config, error) {
	preset := s.Preset
	if preset == "" {
		preset = "cruise"
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q", preset)
	}

	if s.Path != "" {
		cfg.Path.Preset = s.Path
		cfg.Path.Waypoints = nil
	}
	if len(s.Waypoints) > 0 {
		cfg.Path.Waypoints = append([]nav.Pose(nil), s.Waypoints...)
	}
	if s.Integrator != "" {
		cfg.Sim.Integrator = s.Integrator
	}
	if s.Fallback != "" {
		cfg.Sim.Fallback = s.Fallback
	}
	if s.Duration > 0 {
		cfg.Sim.Duration = s.Duration
	}
	if s.Start != nil {
		cfg.Sim.Start = *s.Start
	}
	if len(s.Q) > 0 {
		if len(s.Q) != 3 {
			return nil, fmt.Errorf("q needs 3 values, got %d", len(s.Q))
		}
		copy(cfg.Controller.Q[:], s.Q)
	}
	if len(s.R) > 0 {
		if len(s.R) != 2 {
			return nil, fmt.Errorf("r needs 2 values, got %d", len(s.R))
		}
		copy(cfg.Controller.R[:], s.R)
	}
	return cfg, nil
}

func (s ScenarioStep) name(i int) string {
	switch {
	case s.SaveAs != "":
		return s.SaveAs
	case s.Preset != "":
		return s.Preset
	}
	return fmt.Sprintf("step%d", i+1)
}

// RunScenario executes every step in order. It stops at the first step
// that cannot be built or whose run fails, returning the results so far.
func RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.name(i)
		fmt.Printf("running step %d/%d: %s\n", i+1, len(scenario.Steps), name)

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.New(name, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Name: name, Experiment: exp, Result: result})
	}

	return results, nil
}

// MonteCarloConfig perturbs the start pose of a base configuration
// uniformly within ±Lateral metres (x and y) and ±Heading radians.
type MonteCarloConfig struct {
	Base      *config.Config
	NumTrials int
	Lateral   float64
	Heading   float64
	Seed      int64
}

type MonteCarloResult struct {
	TrialID     int
	Start       nav.Pose
	GoalReached bool
	CrossTrack  float64
	Fallbacks   int
	Err         error
}

// RunMonteCarlo executes the trials sequentially. A trial whose run fails
// is recorded with its error rather than aborting the study; only context
// cancellation stops it early.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.Base == nil {
		return nil, fmt.Errorf("automation: monte carlo needs a base config")
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < cfg.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		base := cfg.Base.Sim.Start
		start := nav.Pose{
			X:       base.X + (rng.Float64()-0.5)*2*cfg.Lateral,
			Y:       base.Y + (rng.Float64()-0.5)*2*cfg.Lateral,
			Heading: nav.WrapAngle(base.Heading + (rng.Float64()-0.5)*2*cfg.Heading),
		}

		trialCfg := *cfg.Base
		trialCfg.Sim.Start = start
		out := MonteCarloResult{TrialID: trial, Start: start, CrossTrack: math.Inf(1)}

		exp, err := experiment.New(fmt.Sprintf("mc%d", trial), &trialCfg)
		if err != nil {
			return results, err
		}
		result, err := exp.Run(ctx)
		out.Err = err
		if result != nil {
			out.GoalReached = result.GoalReached
			out.Fallbacks = result.Fallbacks
			if v, ok := result.Metrics["cross_track"]; ok {
				out.CrossTrack = v
			}
		}
		results = append(results, out)

		if (trial+1)%10 == 0 {
			fmt.Printf("monte carlo: %d/%d trials complete\n", trial+1, cfg.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloStats counts trials that reached the goal without error and
// averages their cross-track error.
func MonteCarloStats(results []MonteCarloResult) (reached, missed int, meanCrossTrack float64) {
	sum := 0.0
	for _, r := range results {
		if r.GoalReached && r.Err == nil {
			reached++
			sum += r.CrossTrack
		} else {
			missed++
		}
	}
	if reached > 0 {
		meanCrossTrack = sum / float64(reached)
	}
	return
}
