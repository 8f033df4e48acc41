// Package experiment assembles a configured scenario into a runnable
// closed loop: path, planner, plant, integrator and metrics.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/pathtrack/internal/config"
	"github.com/san-kum/pathtrack/internal/integrators"
	"github.com/san-kum/pathtrack/internal/metrics"
	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/optim"
	"github.com/san-kum/pathtrack/internal/physics"
	"github.com/san-kum/pathtrack/internal/planner"
	"github.com/san-kum/pathtrack/internal/sim"
	"github.com/san-kum/pathtrack/internal/storage"
)

// MissPenalty is added to a tuning score when the run ends without
// reaching the goal.
const MissPenalty = 10.0

type Experiment struct {
	name      string
	cfg       *config.Config
	path      nav.Path
	planner   *planner.Controller
	simulator *sim.Simulator
}

// New validates cfg and wires a fresh planner and simulator for it.
func New(name string, cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	path, err := cfg.BuildPath()
	if err != nil {
		return nil, err
	}

	ctrl, err := planner.New(cfg.Controller)
	if err != nil {
		return nil, err
	}
	if err := ctrl.SetPath(path); err != nil {
		return nil, fmt.Errorf("experiment %s: %w", name, err)
	}

	integ, err := integrators.ByName(cfg.Sim.Integrator)
	if err != nil {
		return nil, err
	}

	s := sim.New(physics.NewUnicycle(), integ, ctrl)
	for _, m := range metrics.Default(path) {
		s.AddMetric(m)
	}

	return &Experiment{name: name, cfg: cfg, path: path, planner: ctrl, simulator: s}, nil
}

func (e *Experiment) Name() string                 { return e.name }
func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) Path() nav.Path               { return e.path }
func (e *Experiment) Planner() *planner.Controller { return e.planner }
func (e *Experiment) Simulator() *sim.Simulator    { return e.simulator }

// SimConfig derives the simulator settings; the step is the control cycle.
func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:         e.cfg.Controller.CycleTime,
		Duration:   e.cfg.Sim.Duration,
		MaxLinear:  e.cfg.Sim.MaxLinear,
		MaxAngular: e.cfg.Sim.MaxAngular,
		Fallback:   e.cfg.Sim.Fallback,
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.simulator.Run(ctx, e.cfg.Sim.Start, e.SimConfig())
}

func (e *Experiment) Start() (*sim.Session, error) {
	return e.simulator.Start(e.cfg.Sim.Start, e.SimConfig())
}

// Metadata describes the run for storage.
func (e *Experiment) Metadata() storage.RunMetadata {
	return storage.RunMetadata{
		Scenario:   e.name,
		Dt:         e.cfg.Controller.CycleTime,
		Duration:   e.cfg.Sim.Duration,
		Integrator: e.cfg.Sim.Integrator,
		Fallback:   e.cfg.Sim.Fallback,
		Controller: e.cfg.Controller,
		Start:      e.cfg.Sim.Start,
		Path:       e.path,
	}
}

// Score runs cfg with the weight overrides in params and returns the named
// metric, plus MissPenalty if the goal was not reached.
func Score(ctx context.Context, cfg *config.Config, metric string, params map[string]float64) (float64, error) {
	cc, err := optim.ApplyWeights(cfg.Controller, params)
	if err != nil {
		return 0, err
	}
	trial := *cfg
	trial.Controller = cc

	exp, err := New("tune", &trial)
	if err != nil {
		return 0, err
	}
	res, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}

	val, ok := res.Metrics[metric]
	if !ok {
		return 0, fmt.Errorf("experiment: unknown metric %q", metric)
	}
	if !res.GoalReached {
		val += MissPenalty
	}
	return val, nil
}
