package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pathtrack/internal/config"
	"github.com/san-kum/pathtrack/internal/nav"
)

type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	planner    Planner
	metrics    []Metric
	observers  []Observer
}

func New(dyn Dynamics, integrator Integrator, planner Planner) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		planner:    planner,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run drives the closed loop from start until the goal is reached, the
// duration elapses, the context is cancelled or a step fails. The partial
// result is returned alongside any error.
func (s *Simulator) Run(ctx context.Context, start nav.Pose, cfg Config) (*Result, error) {
	sess, err := s.Start(start, cfg)
	if err != nil {
		return nil, err
	}
	diagf("run start: pose=%s duration=%.1fs dt=%.3f", start, cfg.Duration, cfg.Dt)

	for {
		select {
		case <-ctx.Done():
			return sess.Result(), ctx.Err()
		default:
		}

		done, err := sess.Step()
		if err != nil {
			return sess.Result(), err
		}
		if done {
			break
		}
	}

	res := sess.Result()
	diagf("run finish: steps=%d goal=%v fallbacks=%d", res.StepsTaken, res.GoalReached, res.Fallbacks)
	return res, nil
}

// Start prepares a step-by-step run. Metrics are reset.
func (s *Simulator) Start(start nav.Pose, cfg Config) (*Session, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	x := StateFromPose(start)
	res := &Result{
		States:    make([]State, 0, steps+1),
		Controls:  make([]Control, 0, steps),
		Times:     make([]float64, 0, steps+1),
		Lookahead: make([]nav.Pose, 0, steps),
		Errors:    make([]nav.ErrorState, 0, steps),
		Metrics:   make(map[string]float64),
	}
	res.States = append(res.States, x.Clone())
	res.Times = append(res.Times, 0)

	return &Session{sim: s, cfg: cfg, x: x, steps: steps, result: res}, nil
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.MaxLinear <= 0 || cfg.MaxAngular <= 0 {
		return fmt.Errorf("speed limits must be positive, got %f/%f", cfg.MaxLinear, cfg.MaxAngular)
	}
	return nil
}

// Session is one run in progress.
type Session struct {
	sim    *Simulator
	cfg    Config
	x      State
	t      float64
	speed  float64
	step   int
	steps  int
	done   bool
	result *Result
}

func (ss *Session) State() State   { return ss.x }
func (ss *Session) Time() float64  { return ss.t }
func (ss *Session) Done() bool     { return ss.done }
func (ss *Session) StepIndex() int { return ss.step }

// Progress is the fraction of the configured duration already simulated.
func (ss *Session) Progress() float64 {
	if ss.steps == 0 {
		return 1
	}
	return float64(ss.step) / float64(ss.steps)
}

func (ss *Session) GoalReached() bool { return ss.sim.planner.IsGoalReached() }

// Step runs one control cycle and one integration step. It reports true
// once the run is over.
func (ss *Session) Step() (bool, error) {
	if ss.done {
		return true, nil
	}
	s := ss.sim
	if ss.step >= ss.steps || s.planner.IsGoalReached() {
		ss.done = true
		return true, nil
	}

	cmd, err := s.planner.ComputeVelocityCommand(ss.x.Pose(), ss.speed)
	if err != nil {
		if !errors.Is(err, nav.ErrSingularGain) || ss.cfg.Fallback == config.FallbackAbort {
			ss.done = true
			return true, SimError{Time: ss.t, Step: ss.step, Err: err}
		}
		if ss.cfg.Fallback == config.FallbackZero {
			cmd = nav.ControlVector{}
		} else {
			cmd = s.planner.Fallback()
		}
		ss.result.Fallbacks++
		opsf("step %d: %s fallback after %v", ss.step, ss.cfg.Fallback, err)
	}

	if !cmd.IsValid() {
		ss.done = true
		return true, SimError{Time: ss.t, Step: ss.step, Message: fmt.Sprintf("non-finite command %+v", cmd)}
	}
	cmd = saturate(cmd, ss.cfg)
	u := ControlFrom(cmd)

	for _, m := range s.metrics {
		m.Observe(ss.x, u, ss.t)
	}
	for _, obs := range s.observers {
		obs.OnStep(ss.x, u, ss.t)
	}

	next := s.integrator.Step(s.dyn, ss.x, u, ss.t, ss.cfg.Dt)
	if !next.IsValid() {
		ss.done = true
		return true, SimError{Time: ss.t, Step: ss.step, Message: "invalid state (NaN/Inf)"}
	}
	next[2] = nav.WrapAngle(next[2])

	diag := s.planner.Diagnostics()
	ss.result.Controls = append(ss.result.Controls, u)
	ss.result.Lookahead = append(ss.result.Lookahead, diag.LastLookahead)
	ss.result.Errors = append(ss.result.Errors, diag.LastError)

	ss.x = next
	ss.t += ss.cfg.Dt
	ss.step++
	ss.speed = cmd.V
	ss.result.StepsTaken++
	ss.result.States = append(ss.result.States, ss.x.Clone())
	ss.result.Times = append(ss.result.Times, ss.t)
	return false, nil
}

// Sample is the most recent step of a session.
type Sample struct {
	Time      float64
	State     State
	Control   Control
	Lookahead nav.Pose
	Error     nav.ErrorState
}

// Latest returns the last completed step; ok is false before the first.
func (ss *Session) Latest() (Sample, bool) {
	r := ss.result
	n := len(r.Controls)
	if n == 0 {
		return Sample{Time: ss.t, State: ss.x}, false
	}
	return Sample{
		Time:      r.Times[n],
		State:     r.States[n],
		Control:   r.Controls[n-1],
		Lookahead: r.Lookahead[n-1],
		Error:     r.Errors[n-1],
	}, true
}

// Result snapshots the run so far with current metric values.
func (ss *Session) Result() *Result {
	s := ss.sim
	for _, m := range s.metrics {
		ss.result.Metrics[m.Name()] = m.Value()
	}
	ss.result.GoalReached = s.planner.IsGoalReached()
	ss.result.Diagnostics = s.planner.Diagnostics()
	return ss.result
}

// saturate applies the host actuator limits.
func saturate(c nav.ControlVector, cfg Config) nav.ControlVector {
	return nav.ControlVector{
		V:     math.Max(-cfg.MaxLinear, math.Min(cfg.MaxLinear, c.V)),
		Omega: math.Max(-cfg.MaxAngular, math.Min(cfg.MaxAngular, c.Omega)),
	}
}
