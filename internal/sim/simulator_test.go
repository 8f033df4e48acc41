package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pathtrack/internal/config"
	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/planner"
)

type testDynamics struct{}

func (t *testDynamics) Derivative(x State, u Control, time float64) State {
	return State{u[0] * math.Cos(x[2]), u[0] * math.Sin(x[2]), u[1]}
}

func (t *testDynamics) StateDim() int   { return 3 }
func (t *testDynamics) ControlDim() int { return 2 }

type testIntegrator struct{}

func (t *testIntegrator) Step(dyn Dynamics, x State, u Control, time float64, dt float64) State {
	dx := dyn.Derivative(x, u, time)
	return State{x[0] + dt*dx[0], x[1] + dt*dx[1], x[2] + dt*dx[2]}
}

// scriptedPlanner returns cmd every cycle, fails with failErr on cycle
// failAt (1-based) and reports the goal reached after goalAfter cycles.
type scriptedPlanner struct {
	cmd       nav.ControlVector
	fallback  nav.ControlVector
	failAt    int
	failErr   error
	goalAfter int
	calls     int
}

func (p *scriptedPlanner) ComputeVelocityCommand(pose nav.Pose, speed float64) (nav.ControlVector, error) {
	p.calls++
	if p.calls == p.failAt {
		return nav.ControlVector{}, &nav.CycleError{Cycle: p.calls, Pose: pose, Wrapped: p.failErr}
	}
	return p.cmd, nil
}

func (p *scriptedPlanner) IsGoalReached() bool {
	return p.goalAfter > 0 && p.calls >= p.goalAfter
}

func (p *scriptedPlanner) Fallback() nav.ControlVector { return p.fallback }

func (p *scriptedPlanner) Diagnostics() planner.Diagnostics {
	return planner.Diagnostics{Cycles: p.calls}
}

func testConfig() Config {
	return Config{
		Dt:         0.1,
		Duration:   1.0,
		MaxLinear:  1.0,
		MaxAngular: 1.5,
		Fallback:   config.FallbackPrevious,
	}
}

func TestSimulatorRun(t *testing.T) {
	p := &scriptedPlanner{cmd: nav.ControlVector{V: 0.5}}
	sim := New(&testDynamics{}, &testIntegrator{}, p)

	result, err := sim.Run(context.Background(), nav.Pose{}, testConfig())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}
	if len(result.Controls) != 10 || len(result.Lookahead) != 10 || len(result.Errors) != 10 {
		t.Errorf("expected 10 per-step records, got %d/%d/%d",
			len(result.Controls), len(result.Lookahead), len(result.Errors))
	}

	final := result.States[len(result.States)-1]
	if math.Abs(final[0]-0.5) > 1e-9 {
		t.Errorf("expected final x 0.5, got %.4f", final[0])
	}
	if result.GoalReached {
		t.Error("goal should not be reached")
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &scriptedPlanner{})

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative dt", func(c *Config) { c.Dt = -0.1 }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1.0 }},
		{"zero max linear", func(c *Config) { c.MaxLinear = 0 }},
		{"zero max angular", func(c *Config) { c.MaxAngular = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			if _, err := sim.Run(context.Background(), nav.Pose{}, cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimulatorSaturation(t *testing.T) {
	p := &scriptedPlanner{cmd: nav.ControlVector{V: 5, Omega: -5}}
	sim := New(&testDynamics{}, &testIntegrator{}, p)

	result, err := sim.Run(context.Background(), nav.Pose{}, testConfig())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for i, u := range result.Controls {
		if u[0] != 1.0 || u[1] != -1.5 {
			t.Fatalf("control %d = %v, want [1 -1.5]", i, u)
		}
	}
}

func TestSimulatorFallbackPolicies(t *testing.T) {
	tests := []struct {
		policy  string
		wantErr bool
		wantV   float64
	}{
		{config.FallbackPrevious, false, 0.3},
		{config.FallbackZero, false, 0},
		{config.FallbackAbort, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			p := &scriptedPlanner{
				cmd:      nav.ControlVector{V: 0.5},
				fallback: nav.ControlVector{V: 0.3},
				failAt:   3,
				failErr:  nav.ErrSingularGain,
			}
			sim := New(&testDynamics{}, &testIntegrator{}, p)
			cfg := testConfig()
			cfg.Fallback = tt.policy

			result, err := sim.Run(context.Background(), nav.Pose{}, cfg)
			if tt.wantErr {
				if !errors.Is(err, nav.ErrSingularGain) {
					t.Fatalf("expected SingularGain, got %v", err)
				}
				if result.StepsTaken != 2 {
					t.Errorf("expected 2 steps before abort, got %d", result.StepsTaken)
				}
				return
			}
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if result.Fallbacks != 1 {
				t.Errorf("expected 1 fallback, got %d", result.Fallbacks)
			}
			if got := result.Controls[2][0]; got != tt.wantV {
				t.Errorf("fallback v = %v, want %v", got, tt.wantV)
			}
			if got := result.Controls[3][0]; got != 0.5 {
				t.Errorf("v after fallback = %v, want 0.5", got)
			}
		})
	}
}

func TestSimulatorOtherErrorsAbort(t *testing.T) {
	p := &scriptedPlanner{failAt: 1, failErr: nav.ErrNoPath}
	sim := New(&testDynamics{}, &testIntegrator{}, p)

	result, err := sim.Run(context.Background(), nav.Pose{}, testConfig())
	if !errors.Is(err, nav.ErrNoPath) {
		t.Fatalf("expected NoPath, got %v", err)
	}
	var se SimError
	if !errors.As(err, &se) || se.Step != 0 {
		t.Errorf("expected SimError at step 0, got %v", err)
	}
	if len(result.States) != 1 {
		t.Errorf("expected only the initial state, got %d", len(result.States))
	}
}

func TestSimulatorRejectsNonFiniteCommand(t *testing.T) {
	p := &scriptedPlanner{cmd: nav.ControlVector{V: math.NaN()}}
	sim := New(&testDynamics{}, &testIntegrator{}, p)

	result, err := sim.Run(context.Background(), nav.Pose{}, testConfig())
	var se SimError
	if !errors.As(err, &se) || se.Step != 0 {
		t.Fatalf("expected SimError at step 0, got %v", err)
	}
	if len(result.Controls) != 0 {
		t.Errorf("non-finite command was applied: %v", result.Controls)
	}
}

func TestSimulatorStopsAtGoal(t *testing.T) {
	p := &scriptedPlanner{cmd: nav.ControlVector{V: 0.5}, goalAfter: 4}
	sim := New(&testDynamics{}, &testIntegrator{}, p)

	result, err := sim.Run(context.Background(), nav.Pose{}, testConfig())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !result.GoalReached {
		t.Error("expected goal reached")
	}
	if result.StepsTaken != 4 {
		t.Errorf("expected 4 steps, got %d", result.StepsTaken)
	}
}

func TestSimulatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New(&testDynamics{}, &testIntegrator{}, &scriptedPlanner{})
	result, err := sim.Run(ctx, nav.Pose{}, testConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || len(result.States) != 1 {
		t.Error("expected partial result with the initial state")
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x State, u Control, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

type countingObserver struct{ steps int }

func (c *countingObserver) OnStep(x State, u Control, t float64) { c.steps++ }

func TestSimulatorMetricsAndObservers(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &scriptedPlanner{cmd: nav.ControlVector{V: 1}})

	metric := &testMetric{}
	obs := &countingObserver{}
	sim.AddMetric(metric)
	sim.AddObserver(obs)

	result, err := sim.Run(context.Background(), nav.Pose{}, testConfig())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
	if obs.steps != 10 {
		t.Errorf("expected 10 observer calls, got %d", obs.steps)
	}
}

func TestSessionStepwise(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &scriptedPlanner{cmd: nav.ControlVector{Omega: 1}})

	sess, err := sim.Start(nav.Pose{Heading: 3.1}, testConfig())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	steps := 0
	for {
		done, err := sess.Step()
		if err != nil {
			t.Fatalf("step failed: %v", err)
		}
		if done {
			break
		}
		steps++
	}
	if steps != 10 || !sess.Done() {
		t.Errorf("expected 10 steps and done, got %d/%v", steps, sess.Done())
	}
	if p := sess.Progress(); p != 1 {
		t.Errorf("expected progress 1, got %f", p)
	}
	if h := sess.State()[2]; h > math.Pi || h <= -math.Pi {
		t.Errorf("heading %v not wrapped", h)
	}
	if done, _ := sess.Step(); !done {
		t.Error("step after completion should report done")
	}
}
