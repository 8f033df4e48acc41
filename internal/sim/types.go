package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/planner"
)

// State is the agent state [x, y, heading].
type State []float64

func StateFromPose(p nav.Pose) State {
	return State{p.X, p.Y, p.Heading}
}

func (s State) Pose() nav.Pose {
	if len(s) < 3 {
		return nav.Pose{}
	}
	return nav.Pose{X: s[0], Y: s[1], Heading: s[2]}
}

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Control is the applied command [v, omega].
type Control []float64

func ControlFrom(c nav.ControlVector) Control {
	return Control(c.Slice())
}

type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

// Planner is the controller side of the loop.
type Planner interface {
	ComputeVelocityCommand(pose nav.Pose, speed float64) (nav.ControlVector, error)
	IsGoalReached() bool
	Fallback() nav.ControlVector
	Diagnostics() planner.Diagnostics
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt         float64
	Duration   float64
	MaxLinear  float64
	MaxAngular float64
	// Fallback is one of the config.Fallback* policies.
	Fallback string
}

type Result struct {
	States      []State
	Controls    []Control
	Times       []float64
	Lookahead   []nav.Pose
	Errors      []nav.ErrorState
	Metrics     map[string]float64
	StepsTaken  int
	Fallbacks   int
	GoalReached bool
	Diagnostics planner.Diagnostics
}

// Trajectory returns the recorded states as poses.
func (r *Result) Trajectory() []nav.Pose {
	out := make([]nav.Pose, len(r.States))
	for i, s := range r.States {
		out[i] = s.Pose()
	}
	return out
}

type SimError struct {
	Time    float64
	Step    int
	Message string
	Err     error
}

func (e SimError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, msg)
}

func (e SimError) Unwrap() error { return e.Err }
