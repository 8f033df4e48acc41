// Package planner composes the tracker and the LQR pieces into the
// path-following controller driven once per control cycle by the host.
//
// # Thread Safety
//
// A Controller is NOT safe for concurrent use. SetPath and
// ComputeVelocityCommand both mutate the controller state; the host must
// serialise them (typically by calling both from its control loop).
package planner

import (
	"fmt"
	"math"

	"github.com/san-kum/pathtrack/internal/config"
	"github.com/san-kum/pathtrack/internal/control"
	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/tracker"
	"gonum.org/v1/gonum/mat"
)

// LocalPlanner is the capability the host drives.
type LocalPlanner interface {
	SetPath(path nav.Path) error
	IsGoalReached() bool
	ComputeVelocityCommand(pose nav.Pose, speed float64) (nav.ControlVector, error)
}

var _ LocalPlanner = (*Controller)(nil)

type Diagnostics struct {
	Cycles           int
	NonConverged     int
	SingularFailures int
	LastIterations   int
	LastLookahead    nav.Pose
	LastError        nav.ErrorState
}

// CycleInfo is published to the observer after every cycle that produced
// a command.
type CycleInfo struct {
	Cycle         int
	Pose          nav.Pose
	Speed         float64
	Lookahead     nav.Pose
	LookaheadDist float64
	Error         nav.ErrorState
	Gain          *mat.Dense
	Iterations    int
	Converged     bool
	Rotating      bool
	Approaching   bool
	Aiming        bool
	Remaining     float64
	Cursor        int
	Goal          control.GoalState
	Command       nav.ControlVector
}

type Observer interface {
	OnCycle(info CycleInfo)
}

type ObserverFunc func(info CycleInfo)

func (f ObserverFunc) OnCycle(info CycleInfo) { f(info) }

// state is everything a cycle or SetPath writes.
type state struct {
	goal      control.GoalMonitor
	cycle     int
	lastGain  *mat.Dense
	lastError nav.ErrorState
	diag      Diagnostics
}

type Controller struct {
	cfg      config.ControllerConfig
	weights  control.Weights
	tracker  *tracker.PathTracker
	observer Observer
	st       state
}

func New(cfg config.ControllerConfig) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		cfg:     cfg,
		weights: control.NewWeights(cfg.Q, cfg.R),
		tracker: tracker.New(tracker.Config{
			LookaheadTime:    cfg.LookaheadTime,
			MinLookaheadDist: cfg.MinLookaheadDist,
			MaxLookaheadDist: cfg.MaxLookaheadDist,
			MaxTrailingDist:  cfg.MaxTrailingDist,
		}),
	}, nil
}

func (c *Controller) SetObserver(o Observer) { c.observer = o }

// SetPath replaces the path and clears a Reached goal. An empty path is
// rejected and the current one stays in effect.
func (c *Controller) SetPath(path nav.Path) error {
	if err := c.tracker.SetPath(path); err != nil {
		return err
	}
	c.st.goal.Reset()
	diagf("path set: %d waypoints, %.2fm", len(path), path.Length())
	return nil
}

func (c *Controller) IsGoalReached() bool {
	return c.st.goal.State() == control.Reached
}

func (c *Controller) Path() nav.Path { return c.tracker.Path() }

func (c *Controller) Cursor() int { return c.tracker.Cursor() }

func (c *Controller) Diagnostics() Diagnostics { return c.st.diag }

// ComputeVelocityCommand runs one control cycle for the given pose and
// measured speed. Once the goal is reached it returns the zero command
// until a new path is set.
func (c *Controller) ComputeVelocityCommand(pose nav.Pose, speed float64) (nav.ControlVector, error) {
	c.st.cycle++
	c.st.diag.Cycles++

	if !pose.IsValid() || math.IsNaN(speed) || math.IsInf(speed, 0) {
		opsf("cycle %d: rejected input pose=%s speed=%g", c.st.cycle, pose, speed)
		return nav.ControlVector{}, c.wrap(pose, nav.ErrInvalidInput)
	}
	if !c.tracker.HasPath() {
		return nav.ControlVector{}, c.wrap(pose, nav.ErrNoPath)
	}
	if c.IsGoalReached() {
		return nav.ControlVector{}, nil
	}

	pruned, err := c.tracker.Prune(pose)
	if err != nil {
		opsf("cycle %d: pruning failed at %s: %v", c.st.cycle, pose, err)
		return nav.ControlVector{}, c.wrap(pose, err)
	}
	goal, _ := c.tracker.Goal()

	if control.WithinDistance(pose, goal, c.cfg.GoalDistTol) {
		return c.approachGoal(pose, speed, goal), nil
	}

	dist := c.tracker.LookaheadDistance(speed)
	remaining := c.tracker.RemainingLength(pose, pruned)
	approaching := remaining <= dist

	var ref nav.Pose
	var kappa float64
	if approaching {
		ref = goal
	} else {
		ref = c.tracker.LookaheadPoint(dist, pose, pruned)
		kappa = c.tracker.ReferenceCurvature(dist, pose, pruned)
	}
	e := control.ComputeError(pose, ref)

	// -K·e has no forward term, so a reference that stopped at the goal or
	// sits beside the agent holds it still. Aiming at the point turns the
	// lateral offset into heading error the gain can act on.
	aiming := approaching || e[0] < dist/2
	if aiming {
		ref.Heading = nav.Bearing(pose, ref)
		e = control.ComputeError(pose, ref)
	}
	c.st.lastError = e
	c.st.diag.LastLookahead = ref
	c.st.diag.LastError = e

	vRef := c.referenceSpeed(speed)
	model := control.Linearize(c.cfg.CycleTime, vRef, vRef*kappa)
	sol, err := control.SolveDARE(model, c.weights, c.cfg.MaxIter, c.cfg.Eps)
	if err != nil {
		c.st.diag.SingularFailures++
		opsf("cycle %d: gain solve failed at %s: %v", c.st.cycle, pose, err)
		return nav.ControlVector{}, c.wrap(pose, err)
	}
	c.st.diag.LastIterations = sol.Iterations
	if !sol.Converged {
		c.st.diag.NonConverged++
		diagf("cycle %d: riccati not converged after %d iterations (v=%.3f)", c.st.cycle, sol.Iterations, vRef)
	}

	u := control.Evaluate(sol.K, e)
	c.st.lastGain = sol.K
	gs := c.st.goal.Update(pose, goal, c.cfg.GoalDistTol, c.cfg.GoalHeadingTol)

	tracef("cycle %d: pose=%s ref=%s e=[%.3f %.3f %.3f] |e|=%.3f u=[%.3f %.3f] iter=%d rem=%.2f",
		c.st.cycle, pose, ref, e[0], e[1], e[2], e.Norm(), u.V, u.Omega, sol.Iterations, remaining)

	c.notify(CycleInfo{
		Cycle:         c.st.cycle,
		Pose:          pose,
		Speed:         speed,
		Lookahead:     ref,
		LookaheadDist: dist,
		Error:         e,
		Gain:          sol.K,
		Iterations:    sol.Iterations,
		Converged:     sol.Converged,
		Approaching:   approaching,
		Aiming:        aiming,
		Remaining:     remaining,
		Cursor:        c.tracker.Cursor(),
		Goal:          gs,
		Command:       u,
	})
	return u, nil
}

// referenceSpeed is the speed the error model is linearised at. The
// lookahead point only moves forward and at vr = 0 the lateral error is
// uncontrollable, so it never drops below MinRefSpeed.
func (c *Controller) referenceSpeed(speed float64) float64 {
	return math.Max(speed, c.cfg.MinRefSpeed)
}

// approachGoal handles the final position tolerance: rotate in place until
// the heading matches, then latch Reached and stop.
func (c *Controller) approachGoal(pose nav.Pose, speed float64, goal nav.Pose) nav.ControlVector {
	info := CycleInfo{
		Cycle:     c.st.cycle,
		Pose:      pose,
		Speed:     speed,
		Lookahead: goal,
		Error:     control.ComputeError(pose, goal),
		Cursor:    c.tracker.Cursor(),
	}

	c.st.diag.LastLookahead = goal
	c.st.diag.LastError = info.Error

	var u nav.ControlVector
	info.Goal = c.st.goal.Update(pose, goal, c.cfg.GoalDistTol, c.cfg.GoalHeadingTol)
	if info.Goal == control.Reached {
		diagf("cycle %d: goal reached at %s", c.st.cycle, pose)
	} else {
		info.Rotating = true
		u.Omega = nav.AngleDiff(goal.Heading, pose.Heading) / c.cfg.CycleTime
	}
	info.Command = u
	c.notify(info)
	return u
}

// Fallback is the command a host may apply after a failed cycle: the last
// good gain applied to the most recent error, or zero when no gain exists.
func (c *Controller) Fallback() nav.ControlVector {
	if c.st.lastGain == nil {
		return nav.ControlVector{}
	}
	return control.Evaluate(c.st.lastGain, c.st.lastError)
}

func (c *Controller) notify(info CycleInfo) {
	if c.observer != nil {
		c.observer.OnCycle(info)
	}
}

func (c *Controller) wrap(pose nav.Pose, err error) error {
	return &nav.CycleError{Cycle: c.st.cycle, Pose: pose, Wrapped: err}
}

func (d Diagnostics) String() string {
	return fmt.Sprintf("cycles=%d non_converged=%d singular=%d last_iter=%d",
		d.Cycles, d.NonConverged, d.SingularFailures, d.LastIterations)
}
