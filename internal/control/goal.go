package control

import (
	"fmt"
	"math"

	"github.com/san-kum/pathtrack/internal/nav"
)

type GoalState int

const (
	Tracking GoalState = iota
	Reached
)

func (g GoalState) String() string {
	switch g {
	case Tracking:
		return "TRACKING"
	case Reached:
		return "REACHED"
	default:
		return fmt.Sprintf("GoalState(%d)", int(g))
	}
}

// GoalMonitor latches Reached until Reset.
type GoalMonitor struct {
	state GoalState
}

func (g *GoalMonitor) State() GoalState { return g.state }

func (g *GoalMonitor) Reset() { g.state = Tracking }

// Update moves Tracking → Reached once position and heading are both
// strictly inside tolerance. Reached never reverts on its own.
func (g *GoalMonitor) Update(pose, goal nav.Pose, distTol, headingTol float64) GoalState {
	if g.state == Reached {
		return g.state
	}
	if WithinDistance(pose, goal, distTol) && WithinHeading(pose, goal, headingTol) {
		g.state = Reached
	}
	return g.state
}

func WithinDistance(pose, goal nav.Pose, tol float64) bool {
	return pose.DistanceTo(goal) < tol
}

func WithinHeading(pose, goal nav.Pose, tol float64) bool {
	return math.Abs(nav.AngleDiff(pose.Heading, goal.Heading)) < tol
}
