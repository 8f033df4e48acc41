// Package tracker owns the reference path of the controller. It prunes
// waypoints the agent has already passed and locates the lookahead point
// that the control law steers toward.
package tracker

import (
	"math"

	"github.com/san-kum/pathtrack/internal/nav"
)

type Config struct {
	LookaheadTime    float64
	MinLookaheadDist float64
	MaxLookaheadDist float64
	// MaxTrailingDist drops waypoints farther than this behind the agent.
	// Zero disables the check.
	MaxTrailingDist float64
}

type PathTracker struct {
	cfg    Config
	path   nav.Path
	cursor int
}

func New(cfg Config) *PathTracker {
	return &PathTracker{cfg: cfg}
}

// SetPath replaces the stored path and rewinds the cursor. An empty path
// is rejected and the previous one stays in effect.
func (pt *PathTracker) SetPath(path nav.Path) error {
	if len(path) == 0 {
		return nav.ErrEmptyPath
	}
	pt.path = path.Clone()
	pt.cursor = 0
	return nil
}

func (pt *PathTracker) HasPath() bool { return len(pt.path) > 0 }

func (pt *PathTracker) Path() nav.Path { return pt.path }

func (pt *PathTracker) Cursor() int { return pt.cursor }

func (pt *PathTracker) Goal() (nav.Pose, bool) { return pt.path.Last() }

// Prune advances the cursor past waypoints the agent has passed and
// returns the remaining suffix. The cursor never moves backward and the
// final waypoint is never removed.
func (pt *PathTracker) Prune(pose nav.Pose) (nav.Path, error) {
	if len(pt.path) == 0 {
		return nil, nav.ErrNoPath
	}
	last := len(pt.path) - 1

	for pt.cursor < last && pose.DistanceTo(pt.path[pt.cursor+1]) <= pose.DistanceTo(pt.path[pt.cursor]) {
		pt.cursor++
	}
	for pt.cursor < last && pt.trailing(pose, pt.path[pt.cursor]) {
		pt.cursor++
	}

	pruned := pt.path[pt.cursor:]
	if len(pruned) == 0 {
		return nil, nav.ErrEmptyPath
	}
	return pruned, nil
}

func (pt *PathTracker) trailing(pose, wp nav.Pose) bool {
	if pt.cfg.MaxTrailingDist <= 0 {
		return false
	}
	if pose.DistanceTo(wp) <= pt.cfg.MaxTrailingDist {
		return false
	}
	ahead := (wp.X-pose.X)*math.Cos(pose.Heading) + (wp.Y-pose.Y)*math.Sin(pose.Heading)
	return ahead < 0
}

// LookaheadDistance is clamp(LookaheadTime*speed, Min, Max).
func (pt *PathTracker) LookaheadDistance(speed float64) float64 {
	return clamp(pt.cfg.LookaheadTime*speed, pt.cfg.MinLookaheadDist, pt.cfg.MaxLookaheadDist)
}

// LookaheadPoint walks pruned from the agent's projection onto its first
// segment and returns the point at arc length distance, headed along the
// segment it lies on. A remainder shorter than distance yields the final
// waypoint unchanged.
func (pt *PathTracker) LookaheadPoint(distance float64, pose nav.Pose, pruned nav.Path) nav.Pose {
	switch len(pruned) {
	case 0:
		return pose
	case 1:
		return pruned[0]
	}

	from := project(pose, pruned[0], pruned[1])
	remaining := distance
	for i := 1; i < len(pruned); i++ {
		to := pruned[i]
		seg := from.DistanceTo(to)
		if seg > 0 && seg >= remaining {
			r := remaining / seg
			return nav.Pose{
				X:       from.X + r*(to.X-from.X),
				Y:       from.Y + r*(to.Y-from.Y),
				Heading: nav.Bearing(pruned[i-1], to),
			}
		}
		remaining -= seg
		from = to
	}
	return pruned[len(pruned)-1]
}

// RemainingLength is the arc length from the agent's projection to the
// final waypoint.
func (pt *PathTracker) RemainingLength(pose nav.Pose, pruned nav.Path) float64 {
	if len(pruned) < 2 {
		return 0
	}
	start := project(pose, pruned[0], pruned[1])
	return start.DistanceTo(pruned[1]) + pruned[1:].Length()
}

// ReferenceCurvature estimates the signed path curvature around the
// lookahead point from three samples spaced half the lookahead apart.
func (pt *PathTracker) ReferenceCurvature(distance float64, pose nav.Pose, pruned nav.Path) float64 {
	h := math.Max(distance/2, 1e-3)
	a := pt.LookaheadPoint(math.Max(distance-h, 0), pose, pruned)
	b := pt.LookaheadPoint(distance, pose, pruned)
	c := pt.LookaheadPoint(distance+h, pose, pruned)
	return Curvature(a, b, c)
}

// Curvature is the signed Menger curvature of three points; collinear or
// coincident points give zero.
func Curvature(a, b, c nav.Pose) float64 {
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	denom := a.DistanceTo(b) * b.DistanceTo(c) * c.DistanceTo(a)
	if denom < 1e-12 {
		return 0
	}
	return 2 * cross / denom
}

// project returns the closest point to p on segment ab.
func project(p, a, b nav.Pose) nav.Pose {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return a
	}
	t := clamp(((p.X-a.X)*dx+(p.Y-a.Y)*dy)/l2, 0, 1)
	return nav.Pose{X: a.X + t*dx, Y: a.Y + t*dy, Heading: math.Atan2(dy, dx)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
