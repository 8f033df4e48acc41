package metrics

import (
	"math"

	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/sim"
)

// DistanceToPath is the shortest distance from p to the path polyline.
// A single-waypoint path degenerates to point distance.
func DistanceToPath(p nav.Pose, path nav.Path) float64 {
	switch len(path) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.DistanceTo(path[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(path); i++ {
		if d := segmentDistance(p, path[i-1], path[i]); d < best {
			best = d
		}
	}
	return best
}

func segmentDistance(p, a, b nav.Pose) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.DistanceTo(a)
	}
	s := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	s = math.Max(0, math.Min(1, s))
	return math.Hypot(p.X-(a.X+s*dx), p.Y-(a.Y+s*dy))
}

// CrossTrack is the mean lateral deviation from the path.
type CrossTrack struct {
	path    nav.Path
	sum     float64
	samples int
}

func NewCrossTrack(path nav.Path) *CrossTrack {
	return &CrossTrack{path: path}
}

func (c *CrossTrack) Name() string { return "cross_track" }

func (c *CrossTrack) Observe(x sim.State, u sim.Control, t float64) {
	c.sum += DistanceToPath(x.Pose(), c.path)
	c.samples++
}

func (c *CrossTrack) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *CrossTrack) Reset() {
	c.sum = 0
	c.samples = 0
}

// MaxCrossTrack is the worst lateral deviation seen.
type MaxCrossTrack struct {
	path  nav.Path
	worst float64
}

func NewMaxCrossTrack(path nav.Path) *MaxCrossTrack {
	return &MaxCrossTrack{path: path}
}

func (m *MaxCrossTrack) Name() string { return "max_cross_track" }

func (m *MaxCrossTrack) Observe(x sim.State, u sim.Control, t float64) {
	m.worst = math.Max(m.worst, DistanceToPath(x.Pose(), m.path))
}

func (m *MaxCrossTrack) Value() float64 { return m.worst }

func (m *MaxCrossTrack) Reset() { m.worst = 0 }

// OnTrack is the fraction of samples within threshold of the path.
type OnTrack struct {
	path      nav.Path
	threshold float64
	inside    int
	samples   int
}

func NewOnTrack(path nav.Path, threshold float64) *OnTrack {
	return &OnTrack{path: path, threshold: threshold}
}

func (o *OnTrack) Name() string { return "on_track" }

func (o *OnTrack) Observe(x sim.State, u sim.Control, t float64) {
	o.samples++
	if DistanceToPath(x.Pose(), o.path) <= o.threshold {
		o.inside++
	}
}

func (o *OnTrack) Value() float64 {
	if o.samples == 0 {
		return 1.0
	}
	return float64(o.inside) / float64(o.samples)
}

func (o *OnTrack) Reset() {
	o.inside = 0
	o.samples = 0
}

// Default is the metric set attached to every run.
func Default(path nav.Path) []sim.Metric {
	return []sim.Metric{
		NewCrossTrack(path),
		NewMaxCrossTrack(path),
		NewOnTrack(path, 0.25),
		NewControlEffort(),
		NewSmoothness(),
	}
}
