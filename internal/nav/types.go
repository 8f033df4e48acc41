package nav

import (
	"fmt"
	"math"
)

type Pose struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Heading float64 `json:"heading" yaml:"heading"`
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", p.X, p.Y, p.Heading)
}

// DistanceTo is the planar Euclidean distance, heading ignored.
func (p Pose) DistanceTo(o Pose) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

func (p Pose) IsValid() bool {
	for _, v := range [3]float64{p.X, p.Y, p.Heading} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Path []Pose

func (p Path) Clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

// Length sums the straight-line segment lengths.
func (p Path) Length() float64 {
	total := 0.0
	for i := 1; i < len(p); i++ {
		total += p[i-1].DistanceTo(p[i])
	}
	return total
}

func (p Path) Last() (Pose, bool) {
	if len(p) == 0 {
		return Pose{}, false
	}
	return p[len(p)-1], true
}

// ErrorState is [ex, ey, eθ] of the reference relative to the agent,
// rotated into the agent frame.
type ErrorState [3]float64

func (e ErrorState) Norm() float64 {
	return math.Sqrt(e[0]*e[0] + e[1]*e[1] + e[2]*e[2])
}

type ControlVector struct {
	V     float64 `json:"v"`
	Omega float64 `json:"omega"`
}

func (c ControlVector) IsValid() bool {
	return !math.IsNaN(c.V) && !math.IsInf(c.V, 0) &&
		!math.IsNaN(c.Omega) && !math.IsInf(c.Omega, 0)
}

// Slice returns the command as [v, ω].
func (c ControlVector) Slice() []float64 {
	return []float64{c.V, c.Omega}
}
