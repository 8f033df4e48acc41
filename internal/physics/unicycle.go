package physics

import (
	"math"

	"github.com/san-kum/pathtrack/internal/sim"
)

// Unicycle integrates ẋ = v cosθ, ẏ = v sinθ, θ̇ = ω. Slip scales the
// commanded speed to model wheel slip on the plant side; 1 means none.
type Unicycle struct {
	Slip float64
}

func NewUnicycle() *Unicycle {
	return &Unicycle{Slip: 1.0}
}

func (u *Unicycle) StateDim() int   { return 3 }
func (u *Unicycle) ControlDim() int { return 2 }

func (u *Unicycle) Derivative(x sim.State, c sim.Control, t float64) sim.State {
	v, omega := 0.0, 0.0
	if len(c) >= 2 {
		v, omega = c[0]*u.Slip, c[1]
	}
	theta := x[2]
	return sim.State{v * math.Cos(theta), v * math.Sin(theta), omega}
}

func (u *Unicycle) GetParams() map[string]float64 {
	return map[string]float64{"slip": u.Slip}
}

func (u *Unicycle) SetParam(name string, value float64) bool {
	if name == "slip" {
		u.Slip = value
		return true
	}
	return false
}
