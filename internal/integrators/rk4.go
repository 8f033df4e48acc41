package integrators

import "github.com/san-kum/pathtrack/internal/sim"

// RK4 is the classical fourth-order Runge-Kutta step with the command held
// constant over the interval. Stage buffers are reused between calls, so an
// RK4 value must not be shared across goroutines.
type RK4 struct {
	k       [4]sim.State
	scratch sim.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t, dt float64) sim.State {
	n := len(x)
	if len(r.scratch) != n {
		for i := range r.k {
			r.k[i] = make(sim.State, n)
		}
		r.scratch = make(sim.State, n)
	}

	half := 0.5 * dt
	copy(r.k[0], dyn.Derivative(x, u, t))
	copy(r.k[1], dyn.Derivative(axpy(r.scratch, x, half, r.k[0]), u, t+half))
	copy(r.k[2], dyn.Derivative(axpy(r.scratch, x, half, r.k[1]), u, t+half))
	copy(r.k[3], dyn.Derivative(axpy(r.scratch, x, dt, r.k[2]), u, t+dt))

	out := make(sim.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		out[i] = x[i] + dt6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return out
}
