package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/pathtrack/internal/sim"
)

// Euler is the explicit first-order step x + dt·f(x, u, t). It matches the
// discretisation the controller linearises with.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t float64, dt float64) sim.State {
	return axpy(make(sim.State, len(x)), x, dt, dyn.Derivative(x, u, t))
}

// axpy writes x + a·y into dst and returns it.
func axpy(dst, x sim.State, a float64, y sim.State) sim.State {
	for i := range x {
		dst[i] = x[i] + a*y[i]
	}
	return dst
}

var registry = map[string]func() sim.Integrator{
	"euler": func() sim.Integrator { return NewEuler() },
	"rk4":   func() sim.Integrator { return NewRK4() },
}

// ByName returns a fresh integrator for a configured name.
func ByName(name string) (sim.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
