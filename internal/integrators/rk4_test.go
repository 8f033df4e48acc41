package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/pathtrack/internal/physics"
	"github.com/san-kum/pathtrack/internal/sim"
)

// arcEnd is the exact unicycle pose after driving at constant (v, ω) from
// the origin facing +x.
func arcEnd(v, omega, t float64) sim.State {
	th := omega * t
	return sim.State{v / omega * math.Sin(th), v / omega * (1 - math.Cos(th)), th}
}

func drive(integ sim.Integrator, u sim.Control, dt float64, steps int) sim.State {
	dyn := physics.NewUnicycle()
	x := sim.State{0, 0, 0}
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, u, float64(i)*dt, dt)
	}
	return x
}

func TestRK4Accuracy(t *testing.T) {
	u := sim.Control{1.0, 0.5}
	dt, steps := 0.1, 100

	x := drive(NewRK4(), u, dt, steps)
	want := arcEnd(u[0], u[1], float64(steps)*dt)

	for i := range want {
		if math.Abs(x[i]-want[i]) > 1e-4 {
			t.Errorf("state[%d] = %.6f, want %.6f", i, x[i], want[i])
		}
	}
}

func TestEulerLessAccurateThanRK4(t *testing.T) {
	u := sim.Control{1.0, 0.5}
	dt, steps := 0.1, 100
	want := arcEnd(u[0], u[1], float64(steps)*dt)

	errEuler := sim.State{0, 0}
	errRK4 := sim.State{0, 0}
	xe := drive(NewEuler(), u, dt, steps)
	xr := drive(NewRK4(), u, dt, steps)
	for i := 0; i < 2; i++ {
		errEuler[i] = xe[i] - want[i]
		errRK4[i] = xr[i] - want[i]
	}

	if errEuler.Norm() <= errRK4.Norm() {
		t.Errorf("euler error %.6f not above rk4 error %.6f", errEuler.Norm(), errRK4.Norm())
	}
	if math.Abs(xe[2]-want[2]) > 1e-9 {
		t.Errorf("euler heading = %.6f, want %.6f", xe[2], want[2])
	}
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q) failed: %v", name, err)
		}
	}
	if _, err := ByName("verlet"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := physics.NewUnicycle()
	x := sim.State{0, 0, 0}
	u := sim.Control{1, 0.2}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, u, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := physics.NewUnicycle()
	x := sim.State{0, 0, 0}
	u := sim.Control{1, 0.2}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, u, 0, 0.01)
	}
}
