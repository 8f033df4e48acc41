package control

import "gonum.org/v1/gonum/mat"

// Model is the discrete linear error model e[k+1] = A·e[k] + B·u[k].
type Model struct {
	A *mat.Dense // 3x3
	B *mat.Dense // 3x2
}

// Linearize discretises the agent-frame tracking error dynamics
//
//	ėx =  ωr·ey − v
//	ėy = −ωr·ex + vr·eθ
//	ėθ = −ω
//
// around zero error with forward Euler over dt.
func Linearize(dt, vRef, omegaRef float64) Model {
	a := mat.NewDense(3, 3, []float64{
		1, omegaRef * dt, 0,
		-omegaRef * dt, 1, vRef * dt,
		0, 0, 1,
	})
	b := mat.NewDense(3, 2, []float64{
		-dt, 0,
		0, 0,
		0, -dt,
	})
	return Model{A: a, B: b}
}
