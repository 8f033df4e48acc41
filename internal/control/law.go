package control

import (
	"github.com/san-kum/pathtrack/internal/nav"
	"gonum.org/v1/gonum/mat"
)

// Evaluate applies u = −K·e. The result is not clamped.
func Evaluate(k mat.Matrix, e nav.ErrorState) nav.ControlVector {
	var u [2]float64
	for i := range u {
		for j := range e {
			u[i] -= k.At(i, j) * e[j]
		}
	}
	return nav.ControlVector{V: u[0], Omega: u[1]}
}
