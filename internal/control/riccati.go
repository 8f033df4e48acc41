package control

import (
	"fmt"
	"math"

	"github.com/san-kum/pathtrack/internal/nav"
	"gonum.org/v1/gonum/mat"
)

// MaxCondition bounds the 1-norm condition number of R + BᵀPB.
const MaxCondition = 1e12

// Weights holds the state cost Q (3x3) and control cost R (2x2).
type Weights struct {
	Q mat.Matrix
	R mat.Matrix
}

func NewWeights(q [3]float64, r [2]float64) Weights {
	return Weights{
		Q: mat.NewDiagDense(3, q[:]),
		R: mat.NewDiagDense(2, r[:]),
	}
}

// Solution is only meaningful for the (A, B, Q, R) it was computed from.
type Solution struct {
	P          *mat.Dense // 3x3
	K          *mat.Dense // 2x3
	Iterations int
	Converged  bool
}

// SolveDARE iterates
//
//	P[k+1] = Q + AᵀP[k]A − AᵀP[k]B (R + BᵀP[k]B)⁻¹ BᵀP[k]A
//
// from P[0] = Q until the largest element change drops below eps or
// maxIter iterations have run. Running out of iterations is not an error:
// the last P and its gain are returned with Converged false.
func SolveDARE(m Model, w Weights, maxIter int, eps float64) (Solution, error) {
	p := mat.DenseCopyOf(w.Q)
	sol := Solution{}

	for k := 0; k < maxIter; k++ {
		sInv, btpa, err := gainTerms(m, w, p)
		if err != nil {
			return Solution{}, fmt.Errorf("iteration %d: %w", k, err)
		}

		var pa, atpa, tmp, corr mat.Dense
		pa.Mul(p, m.A)
		atpa.Mul(m.A.T(), &pa)
		tmp.Mul(sInv, btpa)
		corr.Mul(btpa.T(), &tmp)

		next := mat.NewDense(3, 3, nil)
		next.Add(w.Q, &atpa)
		next.Sub(next, &corr)
		symmetrize(next)

		diff := maxAbsDiff(next, p)
		p = next
		sol.Iterations = k + 1
		if diff < eps {
			sol.Converged = true
			break
		}
	}

	sInv, btpa, err := gainTerms(m, w, p)
	if err != nil {
		return Solution{}, err
	}
	k := mat.NewDense(2, 3, nil)
	k.Mul(sInv, btpa)

	sol.P = p
	sol.K = k
	return sol, nil
}

// gainTerms returns (R + BᵀPB)⁻¹ and BᵀPA.
func gainTerms(m Model, w Weights, p *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	var pb, btpb mat.Dense
	pb.Mul(p, m.B)
	btpb.Mul(m.B.T(), &pb)

	s := mat.NewDense(2, 2, nil)
	s.Add(w.R, &btpb)
	if !isFinite(s) {
		return nil, nil, fmt.Errorf("%w: non-finite R + BᵀPB", nav.ErrSingularGain)
	}
	if cond := mat.Cond(s, 1); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > MaxCondition {
		return nil, nil, fmt.Errorf("%w: cond=%.3g", nav.ErrSingularGain, cond)
	}

	sInv := mat.NewDense(2, 2, nil)
	if err := sInv.Inverse(s); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", nav.ErrSingularGain, err)
	}

	var pa mat.Dense
	pa.Mul(p, m.A)
	btpa := mat.NewDense(2, 3, nil)
	btpa.Mul(m.B.T(), &pa)
	return sInv, btpa, nil
}

func symmetrize(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			v := 0.5 * (m.At(i, j) + m.At(j, i))
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
}

// maxAbsDiff is the max-abs-element norm of a − b.
func maxAbsDiff(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	worst := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if d := math.Abs(a.At(i, j) - b.At(i, j)); d > worst || math.IsNaN(d) {
				worst = d
			}
		}
	}
	return worst
}

func isFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
