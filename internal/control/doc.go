// Package control provides the LQR building blocks of the path follower.
//
// One control cycle chains the pieces in this order:
//
//   - [ComputeError]: reference pose relative to the agent, in the agent frame
//   - [Linearize]: discrete error dynamics (A, B) at the current reference
//   - [SolveDARE]: fixed-point iteration of the discrete algebraic Riccati
//     equation yielding the cost matrix P and the gain K
//   - [Evaluate]: control law u = -K·e
//   - [GoalMonitor]: sticky Tracking → Reached transition
//
// # Usage
//
//	w := control.NewWeights([3]float64{1, 1, 1}, [2]float64{1, 1})
//	m := control.Linearize(0.1, speed, speed*curvature)
//	sol, err := control.SolveDARE(m, w, 500, 1e-3)
//	if err != nil {
//	    // errors.Is(err, nav.ErrSingularGain)
//	}
//	u := control.Evaluate(sol.K, control.ComputeError(pose, ref))
//
// All matrices are gonum dense matrices. Nothing here clamps the command;
// actuator limits belong to the caller.
package control
