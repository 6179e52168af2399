// Package homotopy deforms a polynomial start system into a target system
// and follows every root across the deformation.
//
// The deformation is H(z,t) = (1-t)·γ·G(z) + t·F(z):
//
//   - [Homotopy]: the shared problem, its gamma and its start points
//   - [ThresholdPolicy]: the standard endgame and verdict thresholds
//   - [Tracker]: follows all paths concurrently, one result per start point
//
// # Gamma
//
// Gamma keeps the paths away from singular intermediate systems. Any
// generic complex value works; real values risk path crossings, so the
// default configuration uses a point on the unit circle off the real axis.
//
// # Tracking
//
//	hom, _ := homotopy.New(target, start, gamma, starts)
//	tr := homotopy.NewTracker(hom, homotopy.DefaultPolicy(), func() zode.Integrator {
//	    return integrators.NewRK45()
//	})
//	results, _ := tr.Run(ctx, zode.DefaultConfig())
package homotopy
