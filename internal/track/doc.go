// Package track models a single homotopy-continuation path as a complex ODE.
//
// A path follows one start solution of H(z,t)=0 from t=0 to t=1 by
// integrating the Davidenko equation J_H·dz/dt = −∂H/∂t. The package
// defines:
//
//   - [Problem]: read-only view of the homotopy shared by all paths
//   - [PathODE]: implicit-form model, mass matrix J_H handled by the stepper
//   - [TangentODE]: solved-form model, Derive performs the linear solve
//   - [Policy]: endgame entry and convergence judgment, injected per run
//   - [Phase], [Verdict]: the per-path state machine and its outcome
//
// # Example
//
//	m, _ := track.NewTangentODE(prob, start, pol)
//	sv := zode.New(m, integrators.NewRK45())
//	res, _ := sv.Run(ctx, cfg)
//	v := m.Verdict()
//
// # Thread Safety
//
// A model instance belongs to exactly one path and is NOT safe for
// concurrent use. A [Problem] must be safe for concurrent readers so that
// many paths can share it.
package track
