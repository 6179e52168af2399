package track

import (
	"github.com/rowhit/polypath/internal/linalg"
	"github.com/rowhit/polypath/internal/zode"
)

// Problem is the read-only view of the shared homotopy H(z,t) that a path
// model evaluates against. One Problem is shared by every path of a run, so
// implementations must be safe for concurrent readers and must not be
// mutated by evaluation.
type Problem interface {
	Dimension() int

	// Eval writes H(z,t) into dst.
	Eval(dst, z zode.State, t float64) error

	// TDerivative writes ∂H/∂t at (z,t) into dst.
	TDerivative(dst, z zode.State, t float64) error

	// Jacobian writes the n×n matrix ∂H/∂z at (z,t) into dst.
	Jacobian(dst *linalg.Dense, z zode.State, t float64) error

	// MixedJacobian writes ∂(∂H/∂t)/∂z at (z,t) into dst.
	MixedJacobian(dst *linalg.Dense, z zode.State, t float64) error
}
