package track

import (
	"github.com/rowhit/polypath/internal/zode"
)

// TangentODE is the solved-form model of one homotopy path: Derive performs
// the Davidenko solve itself and hands the integrator a plain explicit ODE
// dz/dt = −J_H⁻¹·∂H/∂t. It does not implement zode.Implicit, so explicit
// steppers treat the mass matrix as the identity.
type TangentODE struct {
	pathCore
}

func NewTangentODE(prob Problem, start zode.State, pol Policy) (*TangentODE, error) {
	core, err := newPathCore(prob, start, pol)
	if err != nil {
		return nil, err
	}
	return &TangentODE{pathCore: core}, nil
}

// Derive writes the path tangent into dst. An ill-conditioned Jacobian
// surfaces as zode.ErrIllConditioned and is routed through OnFault.
func (m *TangentODE) Derive(dst, z zode.State, t float64) error {
	return m.tangent(dst, z, t)
}
