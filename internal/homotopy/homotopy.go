package homotopy

import (
	"errors"
	"fmt"
	"math"

	"github.com/rowhit/polypath/internal/linalg"
	"github.com/rowhit/polypath/internal/poly"
	"github.com/rowhit/polypath/internal/zode"
)

var (
	ErrZeroGamma = errors.New("homotopy: gamma must be nonzero")
	ErrMixedDims = errors.New("homotopy: start and target systems differ in dimension")
)

// Homotopy is the convex deformation H(z,t) = (1-t)·γ·G(z) + t·F(z) between
// a start system G with known roots and the target system F. It carries the
// start points the paths depart from and is shared read-only by every path
// of a run.
type Homotopy struct {
	target poly.System
	start  poly.System
	gamma  complex128
	starts []zode.State
	n      int
}

// New builds a homotopy from target F, start system G and the roots of G.
// Gamma should be a generic complex number away from the real axis; the
// usual choice is a point on the unit circle.
func New(target, start poly.System, gamma complex128, starts []zode.State) (*Homotopy, error) {
	if target.Dimension() != start.Dimension() {
		return nil, fmt.Errorf("%w: start %d, target %d", ErrMixedDims, start.Dimension(), target.Dimension())
	}
	if gamma == 0 {
		return nil, ErrZeroGamma
	}
	n := target.Dimension()
	own := make([]zode.State, len(starts))
	for i, s := range starts {
		if len(s) != n {
			return nil, fmt.Errorf("start point %d has %d components, system has %d: %w",
				i, len(s), n, zode.ErrDimensionMismatch)
		}
		own[i] = s.Clone()
	}
	return &Homotopy{
		target: target,
		start:  start,
		gamma:  gamma,
		starts: own,
		n:      n,
	}, nil
}

func (h *Homotopy) Dimension() int    { return h.n }
func (h *Homotopy) Gamma() complex128 { return h.gamma }
func (h *Homotopy) Paths() int        { return len(h.starts) }

func (h *Homotopy) Target() poly.System      { return h.target }
func (h *Homotopy) StartSystem() poly.System { return h.start }

// Start returns a copy of the i-th start point.
func (h *Homotopy) Start(i int) zode.State {
	return h.starts[i].Clone()
}

// Eval writes H(z,t) into dst.
func (h *Homotopy) Eval(dst, z zode.State, t float64) error {
	if err := h.target.Eval(dst, z); err != nil {
		return err
	}
	g := make(zode.State, h.n)
	if err := h.start.Eval(g, z); err != nil {
		return err
	}
	cg := h.gamma * complex(1-t, 0)
	ct := complex(t, 0)
	for i := range dst {
		dst[i] = cg*g[i] + ct*dst[i]
	}
	return nil
}

// TDerivative writes ∂H/∂t = F(z) - γ·G(z) into dst.
func (h *Homotopy) TDerivative(dst, z zode.State, t float64) error {
	if err := h.target.Eval(dst, z); err != nil {
		return err
	}
	g := make(zode.State, h.n)
	if err := h.start.Eval(g, z); err != nil {
		return err
	}
	for i := range dst {
		dst[i] -= h.gamma * g[i]
	}
	return nil
}

// Jacobian writes ∂H/∂z = (1-t)·γ·J_G + t·J_F into dst.
func (h *Homotopy) Jacobian(dst *linalg.Dense, z zode.State, t float64) error {
	if err := h.target.JacobianAt(dst, z); err != nil {
		return err
	}
	dst.Scale(complex(t, 0))
	jg := linalg.NewDense(h.n)
	if err := h.start.JacobianAt(jg, z); err != nil {
		return err
	}
	return dst.AddScaled(h.gamma*complex(1-t, 0), jg)
}

// MixedJacobian writes ∂(∂H/∂t)/∂z = J_F - γ·J_G into dst.
func (h *Homotopy) MixedJacobian(dst *linalg.Dense, z zode.State, t float64) error {
	if err := h.target.JacobianAt(dst, z); err != nil {
		return err
	}
	jg := linalg.NewDense(h.n)
	if err := h.start.JacobianAt(jg, z); err != nil {
		return err
	}
	return dst.AddScaled(-h.gamma, jg)
}

// TargetResidual returns |F(z)|, the distance of z from being a root of the
// target system. NaN means F could not be evaluated at z.
func (h *Homotopy) TargetResidual(z zode.State) float64 {
	f := make(zode.State, h.n)
	if err := h.target.Eval(f, z); err != nil {
		return math.NaN()
	}
	return f.Norm()
}
