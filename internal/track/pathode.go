package track

import (
	"errors"
	"fmt"
	"math"

	"github.com/rowhit/polypath/internal/linalg"
	"github.com/rowhit/polypath/internal/zode"
)

// condFloor is the pivot-ratio below which a Jacobian factorization counts
// as ill-conditioned.
const condFloor = 1e-14

// refineIters bounds the Newton corrections applied to a landed point.
const refineIters = 3

// pathCore carries the per-path state shared by both model variants: the
// seed value, the phase machine and the injected policy. It is owned by
// exactly one model and never shared across paths.
type pathCore struct {
	prob Problem
	pol  Policy
	seed zode.State
	n    int

	phase   Phase
	verdict Verdict
	final   zode.State
	finalT  float64
	lastT   float64
	steps   int
	egSteps int

	jac  *linalg.Dense
	ht   zode.State
	hval zode.State
	tang zode.State
}

func newPathCore(prob Problem, start zode.State, pol Policy) (pathCore, error) {
	if prob == nil {
		return pathCore{}, errors.New("track: nil problem")
	}
	n := prob.Dimension()
	if n <= 0 {
		return pathCore{}, zode.ErrZeroDimension
	}
	if len(start) != n {
		return pathCore{}, fmt.Errorf("start value has %d components, system has %d: %w",
			len(start), n, zode.ErrDimensionMismatch)
	}
	if pol == nil {
		pol = neverPolicy{}
	}
	return pathCore{
		prob:  prob,
		pol:   pol,
		seed:  start.Clone(),
		n:     n,
		final: start.Clone(),
		jac:   linalg.NewDense(n),
		ht:    make(zode.State, n),
		hval:  make(zode.State, n),
		tang:  make(zode.State, n),
	}, nil
}

func (c *pathCore) Dimension() int { return c.n }

// Initial returns the i-th component of the path's start value. The value
// is fixed at construction and identical across calls.
func (c *pathCore) Initial(i int) (complex128, error) {
	if i < 0 || i >= c.n {
		return 0, fmt.Errorf("component %d of %d: %w", i, c.n, zode.ErrIndexRange)
	}
	return c.seed[i], nil
}

func (c *pathCore) Phase() Phase     { return c.phase }
func (c *pathCore) Verdict() Verdict { return c.verdict }

// Final returns the last accepted state and its t value.
func (c *pathCore) Final() (zode.State, float64) {
	return c.final.Clone(), c.finalT
}

// AfterStep runs the phase machine on each accepted step. It returns false
// once the policy reaches a terminal verdict, or unconditionally when t has
// hit the terminal value; afterwards the verdict and final value are fixed.
// A final landing is polished with Newton corrections before it is judged.
func (c *pathCore) AfterStep(z zode.State, t float64, final bool) bool {
	c.steps++
	copy(c.final, z)
	c.finalT = t
	if final {
		c.refine(c.final, t)
	}
	residual := math.NaN()
	if err := c.prob.Eval(c.hval, c.final, t); err == nil {
		residual = c.hval.Norm()
	}
	speed := math.NaN()
	if err := c.tangent(c.tang, c.final, t); err == nil {
		speed = c.tang.Norm()
	}
	snap := Snapshot{
		Z:        c.final,
		T:        t,
		Dt:       t - c.lastT,
		Residual: residual,
		Speed:    speed,
		Steps:    c.steps,
		Final:    final,
	}
	c.lastT = t

	if c.phase == PhaseTracking && !final && c.pol.EnterEndgame(snap) {
		c.phase = PhaseEndgame
	}
	if c.phase == PhaseEndgame {
		c.egSteps++
		snap.EndgameSteps = c.egSteps
	}

	v := c.pol.Judge(snap)
	if final && v == VerdictPending {
		v = VerdictConverged
	}
	if v != VerdictPending {
		c.verdict = v
		return false
	}
	return true
}

// OnFault converts an ill-conditioned solve during ordinary tracking into
// the endgame transition and asks the solver to retry. Any other fault, or
// an ill-conditioned solve once already in the endgame, stops the path.
func (c *pathCore) OnFault(z zode.State, t float64, err error) bool {
	if errors.Is(err, zode.ErrIllConditioned) && c.phase == PhaseTracking {
		c.phase = PhaseEndgame
		return true
	}
	return false
}

// MaxStep caps the step size once the path is in the endgame.
func (c *pathCore) MaxStep(t float64) float64 {
	if c.phase == PhaseEndgame {
		return c.pol.EndgameStep()
	}
	return 0
}

// refine polishes a landed point with Newton corrections of H(·,t)=0,
// keeping whichever iterate has the smallest residual. The point is left
// untouched when the Jacobian cannot be factored.
func (c *pathCore) refine(dst zode.State, t float64) {
	if err := c.prob.Eval(c.hval, dst, t); err != nil {
		return
	}
	best := c.hval.Norm()
	for k := 0; k < refineIters && best > 0; k++ {
		if err := c.prob.Jacobian(c.jac, dst, t); err != nil {
			return
		}
		f, err := c.jac.Factor()
		if err != nil || f.RCond() < condFloor {
			return
		}
		if err := f.Solve(c.tang, c.hval); err != nil {
			return
		}
		for i := range dst {
			dst[i] -= c.tang[i]
		}
		worse := true
		if err := c.prob.Eval(c.hval, dst, t); err == nil {
			if r := c.hval.Norm(); r < best {
				best = r
				worse = false
			}
		}
		if worse {
			for i := range dst {
				dst[i] += c.tang[i]
			}
			return
		}
	}
}

// tangent writes dz/dt = −(∂H/∂z)⁻¹·∂H/∂t at (z,t) into dst, the Davidenko
// direction that keeps H(z(t),t)=0.
func (c *pathCore) tangent(dst, z zode.State, t float64) error {
	if len(dst) != c.n || len(z) != c.n {
		return zode.ErrDimensionMismatch
	}
	if err := c.prob.Jacobian(c.jac, z, t); err != nil {
		return err
	}
	if err := c.prob.TDerivative(c.ht, z, t); err != nil {
		return err
	}
	f, err := c.jac.Factor()
	if err != nil {
		return fmt.Errorf("tangent solve at t=%.6g: %w", t, zode.ErrIllConditioned)
	}
	if f.RCond() < condFloor {
		return fmt.Errorf("tangent solve at t=%.6g (rcond %.2e): %w", t, f.RCond(), zode.ErrIllConditioned)
	}
	if err := f.Solve(dst, c.ht); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = -dst[i]
	}
	return nil
}

// PathODE is the implicit-form model of one homotopy path: the ODE
// J_H(z,t)·dz/dt = −∂H/∂t written with the homotopy Jacobian as mass
// matrix, so Derive stays a cheap evaluation and the linear solve moves
// into the integrator. One PathODE exists per tracked start solution.
type PathODE struct {
	pathCore
	mixed *linalg.Dense
}

func NewPathODE(prob Problem, start zode.State, pol Policy) (*PathODE, error) {
	core, err := newPathCore(prob, start, pol)
	if err != nil {
		return nil, err
	}
	return &PathODE{
		pathCore: core,
		mixed:    linalg.NewDense(core.n),
	}, nil
}

// Derive writes the implicit-form right-hand side g = −∂H/∂t into dst.
func (p *PathODE) Derive(dst, z zode.State, t float64) error {
	if len(dst) != p.n || len(z) != p.n {
		return zode.ErrDimensionMismatch
	}
	if err := p.prob.TDerivative(dst, z, t); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = -dst[i]
	}
	return nil
}

// MassProduct writes y = J_H(z,t)·x into dst. dst must not alias x.
func (p *PathODE) MassProduct(dst, x, z zode.State, t float64) error {
	if len(dst) != p.n || len(x) != p.n || len(z) != p.n {
		return zode.ErrDimensionMismatch
	}
	if err := p.prob.Jacobian(p.jac, z, t); err != nil {
		return err
	}
	return p.jac.MatVec(dst, x)
}

// JacobianProduct writes y = (∂g/∂z)·u into dst, the analytic derivative of
// Derive. dst must not alias u.
func (p *PathODE) JacobianProduct(dst, u, z zode.State, t float64) error {
	if len(dst) != p.n || len(u) != p.n || len(z) != p.n {
		return zode.ErrDimensionMismatch
	}
	if err := p.prob.MixedJacobian(p.mixed, z, t); err != nil {
		return err
	}
	if err := p.mixed.MatVec(dst, u); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = -dst[i]
	}
	return nil
}
