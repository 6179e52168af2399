package integrators

import (
	"errors"
	"fmt"

	"github.com/rowhit/polypath/internal/linalg"
	"github.com/rowhit/polypath/internal/zode"
)

// ImplicitEuler advances M(z,t)·dz/dt = g(z,t) with a backward Euler step,
// solving the stage equation M(z₁,t₁)·(z₁−z₀) = dt·g(z₁,t₁) by simplified
// Newton. The stage matrix M − dt·J is assembled column-wise through the
// system's mass and Jacobian products, so it works for explicit systems too
// (identity mass, finite-difference Jacobian).
type ImplicitEuler struct {
	tol     float64
	maxIter int

	dim   int
	a     *linalg.Dense
	basis zode.State
	colM  zode.State
	colJ  zode.State
	g     zode.State
	diff  zode.State
	resid zode.State
	delta zode.State
}

func NewImplicitEuler() *ImplicitEuler {
	return &ImplicitEuler{tol: 1e-10, maxIter: 8}
}

func (ie *ImplicitEuler) ensureScratch(n int) {
	if ie.dim != n {
		ie.dim = n
		ie.a = linalg.NewDense(n)
		ie.basis = make(zode.State, n)
		ie.colM = make(zode.State, n)
		ie.colJ = make(zode.State, n)
		ie.g = make(zode.State, n)
		ie.diff = make(zode.State, n)
		ie.resid = make(zode.State, n)
		ie.delta = make(zode.State, n)
	}
}

func (ie *ImplicitEuler) Step(sys zode.System, z zode.State, t, dt float64) (zode.State, error) {
	n := len(z)
	ie.ensureScratch(n)
	t1 := t + dt
	h := complex(dt, 0)

	// Predictor: explicit Euler on the solved form M·ż = g.
	if err := sys.Derive(ie.g, z, t); err != nil {
		return nil, err
	}
	if err := ie.assembleMass(sys, z, t); err != nil {
		return nil, err
	}
	f, err := ie.a.Factor()
	if err != nil {
		return nil, ie.conditionErr(err)
	}
	if err := f.Solve(ie.diff, ie.g); err != nil {
		return nil, err
	}
	z1 := make(zode.State, n)
	for i := 0; i < n; i++ {
		z1[i] = z[i] + h*ie.diff[i]
	}

	// Frozen Newton matrix A = M − dt·J at the predictor point.
	if err := ie.assembleStage(sys, z1, t1, dt); err != nil {
		return nil, err
	}
	f, err = ie.a.Factor()
	if err != nil {
		return nil, ie.conditionErr(err)
	}

	for iter := 0; iter < ie.maxIter; iter++ {
		for i := 0; i < n; i++ {
			ie.diff[i] = z1[i] - z[i]
		}
		if err := zode.ApplyMass(sys, ie.resid, ie.diff, z1, t1); err != nil {
			return nil, err
		}
		if err := sys.Derive(ie.g, z1, t1); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			ie.resid[i] -= h * ie.g[i]
		}
		if err := f.Solve(ie.delta, ie.resid); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			z1[i] -= ie.delta[i]
		}
		if ie.delta.Norm() <= ie.tol*(1.0+z1.Norm()) {
			return z1, nil
		}
	}
	return nil, zode.ErrNoConvergence
}

// assembleMass fills the scratch matrix with M(z,t), one column per basis
// vector.
func (ie *ImplicitEuler) assembleMass(sys zode.System, z zode.State, t float64) error {
	n := ie.dim
	for j := 0; j < n; j++ {
		ie.basis[j] = 1
		if err := zode.ApplyMass(sys, ie.colM, ie.basis, z, t); err != nil {
			ie.basis[j] = 0
			return err
		}
		ie.basis[j] = 0
		for i := 0; i < n; i++ {
			ie.a.Set(i, j, ie.colM[i])
		}
	}
	return nil
}

// assembleStage fills the scratch matrix with M(z,t) − dt·J(z,t).
func (ie *ImplicitEuler) assembleStage(sys zode.System, z zode.State, t, dt float64) error {
	n := ie.dim
	h := complex(dt, 0)
	for j := 0; j < n; j++ {
		ie.basis[j] = 1
		errM := zode.ApplyMass(sys, ie.colM, ie.basis, z, t)
		errJ := zode.ApplyJacobian(sys, ie.colJ, ie.basis, z, t)
		ie.basis[j] = 0
		if errM != nil {
			return errM
		}
		if errJ != nil {
			return errJ
		}
		for i := 0; i < n; i++ {
			ie.a.Set(i, j, ie.colM[i]-h*ie.colJ[i])
		}
	}
	return nil
}

func (ie *ImplicitEuler) conditionErr(err error) error {
	if errors.Is(err, linalg.ErrSingular) {
		return fmt.Errorf("implicit stage matrix: %w", zode.ErrIllConditioned)
	}
	return err
}
