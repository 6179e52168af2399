package integrators

import (
	"errors"
	"math/cmplx"
	"testing"

	"github.com/rowhit/polypath/internal/zode"
)

// scaledRotator is 2·dz/dt = 2i·z in implicit form; the solution is the
// same e^{it} as the plain rotator, but every step must go through the
// mass and Jacobian products.
type scaledRotator struct{ rotator }

func (scaledRotator) Derive(dst, z zode.State, t float64) error {
	dst[0] = 2i * z[0]
	return nil
}

func (scaledRotator) MassProduct(dst, x, z zode.State, t float64) error {
	dst[0] = 2 * x[0]
	return nil
}

func (scaledRotator) JacobianProduct(dst, u, z zode.State, t float64) error {
	dst[0] = 2i * u[0]
	return nil
}

// zeroMass has a singular mass matrix, so the stage solve must fail.
type zeroMass struct{ rotator }

func (zeroMass) MassProduct(dst, x, z zode.State, t float64) error {
	dst[0] = 0
	return nil
}

func (zeroMass) JacobianProduct(dst, u, z zode.State, t float64) error {
	dst[0] = 0
	return nil
}

func TestImplicitEulerExplicitSystem(t *testing.T) {
	integ := NewImplicitEuler()
	z := zode.State{1}
	dt := 1e-3
	steps := 1000

	var err error
	for i := 0; i < steps; i++ {
		z, err = integ.Step(rotator{}, z, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := cmplx.Exp(complex(0, 1))
	if e := cmplx.Abs(z[0] - want); e > 2e-3 {
		t.Errorf("first-order error too large: %e", e)
	}
}

func TestImplicitEulerMassForm(t *testing.T) {
	integ := NewImplicitEuler()
	z := zode.State{1}
	dt := 1e-3
	steps := 1000

	var err error
	for i := 0; i < steps; i++ {
		z, err = integ.Step(scaledRotator{}, z, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := cmplx.Exp(complex(0, 1))
	if e := cmplx.Abs(z[0] - want); e > 2e-3 {
		t.Errorf("mass-form error too large: %e", e)
	}
}

func TestImplicitEulerSingularMass(t *testing.T) {
	_, err := NewImplicitEuler().Step(zeroMass{}, zode.State{1}, 0, 1e-3)
	if !errors.Is(err, zode.ErrIllConditioned) {
		t.Errorf("singular mass: got %v, want %v", err, zode.ErrIllConditioned)
	}
}

func TestImplicitEulerAgreesWithEuler(t *testing.T) {
	// Backward and forward Euler bracket the exact solution at first
	// order, so over one unit of time they should sit within a few dt of
	// each other.
	fe := NewEuler()
	be := NewImplicitEuler()
	zf := zode.State{1}
	zb := zode.State{1}
	dt := 1e-3

	var err error
	for i := 0; i < 1000; i++ {
		zf, err = fe.Step(rotator{}, zf, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("forward step %d: %v", i, err)
		}
		zb, err = be.Step(rotator{}, zb, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("backward step %d: %v", i, err)
		}
	}

	if d := cmplx.Abs(zf[0] - zb[0]); d > 5e-3 {
		t.Errorf("forward/backward Euler disagree by %e", d)
	}
}
