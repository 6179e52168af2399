package zode

import "math"

// fdStep balances truncation against roundoff for forward differences.
var fdStep = math.Sqrt(2.2e-16)

// ApplyMass writes M(z,t)·x into dst. Systems without an implicit mass
// matrix get the identity: dst = x.
func ApplyMass(sys System, dst, x, z State, t float64) error {
	if im, ok := sys.(Implicit); ok {
		return im.MassProduct(dst, x, z, t)
	}
	if len(dst) != len(x) {
		return ErrDimensionMismatch
	}
	copy(dst, x)
	return nil
}

// ApplyJacobian writes (∂f/∂z)·u into dst. Systems without an analytic
// product fall back to a forward difference of Derive along u.
func ApplyJacobian(sys System, dst, u, z State, t float64) error {
	if im, ok := sys.(Implicit); ok {
		return im.JacobianProduct(dst, u, z, t)
	}

	n := sys.Dimension()
	if len(dst) != n || len(u) != n || len(z) != n {
		return ErrDimensionMismatch
	}

	h := fdStep * (1.0 + z.Norm())
	zp := make(State, n)
	for i := range z {
		zp[i] = z[i] + complex(h, 0)*u[i]
	}

	f0 := make(State, n)
	if err := sys.Derive(f0, z, t); err != nil {
		return err
	}
	if err := sys.Derive(dst, zp, t); err != nil {
		return err
	}
	inv := complex(1.0/h, 0)
	for i := range dst {
		dst[i] = (dst[i] - f0[i]) * inv
	}
	return nil
}

// Seed fills dst from the system's initial values.
func Seed(sys System, dst State) error {
	n := sys.Dimension()
	if len(dst) != n {
		return ErrDimensionMismatch
	}
	for i := 0; i < n; i++ {
		v, err := sys.Initial(i)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}
