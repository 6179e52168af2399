package integrators

import "github.com/rowhit/polypath/internal/zode"

type Euler struct {
	f zode.State
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys zode.System, z zode.State, t, dt float64) (zode.State, error) {
	if _, ok := sys.(zode.Implicit); ok {
		return nil, zode.ErrImplicitForm
	}
	n := len(z)
	if len(e.f) != n {
		e.f = make(zode.State, n)
	}
	if err := sys.Derive(e.f, z, t); err != nil {
		return nil, err
	}
	result := make(zode.State, n)
	h := complex(dt, 0)
	for i := 0; i < n; i++ {
		result[i] = z[i] + h*e.f[i]
	}
	return result, nil
}
