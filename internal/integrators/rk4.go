package integrators

import "github.com/rowhit/polypath/internal/zode"

type RK4 struct {
	k1, k2, k3, k4 zode.State
	scratch        zode.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(zode.State, n)
		r.k2 = make(zode.State, n)
		r.k3 = make(zode.State, n)
		r.k4 = make(zode.State, n)
		r.scratch = make(zode.State, n)
	}
}

func (r *RK4) Step(sys zode.System, z zode.State, t, dt float64) (zode.State, error) {
	if _, ok := sys.(zode.Implicit); ok {
		return nil, zode.ErrImplicitForm
	}
	n := len(z)
	r.ensureScratch(n)

	if err := sys.Derive(r.k1, z, t); err != nil {
		return nil, err
	}

	half := complex(dt*0.5, 0)
	for i := 0; i < n; i++ {
		r.scratch[i] = z[i] + half*r.k1[i]
	}
	if err := sys.Derive(r.k2, r.scratch, t+dt*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = z[i] + half*r.k2[i]
	}
	if err := sys.Derive(r.k3, r.scratch, t+dt*0.5); err != nil {
		return nil, err
	}

	full := complex(dt, 0)
	for i := 0; i < n; i++ {
		r.scratch[i] = z[i] + full*r.k3[i]
	}
	if err := sys.Derive(r.k4, r.scratch, t+dt); err != nil {
		return nil, err
	}

	result := make(zode.State, n)
	dt6 := complex(dt/6.0, 0)
	for i := 0; i < n; i++ {
		result[i] = z[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return result, nil
}
