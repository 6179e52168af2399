package integrators

import (
	"math"
	"math/cmplx"

	"github.com/rowhit/polypath/internal/zode"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the adaptive Dormand-Prince pair. StepAdaptive takes exactly one
// trial step: when the error estimate exceeds the tolerance it returns
// zode.ErrStepRejected together with the suggested smaller size, and the
// caller decides whether to retry.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	rejects  int

	pool *zode.StatePool
	dim  int
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Rejections reports how many trial steps this integrator has rejected.
func (r *RK45) Rejections() int { return r.rejects }

func (r *RK45) Step(sys zode.System, z zode.State, t, dt float64) (zode.State, error) {
	zNew, _, err := r.trial(sys, z, t, dt)
	return zNew, err
}

func (r *RK45) StepAdaptive(sys zode.System, z zode.State, t, dt, tol float64) (zode.State, float64, error) {
	zNew, errMax, err := r.trial(sys, z, t, dt)
	if err != nil {
		return nil, dt, err
	}

	errRatio := errMax / tol
	if errRatio > 1 {
		r.rejects++
		shrink := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		return nil, dt * shrink, zode.ErrStepRejected
	}

	var dtNext float64
	if errRatio > 0 {
		dtNext = dt * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	} else {
		dtNext = dt * r.maxScale
	}
	return zNew, dtNext, nil
}

// trial evaluates the seven stages once and returns the fifth-order result
// with the scaled error estimate of the embedded fourth-order solution.
func (r *RK45) trial(sys zode.System, z zode.State, t, dt float64) (zode.State, float64, error) {
	if _, ok := sys.(zode.Implicit); ok {
		return nil, 0, zode.ErrImplicitForm
	}
	n := len(z)
	if r.pool == nil || r.dim != n {
		r.pool = zode.NewStatePool(n)
		r.dim = n
	}

	k1 := r.pool.Get()
	k2 := r.pool.Get()
	k3 := r.pool.Get()
	k4 := r.pool.Get()
	k5 := r.pool.Get()
	k6 := r.pool.Get()
	k7 := r.pool.Get()
	stage := r.pool.Get()
	defer func() {
		for _, s := range []zode.State{k1, k2, k3, k4, k5, k6, k7, stage} {
			r.pool.Put(s)
		}
	}()

	if err := sys.Derive(k1, z, t); err != nil {
		return nil, 0, err
	}

	h := complex(dt, 0)

	for i := 0; i < n; i++ {
		stage[i] = z[i] + h*complex(b21, 0)*k1[i]
	}
	if err := sys.Derive(k2, stage, t+a2*dt); err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		stage[i] = z[i] + h*(complex(b31, 0)*k1[i]+complex(b32, 0)*k2[i])
	}
	if err := sys.Derive(k3, stage, t+a3*dt); err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		stage[i] = z[i] + h*(complex(b41, 0)*k1[i]+complex(b42, 0)*k2[i]+complex(b43, 0)*k3[i])
	}
	if err := sys.Derive(k4, stage, t+a4*dt); err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		stage[i] = z[i] + h*(complex(b51, 0)*k1[i]+complex(b52, 0)*k2[i]+complex(b53, 0)*k3[i]+complex(b54, 0)*k4[i])
	}
	if err := sys.Derive(k5, stage, t+a5*dt); err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		stage[i] = z[i] + h*(complex(b61, 0)*k1[i]+complex(b62, 0)*k2[i]+complex(b63, 0)*k3[i]+complex(b64, 0)*k4[i]+complex(b65, 0)*k5[i])
	}
	if err := sys.Derive(k6, stage, t+dt); err != nil {
		return nil, 0, err
	}

	zNew := make(zode.State, n)
	for i := 0; i < n; i++ {
		zNew[i] = z[i] + h*(complex(c1, 0)*k1[i]+complex(c3, 0)*k3[i]+complex(c4, 0)*k4[i]+complex(c5, 0)*k5[i]+complex(c6, 0)*k6[i])
	}

	if err := sys.Derive(k7, zNew, t+dt); err != nil {
		return nil, 0, err
	}

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (complex(dc1, 0)*k1[i] + complex(dc3, 0)*k3[i] + complex(dc4, 0)*k4[i] + complex(dc5, 0)*k5[i] + complex(dc6, 0)*k6[i] + complex(dc7, 0)*k7[i])
		scale := cmplx.Abs(z[i]) + math.Abs(dt)*cmplx.Abs(k1[i]) + 1e-10
		errMax = math.Max(errMax, cmplx.Abs(errEst)/scale)
	}

	return zNew, errMax, nil
}
