package zode

import (
	"math"
	"math/cmplx"
)

// State is a complex solution vector z.
type State []complex128

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(real(v)) || math.IsNaN(imag(v)) || cmplx.IsInf(v) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}

func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		if a := cmplx.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor complex128) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

// System is one complex ODE. Derive writes the right-hand side f(z,t) into
// dst; for explicit systems f is dz/dt, for systems that also implement
// [Implicit] it is the unsolved g in M(z,t)·dz/dt = g(z,t).
type System interface {
	Dimension() int
	Initial(i int) (complex128, error)
	Derive(dst State, z State, t float64) error
}

// Implicit marks systems whose Derive output is the unsolved right-hand side
// and whose mass and Jacobian products are meaningful. Integrators that
// assume dz/dt = Derive must refuse Implicit systems.
type Implicit interface {
	System

	// MassProduct writes y = M(z,t)·x into dst.
	MassProduct(dst, x, z State, t float64) error

	// JacobianProduct writes y = (∂f/∂z)·u into dst, consistent with
	// directional finite differences of Derive.
	JacobianProduct(dst, u, z State, t float64) error
}

// Monitor receives each accepted step. Returning false stops integration;
// no further Derive call is made for the system afterwards.
type Monitor interface {
	AfterStep(z State, t float64, final bool) bool
}

// FaultHandler receives recoverable numerical failures raised while stepping.
// Returning true asks the solver to retry with a smaller step.
type FaultHandler interface {
	OnFault(z State, t float64, err error) bool
}

// StepLimiter caps the step size a solver may attempt from time t.
// Zero or negative means no cap.
type StepLimiter interface {
	MaxStep(t float64) float64
}

type Integrator interface {
	Step(sys System, z State, t, dt float64) (State, error)
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, z State, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(z State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(z State, t float64)
}

type Config struct {
	Dt            float64
	MinDt         float64
	MaxDt         float64
	TEnd          float64
	Tolerance     float64
	MaxSteps      int
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		MinDt:         1e-12,
		MaxDt:         0.1,
		TEnd:          1.0,
		Tolerance:     1e-8,
		MaxSteps:      10000,
		Adaptive:      true,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Rejected   int
	Faults     int
	Stopped    bool
	Final      State
	FinalT     float64
	Errors     []error
}
