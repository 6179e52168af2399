package zode

import (
	"errors"
	"fmt"
)

// Domain errors for complex ODE evaluation and stepping.
var (
	// ErrIndexRange indicates a component index outside [0, dimension).
	ErrIndexRange = errors.New("zode: component index out of range")

	// ErrDimensionMismatch indicates a vector whose length disagrees with
	// the system dimension.
	ErrDimensionMismatch = errors.New("zode: dimension mismatch between vector and system")

	// ErrZeroDimension indicates construction of a zero-component system.
	ErrZeroDimension = errors.New("zode: system dimension must be positive")

	// ErrIllConditioned indicates a singular or near-singular linear solve.
	ErrIllConditioned = errors.New("zode: ill-conditioned Jacobian solve")

	// ErrImplicitForm indicates an implicit-form system handed to an
	// integrator that assumes dz/dt = Derive.
	ErrImplicitForm = errors.New("zode: explicit integrator requires a solved-form system")

	// ErrInvalidState indicates NaN or Inf components after a step.
	ErrInvalidState = errors.New("zode: invalid state (NaN or Inf detected)")

	// ErrStepRejected indicates a trial step whose error estimate exceeded
	// the tolerance. The suggested retry size accompanies it on the
	// StepAdaptive return.
	ErrStepRejected = errors.New("zode: trial step rejected by error control")

	// ErrStepTooSmall indicates the step size fell below the minimum.
	ErrStepTooSmall = errors.New("zode: step size below minimum")

	// ErrMaxSteps indicates the step budget ran out before t reached the end.
	ErrMaxSteps = errors.New("zode: step budget exhausted")

	// ErrNoConvergence indicates an implicit stage iteration failed to settle.
	ErrNoConvergence = errors.New("zode: corrector iteration did not converge")
)

// StepError wraps an error with the step at which it occurred.
type StepError struct {
	Step    int
	T       float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.T, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
