package zode

import (
	"context"
	"errors"
	"fmt"
)

// Solver drives one System from t=0 to cfg.TEnd with a single integrator.
// Adaptive integrators report a rejected trial step as ErrStepRejected and
// the solver retries it at the suggested size; stop decisions live in the
// system's Monitor.
type Solver struct {
	sys       System
	integ     Integrator
	metrics   []Metric
	observers []Observer
}

func New(sys System, integ Integrator) *Solver {
	return &Solver{
		sys:       sys,
		integ:     integ,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Solver) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Solver) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Solver) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	n := s.sys.Dimension()
	if n <= 0 {
		return nil, ErrZeroDimension
	}

	result := &Result{
		States:  make([]State, 0, cfg.MaxSteps/8+2),
		Times:   make([]float64, 0, cfg.MaxSteps/8+2),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	z := make(State, n)
	if err := Seed(s.sys, z); err != nil {
		return nil, err
	}
	t := 0.0
	dt := cfg.Dt

	result.States = append(result.States, z.Clone())
	result.Times = append(result.Times, t)
	for _, m := range s.metrics {
		m.Observe(z, t)
	}

	adaptive, canAdapt := s.integ.(AdaptiveIntegrator)

	for t < cfg.TEnd {
		select {
		case <-ctx.Done():
			result.Final = z.Clone()
			result.FinalT = t
			return result, ctx.Err()
		default:
		}

		if result.StepsTaken >= cfg.MaxSteps {
			result.Errors = append(result.Errors, &StepError{Step: result.StepsTaken, T: t, Wrapped: ErrMaxSteps})
			break
		}

		h := dt
		if lim, ok := s.sys.(StepLimiter); ok {
			if m := lim.MaxStep(t); m > 0 && h > m {
				h = m
			}
		}
		if h > cfg.MaxDt {
			h = cfg.MaxDt
		}
		final := false
		if t+h >= cfg.TEnd {
			h = cfg.TEnd - t
			final = true
		}

		var zNew State
		var err error
		hNext := dt
		if cfg.Adaptive && canAdapt {
			zNew, hNext, err = adaptive.StepAdaptive(s.sys, z, t, h, cfg.Tolerance)
		} else {
			zNew, err = s.integ.Step(s.sys, z, t, h)
		}
		if err == nil && cfg.ValidateState && !zNew.IsValid() {
			err = ErrInvalidState
		}

		if errors.Is(err, ErrStepRejected) {
			result.Rejected++
			dt = hNext
			if dt < cfg.MinDt {
				result.Errors = append(result.Errors, &StepError{Step: result.StepsTaken, T: t, Wrapped: ErrStepTooSmall})
				result.Stopped = true
				break
			}
			continue
		}

		if err != nil {
			result.Faults++
			retry := false
			if fh, ok := s.sys.(FaultHandler); ok {
				retry = fh.OnFault(z, t, err)
			}
			if !retry {
				result.Errors = append(result.Errors, &StepError{Step: result.StepsTaken, T: t, Wrapped: err})
				result.Stopped = true
				break
			}
			dt = h / 2
			if dt < cfg.MinDt {
				result.Errors = append(result.Errors, &StepError{Step: result.StepsTaken, T: t, Wrapped: ErrStepTooSmall})
				result.Stopped = true
				break
			}
			continue
		}

		z = zNew
		if final {
			t = cfg.TEnd
		} else {
			t += h
		}
		result.StepsTaken++
		dt = clamp(hNext, cfg.MinDt, cfg.MaxDt)

		result.States = append(result.States, z.Clone())
		result.Times = append(result.Times, t)
		for _, m := range s.metrics {
			m.Observe(z, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(z, t)
		}

		if mon, ok := s.sys.(Monitor); ok {
			if !mon.AfterStep(z, t, final) {
				result.Stopped = true
				break
			}
		}
		if final {
			break
		}
	}

	result.Final = z.Clone()
	result.FinalT = t
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

func (s *Solver) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", cfg.Dt)
	}
	if cfg.TEnd <= 0 {
		return fmt.Errorf("t-end must be positive, got %g", cfg.TEnd)
	}
	if cfg.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be positive, got %d", cfg.MaxSteps)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
