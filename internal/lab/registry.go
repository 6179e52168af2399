package lab

import (
	"fmt"
	"sort"

	"github.com/rowhit/polypath/internal/homotopy"
	"github.com/rowhit/polypath/internal/integrators"
	"github.com/rowhit/polypath/internal/metrics"
	"github.com/rowhit/polypath/internal/zode"
)

// integratorEntry couples a factory with the form of the path model it
// needs. Implicit steppers get the mass-matrix form, explicit ones get the
// solved tangent form.
type integratorEntry struct {
	factory  func() zode.Integrator
	implicit bool
}

type Registry struct {
	integrators map[string]integratorEntry
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]integratorEntry),
	}

	r.integrators["euler"] = integratorEntry{
		factory: func() zode.Integrator { return integrators.NewEuler() },
	}
	r.integrators["rk4"] = integratorEntry{
		factory: func() zode.Integrator { return integrators.NewRK4() },
	}
	r.integrators["rk45"] = integratorEntry{
		factory: func() zode.Integrator { return integrators.NewRK45() },
	}
	r.integrators["ieuler"] = integratorEntry{
		factory:  func() zode.Integrator { return integrators.NewImplicitEuler() },
		implicit: true,
	}

	return r
}

// GetIntegrator returns the factory for name and whether the integrator
// wants the implicit path form.
func (r *Registry) GetIntegrator(name string) (func() zode.Integrator, bool, error) {
	e, ok := r.integrators[name]
	if !ok {
		return nil, false, fmt.Errorf("unknown integrator: %s", name)
	}
	return e.factory, e.implicit, nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics builds the per-path metric set for a run against h.
func (r *Registry) DefaultMetrics(h *homotopy.Homotopy) []func() zode.Metric {
	return []func() zode.Metric{
		func() zode.Metric { return metrics.NewResidual(h) },
		func() zode.Metric { return metrics.NewArcLength() },
		func() zode.Metric { return metrics.NewMinStep() },
	}
}
