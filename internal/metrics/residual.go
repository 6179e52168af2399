package metrics

import (
	"github.com/rowhit/polypath/internal/track"
	"github.com/rowhit/polypath/internal/zode"
)

// Residual watches how far the tracked point drifts off the solution curve.
// It evaluates H at every accepted step and reports the worst norm seen.
type Residual struct {
	name    string
	prob    track.Problem
	scratch zode.State
	max     float64
	samples int
}

func NewResidual(prob track.Problem) *Residual {
	return &Residual{
		name:    "residual",
		prob:    prob,
		scratch: make(zode.State, prob.Dimension()),
	}
}

func (r *Residual) Name() string { return r.name }

func (r *Residual) Observe(z zode.State, t float64) {
	if len(z) != len(r.scratch) {
		return
	}
	if err := r.prob.Eval(r.scratch, z, t); err != nil {
		return
	}
	r.samples++
	if v := r.scratch.Norm(); v > r.max {
		r.max = v
	}
}

func (r *Residual) Value() float64 {
	return r.max
}

func (r *Residual) Reset() {
	r.max = 0
	r.samples = 0
}
