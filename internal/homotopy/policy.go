package homotopy

import (
	"github.com/rowhit/polypath/internal/track"
)

// ThresholdPolicy is the standard endgame policy: plain thresholds on what
// the path reports after each accepted step. A zero value for any field
// disables that check.
type ThresholdPolicy struct {
	EnterT      float64 // enter the endgame once t reaches this
	MinStep     float64 // enter when the accepted step size falls below this
	SpeedLimit  float64 // enter when |dz/dt| exceeds this
	ResidualTol float64 // largest |H| at t=1 still counted as converged
	DivergeNorm float64 // diverged once |z| exceeds this
	MaxEndgame  int     // exhausted after this many endgame steps
	StepCap     float64 // step-size cap while in the endgame
}

// DefaultPolicy returns the thresholds used when a run does not configure
// its own.
func DefaultPolicy() *ThresholdPolicy {
	return &ThresholdPolicy{
		EnterT:      0.9,
		MinStep:     1e-6,
		ResidualTol: 1e-6,
		DivergeNorm: 1e8,
		MaxEndgame:  5000,
		StepCap:     0.01,
	}
}

func (p *ThresholdPolicy) EnterEndgame(s track.Snapshot) bool {
	if p.EnterT > 0 && s.T >= p.EnterT {
		return true
	}
	if p.MinStep > 0 && s.Dt > 0 && s.Dt < p.MinStep {
		return true
	}
	if p.SpeedLimit > 0 && s.Speed > p.SpeedLimit {
		return true
	}
	return false
}

func (p *ThresholdPolicy) Judge(s track.Snapshot) track.Verdict {
	if p.DivergeNorm > 0 && s.Z.Norm() > p.DivergeNorm {
		return track.VerdictDiverged
	}
	if p.MaxEndgame > 0 && s.EndgameSteps >= p.MaxEndgame {
		return track.VerdictExhausted
	}
	if s.Final {
		// Written so that a NaN residual fails the comparison and lands in
		// the exhausted bucket instead of converged.
		if p.ResidualTol > 0 && !(s.Residual <= p.ResidualTol) {
			return track.VerdictExhausted
		}
		return track.VerdictConverged
	}
	return track.VerdictPending
}

func (p *ThresholdPolicy) EndgameStep() float64 { return p.StepCap }

var _ track.Policy = (*ThresholdPolicy)(nil)
