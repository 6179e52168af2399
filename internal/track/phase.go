package track

import "github.com/rowhit/polypath/internal/zode"

// Phase is the tracking state of one path. Paths start in PhaseTracking and
// may move to PhaseEndgame once; there is no way back.
type Phase uint8

const (
	PhaseTracking Phase = iota
	PhaseEndgame
)

func (p Phase) String() string {
	switch p {
	case PhaseTracking:
		return "tracking"
	case PhaseEndgame:
		return "endgame"
	default:
		return "unknown"
	}
}

// Verdict classifies a finished path. It is the result tag reported next to
// the final value when a path stops; it is never an error.
type Verdict uint8

const (
	VerdictPending Verdict = iota
	VerdictConverged
	VerdictDiverged
	VerdictExhausted
)

func (v Verdict) String() string {
	switch v {
	case VerdictPending:
		return "pending"
	case VerdictConverged:
		return "converged"
	case VerdictDiverged:
		return "diverged"
	case VerdictExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Snapshot is what the transition policy sees after each accepted step.
type Snapshot struct {
	Z            zode.State
	T            float64
	Dt           float64 // observed accepted-step size
	Residual     float64 // |H(z,t)|
	Speed        float64 // |dz/dt| estimate, NaN when the tangent solve failed
	Steps        int
	EndgameSteps int
	Final        bool
}

// Policy decides when a path leaves ordinary tracking for the endgame and
// when the endgame is over. Every threshold belongs to the driver's
// configuration; this package only defines the slot.
type Policy interface {
	// EnterEndgame reports whether the path should switch to the endgame.
	// Consulted only while the path is still tracking.
	EnterEndgame(s Snapshot) bool

	// Judge returns VerdictPending to keep going, anything else to stop the
	// path with that classification. Consulted in both phases.
	Judge(s Snapshot) Verdict

	// EndgameStep caps the step size during the endgame. Zero means no cap.
	EndgameStep() float64
}

// neverPolicy is the default when no policy is injected: run to t=1 and
// accept whatever is there, mirroring an update hook that always continues.
type neverPolicy struct{}

func (neverPolicy) EnterEndgame(Snapshot) bool { return false }
func (neverPolicy) Judge(Snapshot) Verdict     { return VerdictPending }
func (neverPolicy) EndgameStep() float64       { return 0 }
