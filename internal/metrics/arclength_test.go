package metrics

import (
	"math"
	"testing"

	"github.com/rowhit/polypath/internal/zode"
)

func TestArcLengthStraightLine(t *testing.T) {
	m := NewArcLength()

	step := complex(0.1, 0.2)
	for k := 0; k <= 10; k++ {
		m.Observe(zode.State{complex(float64(k), 0) * step}, float64(k)*0.1)
	}

	want := 10 * math.Sqrt(0.05)
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("expected arc length %g, got %g", want, m.Value())
	}
}

func TestArcLengthReset(t *testing.T) {
	m := NewArcLength()
	m.Observe(zode.State{0}, 0)
	m.Observe(zode.State{1}, 0.1)
	if m.Value() == 0 {
		t.Error("expected non-zero arc length")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero arc length after reset")
	}

	// The first point after a reset starts a new curve.
	m.Observe(zode.State{complex(100, 0)}, 0)
	if m.Value() != 0 {
		t.Errorf("expected zero after single point, got %g", m.Value())
	}
}

func TestMinStepFindsSmallest(t *testing.T) {
	m := NewMinStep()

	for _, tv := range []float64{0, 0.1, 0.15, 0.3, 0.31} {
		m.Observe(zode.State{0}, tv)
	}

	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("expected min step 0.01, got %g", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}
