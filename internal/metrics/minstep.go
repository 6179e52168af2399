package metrics

import "github.com/rowhit/polypath/internal/zode"

// MinStep records the smallest accepted step size. A tiny value means the
// controller was fighting a near-singular stretch of the path.
type MinStep struct {
	name    string
	lastT   float64
	samples int
	min     float64
}

func NewMinStep() *MinStep {
	return &MinStep{name: "min_step"}
}

func (m *MinStep) Name() string { return m.name }

func (m *MinStep) Observe(z zode.State, t float64) {
	if m.samples > 0 {
		if dt := t - m.lastT; dt > 0 && (m.min == 0 || dt < m.min) {
			m.min = dt
		}
	}
	m.lastT = t
	m.samples++
}

func (m *MinStep) Value() float64 {
	return m.min
}

func (m *MinStep) Reset() {
	m.lastT = 0
	m.samples = 0
	m.min = 0
}
