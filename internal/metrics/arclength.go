package metrics

import (
	"math"

	"github.com/rowhit/polypath/internal/zode"
)

// ArcLength accumulates the length of the polygonal curve through the
// accepted steps. Long arcs flag paths that wander before settling.
type ArcLength struct {
	name string
	prev zode.State
	got  bool
	sum  float64
}

func NewArcLength() *ArcLength {
	return &ArcLength{name: "arc_length"}
}

func (a *ArcLength) Name() string { return a.name }

func (a *ArcLength) Observe(z zode.State, t float64) {
	if a.got && len(z) == len(a.prev) {
		var d2 float64
		for i, v := range z {
			dr := real(v) - real(a.prev[i])
			di := imag(v) - imag(a.prev[i])
			d2 += dr*dr + di*di
		}
		a.sum += math.Sqrt(d2)
	}
	if len(a.prev) != len(z) {
		a.prev = make(zode.State, len(z))
	}
	copy(a.prev, z)
	a.got = true
}

func (a *ArcLength) Value() float64 {
	return a.sum
}

func (a *ArcLength) Reset() {
	a.got = false
	a.sum = 0
}
