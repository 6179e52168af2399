package viz

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/guptarohit/asciigraph"

	"github.com/rowhit/polypath/internal/homotopy"
	"github.com/rowhit/polypath/internal/zode"
)

// plane maps a rectangle of the complex plane onto canvas sub-pixels, with
// the imaginary axis pointing up.
type plane struct {
	minRe, maxRe float64
	minIm, maxIm float64
	w, h         int
	empty        bool
}

func newPlane(w, h int) *plane {
	return &plane{w: w, h: h, empty: true}
}

func (p *plane) expand(v complex128) {
	re, im := real(v), imag(v)
	if p.empty {
		p.minRe, p.maxRe = re, re
		p.minIm, p.maxIm = im, im
		p.empty = false
		return
	}
	if re < p.minRe {
		p.minRe = re
	}
	if re > p.maxRe {
		p.maxRe = re
	}
	if im < p.minIm {
		p.minIm = im
	}
	if im > p.maxIm {
		p.maxIm = im
	}
}

// pad widens the bounds so curves stay off the border.
func (p *plane) pad() {
	rangeRe := p.maxRe - p.minRe
	rangeIm := p.maxIm - p.minIm
	if rangeRe == 0 {
		rangeRe = 1
	}
	if rangeIm == 0 {
		rangeIm = 1
	}
	p.minRe -= rangeRe * 0.1
	p.maxRe += rangeRe * 0.1
	p.minIm -= rangeIm * 0.1
	p.maxIm += rangeIm * 0.1
}

func (p *plane) point(v complex128) (int, int) {
	x := int((real(v) - p.minRe) / (p.maxRe - p.minRe) * float64(p.w-1))
	y := int((p.maxIm - imag(v)) / (p.maxIm - p.minIm) * float64(p.h-1))
	return x, y
}

// PlanePlot draws the trajectories of one coordinate across all paths in the
// complex plane. Endpoints are marked with a blob; the axes are drawn when
// they cross the view.
func PlanePlot(results []homotopy.PathResult, component, width, height int) string {
	pl := newPlane(width*2, height*4)
	for _, r := range results {
		for _, z := range r.States {
			if component < len(z) {
				pl.expand(z[component])
			}
		}
	}
	if pl.empty {
		return ""
	}
	pl.pad()

	c := NewCanvas(width, height)
	if pl.minRe < 0 && pl.maxRe > 0 {
		x, _ := pl.point(complex(0, pl.minIm))
		c.DrawLine(x, 0, x, pl.h-1)
	}
	if pl.minIm < 0 && pl.maxIm > 0 {
		_, y := pl.point(complex(pl.minRe, 0))
		c.DrawLine(0, y, pl.w-1, y)
	}

	for _, r := range results {
		if len(r.States) == 0 {
			continue
		}
		px, py := pl.point(r.States[0][component])
		for _, z := range r.States[1:] {
			if component >= len(z) {
				break
			}
			x, y := pl.point(z[component])
			c.DrawLine(px, py, x, y)
			px, py = x, y
		}
		c.Mark(px, py)
	}

	caption := fmt.Sprintf("z%d plane  re [%.3g, %.3g]  im [%.3g, %.3g]",
		component, pl.minRe, pl.maxRe, pl.minIm, pl.maxIm)
	return c.String() + caption + "\n"
}

// AbsSeries extracts |z_component| along a trace.
func AbsSeries(states []zode.State, component int) []float64 {
	data := make([]float64, 0, len(states))
	for _, z := range states {
		if component < len(z) {
			data = append(data, cmplx.Abs(z[component]))
		}
	}
	return data
}

// TracePlot charts |z_component| against the accepted steps of one path.
func TracePlot(states []zode.State, component, width, height int) string {
	data := AbsSeries(states, component)
	if len(data) < 2 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("|z%d| per accepted step", component)))
}

// ResidualPlot charts a residual series on a log10 scale. A residual of zero
// plots at the double-precision floor of -16.
func ResidualPlot(res []float64, width, height int) string {
	data := make([]float64, 0, len(res))
	for _, v := range res {
		switch {
		case v > 0 && !math.IsInf(v, 0):
			data = append(data, math.Log10(v))
		case v == 0:
			data = append(data, -16)
		}
	}
	if len(data) < 2 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("log10 |H| per accepted step"))
}
