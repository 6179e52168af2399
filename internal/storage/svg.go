package storage

import (
	"fmt"
	"strings"

	"github.com/rowhit/polypath/internal/homotopy"
	"github.com/rowhit/polypath/internal/track"
)

// verdict stroke colors for SVG output.
var svgColors = map[track.Verdict]string{
	track.VerdictConverged: "#00ff88",
	track.VerdictDiverged:  "#ff4444",
	track.VerdictExhausted: "#ffaa00",
	track.VerdictPending:   "#8888aa",
}

// PathsToSVG renders the trajectories of one coordinate in the complex
// plane, one polyline per path, stroke-colored by verdict. Returns "" when
// no path has at least two trace points.
func PathsToSVG(results []homotopy.PathResult, component, width, height int) string {
	minRe, maxRe, minIm, maxIm := 0.0, 0.0, 0.0, 0.0
	found := false
	for _, r := range results {
		for _, z := range r.States {
			if component >= len(z) {
				continue
			}
			re, im := real(z[component]), imag(z[component])
			if !found {
				minRe, maxRe, minIm, maxIm = re, re, im, im
				found = true
				continue
			}
			if re < minRe {
				minRe = re
			}
			if re > maxRe {
				maxRe = re
			}
			if im < minIm {
				minIm = im
			}
			if im > maxIm {
				maxIm = im
			}
		}
	}
	if !found {
		return ""
	}

	rangeRe := maxRe - minRe
	rangeIm := maxIm - minIm
	if rangeRe == 0 {
		rangeRe = 1
	}
	if rangeIm == 0 {
		rangeIm = 1
	}
	minRe -= rangeRe * 0.1
	maxRe += rangeRe * 0.1
	minIm -= rangeIm * 0.1
	maxIm += rangeIm * 0.1
	rangeRe = maxRe - minRe
	rangeIm = maxIm - minIm

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	project := func(v complex128) (float64, float64) {
		x := (real(v) - minRe) / rangeRe * float64(width)
		y := float64(height) - (imag(v)-minIm)/rangeIm*float64(height)
		return x, y
	}

	wrote := false
	for _, r := range results {
		if len(r.States) < 2 {
			continue
		}
		color, ok := svgColors[r.Verdict]
		if !ok {
			color = svgColors[track.VerdictPending]
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color))
		for i, z := range r.States {
			if component >= len(z) {
				break
			}
			x, y := project(z[component])
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")

		if len(r.Final) > component {
			x, y := project(r.Final[component])
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`+"\n", x, y, color))
		}
		wrote = true
	}
	if !wrote {
		return ""
	}

	sb.WriteString("</svg>")
	return sb.String()
}
