package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vdesim/internal/sim"
)

const asciiHeight = 10

// RenderASCII draws the z trace (mm) and the normalized command as two
// stacked terminal charts of the given width.
func RenderASCII(h sim.History, width int) string {
	if h.Len() == 0 {
		return "no samples\n"
	}
	z := finite(h.Z, 1000)
	if len(z) == 0 {
		return "no finite samples\n"
	}

	zChart := asciigraph.Plot(z,
		asciigraph.Height(asciiHeight),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.Caption("z (mm)"))
	uChart := asciigraph.Plot(finite(h.U, 1),
		asciigraph.Height(asciiHeight/2),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.LowerBound(-1),
		asciigraph.UpperBound(1),
		asciigraph.Caption("u (normalized)"))
	return zChart + "\n\n" + uChart + "\n"
}

// finite scales vs and drops non-finite entries.
func finite(vs []float64, scale float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v*scale)
	}
	return out
}
