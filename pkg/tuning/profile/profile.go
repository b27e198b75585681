// Package profile maps symmetric rectangular undercuts to a bar height
// function and to the per-element heights consumed by the solvers.
package profile

import (
	"math"
	"sort"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// probeOffset is the distance either side of a cut boundary at which the
// step heights are sampled.
const probeOffset = 1e-4

// Discontinuity is a height step located at Pos.
type Discontinuity struct {
	Pos     float64
	HBefore float64
	HAfter  float64
}

// Height returns the bar thickness at x. Among the cuts containing x the
// innermost one wins; outside every cut the bar keeps h0.
func Height(x float64, cuts []framework.Cut, l, h0 float64) float64 {
	d := math.Abs(x - l/2)
	h := h0
	innermost := math.Inf(1)
	for _, c := range cuts {
		if c.Lambda > 0 && d <= c.Lambda && c.Lambda < innermost {
			innermost = c.Lambda
			h = c.H
		}
	}
	return h
}

// Discontinuities lists the height steps of the profile ordered by position.
func Discontinuities(cuts []framework.Cut, l, h0 float64) []Discontinuity {
	center := l / 2
	var out []Discontinuity
	for _, c := range cuts {
		if c.Lambda <= 0 {
			continue
		}
		for _, pos := range [2]float64{center - c.Lambda, center + c.Lambda} {
			before := Height(pos-probeOffset, cuts, l, h0)
			after := Height(pos+probeOffset, cuts, l, h0)
			if math.Abs(before-after) > 1e-9 {
				out = append(out, Discontinuity{Pos: pos, HBefore: before, HAfter: after})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

// Discretize returns numElements element heights over a uniform partition
// of [0, l]. Elements straddling a step use the quadratic blend
// sqrt((h1²·dx1 + h2²·dx2)/(dx1+dx2)); all others use the midpoint height.
func Discretize(cuts []framework.Cut, l, h0 float64, numElements int) []float64 {
	if numElements <= 0 {
		return nil
	}
	steps := Discontinuities(cuts, l, h0)
	le := l / float64(numElements)
	heights := make([]float64, numElements)
	for i := range heights {
		x0 := float64(i) * le
		x1 := float64(i+1) * le
		heights[i] = elementHeight(x0, x1, steps, cuts, l, h0)
	}
	return heights
}

func elementHeight(x0, x1 float64, steps []Discontinuity, cuts []framework.Cut, l, h0 float64) float64 {
	for _, s := range steps {
		if s.Pos > x0 && s.Pos < x1 {
			return blend(s.HBefore, s.HAfter, s.Pos-x0, x1-s.Pos)
		}
	}
	return Height((x0+x1)/2, cuts, l, h0)
}

func blend(h1, h2, dx1, dx2 float64) float64 {
	return math.Sqrt((h1*h1*dx1 + h2*h2*dx2) / (dx1 + dx2))
}

// Point is a sample of the profile.
type Point struct {
	X float64 `json:"x"`
	H float64 `json:"h"`
}

// Points samples the profile at numPoints+1 evenly spaced positions plus a
// pair of points straddling every cut edge.
func Points(cuts []framework.Cut, l, h0 float64, numPoints int) []Point {
	pts := make([]Point, 0, numPoints+1+4*len(cuts))
	for i := 0; i <= numPoints; i++ {
		x := float64(i) / float64(numPoints) * l
		pts = append(pts, Point{X: x, H: Height(x, cuts, l, h0)})
	}
	eps := l / 10000
	for _, c := range cuts {
		for _, edge := range [2]float64{l/2 - c.Lambda, l/2 + c.Lambda} {
			if edge <= 0 || edge >= l {
				continue
			}
			pts = append(pts,
				Point{X: edge - eps, H: Height(edge-eps, cuts, l, h0)},
				Point{X: edge + eps, H: Height(edge+eps, cuts, l, h0)})
		}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	return pts
}
