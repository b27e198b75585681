package profile

import (
	"math"
	"sort"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// MeshOptions controls the adaptive 1D partition.
type MeshOptions struct {
	// BaseElements is the element count of the equivalent uniform mesh.
	BaseElements int
	// RefinementFactor divides the base element size near cut edges.
	RefinementFactor float64
	// TransitionWidth is the refined zone half-width as a fraction of L.
	TransitionWidth float64
}

// DefaultMeshOptions returns the usual adaptive settings.
func DefaultMeshOptions() MeshOptions {
	return MeshOptions{BaseElements: 60, RefinementFactor: 4, TransitionWidth: 0.02}
}

// Mesh is a non-uniform 1D partition of the bar with one height per element.
type Mesh struct {
	// X holds len(Heights)+1 increasing node positions from 0 to L.
	X       []float64
	Heights []float64
}

// NumElements returns the element count.
func (m Mesh) NumElements() int {
	return len(m.Heights)
}

// AdaptiveMesh builds a partition of [0, l] that uses elements of size
// baseSize/refinementFactor within transitionWidth·l of any cut edge and
// baseSize elsewhere. The last node is exactly l.
func AdaptiveMesh(cuts []framework.Cut, l, h0 float64, opts MeshOptions) Mesh {
	if opts.BaseElements <= 0 {
		opts.BaseElements = DefaultMeshOptions().BaseElements
	}
	if opts.RefinementFactor < 1 {
		opts.RefinementFactor = 1
	}

	var edges []float64
	for _, c := range cuts {
		if c.Lambda > 0 {
			edges = append(edges, l/2-c.Lambda, l/2+c.Lambda)
		}
	}
	sort.Float64s(edges)

	zone := opts.TransitionWidth * l
	near := func(x float64) bool {
		for _, e := range edges {
			if math.Abs(x-e) < zone {
				return true
			}
		}
		return false
	}

	baseDx := l / float64(opts.BaseElements)
	fineDx := baseDx / opts.RefinementFactor

	xs := []float64{0}
	x := 0.0
	for x < l-1e-10 {
		dx := baseDx
		if near(x) || near(x+baseDx) {
			dx = fineDx
		}
		if x+dx > l {
			dx = l - x
		}
		x += dx
		if x <= l {
			xs = append(xs, x)
		}
	}
	// Snap rounding drift so the partition covers [0, l] exactly.
	xs[len(xs)-1] = l

	steps := Discontinuities(cuts, l, h0)
	heights := make([]float64, len(xs)-1)
	for i := range heights {
		heights[i] = elementHeight(xs[i], xs[i+1], steps, cuts, l, h0)
	}
	return Mesh{X: xs, Heights: heights}
}
