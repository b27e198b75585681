package beam

import (
	"context"
	"errors"
	"fmt"
	"math"

	"k8s.io/klog/v2"

	"github.com/marimba-lab/bartuner/pkg/tuning/fem"
	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// RigidThreshold is the ω² below which an eigenvalue is treated as a
// rigid-body mode.
const RigidThreshold = 1.0

// ErrDegenerateProfile is returned when no element can be formed.
var ErrDegenerateProfile = errors.New("degenerate beam profile")

// DefaultRetryPolicy scales the mass diagonal slightly before the first
// attempt and adds a fixed amount before the single retry.
var DefaultRetryPolicy = fem.RetryPolicy{
	{Relative: 1e-12, Floor: 1e-20},
	{Absolute: 1e-8},
}

// Assemble builds the global stiffness and mass matrices of a beam whose
// element i has length lengths[i] and thickness heights[i]. Adjacent
// elements share a node, so the system has 2(N+1) dofs and bandwidth 3.
func Assemble(lengths, heights []float64, b float64, m framework.Material) (*fem.System, *fem.System, error) {
	if len(heights) == 0 || len(lengths) != len(heights) {
		return nil, nil, fmt.Errorf("%w: %d lengths for %d heights", ErrDegenerateProfile, len(lengths), len(heights))
	}
	n := 2 * (len(heights) + 1)
	k := fem.NewBandSystem(n, 3)
	mm := fem.NewBandSystem(n, 3)
	for i, h := range heights {
		if !(h > 0) || !(lengths[i] > 0) || !(b > 0) {
			return nil, nil, fmt.Errorf("%w: element %d has length %g, thickness %g, width %g",
				ErrDegenerateProfile, i, lengths[i], h, b)
		}
		el := Element{Le: lengths[i], H: h, B: b, Mat: m}
		dofs := Dofs(i)
		k.Scatter(dofs, el.Stiffness())
		mm.Scatter(dofs, el.Mass())
	}
	return k, mm, nil
}

// Frequencies returns the first numModes elastic natural frequencies in Hz
// of a bar of total length split into equal elements of the given heights.
func Frequencies(ctx context.Context, heights []float64, length, b float64, m framework.Material, numModes int) ([]float64, error) {
	if len(heights) == 0 {
		return nil, ErrDegenerateProfile
	}
	le := length / float64(len(heights))
	lengths := make([]float64, len(heights))
	for i := range lengths {
		lengths[i] = le
	}
	return FrequenciesNonUniform(ctx, lengths, heights, b, m, numModes)
}

// FrequenciesOnMesh runs the solver on a non-uniform partition given by
// node positions xs (len(heights)+1 values).
func FrequenciesOnMesh(ctx context.Context, xs, heights []float64, b float64, m framework.Material, numModes int) ([]float64, error) {
	if len(xs) != len(heights)+1 {
		return nil, fmt.Errorf("%w: %d node positions for %d elements", ErrDegenerateProfile, len(xs), len(heights))
	}
	lengths := make([]float64, len(heights))
	for i := range lengths {
		lengths[i] = xs[i+1] - xs[i]
	}
	return FrequenciesNonUniform(ctx, lengths, heights, b, m, numModes)
}

// FrequenciesNonUniform is the general form of Frequencies with an explicit
// length per element.
func FrequenciesNonUniform(ctx context.Context, lengths, heights []float64, b float64, m framework.Material, numModes int) ([]float64, error) {
	k, mm, err := Assemble(lengths, heights, b, m)
	if err != nil {
		return nil, err
	}
	e, err := DefaultRetryPolicy.Solve(ctx, k.ToDense(), mm.ToDense(), fem.EigenOptions{})
	if err != nil {
		return nil, err
	}

	freqs := make([]float64, 0, numModes)
	for _, w2 := range e.Values {
		if w2 <= RigidThreshold {
			continue
		}
		freqs = append(freqs, math.Sqrt(w2)/(2*math.Pi))
		if len(freqs) == numModes {
			break
		}
	}
	klog.FromContext(ctx).V(5).Info("beam frequencies", "elements", len(heights), "frequencies", freqs)
	return freqs, nil
}
