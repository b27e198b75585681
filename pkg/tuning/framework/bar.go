package framework

import (
	"fmt"
	"math"
	"sort"
)

// BarParameters describes the blank bar geometry in metres.
type BarParameters struct {
	// L is the bar length.
	L float64 `json:"length"`
	// B is the bar width.
	B float64 `json:"width"`
	// H0 is the nominal thickness.
	H0 float64 `json:"thickness"`
	// HMin is the minimum thickness any cut may leave.
	HMin float64 `json:"minThickness"`
}

// Validate checks the geometric consistency of the bar.
func (b BarParameters) Validate() error {
	switch {
	case b.L <= 0:
		return fmt.Errorf("bar length must be > 0, got %g", b.L)
	case b.B <= 0:
		return fmt.Errorf("bar width must be > 0, got %g", b.B)
	case b.H0 <= 0:
		return fmt.Errorf("bar thickness must be > 0, got %g", b.H0)
	case b.HMin <= 0 || b.HMin > b.H0:
		return fmt.Errorf("minimum thickness must be in (0, %g], got %g", b.H0, b.HMin)
	}
	return nil
}

// WithLength returns a copy of the bar with a different length.
func (b BarParameters) WithLength(l float64) BarParameters {
	b.L = l
	return b
}

// Cut is a symmetric rectangular undercut. Lambda is measured from the bar
// centre; H is the thickness left inside the cut.
type Cut struct {
	Lambda float64 `json:"lambda"`
	H      float64 `json:"h"`
}

// SortCutsDescending orders cuts outermost first.
func SortCutsDescending(cuts []Cut) {
	sort.SliceStable(cuts, func(i, j int) bool {
		return cuts[i].Lambda > cuts[j].Lambda
	})
}

// Constraints restrict the search space beyond the bar limits. Zero values
// disable the corresponding constraint.
type Constraints struct {
	// MinSpacing is the minimum gap between adjacent cut boundaries.
	MinSpacing float64 `json:"minSpacing,omitempty"`
	// MaxSpacing is the maximum gap between adjacent cut boundaries.
	MaxSpacing float64 `json:"maxSpacing,omitempty"`
	// MinCutDepth is the minimum h0-h of every cut.
	MinCutDepth float64 `json:"minCutDepth,omitempty"`
	// MaxCutDepth is the maximum h0-h of every cut.
	MaxCutDepth float64 `json:"maxCutDepth,omitempty"`
	// MaxLengthTrim is the maximum removed from each end.
	MaxLengthTrim float64 `json:"maxLengthTrim,omitempty"`
	// MaxLengthExtend is the maximum added to each end.
	MaxLengthExtend float64 `json:"maxLengthExtend,omitempty"`
}

// VariableBounds holds the per-gene limits of a gene vector.
type VariableBounds struct {
	LambdaMin, LambdaMax float64
	HMin, HMax           float64
	MinSpacing           float64
	MaxSpacing           float64
	MaxLengthTrim        float64
	MaxLengthExtend      float64

	// LengthAdjust enables the trailing length gene.
	LengthAdjust bool
}

// NewVariableBounds derives the bounds of a numCuts problem on bar.
func NewVariableBounds(bar BarParameters, c Constraints) VariableBounds {
	hMax := bar.H0
	if c.MinCutDepth > 0 {
		hMax = math.Max(bar.HMin, bar.H0-c.MinCutDepth)
	}
	hMin := bar.HMin
	if c.MaxCutDepth > 0 {
		hMin = math.Max(bar.HMin, bar.H0-c.MaxCutDepth)
	}
	return VariableBounds{
		LambdaMin:       0,
		LambdaMax:       bar.L / 2,
		HMin:            hMin,
		HMax:            hMax,
		MinSpacing:      c.MinSpacing,
		MaxSpacing:      c.MaxSpacing,
		MaxLengthTrim:   c.MaxLengthTrim,
		MaxLengthExtend: c.MaxLengthExtend,
		LengthAdjust:    c.MaxLengthTrim > 0 || c.MaxLengthExtend > 0,
	}
}

// NumGenes returns the gene vector length for numCuts cuts.
func (vb VariableBounds) NumGenes(numCuts int) int {
	if vb.LengthAdjust {
		return 2*numCuts + 1
	}
	return 2 * numCuts
}

// NumCuts returns the number of cuts encoded in a vector of n genes.
func (vb VariableBounds) NumCuts(n int) int {
	if vb.LengthAdjust {
		return (n - 1) / 2
	}
	return n / 2
}

// Range returns the [min, max] interval of gene i.
func (vb VariableBounds) Range(i, numCuts int) (float64, float64) {
	switch {
	case i >= 2*numCuts:
		return -vb.MaxLengthExtend, vb.MaxLengthTrim
	case i%2 == 0:
		return vb.LambdaMin, vb.LambdaMax
	default:
		return vb.HMin, vb.HMax
	}
}

// LengthAdjustment returns the trailing length gene, or 0 when disabled.
// Positive values trim, negative values extend.
func (vb VariableBounds) LengthAdjustment(genes []float64) float64 {
	if !vb.LengthAdjust {
		return 0
	}
	n := vb.NumCuts(len(genes))
	if len(genes) > 2*n {
		return genes[2*n]
	}
	return 0
}

// Clamp returns a copy of genes restored to the bounds and spacing limits.
// Clamp is idempotent.
func (vb VariableBounds) Clamp(genes []float64) []float64 {
	out := append([]float64(nil), genes...)
	numCuts := vb.NumCuts(len(out))

	for i := 0; i < 2*numCuts; i += 2 {
		out[i] = clamp(out[i], vb.LambdaMin, vb.LambdaMax)
		out[i+1] = clamp(out[i+1], vb.HMin, vb.HMax)
	}
	if vb.LengthAdjust && len(out) > 2*numCuts {
		out[2*numCuts] = clamp(out[2*numCuts], -vb.MaxLengthExtend, vb.MaxLengthTrim)
	}

	if (vb.MinSpacing <= 0 && vb.MaxSpacing <= 0) || numCuts < 1 {
		return out
	}

	// Enforce spacing outside-in on the λ's without moving their h's.
	idx := make([]int, numCuts)
	for i := range idx {
		idx[i] = 2 * i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return out[idx[a]] > out[idx[b]]
	})
	for k := 1; k < len(idx); k++ {
		outer := out[idx[k-1]]
		inner := out[idx[k]]
		if vb.MinSpacing > 0 && inner > outer-vb.MinSpacing {
			inner = math.Max(vb.LambdaMin, outer-vb.MinSpacing)
		}
		if vb.MaxSpacing > 0 && inner < outer-vb.MaxSpacing {
			inner = math.Max(vb.LambdaMin, outer-vb.MaxSpacing)
		}
		out[idx[k]] = inner
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
