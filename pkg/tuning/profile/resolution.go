package profile

import (
	"fmt"
	"math"
	"sort"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// FeatureType names the geometric feature a resolution warning is about.
type FeatureType string

const (
	FeatureCutWidth   FeatureType = "cut_width"
	FeatureCutSpacing FeatureType = "cut_spacing"
)

// ResolutionWarning reports a feature narrower than two local elements.
// Sizes are in millimetres.
type ResolutionWarning struct {
	Feature       FeatureType `json:"feature"`
	FeatureSizeMM float64     `json:"featureSizeMm"`
	ElementSizeMM float64     `json:"elementSizeMm"`
	// Ratio is element size over half the feature size; >1 is under-resolved.
	Ratio   float64 `json:"ratio"`
	Message string  `json:"message"`
}

// ResolutionReport is the advisory outcome of CheckResolution.
type ResolutionReport struct {
	Warnings []ResolutionWarning `json:"warnings,omitempty"`

	NumElements       int       `json:"numElements"`
	BaseElementSizeMM float64   `json:"baseElementSizeMm"`
	MinElementSizeMM  float64   `json:"minElementSizeMm"`
	Adaptive          bool      `json:"adaptive"`
	NumCuts           int       `json:"numCuts"`
	BoundariesMM      []float64 `json:"boundariesMm,omitempty"`
	SmallestFeatureMM float64   `json:"smallestFeatureMm"`

	RecommendedElementSizeMM float64 `json:"recommendedElementSizeMm,omitempty"`
	RecommendedNumElements   int     `json:"recommendedNumElements,omitempty"`
	RecommendedRefinement    int     `json:"recommendedRefinement,omitempty"`
}

// Adequate reports whether no feature is under-resolved.
func (r ResolutionReport) Adequate() bool {
	return len(r.Warnings) == 0
}

// CheckResolution inspects whether numElements (optionally refined by
// refinementFactor when adaptive) resolves the narrowest cut region and the
// closest pair of cut boundaries. It never fails; it only advises.
func CheckResolution(cuts []framework.Cut, l float64, numElements int, adaptive bool, refinementFactor float64) ResolutionReport {
	lmm := l * 1000
	base := lmm / float64(numElements)
	minSize := base
	if adaptive && refinementFactor > 0 {
		minSize = base / refinementFactor
	}

	var bounds []float64
	for _, c := range cuts {
		if c.Lambda > 0 {
			bounds = append(bounds, c.Lambda*1000)
		}
	}
	sort.Float64s(bounds)

	r := ResolutionReport{
		NumElements:       numElements,
		BaseElementSizeMM: base,
		MinElementSizeMM:  minSize,
		Adaptive:          adaptive,
		NumCuts:           len(bounds),
		BoundariesMM:      bounds,
		SmallestFeatureMM: math.Inf(1),
	}
	if len(bounds) == 0 {
		return r
	}

	width := 2 * bounds[0]
	r.SmallestFeatureMM = width
	if width < 2*minSize {
		r.Warnings = append(r.Warnings, ResolutionWarning{
			Feature:       FeatureCutWidth,
			FeatureSizeMM: width,
			ElementSizeMM: minSize,
			Ratio:         minSize / (width / 2),
			Message: fmt.Sprintf("innermost cut region (%.1fmm wide) may be under-resolved: element size %.1fmm should be <%.1fmm",
				width, minSize, width/2),
		})
	}

	for i := 1; i < len(bounds); i++ {
		spacing := bounds[i] - bounds[i-1]
		r.SmallestFeatureMM = math.Min(r.SmallestFeatureMM, spacing)
		if spacing < 2*minSize {
			r.Warnings = append(r.Warnings, ResolutionWarning{
				Feature:       FeatureCutSpacing,
				FeatureSizeMM: spacing,
				ElementSizeMM: minSize,
				Ratio:         minSize / (spacing / 2),
				Message: fmt.Sprintf("cut boundary spacing (%.1fmm) may be under-resolved: element size %.1fmm should be <%.1fmm",
					spacing, minSize, spacing/2),
			})
		}
	}

	if r.SmallestFeatureMM > 0 && !math.IsInf(r.SmallestFeatureMM, 1) {
		rec := r.SmallestFeatureMM / 3
		r.RecommendedElementSizeMM = rec
		r.RecommendedNumElements = int(math.Ceil(lmm / rec))
		if adaptive && r.RecommendedNumElements > numElements {
			r.RecommendedRefinement = int(math.Ceil(base/rec)) + 1
		}
	}
	return r
}
