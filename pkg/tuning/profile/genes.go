package profile

import (
	"fmt"
	"math"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// GenesToCuts decodes the leading (λ, h) pairs of genes, sorted outermost
// first. A trailing unpaired gene (the length adjustment) is ignored, as are
// pairs containing NaN.
func GenesToCuts(genes []float64) []framework.Cut {
	cuts := make([]framework.Cut, 0, len(genes)/2)
	for i := 0; i+1 < len(genes); i += 2 {
		if math.IsNaN(genes[i]) || math.IsNaN(genes[i+1]) {
			continue
		}
		cuts = append(cuts, framework.Cut{Lambda: genes[i], H: genes[i+1]})
	}
	framework.SortCutsDescending(cuts)
	return cuts
}

// CutsToGenes encodes cuts as [λ1, h1, ..., λn, hn], outermost first.
func CutsToGenes(cuts []framework.Cut) []float64 {
	sorted := append([]framework.Cut(nil), cuts...)
	framework.SortCutsDescending(sorted)
	genes := make([]float64, 0, 2*len(sorted))
	for _, c := range sorted {
		genes = append(genes, c.Lambda, c.H)
	}
	return genes
}

// EffectiveCuts counts the cuts that shape the profile: those with λ > 0
// that are strictly inside the previous one.
func EffectiveCuts(cuts []framework.Cut) int {
	sorted := append([]framework.Cut(nil), cuts...)
	framework.SortCutsDescending(sorted)
	n := 0
	last := math.Inf(1)
	for _, c := range sorted {
		if c.Lambda > 0 && c.Lambda < last {
			n++
			last = c.Lambda
		}
	}
	return n
}

// ValidateCuts checks every cut against the bar limits.
func ValidateCuts(cuts []framework.Cut, bar framework.BarParameters) error {
	for i, c := range cuts {
		if c.Lambda < 0 || c.Lambda > bar.L/2 {
			return fmt.Errorf("cut %d: lambda %g out of bounds [0, %g]", i+1, c.Lambda, bar.L/2)
		}
		if c.H < bar.HMin || c.H > bar.H0 {
			return fmt.Errorf("cut %d: height %g out of bounds [%g, %g]", i+1, c.H, bar.HMin, bar.H0)
		}
	}
	return nil
}
