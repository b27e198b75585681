package algorithms

import (
	"math/rand/v2"
	"sort"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

const (
	// seedShare caps the share of the initial population derived from a
	// seed vector.
	seedShare = 0.2
	// maxSeedVariants caps the number of perturbed seed copies.
	maxSeedVariants = 10
	// seedJitter is the half-width of the multiplicative seed perturbation.
	seedJitter = 0.05
)

// UncutGenes returns the gene vector of the blank bar: every λ at 0, every
// h at h0 and no length change.
func UncutGenes(numCuts int, vb framework.VariableBounds, h0 float64) []float64 {
	genes := make([]float64, vb.NumGenes(numCuts))
	for i := 0; i < numCuts; i++ {
		genes[2*i+1] = h0
	}
	return genes
}

// RandomGenes draws a gene vector uniformly within vb. λ's are generated
// outermost first so that the spacing limits can be met.
func RandomGenes(r *rand.Rand, numCuts int, vb framework.VariableBounds) []float64 {
	lambdas := make([]float64, numCuts)
	if numCuts == 1 {
		lambdas[0] = vb.LambdaMin + r.Float64()*(vb.LambdaMax-vb.LambdaMin)
	} else {
		upper := vb.LambdaMax
		for i := 0; i < numCuts; i++ {
			reserved := float64(numCuts-i-1) * vb.MinSpacing
			lo := vb.LambdaMin + reserved
			hi := upper - reserved
			if vb.MaxSpacing > 0 && i > 0 {
				lo = max(lo, lambdas[i-1]-vb.MaxSpacing)
			}
			if hi < lo {
				hi = lo
			}
			lambdas[i] = lo + r.Float64()*(hi-lo)
			upper = lambdas[i] - vb.MinSpacing
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(lambdas)))

	genes := make([]float64, vb.NumGenes(numCuts))
	for i, l := range lambdas {
		genes[2*i] = l
		genes[2*i+1] = vb.HMin + r.Float64()*(vb.HMax-vb.HMin)
	}
	if vb.LengthAdjust {
		genes[2*numCuts] = -vb.MaxLengthExtend + r.Float64()*(vb.MaxLengthTrim+vb.MaxLengthExtend)
	}
	return vb.Clamp(genes)
}

// InitialPopulation builds size unevaluated individuals. When seed is
// non-empty, its clamped copy and up to min(20%, 10) perturbed copies come
// first; the rest is random.
func InitialPopulation(r *rand.Rand, size, numCuts int, vb framework.VariableBounds, seed []float64) []framework.Individual {
	pop := make([]framework.Individual, 0, size)
	if len(seed) > 0 && size > 0 {
		base := vb.Clamp(seed)
		pop = append(pop, framework.NewIndividual(base))

		variants := min(int(seedShare*float64(size)), maxSeedVariants)
		for i := 0; i < variants && len(pop) < size; i++ {
			g := make([]float64, len(base))
			for j, v := range base {
				g[j] = v * (1 - seedJitter + 2*seedJitter*r.Float64())
			}
			pop = append(pop, framework.NewIndividual(vb.Clamp(g)))
		}
	}
	for len(pop) < size {
		pop = append(pop, framework.NewIndividual(RandomGenes(r, numCuts, vb)))
	}
	return pop
}
