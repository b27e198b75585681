package algorithms

import (
	"math"
	"math/rand/v2"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// Crossover recombines two parents into two unevaluated children. Children
// are clamped to vb before they are returned.
type Crossover interface {
	Name() string
	Cross(r *rand.Rand, p1, p2 framework.Individual, vb framework.VariableBounds) (framework.Individual, framework.Individual)
}

// Heuristic blends the parents with one shared factor r ∈ [0, 1]:
// c1 = p1 + r(p2-p1), c2 = p2 + r(p1-p2). Step sizes are blended the same
// way when both parents carry them.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Cross(r *rand.Rand, p1, p2 framework.Individual, vb framework.VariableBounds) (framework.Individual, framework.Individual) {
	f := r.Float64()
	g1, g2 := blendLinear(p1.Genes, p2.Genes, f)
	c1 := framework.NewIndividual(vb.Clamp(g1))
	c2 := framework.NewIndividual(vb.Clamp(g2))
	if p1.Sigmas != nil && p2.Sigmas != nil {
		c1.Sigmas, c2.Sigmas = blendLinear(p1.Sigmas, p2.Sigmas, f)
	}
	return c1, c2
}

func blendLinear(a, b []float64, f float64) ([]float64, []float64) {
	x := make([]float64, len(a))
	y := make([]float64, len(a))
	for i := range a {
		x[i] = a[i] + f*(b[i]-a[i])
		y[i] = b[i] + f*(a[i]-b[i])
	}
	return x, y
}

// SinglePoint swaps the tails after a random cut point in [1, n).
type SinglePoint struct{}

func (SinglePoint) Name() string { return "single" }

func (SinglePoint) Cross(r *rand.Rand, p1, p2 framework.Individual, vb framework.VariableBounds) (framework.Individual, framework.Individual) {
	n := len(p1.Genes)
	point := n
	if n > 1 {
		point = 1 + r.IntN(n-1)
	}
	return swapSegment(p1, p2, point, n, vb)
}

// TwoPoint swaps the segment between two random points.
type TwoPoint struct{}

func (TwoPoint) Name() string { return "two" }

func (TwoPoint) Cross(r *rand.Rand, p1, p2 framework.Individual, vb framework.VariableBounds) (framework.Individual, framework.Individual) {
	n := len(p1.Genes)
	if n == 0 {
		return swapSegment(p1, p2, 0, 0, vb)
	}
	a, b := r.IntN(n), r.IntN(n)
	if a > b {
		a, b = b, a
	}
	return swapSegment(p1, p2, a, b, vb)
}

// swapSegment exchanges genes (and step sizes) in [from, to).
func swapSegment(p1, p2 framework.Individual, from, to int, vb framework.VariableBounds) (framework.Individual, framework.Individual) {
	c1, c2 := p1.Clone(), p2.Clone()
	for i := from; i < to; i++ {
		c1.Genes[i], c2.Genes[i] = c2.Genes[i], c1.Genes[i]
		if c1.Sigmas != nil && c2.Sigmas != nil {
			c1.Sigmas[i], c2.Sigmas[i] = c2.Sigmas[i], c1.Sigmas[i]
		}
	}
	return reset(c1, vb), reset(c2, vb)
}

// Uniform takes each gene from the first parent with probability
// MixingRatio.
type Uniform struct {
	MixingRatio float64
}

func (Uniform) Name() string { return "uniform" }

func (u Uniform) Cross(r *rand.Rand, p1, p2 framework.Individual, vb framework.VariableBounds) (framework.Individual, framework.Individual) {
	ratio := u.MixingRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	c1, c2 := p1.Clone(), p2.Clone()
	for i := range c1.Genes {
		if r.Float64() < ratio {
			continue
		}
		c1.Genes[i], c2.Genes[i] = c2.Genes[i], c1.Genes[i]
		if c1.Sigmas != nil && c2.Sigmas != nil {
			c1.Sigmas[i], c2.Sigmas[i] = c2.Sigmas[i], c1.Sigmas[i]
		}
	}
	return reset(c1, vb), reset(c2, vb)
}

// Blend is BLX-α: each child gene is drawn uniformly from the parents'
// interval widened by Alpha times its length on both sides.
type Blend struct {
	Alpha float64
}

func (Blend) Name() string { return "blend" }

func (b Blend) Cross(r *rand.Rand, p1, p2 framework.Individual, vb framework.VariableBounds) (framework.Individual, framework.Individual) {
	alpha := b.Alpha
	if alpha <= 0 {
		alpha = 0.5
	}
	c1, c2 := p1.Clone(), p2.Clone()
	for i := range c1.Genes {
		lo := math.Min(p1.Genes[i], p2.Genes[i])
		hi := math.Max(p1.Genes[i], p2.Genes[i])
		d := hi - lo
		lo, hi = lo-alpha*d, hi+alpha*d
		c1.Genes[i] = lo + r.Float64()*(hi-lo)
		c2.Genes[i] = lo + r.Float64()*(hi-lo)
	}
	return reset(c1, vb), reset(c2, vb)
}

func reset(ind framework.Individual, vb framework.VariableBounds) framework.Individual {
	ind.Genes = vb.Clamp(ind.Genes)
	ind.Fitness = math.Inf(1)
	return ind
}

// NewCrossover returns the strategy registered under name.
func NewCrossover(name string) (Crossover, bool) {
	switch name {
	case "", "heuristic":
		return Heuristic{}, true
	case "single":
		return SinglePoint{}, true
	case "two":
		return TwoPoint{}, true
	case "uniform":
		return Uniform{MixingRatio: 0.5}, true
	case "blend":
		return Blend{Alpha: 0.5}, true
	}
	return nil, false
}
