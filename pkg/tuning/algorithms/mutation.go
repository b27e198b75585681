package algorithms

import (
	"math"
	"math/rand/v2"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

const (
	// DefaultLengthBias is the probability that the length gene moves in
	// the direction that reduces the fundamental's error.
	DefaultLengthBias = 0.7
	// DefaultInitialSigma is the step size given to individuals that have
	// none yet.
	DefaultInitialSigma = 0.2

	minSigma = 0.001
	maxSigma = 1.0

	// f1ErrorDeadband is the |f1 - target| in Hz below which the length
	// gene is mutated without bias.
	f1ErrorDeadband = 0.001
)

// Hint carries optional per-parent information for mutation.
type Hint struct {
	// F1Error is computed minus target fundamental, in Hz.
	F1Error float64
	// Known reports whether F1Error was computed.
	Known bool
}

// Mutation perturbs a parent into a new, clamped, unevaluated individual.
// The parent is never modified.
type Mutation interface {
	Name() string
	Mutate(r *rand.Rand, parent framework.Individual, vb framework.VariableBounds, hint Hint) framework.Individual
}

// frequencyAware is implemented by mutations that use Hint.
type frequencyAware interface {
	needsHint(vb framework.VariableBounds) bool
}

// geneSpan is the width of the admissible interval of gene i.
func geneSpan(vb framework.VariableBounds, i, numCuts int) float64 {
	lo, hi := vb.Range(i, numCuts)
	return hi - lo
}

// pickGenes returns a random non-empty subset of [0, n).
func pickGenes(r *rand.Rand, n int) []int {
	if n == 0 {
		return nil
	}
	k := 1 + r.IntN(n)
	return r.Perm(n)[:k]
}

// UniformMutation perturbs a random subset of genes by
// Strength·span·U(-1, 1).
type UniformMutation struct {
	Strength float64
}

func (UniformMutation) Name() string { return "uniform" }

func (m UniformMutation) Mutate(r *rand.Rand, parent framework.Individual, vb framework.VariableBounds, _ Hint) framework.Individual {
	child := parent.Clone()
	numCuts := vb.NumCuts(len(child.Genes))
	for _, i := range pickGenes(r, len(child.Genes)) {
		child.Genes[i] += m.Strength * geneSpan(vb, i, numCuts) * (2*r.Float64() - 1)
	}
	return reset(child, vb)
}

// AdaptiveLengthMutation behaves like UniformMutation, except that the
// length gene moves with probability Bias toward the direction that
// reduces the parent's fundamental error: trimming when too flat,
// extending when too sharp.
type AdaptiveLengthMutation struct {
	Strength float64
	Bias     float64
}

func (AdaptiveLengthMutation) Name() string { return "adaptive-length" }

func (AdaptiveLengthMutation) needsHint(vb framework.VariableBounds) bool { return vb.LengthAdjust }

func (m AdaptiveLengthMutation) Mutate(r *rand.Rand, parent framework.Individual, vb framework.VariableBounds, hint Hint) framework.Individual {
	child := parent.Clone()
	numCuts := vb.NumCuts(len(child.Genes))
	lengthGene := -1
	if vb.LengthAdjust {
		lengthGene = 2 * numCuts
	}
	for _, i := range pickGenes(r, len(child.Genes)) {
		u := 2*r.Float64() - 1
		if i == lengthGene && hint.Known && math.Abs(hint.F1Error) > f1ErrorDeadband && r.Float64() < m.Bias {
			dir := -1.0
			if hint.F1Error < 0 {
				dir = 1
			}
			u = dir * r.Float64()
		}
		child.Genes[i] += m.Strength * geneSpan(vb, i, numCuts) * u
	}
	return reset(child, vb)
}

// GaussianMutation is self-adaptive: every gene carries a step size σ_k
// updated by σ_k·exp(τ1·z1 + τ2·z2) before the gene moves by
// σ_k·span·N(0, 1). z1 is shared by all genes of one mutation, z2 is drawn
// per gene, both scaled by Phi. Zero Tau1 or Tau2 select 1/√(2√(2n)) and
// 1/√(4n).
type GaussianMutation struct {
	Phi        float64
	Tau1, Tau2 float64
}

func (GaussianMutation) Name() string { return "gaussian" }

func (m GaussianMutation) rates(n int) (float64, float64) {
	t1, t2 := m.Tau1, m.Tau2
	if t1 <= 0 {
		t1 = 1 / math.Sqrt(2*math.Sqrt(2*float64(n)))
	}
	if t2 <= 0 {
		t2 = 1 / math.Sqrt(4*float64(n))
	}
	return t1, t2
}

func (m GaussianMutation) Mutate(r *rand.Rand, parent framework.Individual, vb framework.VariableBounds, _ Hint) framework.Individual {
	child := parent.Clone()
	n := len(child.Genes)
	if len(child.Sigmas) != n {
		child.Sigmas = InitialSigmas(n)
	}
	numCuts := vb.NumCuts(n)
	tau1, tau2 := m.rates(n)
	z1 := r.NormFloat64() * m.Phi
	for k := 0; k < n; k++ {
		z2 := r.NormFloat64() * m.Phi
		s := child.Sigmas[k] * math.Exp(tau1*z1+tau2*z2)
		child.Sigmas[k] = math.Max(minSigma, math.Min(maxSigma, s))
		child.Genes[k] += child.Sigmas[k] * geneSpan(vb, k, numCuts) * r.NormFloat64()
	}
	return reset(child, vb)
}

// InitialSigmas returns n step sizes of DefaultInitialSigma.
func InitialSigmas(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = DefaultInitialSigma
	}
	return s
}

// PolynomialMutation is Deb's bounded polynomial mutation. Each gene
// mutates with Probability, 1/n when zero.
type PolynomialMutation struct {
	Eta         float64
	Probability float64
}

func (PolynomialMutation) Name() string { return "polynomial" }

func (m PolynomialMutation) Mutate(r *rand.Rand, parent framework.Individual, vb framework.VariableBounds, _ Hint) framework.Individual {
	child := parent.Clone()
	n := len(child.Genes)
	if n == 0 {
		return reset(child, vb)
	}
	eta := m.Eta
	if eta <= 0 {
		eta = 20
	}
	prob := m.Probability
	if prob <= 0 {
		prob = 1 / float64(n)
	}
	numCuts := vb.NumCuts(n)
	for i := 0; i < n; i++ {
		if r.Float64() > prob {
			continue
		}
		lo, hi := vb.Range(i, numCuts)
		span := hi - lo
		if span <= 0 {
			continue
		}
		x := child.Genes[i]
		d1 := (x - lo) / span
		d2 := (hi - x) / span
		u := r.Float64()
		var delta float64
		if u < 0.5 {
			v := 2*u + (1-2*u)*math.Pow(1-d1, eta+1)
			delta = math.Pow(v, 1/(eta+1)) - 1
		} else {
			v := 2*(1-u) + 2*(u-0.5)*math.Pow(1-d2, eta+1)
			delta = 1 - math.Pow(v, 1/(eta+1))
		}
		child.Genes[i] = x + delta*span
	}
	return reset(child, vb)
}

// NewMutation returns the strategy registered under name. strength is the
// uniform step or the Gaussian φ.
func NewMutation(name string, strength float64) (Mutation, bool) {
	switch name {
	case "uniform":
		return UniformMutation{Strength: strength}, true
	case "", "adaptive-length":
		return AdaptiveLengthMutation{Strength: strength, Bias: DefaultLengthBias}, true
	case "gaussian":
		return GaussianMutation{Phi: strength}, true
	case "polynomial":
		return PolynomialMutation{Eta: 20}, true
	}
	return nil, false
}
