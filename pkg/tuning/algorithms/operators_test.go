package algorithms

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

func testBounds(lengthAdjust bool) framework.VariableBounds {
	bar := framework.BarParameters{L: 0.45, B: 0.032, H0: 0.024, HMin: 0.0024}
	c := framework.Constraints{MinSpacing: 0.01}
	if lengthAdjust {
		c.MaxLengthTrim = 0.01
		c.MaxLengthExtend = 0.005
	}
	return framework.NewVariableBounds(bar, c)
}

func assertWithinBounds(t *testing.T, vb framework.VariableBounds, genes []float64) {
	t.Helper()
	numCuts := vb.NumCuts(len(genes))
	for i, g := range genes {
		lo, hi := vb.Range(i, numCuts)
		assert.GreaterOrEqual(t, g, lo, "gene %d", i)
		assert.LessOrEqual(t, g, hi, "gene %d", i)
	}
	assert.Equal(t, genes, vb.Clamp(genes), "clamp is not a fixed point")
}

func population(fitness ...float64) []framework.Individual {
	pop := make([]framework.Individual, len(fitness))
	for i, f := range fitness {
		pop[i] = framework.Individual{Genes: []float64{float64(i)}, Fitness: f}
	}
	return pop
}

func TestRoulettePrefersLowFitness(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	pop := population(1, 10, math.Inf(1), 0)
	counts := make([]int, len(pop))
	for i := 0; i < 10000; i++ {
		counts[Roulette{}.Select(r, pop)]++
	}
	assert.Zero(t, counts[2], "unevaluated individual selected")
	assert.Zero(t, counts[3], "zero fitness is not eligible")
	// Expected shares are 10/11 and 1/11.
	assert.InDelta(t, 10.0/11, float64(counts[0])/10000, 0.02)
}

func TestRouletteFallsBackToUniform(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	pop := population(math.Inf(1), math.Inf(1))
	seen := map[int]bool{}
	for i := 0; i < 100; i++ {
		seen[Roulette{}.Select(r, pop)] = true
	}
	assert.Len(t, seen, 2)
}

func TestTournament(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	pop := population(1, 2, 3, 4, 5)
	counts := make([]int, len(pop))
	for i := 0; i < 5000; i++ {
		counts[Tournament{Size: 3}.Select(r, pop)]++
	}
	for i := 1; i < len(counts); i++ {
		assert.GreaterOrEqual(t, counts[i-1], counts[i])
	}
	// The worst wins only when drawn three times.
	assert.InDelta(t, 1.0/125, float64(counts[4])/5000, 0.01)
}

func TestRankMaximumPressure(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	pop := population(1, 2, 3, 4)
	counts := make([]int, len(pop))
	for i := 0; i < 4000; i++ {
		counts[Rank{Pressure: 2}.Select(r, pop)]++
	}
	assert.Zero(t, counts[3])
	assert.Greater(t, counts[0], counts[1])
	assert.Equal(t, 0, Rank{}.Select(r, population(7)))
}

func TestSelectPairAvoidsDuplicates(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	pop := population(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	for i := 0; i < 100; i++ {
		a, b := selectPair(r, Rank{Pressure: 1}, pop)
		assert.NotEqual(t, a, b)
	}
	a, b := selectPair(r, Roulette{}, population(1))
	assert.Equal(t, 0, a)
	assert.Equal(t, 0, b)
}

func TestHeuristicCrossover(t *testing.T) {
	vb := testBounds(false)
	r := rand.New(rand.NewPCG(9, 10))
	p1 := framework.Individual{Genes: []float64{0.15, 0.010}, Sigmas: []float64{0.1, 0.2}}
	p2 := framework.Individual{Genes: []float64{0.05, 0.020}, Sigmas: []float64{0.3, 0.4}}

	c1, c2 := Heuristic{}.Cross(r, p1, p2, vb)
	for i := range p1.Genes {
		// The shared factor keeps the parents' sum.
		assert.InDelta(t, p1.Genes[i]+p2.Genes[i], c1.Genes[i]+c2.Genes[i], 1e-12)
		assert.InDelta(t, p1.Sigmas[i]+p2.Sigmas[i], c1.Sigmas[i]+c2.Sigmas[i], 1e-12)
	}
	assert.False(t, c1.Evaluated())
	assert.False(t, c2.Evaluated())
}

func TestPointCrossoversSwapGenes(t *testing.T) {
	vb := framework.VariableBounds{LambdaMax: 1, HMin: 0, HMax: 1}
	p1 := framework.Individual{Genes: []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1}}
	p2 := framework.Individual{Genes: []float64{0.9, 0.9, 0.9, 0.9, 0.9, 0.9}}
	r := rand.New(rand.NewPCG(11, 12))

	for _, c := range []Crossover{SinglePoint{}, TwoPoint{}, Uniform{}} {
		t.Run(c.Name(), func(t *testing.T) {
			for i := 0; i < 50; i++ {
				c1, c2 := c.Cross(r, p1, p2, vb)
				for j := range c1.Genes {
					assert.InDelta(t, 1.0, c1.Genes[j]+c2.Genes[j], 1e-12)
					assert.Contains(t, []float64{0.1, 0.9}, c1.Genes[j])
				}
			}
		})
	}
}

func TestSinglePointAlwaysExchanges(t *testing.T) {
	vb := framework.VariableBounds{LambdaMax: 1, HMin: 0, HMax: 1}
	p1 := framework.Individual{Genes: []float64{0.1, 0.1, 0.1, 0.1}}
	p2 := framework.Individual{Genes: []float64{0.9, 0.9, 0.9, 0.9}}
	r := rand.New(rand.NewPCG(13, 14))
	for i := 0; i < 50; i++ {
		c1, _ := SinglePoint{}.Cross(r, p1, p2, vb)
		assert.Equal(t, 0.1, c1.Genes[0])
		assert.Equal(t, 0.9, c1.Genes[3])
	}
}

func TestOperatorsRespectBounds(t *testing.T) {
	for _, lengthAdjust := range []bool{false, true} {
		vb := testBounds(lengthAdjust)
		r := rand.New(rand.NewPCG(15, 16))
		crossovers := []Crossover{Heuristic{}, SinglePoint{}, TwoPoint{}, Uniform{}, Blend{Alpha: 0.5}}
		mutations := []Mutation{
			UniformMutation{Strength: 0.5},
			AdaptiveLengthMutation{Strength: 0.5, Bias: DefaultLengthBias},
			GaussianMutation{Phi: 1},
			PolynomialMutation{Eta: 20, Probability: 1},
		}
		for i := 0; i < 200; i++ {
			p1 := framework.NewIndividual(RandomGenes(r, 3, vb))
			p2 := framework.NewIndividual(RandomGenes(r, 3, vb))
			for _, c := range crossovers {
				c1, c2 := c.Cross(r, p1, p2, vb)
				assertWithinBounds(t, vb, c1.Genes)
				assertWithinBounds(t, vb, c2.Genes)
			}
			for _, m := range mutations {
				child := m.Mutate(r, p1, vb, Hint{F1Error: -3, Known: true})
				assertWithinBounds(t, vb, child.Genes)
			}
		}
	}
}

func TestMutationLeavesParentUntouched(t *testing.T) {
	vb := testBounds(true)
	r := rand.New(rand.NewPCG(17, 18))
	parent := framework.NewIndividual(RandomGenes(r, 2, vb))
	parent.Sigmas = InitialSigmas(len(parent.Genes))
	snapshot := parent.Clone()

	for _, m := range []Mutation{UniformMutation{Strength: 0.1}, GaussianMutation{Phi: 0.1}, PolynomialMutation{}} {
		_ = m.Mutate(r, parent, vb, Hint{})
		assert.Equal(t, snapshot.Genes, parent.Genes, m.Name())
		assert.Equal(t, snapshot.Sigmas, parent.Sigmas, m.Name())
	}
}

func TestAdaptiveLengthBias(t *testing.T) {
	vb := testBounds(true)
	m := AdaptiveLengthMutation{Strength: 0.2, Bias: 1}
	r := rand.New(rand.NewPCG(19, 20))
	parent := framework.NewIndividual([]float64{0.1, 0.01, 0})

	for i := 0; i < 200; i++ {
		// Too flat: the bar only gets shorter.
		child := m.Mutate(r, parent, vb, Hint{F1Error: -5, Known: true})
		assert.GreaterOrEqual(t, child.Genes[2], 0.0)
		// Too sharp: the bar only gets longer.
		child = m.Mutate(r, parent, vb, Hint{F1Error: 5, Known: true})
		assert.LessOrEqual(t, child.Genes[2], 0.0)
	}

	assert.True(t, m.needsHint(vb))
	assert.False(t, m.needsHint(testBounds(false)))
}

func TestGaussianSigmas(t *testing.T) {
	vb := testBounds(false)
	r := rand.New(rand.NewPCG(21, 22))
	parent := framework.NewIndividual([]float64{0.1, 0.01})

	child := GaussianMutation{Phi: 5}.Mutate(r, parent, vb, Hint{})
	require.Len(t, child.Sigmas, 2)
	for i := 0; i < 100; i++ {
		child = GaussianMutation{Phi: 5}.Mutate(r, child, vb, Hint{})
		for _, s := range child.Sigmas {
			assert.GreaterOrEqual(t, s, minSigma)
			assert.LessOrEqual(t, s, maxSigma)
		}
	}

	t1, t2 := GaussianMutation{}.rates(8)
	assert.InDelta(t, 1/math.Sqrt(2*4), t1, 1e-12)
	assert.InDelta(t, 1/math.Sqrt(32), t2, 1e-12)
	t1, t2 = GaussianMutation{Tau1: 0.3, Tau2: 0.2}.rates(8)
	assert.Equal(t, 0.3, t1)
	assert.Equal(t, 0.2, t2)
}

func TestPolynomialMutationStaysNearParent(t *testing.T) {
	vb := testBounds(false)
	r := rand.New(rand.NewPCG(23, 24))
	parent := framework.NewIndividual([]float64{0.1, 0.012})
	far := 0
	for i := 0; i < 1000; i++ {
		child := PolynomialMutation{Eta: 20, Probability: 1}.Mutate(r, parent, vb, Hint{})
		if math.Abs(child.Genes[0]-parent.Genes[0]) > 0.25*vb.LambdaMax {
			far++
		}
	}
	assert.Less(t, far, 20)
}

func TestStrategyRegistry(t *testing.T) {
	for _, name := range []string{"heuristic", "single", "two", "uniform", "blend"} {
		c, ok := NewCrossover(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}
	for _, name := range []string{"uniform", "adaptive-length", "gaussian", "polynomial"} {
		m, ok := NewMutation(name, 0.1)
		require.True(t, ok, name)
		assert.Equal(t, name, m.Name())
	}
	for _, name := range []string{"roulette", "tournament", "rank"} {
		s, ok := NewSelection(name, 3)
		require.True(t, ok, name)
		assert.Equal(t, name, s.Name())
	}
	_, ok := NewCrossover("sbx")
	assert.False(t, ok)
}
