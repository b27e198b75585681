package algorithms

import (
	"math/rand/v2"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// maxPairAttempts bounds how often the second parent is redrawn when it
// coincides with the first.
const maxPairAttempts = 10

// Selection picks a parent from a population sorted best first and returns
// its index.
type Selection interface {
	Name() string
	Select(r *rand.Rand, sorted []framework.Individual) int
}

// Roulette selects with probability proportional to 1/fitness. Individuals
// with a non-positive or non-finite fitness never win; if none qualifies the
// draw is uniform.
type Roulette struct{}

func (Roulette) Name() string { return "roulette" }

func (Roulette) Select(r *rand.Rand, sorted []framework.Individual) int {
	sum := 0.0
	for _, ind := range sorted {
		if rouletteEligible(ind) {
			sum += 1 / ind.Fitness
		}
	}
	if sum == 0 {
		return r.IntN(len(sorted))
	}
	x := r.Float64() * sum
	last := 0
	for i, ind := range sorted {
		if !rouletteEligible(ind) {
			continue
		}
		last = i
		x -= 1 / ind.Fitness
		if x <= 0 {
			return i
		}
	}
	return last
}

func rouletteEligible(ind framework.Individual) bool {
	return ind.Evaluated() && ind.Fitness > 0
}

// Tournament returns the best of Size uniformly drawn contestants.
type Tournament struct {
	Size int
}

func (Tournament) Name() string { return "tournament" }

func (t Tournament) Select(r *rand.Rand, sorted []framework.Individual) int {
	k := t.Size
	if k < 1 {
		k = 3
	}
	best := r.IntN(len(sorted))
	for i := 1; i < k; i++ {
		c := r.IntN(len(sorted))
		if sorted[c].Fitness < sorted[best].Fitness {
			best = c
		}
	}
	return best
}

// Rank selects by linear ranking. Pressure in [1, 2] sets the expected
// number of offspring of the best individual.
type Rank struct {
	Pressure float64
}

func (Rank) Name() string { return "rank" }

func (s Rank) Select(r *rand.Rand, sorted []framework.Individual) int {
	n := len(sorted)
	if n == 1 {
		return 0
	}
	sp := s.Pressure
	if sp < 1 || sp > 2 {
		sp = 1.5
	}
	// p_i = (2-sp)/n + 2(sp-1)(n-1-i)/(n(n-1)) sums to one.
	x := r.Float64()
	fn := float64(n)
	for i := 0; i < n; i++ {
		x -= (2-sp)/fn + 2*(sp-1)*float64(n-1-i)/(fn*(fn-1))
		if x <= 0 {
			return i
		}
	}
	return n - 1
}

// selectPair draws two parents, redrawing the second a bounded number of
// times while it equals the first.
func selectPair(r *rand.Rand, s Selection, sorted []framework.Individual) (int, int) {
	a := s.Select(r, sorted)
	b := a
	for attempt := 0; b == a && attempt < maxPairAttempts; attempt++ {
		b = s.Select(r, sorted)
	}
	return a, b
}

// NewSelection returns the strategy registered under name.
func NewSelection(name string, tournamentSize int) (Selection, bool) {
	switch name {
	case "", "roulette":
		return Roulette{}, true
	case "tournament":
		return Tournament{Size: tournamentSize}, true
	case "rank":
		return Rank{Pressure: 1.5}, true
	}
	return nil, false
}
