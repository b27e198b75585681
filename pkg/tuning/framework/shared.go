package framework

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats summarises the fitness distribution of a population.
type Stats struct {
	Best   float64 `json:"best"`
	Worst  float64 `json:"worst"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdDev"`
}

// PopulationStats computes statistics over the finite fitness values only.
func PopulationStats(population []Individual) Stats {
	fit := make([]float64, 0, len(population))
	for _, ind := range population {
		if ind.Evaluated() {
			fit = append(fit, ind.Fitness)
		}
	}
	if len(fit) == 0 {
		inf := math.Inf(1)
		return Stats{Best: inf, Worst: inf, Mean: inf, Median: inf}
	}
	sort.Float64s(fit)

	n := len(fit)
	median := fit[n/2]
	if n%2 == 0 {
		median = (fit[n/2-1] + fit[n/2]) / 2
	}
	mean, std := stat.PopMeanStdDev(fit, nil)
	return Stats{
		Best:   fit[0],
		Worst:  fit[n-1],
		Mean:   mean,
		Median: median,
		StdDev: std,
	}
}

// Diversity is the root mean per-gene population variance.
func Diversity(population []Individual) float64 {
	if len(population) < 2 {
		return 0
	}
	numGenes := len(population[0].Genes)
	if numGenes == 0 {
		return 0
	}
	col := make([]float64, len(population))
	total := 0.0
	for g := 0; g < numGenes; g++ {
		for i, ind := range population {
			col[i] = ind.Genes[g]
		}
		_, std := stat.PopMeanStdDev(col, nil)
		total += std * std
	}
	return math.Sqrt(total / float64(numGenes))
}

// SortByFitness orders the population best first. Unevaluated individuals
// sort last.
func SortByFitness(population []Individual) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness < population[j].Fitness
	})
}
