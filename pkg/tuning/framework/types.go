package framework

import (
	"context"
	"math"
)

// Mode selects the structural model used to compute frequencies.
type Mode string

const (
	// Mode2D is the Timoshenko beam model.
	Mode2D Mode = "2d"
	// Mode3D is the hexahedral solid model.
	Mode3D Mode = "3d"
)

// Individual represents a candidate design in the population.
type Individual struct {
	// Genes is the flat vector [λ1, h1, ..., λn, hn, Δlength?].
	Genes []float64
	// Fitness is lower-is-better. +Inf until evaluated.
	Fitness float64
	// Sigmas are per-gene step sizes, only used by self-adaptive mutation.
	Sigmas []float64
}

// NewIndividual returns an unevaluated individual owning a copy of genes.
func NewIndividual(genes []float64) Individual {
	g := make([]float64, len(genes))
	copy(g, genes)
	return Individual{Genes: g, Fitness: math.Inf(1)}
}

// Clone returns a deep copy.
func (ind Individual) Clone() Individual {
	out := Individual{Fitness: ind.Fitness}
	out.Genes = append([]float64(nil), ind.Genes...)
	if ind.Sigmas != nil {
		out.Sigmas = append([]float64(nil), ind.Sigmas...)
	}
	return out
}

// Evaluated reports whether the individual carries a usable fitness.
func (ind Individual) Evaluated() bool {
	return !math.IsInf(ind.Fitness, 0) && !math.IsNaN(ind.Fitness)
}

// ObjectiveFunc scores a gene vector. Lower is better. It never fails:
// candidates that cannot be evaluated receive a large finite score.
type ObjectiveFunc func(ctx context.Context, genes []float64) float64

// Problem describes the contract a tuning problem needs to implement.
type Problem interface {
	Name() string

	// NumCuts is the number of (λ, h) pairs encoded in each gene vector.
	NumCuts() int
	Bounds() VariableBounds
	// Targets are the frequencies the search aims for, in Hz.
	Targets() []float64
	ObjectiveFunc() ObjectiveFunc
	// Frequencies computes the first len(Targets()) frequencies of genes.
	Frequencies(ctx context.Context, genes []float64) ([]float64, error)
	// Fundamental computes only the first frequency of genes.
	Fundamental(ctx context.Context, genes []float64) (float64, error)
}

// Algorithm describes the contract that an optimizer needs to implement.
type Algorithm interface {
	Name() string
}
