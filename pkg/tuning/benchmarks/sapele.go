package benchmarks

import (
	"github.com/marimba-lab/bartuner/pkg/tuning/fitness"
	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

const (
	Name = "SapeleF4"

	// F4 is the fundamental of the benchmark bar, in Hz.
	F4 = 349.23
)

var (
	// Ratios is the 1:3:6 marimba tuning.
	Ratios = []float64{1, 3, 6}

	// Bar is the 450 mm blank the benchmark starts from.
	Bar = framework.BarParameters{L: 0.45, B: 0.032, H0: 0.024, HMin: 0.0024}
)

const (
	// NumCuts is the number of undercuts the benchmark optimizes.
	NumCuts = 2
	// MaterialKey names the benchmark material in the material table.
	MaterialKey = "sapele"
)

// SapeleF4 is a 450 mm sapele marimba bar with two cuts tuned to F4 at
// 1:3:6. It is used to check that an optimizer reaches sub-percent tuning
// error on a realistic geometry.
type SapeleF4 struct {
	*fitness.BarProblem

	Bar      framework.BarParameters
	Material framework.Material
}

// NewSapeleF4 builds the benchmark for the given analysis mode.
func NewSapeleF4(mode framework.Mode) (*SapeleF4, error) {
	mat, err := framework.LookupMaterial(MaterialKey)
	if err != nil {
		return nil, err
	}
	bar := Bar
	model := fitness.Model{
		Bar:         bar,
		Material:    mat,
		NumCuts:     NumCuts,
		NumElements: 150,
		Mode:        mode,
		NY:          2,
		NZ:          2,
	}
	if mode == framework.Mode3D {
		model.NumElements = 60
	}
	e, err := fitness.NewEvaluator(fitness.Options{Model: model, F1Priority: 1})
	if err != nil {
		return nil, err
	}
	targets := make([]float64, len(Ratios))
	for i, r := range Ratios {
		targets[i] = F4 * r
	}
	p, err := fitness.NewBarProblem(Name, e, framework.NewVariableBounds(bar, framework.Constraints{}), targets, 0)
	if err != nil {
		return nil, err
	}
	return &SapeleF4{BarProblem: p, Bar: bar, Material: mat}, nil
}
