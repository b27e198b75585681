package v1alpha1

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"
)

func TestSetDefaultsTuningArgs(t *testing.T) {
	tests := []struct {
		name   string
		in     TuningArgs
		verify func(t *testing.T, got TuningArgs)
	}{
		{
			name: "empty args",
			in:   TuningArgs{NumCuts: 2},
			verify: func(t *testing.T, got TuningArgs) {
				assert.Equal(t, GroupVersion, got.APIVersion)
				assert.Equal(t, TuningArgsKind, got.Kind)
				assert.Equal(t, "sapele", got.Material)
				assert.Equal(t, AnalysisMode2D, got.Analysis.Mode)
				assert.Equal(t, 150, *got.Analysis.NumElements)
				assert.Nil(t, got.Analysis.RefinementFactor)
				assert.Equal(t, 1.0, *got.Objective.F1Priority)
				assert.Equal(t, PenaltyNone, got.Objective.Penalty)
				assert.Equal(t, 30, *got.Optimizer.PopulationSize)
				assert.Equal(t, 100, *got.Optimizer.MaxGenerations)
				assert.Equal(t, "roulette", got.Optimizer.Selection)
				assert.Nil(t, got.Optimizer.TournamentSize)
				assert.Equal(t, "heuristic", got.Optimizer.Crossover)
				assert.Equal(t, "adaptive-length", got.Optimizer.Mutation)
				assert.Equal(t, 0.7, *got.Optimizer.LengthBias)
				assert.LessOrEqual(t, *got.Optimizer.Workers, 30)
				assert.Positive(t, *got.Optimizer.Workers)
			},
		},
		{
			name: "population grows with cuts",
			in:   TuningArgs{NumCuts: 5},
			verify: func(t *testing.T, got TuningArgs) {
				assert.Equal(t, 50, *got.Optimizer.PopulationSize)
			},
		},
		{
			name: "custom material keeps material empty",
			in:   TuningArgs{CustomMaterial: &MaterialSpec{YoungsModulus: 1e10, Density: 700, PoissonRatio: 0.3}},
			verify: func(t *testing.T, got TuningArgs) {
				assert.Empty(t, got.Material)
			},
		},
		{
			name: "adaptive mesh",
			in:   TuningArgs{Analysis: AnalysisSpec{Adaptive: true}},
			verify: func(t *testing.T, got TuningArgs) {
				assert.Equal(t, 4.0, *got.Analysis.RefinementFactor)
				assert.Equal(t, 0.02, *got.Analysis.TransitionWidth)
			},
		},
		{
			name: "tournament size",
			in:   TuningArgs{Optimizer: OptimizerSpec{Selection: "tournament"}},
			verify: func(t *testing.T, got TuningArgs) {
				assert.Equal(t, 3, *got.Optimizer.TournamentSize)
			},
		},
		{
			name: "explicit values are kept",
			in: TuningArgs{
				NumCuts: 1,
				Optimizer: OptimizerSpec{
					PopulationSize: ptr.To(12),
					Workers:        ptr.To(2),
					Mutation:       "gaussian",
				},
			},
			verify: func(t *testing.T, got TuningArgs) {
				assert.Equal(t, 12, *got.Optimizer.PopulationSize)
				assert.Equal(t, 2, *got.Optimizer.Workers)
				assert.Nil(t, got.Optimizer.LengthBias)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			SetDefaults_TuningArgs(&got)
			tt.verify(t, got)

			again := got
			SetDefaults_TuningArgs(&again)
			require.Empty(t, cmp.Diff(got, again), "defaulting must be idempotent")
		})
	}
}

func TestTargets(t *testing.T) {
	args := TuningArgs{Fundamental: ptr.To(440.0), Ratios: []float64{1, 4, 10}}
	assert.Equal(t, []float64{440, 1760, 4400}, args.Targets())

	args.TargetFrequencies = []float64{100, 400}
	assert.Equal(t, []float64{100, 400}, args.Targets())

	assert.Nil(t, (&TuningArgs{}).Targets())
}
