/*
Copyright 2024 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// GroupVersion is the apiVersion of every object in this package.
	GroupVersion = "bartuner.marimba-lab.io/v1alpha1"

	TuningArgsKind   = "TuningArgs"
	TuningResultKind = "TuningResult"
)

// TuningArgs configures one undercut optimization of a single bar.
// All lengths are in metres.
type TuningArgs struct {
	metav1.TypeMeta `json:",inline"`

	// Bar is the blank bar geometry
	Bar BarSpec `json:"bar"`

	// Material is a key of the built-in material table. Ignored when
	// CustomMaterial is set.
	Material string `json:"material,omitempty"`

	// CustomMaterial overrides the material table
	CustomMaterial *MaterialSpec `json:"customMaterial,omitempty"`

	// TargetFrequencies lists the desired mode frequencies in Hz, fundamental first.
	// When empty, the targets are Fundamental times each of Ratios.
	TargetFrequencies []float64 `json:"targetFrequencies,omitempty"`

	// Fundamental is the desired first-mode frequency in Hz
	Fundamental *float64 `json:"fundamental,omitempty"`

	// Ratios are the overtone ratios relative to the fundamental
	Ratios []float64 `json:"ratios,omitempty"`

	// NumCuts is the number of rectangular undercuts
	NumCuts int `json:"numCuts"`

	Analysis    AnalysisSpec    `json:"analysis,omitempty"`
	Objective   ObjectiveSpec   `json:"objective,omitempty"`
	Constraints ConstraintsSpec `json:"constraints,omitempty"`
	Optimizer   OptimizerSpec   `json:"optimizer,omitempty"`
}

// BarSpec describes the bar before any cut
type BarSpec struct {
	Length       float64 `json:"length"`
	Width        float64 `json:"width"`
	Thickness    float64 `json:"thickness"`
	MinThickness float64 `json:"minThickness"`
}

// MaterialSpec holds isotropic elastic properties
type MaterialSpec struct {
	Name string `json:"name,omitempty"`
	// YoungsModulus in Pa
	YoungsModulus float64 `json:"youngsModulus"`
	// Density in kg/m^3
	Density      float64 `json:"density"`
	PoissonRatio float64 `json:"poissonRatio"`
}

// AnalysisMode selects the structural model
// +kubebuilder:validation:Enum=2d;3d
type AnalysisMode string

const (
	AnalysisMode2D AnalysisMode = "2d"
	AnalysisMode3D AnalysisMode = "3d"
)

// AnalysisSpec configures the frequency solver
type AnalysisSpec struct {
	Mode AnalysisMode `json:"mode,omitempty"`

	// NumElements is the number of elements along the length
	NumElements *int `json:"numElements,omitempty"`

	// NumElementsY and NumElementsZ are the 3D element counts across width and thickness
	NumElementsY *int `json:"numElementsY,omitempty"`
	NumElementsZ *int `json:"numElementsZ,omitempty"`

	// Adaptive refines the mesh around cut boundaries
	Adaptive bool `json:"adaptive,omitempty"`

	RefinementFactor *float64 `json:"refinementFactor,omitempty"`

	// TransitionWidth is the refined zone half-width as a fraction of the length
	TransitionWidth *float64 `json:"transitionWidth,omitempty"`
}

// PenaltyType names the geometric penalty blended into the fitness
// +kubebuilder:validation:Enum=none;volume;roughness
type PenaltyType string

const (
	PenaltyNone      PenaltyType = "none"
	PenaltyVolume    PenaltyType = "volume"
	PenaltyRoughness PenaltyType = "roughness"
)

// ObjectiveSpec configures the fitness
type ObjectiveSpec struct {
	// F1Priority weights the fundamental against the other modes
	F1Priority *float64 `json:"f1Priority,omitempty"`

	Penalty PenaltyType `json:"penalty,omitempty"`

	// PenaltyWeight is the blend weight α in [0, 1]
	PenaltyWeight float64 `json:"penaltyWeight,omitempty"`

	// FrequencyOffset scales the search targets by 1+FrequencyOffset.
	// Results are always reported against the unscaled targets.
	FrequencyOffset float64 `json:"frequencyOffset,omitempty"`
}

// ConstraintsSpec restricts the cut geometry. Zero disables a constraint.
type ConstraintsSpec struct {
	MinSpacing      float64 `json:"minSpacing,omitempty"`
	MaxSpacing      float64 `json:"maxSpacing,omitempty"`
	MinCutDepth     float64 `json:"minCutDepth,omitempty"`
	MaxCutDepth     float64 `json:"maxCutDepth,omitempty"`
	MaxLengthTrim   float64 `json:"maxLengthTrim,omitempty"`
	MaxLengthExtend float64 `json:"maxLengthExtend,omitempty"`
}

// OptimizerSpec configures the evolutionary search
type OptimizerSpec struct {
	PopulationSize   *int     `json:"populationSize,omitempty"`
	ElitismPercent   *float64 `json:"elitismPercent,omitempty"`
	CrossoverPercent *float64 `json:"crossoverPercent,omitempty"`
	MutationPercent  *float64 `json:"mutationPercent,omitempty"`

	// MutationStrength is the uniform step, or φ for gaussian mutation
	MutationStrength *float64 `json:"mutationStrength,omitempty"`

	MaxGenerations *int `json:"maxGenerations,omitempty"`

	// TargetError stops the search once the best fitness reaches it
	TargetError *float64 `json:"targetError,omitempty"`

	// Workers bounds the number of concurrent evaluations
	Workers *int `json:"workers,omitempty"`

	// Seed makes a run reproducible
	Seed *uint64 `json:"seed,omitempty"`

	// SeedGenes warm-starts the population from a previous solution
	SeedGenes []float64 `json:"seedGenes,omitempty"`

	// +kubebuilder:validation:Enum=roulette;tournament;rank
	Selection      string `json:"selection,omitempty"`
	TournamentSize *int   `json:"tournamentSize,omitempty"`

	// +kubebuilder:validation:Enum=heuristic;single;two;uniform;blend
	Crossover string `json:"crossover,omitempty"`

	// +kubebuilder:validation:Enum=uniform;adaptive-length;gaussian;polynomial
	Mutation string `json:"mutation,omitempty"`

	// LengthBias is the adaptive-length direction bias
	LengthBias *float64 `json:"lengthBias,omitempty"`

	// Tau1 and Tau2 override the gaussian learning rates
	Tau1 *float64 `json:"tau1,omitempty"`
	Tau2 *float64 `json:"tau2,omitempty"`
}

// TuningPhase tells how a run ended
type TuningPhase string

const (
	// TuningPhaseConverged indicates the target error was reached
	TuningPhaseConverged TuningPhase = "Converged"

	// TuningPhaseExhausted indicates the generation limit was reached first
	TuningPhaseExhausted TuningPhase = "Exhausted"

	// TuningPhaseCancelled indicates the run was stopped early
	TuningPhaseCancelled TuningPhase = "Cancelled"
)

// CutSpec is a symmetric undercut: half-width from the centre and remaining thickness
type CutSpec struct {
	Lambda float64 `json:"lambda"`
	H      float64 `json:"h"`
}

// TuningResult is the outcome of a run
type TuningResult struct {
	metav1.TypeMeta `json:",inline"`

	Phase TuningPhase `json:"phase"`

	Generations int `json:"generations"`

	Cuts []CutSpec `json:"cuts"`

	// Genes is the raw best gene vector, usable as SeedGenes
	Genes []float64 `json:"genes"`

	TargetFrequencies   []float64 `json:"targetFrequencies"`
	ComputedFrequencies []float64 `json:"computedFrequencies"`
	CentsErrors         []float64 `json:"centsErrors"`

	// TuningError is the weighted mean squared relative error in percent
	TuningError   float64 `json:"tuningError"`
	MaxCentsError float64 `json:"maxCentsError"`

	// VolumePercent is the share of the half-bar profile removed
	VolumePercent    float64 `json:"volumePercent"`
	RoughnessPercent float64 `json:"roughnessPercent"`

	LengthTrim      float64 `json:"lengthTrim"`
	EffectiveLength float64 `json:"effectiveLength"`

	CompletedAt *metav1.Time `json:"completedAt,omitempty"`
}
