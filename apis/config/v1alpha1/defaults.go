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
	"runtime"

	"k8s.io/utils/ptr"
)

var (
	defaultMaterial         = "sapele"
	defaultNumElements      = 150
	defaultNumElementsYZ    = 2
	defaultRefinementFactor = 4.0
	defaultTransitionWidth  = 0.02

	defaultF1Priority = 1.0

	defaultElitismPercent   = 10.0
	defaultCrossoverPercent = 30.0
	defaultMutationPercent  = 60.0
	defaultMutationStrength = 0.1
	defaultMaxGenerations   = 100
	defaultTargetError      = 0.01
	defaultTournamentSize   = 3
	defaultLengthBias       = 0.7
)

// SetDefaults_TuningArgs sets the default parameters for a tuning run.
func SetDefaults_TuningArgs(obj *TuningArgs) {
	if obj.APIVersion == "" {
		obj.APIVersion = GroupVersion
	}
	if obj.Kind == "" {
		obj.Kind = TuningArgsKind
	}
	if obj.Material == "" && obj.CustomMaterial == nil {
		obj.Material = defaultMaterial
	}

	a := &obj.Analysis
	if a.Mode == "" {
		a.Mode = AnalysisMode2D
	}
	if a.NumElements == nil {
		a.NumElements = ptr.To(defaultNumElements)
	}
	if a.NumElementsY == nil {
		a.NumElementsY = ptr.To(defaultNumElementsYZ)
	}
	if a.NumElementsZ == nil {
		a.NumElementsZ = ptr.To(defaultNumElementsYZ)
	}
	if a.Adaptive {
		if a.RefinementFactor == nil {
			a.RefinementFactor = ptr.To(defaultRefinementFactor)
		}
		if a.TransitionWidth == nil {
			a.TransitionWidth = ptr.To(defaultTransitionWidth)
		}
	}

	if obj.Objective.F1Priority == nil {
		obj.Objective.F1Priority = ptr.To(defaultF1Priority)
	}
	if obj.Objective.Penalty == "" {
		obj.Objective.Penalty = PenaltyNone
	}

	o := &obj.Optimizer
	if o.PopulationSize == nil {
		o.PopulationSize = ptr.To(max(30, 10*obj.NumCuts))
	}
	if o.ElitismPercent == nil {
		o.ElitismPercent = ptr.To(defaultElitismPercent)
	}
	if o.CrossoverPercent == nil {
		o.CrossoverPercent = ptr.To(defaultCrossoverPercent)
	}
	if o.MutationPercent == nil {
		o.MutationPercent = ptr.To(defaultMutationPercent)
	}
	if o.MutationStrength == nil {
		o.MutationStrength = ptr.To(defaultMutationStrength)
	}
	if o.MaxGenerations == nil {
		o.MaxGenerations = ptr.To(defaultMaxGenerations)
	}
	if o.TargetError == nil {
		o.TargetError = ptr.To(defaultTargetError)
	}
	if o.Workers == nil {
		o.Workers = ptr.To(min(runtime.GOMAXPROCS(0), *o.PopulationSize))
	}
	if o.Selection == "" {
		o.Selection = "roulette"
	}
	if o.Selection == "tournament" && o.TournamentSize == nil {
		o.TournamentSize = ptr.To(defaultTournamentSize)
	}
	if o.Crossover == "" {
		o.Crossover = "heuristic"
	}
	if o.Mutation == "" {
		o.Mutation = "adaptive-length"
	}
	if o.Mutation == "adaptive-length" && o.LengthBias == nil {
		o.LengthBias = ptr.To(defaultLengthBias)
	}
}

// Targets returns the explicit targets, or Fundamental times each ratio.
func (a *TuningArgs) Targets() []float64 {
	if len(a.TargetFrequencies) > 0 {
		return a.TargetFrequencies
	}
	if a.Fundamental == nil {
		return nil
	}
	out := make([]float64, len(a.Ratios))
	for i, r := range a.Ratios {
		out[i] = *a.Fundamental * r
	}
	return out
}
