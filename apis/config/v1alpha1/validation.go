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
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

var (
	supportedModes      = []string{string(AnalysisMode2D), string(AnalysisMode3D)}
	supportedPenalties  = []string{string(PenaltyNone), string(PenaltyVolume), string(PenaltyRoughness)}
	supportedSelections = []string{"roulette", "tournament", "rank"}
	supportedCrossovers = []string{"heuristic", "single", "two", "uniform", "blend"}
	supportedMutations  = []string{"uniform", "adaptive-length", "gaussian", "polynomial"}
)

// ValidateTuningArgs validates defaulted args and returns every problem
// found as one aggregate error.
func ValidateTuningArgs(args *TuningArgs) error {
	var allErrs field.ErrorList

	allErrs = append(allErrs, validateBar(field.NewPath("bar"), args.Bar)...)
	allErrs = append(allErrs, validateMaterial(args)...)
	allErrs = append(allErrs, validateTargets(args)...)

	if args.NumCuts < 1 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("numCuts"), args.NumCuts, "must be greater than 0"))
	}

	allErrs = append(allErrs, validateAnalysis(field.NewPath("analysis"), args.Analysis)...)
	allErrs = append(allErrs, validateObjective(field.NewPath("objective"), args.Objective)...)
	allErrs = append(allErrs, validateConstraints(field.NewPath("constraints"), args)...)
	allErrs = append(allErrs, validateOptimizer(field.NewPath("optimizer"), args)...)

	return allErrs.ToAggregate()
}

type namedFloat struct {
	name string
	v    float64
}

func validateBar(path *field.Path, bar BarSpec) field.ErrorList {
	var allErrs field.ErrorList
	for _, f := range []namedFloat{
		{"length", bar.Length},
		{"width", bar.Width},
		{"thickness", bar.Thickness},
	} {
		if f.v <= 0 {
			allErrs = append(allErrs, field.Invalid(path.Child(f.name), f.v, "must be greater than 0"))
		}
	}
	if bar.MinThickness <= 0 || bar.MinThickness > bar.Thickness {
		allErrs = append(allErrs, field.Invalid(path.Child("minThickness"), bar.MinThickness, "must be in (0, thickness]"))
	}
	return allErrs
}

func validateMaterial(args *TuningArgs) field.ErrorList {
	if m := args.CustomMaterial; m != nil {
		path := field.NewPath("customMaterial")
		if err := (framework.Material{Name: m.Name, E: m.YoungsModulus, Rho: m.Density, Nu: m.PoissonRatio}).Validate(); err != nil {
			return field.ErrorList{field.Invalid(path, *m, err.Error())}
		}
		return nil
	}
	if _, err := framework.LookupMaterial(args.Material); err != nil {
		return field.ErrorList{field.NotSupported(field.NewPath("material"), args.Material, framework.MaterialKeys())}
	}
	return nil
}

func validateTargets(args *TuningArgs) field.ErrorList {
	var allErrs field.ErrorList
	if len(args.TargetFrequencies) == 0 {
		if args.Fundamental == nil || len(args.Ratios) == 0 {
			return field.ErrorList{field.Required(field.NewPath("targetFrequencies"), "either targetFrequencies or fundamental and ratios must be set")}
		}
		if *args.Fundamental <= 0 {
			allErrs = append(allErrs, field.Invalid(field.NewPath("fundamental"), *args.Fundamental, "must be greater than 0"))
		}
	}
	for i, f := range args.Targets() {
		if f <= 0 {
			allErrs = append(allErrs, field.Invalid(field.NewPath("targetFrequencies").Index(i), f, "must be greater than 0"))
		}
	}
	return allErrs
}

func validateAnalysis(path *field.Path, a AnalysisSpec) field.ErrorList {
	var allErrs field.ErrorList
	if !contains(supportedModes, string(a.Mode)) {
		allErrs = append(allErrs, field.NotSupported(path.Child("mode"), a.Mode, supportedModes))
	}
	allErrs = append(allErrs, positiveInt(path.Child("numElements"), a.NumElements)...)
	if a.Mode == AnalysisMode3D {
		allErrs = append(allErrs, positiveInt(path.Child("numElementsY"), a.NumElementsY)...)
		allErrs = append(allErrs, positiveInt(path.Child("numElementsZ"), a.NumElementsZ)...)
	}
	if a.Adaptive {
		if a.RefinementFactor == nil || *a.RefinementFactor < 1 {
			allErrs = append(allErrs, field.Invalid(path.Child("refinementFactor"), value(a.RefinementFactor), "must be at least 1"))
		}
		if a.TransitionWidth == nil || *a.TransitionWidth <= 0 || *a.TransitionWidth >= 0.5 {
			allErrs = append(allErrs, field.Invalid(path.Child("transitionWidth"), value(a.TransitionWidth), "must be in (0, 0.5)"))
		}
	}
	return allErrs
}

func validateObjective(path *field.Path, o ObjectiveSpec) field.ErrorList {
	var allErrs field.ErrorList
	if o.F1Priority == nil || *o.F1Priority <= 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("f1Priority"), value(o.F1Priority), "must be greater than 0"))
	}
	if !contains(supportedPenalties, string(o.Penalty)) {
		allErrs = append(allErrs, field.NotSupported(path.Child("penalty"), o.Penalty, supportedPenalties))
	}
	if o.PenaltyWeight < 0 || o.PenaltyWeight > 1 {
		allErrs = append(allErrs, field.Invalid(path.Child("penaltyWeight"), o.PenaltyWeight, "must be in [0, 1]"))
	}
	if o.FrequencyOffset <= -1 {
		allErrs = append(allErrs, field.Invalid(path.Child("frequencyOffset"), o.FrequencyOffset, "must be greater than -1"))
	}
	return allErrs
}

func validateConstraints(path *field.Path, args *TuningArgs) field.ErrorList {
	var allErrs field.ErrorList
	c := args.Constraints
	for _, f := range []namedFloat{
		{"minSpacing", c.MinSpacing},
		{"maxSpacing", c.MaxSpacing},
		{"minCutDepth", c.MinCutDepth},
		{"maxCutDepth", c.MaxCutDepth},
		{"maxLengthTrim", c.MaxLengthTrim},
		{"maxLengthExtend", c.MaxLengthExtend},
	} {
		if f.v < 0 {
			allErrs = append(allErrs, field.Invalid(path.Child(f.name), f.v, "must not be negative"))
		}
	}
	if c.MaxSpacing > 0 && c.MaxSpacing < c.MinSpacing {
		allErrs = append(allErrs, field.Invalid(path.Child("maxSpacing"), c.MaxSpacing, "must not be less than minSpacing"))
	}
	if c.MaxCutDepth > 0 && c.MaxCutDepth < c.MinCutDepth {
		allErrs = append(allErrs, field.Invalid(path.Child("maxCutDepth"), c.MaxCutDepth, "must not be less than minCutDepth"))
	}
	if c.MinSpacing*float64(max(args.NumCuts-1, 0)) > args.Bar.Length/2 {
		allErrs = append(allErrs, field.Invalid(path.Child("minSpacing"), c.MinSpacing, "cuts do not fit in half the bar"))
	}
	if c.MaxLengthTrim*2 >= args.Bar.Length && args.Bar.Length > 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("maxLengthTrim"), c.MaxLengthTrim, "must be less than half the bar length"))
	}
	return allErrs
}

func validateOptimizer(path *field.Path, args *TuningArgs) field.ErrorList {
	var allErrs field.ErrorList
	o := args.Optimizer

	allErrs = append(allErrs, positiveInt(path.Child("populationSize"), o.PopulationSize)...)
	for name, p := range map[string]*float64{
		"elitismPercent":   o.ElitismPercent,
		"crossoverPercent": o.CrossoverPercent,
		"mutationPercent":  o.MutationPercent,
	} {
		if p == nil || *p < 0 || *p > 100 {
			allErrs = append(allErrs, field.Invalid(path.Child(name), value(p), "must be in [0, 100]"))
		}
	}
	if o.ElitismPercent != nil && o.CrossoverPercent != nil && *o.ElitismPercent+*o.CrossoverPercent > 100 {
		allErrs = append(allErrs, field.Invalid(path.Child("crossoverPercent"), *o.CrossoverPercent, "elitism and crossover exceed 100 percent"))
	}
	if o.MutationStrength == nil || *o.MutationStrength <= 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("mutationStrength"), value(o.MutationStrength), "must be greater than 0"))
	}
	if o.MaxGenerations == nil || *o.MaxGenerations < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("maxGenerations"), value(o.MaxGenerations), "must not be negative"))
	}
	if o.TargetError == nil || *o.TargetError < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("targetError"), value(o.TargetError), "must not be negative"))
	}
	if o.Workers != nil && *o.Workers < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("workers"), *o.Workers, "must not be negative"))
	}
	if !contains(supportedSelections, o.Selection) {
		allErrs = append(allErrs, field.NotSupported(path.Child("selection"), o.Selection, supportedSelections))
	}
	if o.TournamentSize != nil && *o.TournamentSize < 1 {
		allErrs = append(allErrs, field.Invalid(path.Child("tournamentSize"), *o.TournamentSize, "must be greater than 0"))
	}
	if !contains(supportedCrossovers, o.Crossover) {
		allErrs = append(allErrs, field.NotSupported(path.Child("crossover"), o.Crossover, supportedCrossovers))
	}
	if !contains(supportedMutations, o.Mutation) {
		allErrs = append(allErrs, field.NotSupported(path.Child("mutation"), o.Mutation, supportedMutations))
	}
	if o.LengthBias != nil && (*o.LengthBias < 0 || *o.LengthBias > 1) {
		allErrs = append(allErrs, field.Invalid(path.Child("lengthBias"), *o.LengthBias, "must be in [0, 1]"))
	}
	if len(o.SeedGenes) > 0 {
		want := 2 * args.NumCuts
		if args.Constraints.MaxLengthTrim > 0 || args.Constraints.MaxLengthExtend > 0 {
			want++
		}
		if len(o.SeedGenes) != want {
			allErrs = append(allErrs, field.Invalid(path.Child("seedGenes"), len(o.SeedGenes), "length does not match the number of cuts"))
		}
	}
	return allErrs
}

func positiveInt(path *field.Path, v *int) field.ErrorList {
	if v == nil || *v < 1 {
		return field.ErrorList{field.Invalid(path, value(v), "must be greater than 0")}
	}
	return nil
}

func value[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
