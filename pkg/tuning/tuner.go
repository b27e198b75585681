package tuning

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"

	"github.com/marimba-lab/bartuner/apis/config/v1alpha1"
	"github.com/marimba-lab/bartuner/pkg/tuning/algorithms"
	"github.com/marimba-lab/bartuner/pkg/tuning/fitness"
	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
	"github.com/marimba-lab/bartuner/pkg/tuning/profile"
)

const (
	Name = "BarTuner"

	// cacheTTL keeps fitness values for the lifetime of a typical run.
	cacheTTL = 10 * time.Minute
)

// Tuner runs one optimization described by a TuningArgs object.
type Tuner struct {
	args    *v1alpha1.TuningArgs
	problem *fitness.BarProblem
	ea      *algorithms.EA
}

// Outcome bundles the reported result with the raw optimizer output.
type Outcome struct {
	Optimization *fitness.OptimizationResult
	Run          *algorithms.Result
}

// New builds the problem and optimizer for args. args must already be
// defaulted; they are validated here.
func New(ctx context.Context, args *v1alpha1.TuningArgs) (*Tuner, error) {
	logger := klog.FromContext(ctx)
	logger.V(5).Info("creating tuner", "numCuts", args.NumCuts, "mode", args.Analysis.Mode)

	if err := v1alpha1.ValidateTuningArgs(args); err != nil {
		return nil, err
	}

	model, err := ModelFromArgs(args)
	if err != nil {
		return nil, err
	}
	e, err := fitness.NewEvaluator(fitness.Options{
		Model:      model,
		F1Priority: *args.Objective.F1Priority,
		Penalty:    fitness.PenaltyType(args.Objective.Penalty),
		Alpha:      args.Objective.PenaltyWeight,
		CacheTTL:   cacheTTL,
	})
	if err != nil {
		return nil, err
	}
	bounds := BoundsFromArgs(args)
	problem, err := fitness.NewBarProblem(Name, e, bounds, args.Targets(), args.Objective.FrequencyOffset)
	if err != nil {
		return nil, err
	}

	cfg, err := configFromArgs(args)
	if err != nil {
		return nil, err
	}
	logger.V(2).Info("optimizer configured", "seed", cfg.Seed, "selection", cfg.Selection.Name(),
		"crossover", cfg.Crossover.Name(), "mutation", cfg.Mutation.Name())
	ea, err := algorithms.NewEA(problem, cfg)
	if err != nil {
		return nil, err
	}
	ea.H0 = model.Bar.H0

	return &Tuner{args: args, problem: problem, ea: ea}, nil
}

func (t *Tuner) Name() string { return Name }

// Problem returns the problem being optimized.
func (t *Tuner) Problem() *fitness.BarProblem { return t.problem }

// EA returns the optimizer, so callers can attach progress and stop hooks.
func (t *Tuner) EA() *algorithms.EA { return t.ea }

// Run executes the optimization and evaluates the best design against the
// unscaled targets.
func (t *Tuner) Run(ctx context.Context) (*Outcome, error) {
	res, err := t.ea.Run(ctx)
	if err != nil {
		return nil, err
	}
	// Finalization must complete even when the run itself was cancelled.
	opt, err := t.problem.Finalize(context.WithoutCancel(ctx), res.Best, res.Generations)
	if err != nil {
		return nil, err
	}
	return &Outcome{Optimization: opt, Run: res}, nil
}

// Result converts o to its API representation.
func (o *Outcome) Result(now metav1.Time) *v1alpha1.TuningResult {
	opt := o.Optimization
	cuts := make([]v1alpha1.CutSpec, len(opt.Cuts))
	for i, c := range opt.Cuts {
		cuts[i] = v1alpha1.CutSpec{Lambda: c.Lambda, H: c.H}
	}
	return &v1alpha1.TuningResult{
		TypeMeta: metav1.TypeMeta{
			APIVersion: v1alpha1.GroupVersion,
			Kind:       v1alpha1.TuningResultKind,
		},
		Phase:               phase(o.Run.Reason),
		Generations:         opt.Generations,
		Cuts:                cuts,
		Genes:               opt.Genes,
		TargetFrequencies:   opt.Targets,
		ComputedFrequencies: opt.Frequencies,
		CentsErrors:         opt.CentsErrors,
		TuningError:         opt.TuningError,
		MaxCentsError:       opt.MaxCentsError,
		VolumePercent:       opt.VolumePenalty,
		RoughnessPercent:    opt.RoughnessPenalty,
		LengthTrim:          opt.LengthAdjustment,
		EffectiveLength:     opt.EffectiveLength,
		CompletedAt:         &now,
	}
}

func phase(r algorithms.StopReason) v1alpha1.TuningPhase {
	switch r {
	case algorithms.StopTargetReached:
		return v1alpha1.TuningPhaseConverged
	case algorithms.StopCancelled:
		return v1alpha1.TuningPhaseCancelled
	default:
		return v1alpha1.TuningPhaseExhausted
	}
}

// MaterialFromArgs resolves the custom or named material.
func MaterialFromArgs(args *v1alpha1.TuningArgs) (framework.Material, error) {
	if m := args.CustomMaterial; m != nil {
		name := m.Name
		if name == "" {
			name = "custom"
		}
		mat := framework.Material{Name: name, E: m.YoungsModulus, Rho: m.Density, Nu: m.PoissonRatio}
		return mat, mat.Validate()
	}
	return framework.LookupMaterial(args.Material)
}

// ModelFromArgs builds the frequency model described by defaulted args.
func ModelFromArgs(args *v1alpha1.TuningArgs) (fitness.Model, error) {
	mat, err := MaterialFromArgs(args)
	if err != nil {
		return fitness.Model{}, err
	}
	a := args.Analysis
	model := fitness.Model{
		Bar:          barFromArgs(args),
		Material:     mat,
		NumCuts:      args.NumCuts,
		NumElements:  derefOr(a.NumElements, 0),
		Mode:         framework.Mode(a.Mode),
		NY:           derefOr(a.NumElementsY, 0),
		NZ:           derefOr(a.NumElementsZ, 0),
		LengthAdjust: BoundsFromArgs(args).LengthAdjust,
	}
	if a.Adaptive {
		opts := profile.DefaultMeshOptions()
		opts.BaseElements = model.NumElements
		opts.RefinementFactor = derefOr(a.RefinementFactor, opts.RefinementFactor)
		opts.TransitionWidth = derefOr(a.TransitionWidth, opts.TransitionWidth)
		model.Adaptive = &opts
	}
	return model, model.Validate()
}

// BoundsFromArgs derives the gene bounds of args.
func BoundsFromArgs(args *v1alpha1.TuningArgs) framework.VariableBounds {
	return framework.NewVariableBounds(barFromArgs(args), constraintsFromArgs(args))
}

func barFromArgs(args *v1alpha1.TuningArgs) framework.BarParameters {
	return framework.BarParameters{
		L:    args.Bar.Length,
		B:    args.Bar.Width,
		H0:   args.Bar.Thickness,
		HMin: args.Bar.MinThickness,
	}
}

func constraintsFromArgs(args *v1alpha1.TuningArgs) framework.Constraints {
	c := args.Constraints
	return framework.Constraints{
		MinSpacing:      c.MinSpacing,
		MaxSpacing:      c.MaxSpacing,
		MinCutDepth:     c.MinCutDepth,
		MaxCutDepth:     c.MaxCutDepth,
		MaxLengthTrim:   c.MaxLengthTrim,
		MaxLengthExtend: c.MaxLengthExtend,
	}
}

func configFromArgs(args *v1alpha1.TuningArgs) (algorithms.Config, error) {
	o := args.Optimizer
	cfg := algorithms.DefaultConfig(args.NumCuts)
	cfg.PopulationSize = derefOr(o.PopulationSize, cfg.PopulationSize)
	cfg.ElitismPercent = derefOr(o.ElitismPercent, cfg.ElitismPercent)
	cfg.CrossoverPercent = derefOr(o.CrossoverPercent, cfg.CrossoverPercent)
	cfg.MutationPercent = derefOr(o.MutationPercent, cfg.MutationPercent)
	cfg.MaxGenerations = derefOr(o.MaxGenerations, cfg.MaxGenerations)
	cfg.TargetError = derefOr(o.TargetError, cfg.TargetError)
	cfg.Workers = derefOr(o.Workers, 0)
	cfg.Seed = derefOr(o.Seed, rand.Uint64())
	cfg.SeedGenes = o.SeedGenes

	var ok bool
	if cfg.Selection, ok = algorithms.NewSelection(o.Selection, derefOr(o.TournamentSize, 0)); !ok {
		return cfg, fmt.Errorf("%w: unknown selection %q", algorithms.ErrInvalidConfig, o.Selection)
	}
	if cfg.Crossover, ok = algorithms.NewCrossover(o.Crossover); !ok {
		return cfg, fmt.Errorf("%w: unknown crossover %q", algorithms.ErrInvalidConfig, o.Crossover)
	}
	m, ok := algorithms.NewMutation(o.Mutation, derefOr(o.MutationStrength, 0.1))
	if !ok {
		return cfg, fmt.Errorf("%w: unknown mutation %q", algorithms.ErrInvalidConfig, o.Mutation)
	}
	switch mm := m.(type) {
	case algorithms.AdaptiveLengthMutation:
		mm.Bias = derefOr(o.LengthBias, mm.Bias)
		m = mm
	case algorithms.GaussianMutation:
		mm.Tau1 = derefOr(o.Tau1, 0)
		mm.Tau2 = derefOr(o.Tau2, 0)
		m = mm
	}
	cfg.Mutation = m
	return cfg, nil
}

func derefOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
