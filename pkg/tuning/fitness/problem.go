package fitness

import (
	"context"
	"fmt"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// BarProblem is a framework.Problem backed by an Evaluator. The search runs
// against targets scaled by 1+FrequencyOffset; Finalize reports against the
// unscaled ones.
type BarProblem struct {
	name      string
	evaluator *Evaluator
	bounds    framework.VariableBounds
	targets   []float64
	search    []float64
}

// NewBarProblem returns a problem whose search targets are
// targets·(1+offset).
func NewBarProblem(name string, e *Evaluator, bounds framework.VariableBounds, targets []float64, offset float64) (*BarProblem, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one target frequency is required")
	}
	search := make([]float64, len(targets))
	for i, t := range targets {
		if !(t > 0) {
			return nil, fmt.Errorf("target frequency %d must be > 0, got %g", i, t)
		}
		search[i] = t * (1 + offset)
	}
	if bounds.LengthAdjust != e.Model().LengthAdjust {
		return nil, fmt.Errorf("bounds and model disagree on the length gene")
	}
	return &BarProblem{
		name:      name,
		evaluator: e,
		bounds:    bounds,
		targets:   append([]float64(nil), targets...),
		search:    search,
	}, nil
}

func (p *BarProblem) Name() string { return p.name }

func (p *BarProblem) NumCuts() int { return p.evaluator.Model().NumCuts }

func (p *BarProblem) Bounds() framework.VariableBounds { return p.bounds }

func (p *BarProblem) Targets() []float64 { return p.search }

// OriginalTargets are the targets before the frequency offset.
func (p *BarProblem) OriginalTargets() []float64 { return p.targets }

func (p *BarProblem) Evaluator() *Evaluator { return p.evaluator }

func (p *BarProblem) ObjectiveFunc() framework.ObjectiveFunc {
	return func(ctx context.Context, genes []float64) float64 {
		return p.evaluator.Fitness(ctx, genes, p.search)
	}
}

func (p *BarProblem) Frequencies(ctx context.Context, genes []float64) ([]float64, error) {
	return p.evaluator.Model().GenesToFrequencies(ctx, genes, len(p.search))
}

func (p *BarProblem) Fundamental(ctx context.Context, genes []float64) (float64, error) {
	freqs, err := p.evaluator.Model().GenesToFrequencies(ctx, genes, 1)
	if err != nil {
		return 0, err
	}
	if len(freqs) == 0 {
		return 0, ErrInsufficientModes
	}
	return freqs[0], nil
}

// OptimizationResult is the externally reported outcome of a run.
type OptimizationResult struct {
	Best        framework.Individual `json:"-"`
	Genes       []float64            `json:"genes"`
	Generations int                  `json:"generations"`
	Evaluation  `json:",inline"`
}

// Finalize re-evaluates best against the original targets.
func (p *BarProblem) Finalize(ctx context.Context, best framework.Individual, generations int) (*OptimizationResult, error) {
	ev, err := p.evaluator.Evaluate(ctx, best.Genes, p.targets)
	if err != nil {
		return nil, fmt.Errorf("evaluating best individual: %w", err)
	}
	return &OptimizationResult{
		Best:        best.Clone(),
		Genes:       append([]float64(nil), best.Genes...),
		Generations: generations,
		Evaluation:  ev,
	}, nil
}
