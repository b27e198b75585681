package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marimba-lab/bartuner/apis/config/v1alpha1"
	"github.com/marimba-lab/bartuner/pkg/tuning"
	"github.com/marimba-lab/bartuner/pkg/tuning/algorithms"
	"github.com/marimba-lab/bartuner/pkg/tuning/fem/solid"
	"github.com/marimba-lab/bartuner/pkg/tuning/fitness"
	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
	"github.com/marimba-lab/bartuner/pkg/tuning/profile"
)

type frequenciesOptions struct {
	argsOptions

	genes    []float64
	modes    int
	classify bool
}

type frequencyReport struct {
	Genes           []float64       `json:"genes"`
	Cuts            []framework.Cut `json:"cuts"`
	EffectiveCuts   int             `json:"effectiveCuts"`
	EffectiveLength float64         `json:"effectiveLength"`
	Frequencies     []float64       `json:"frequencies"`
	// Ratios are relative to the first frequency.
	Ratios      []float64 `json:"ratios"`
	Targets     []float64 `json:"targets,omitempty"`
	CentsErrors []float64 `json:"centsErrors,omitempty"`

	Modes map[solid.ModeType][]solid.ClassifiedMode `json:"modes,omitempty"`
}

func newFrequenciesCommand() *cobra.Command {
	o := &frequenciesOptions{}
	cmd := &cobra.Command{
		Use:   "frequencies",
		Short: "Compute the mode frequencies of a cut bar",
		Example: `  bartuner frequencies --benchmark SapeleF4
  bartuner frequencies -c bar.yaml --genes 0.12,0.008,0.05,0.015 --mode 3d --classify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := o.load()
			if err != nil {
				return err
			}
			report, err := o.compute(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printObject(cmd.OutOrStdout(), o.output, report)
		},
	}
	fs := cmd.Flags()
	o.addFlags(fs)
	fs.Float64SliceVar(&o.genes, "genes", nil, "gene vector λ1,h1,...,λn,hn[,Δlength]; the uncut bar when empty")
	fs.IntVar(&o.modes, "modes", 0, "number of modes, defaults to the number of targets")
	fs.BoolVar(&o.classify, "classify", false, "report every 3D mode family (3d mode only)")
	return cmd
}

func (o *frequenciesOptions) compute(ctx context.Context, args *v1alpha1.TuningArgs) (*frequencyReport, error) {
	model, err := tuning.ModelFromArgs(args)
	if err != nil {
		return nil, err
	}
	genes, err := resolveGenes(args, model, o.genes)
	if err != nil {
		return nil, err
	}
	targets := args.Targets()
	n := o.modes
	if n <= 0 {
		n = max(len(targets), 1)
	}

	freqs, err := model.GenesToFrequencies(ctx, genes, n)
	if err != nil {
		return nil, err
	}
	r := &frequencyReport{
		Genes:           genes,
		Cuts:            model.Cuts(genes),
		EffectiveCuts:   profile.EffectiveCuts(model.Cuts(genes)),
		EffectiveLength: model.EffectiveLength(genes),
		Frequencies:     freqs,
		Ratios:          make([]float64, len(freqs)),
		Targets:         targets,
	}
	for i, f := range freqs {
		r.Ratios[i] = f / freqs[0]
		if i < len(targets) {
			r.CentsErrors = append(r.CentsErrors, fitness.Cents(f, targets[i]))
		}
	}

	if o.classify {
		if model.Mode != framework.Mode3D {
			return nil, errors.New("--classify requires --mode 3d")
		}
		mesh, err := model.SolidMesh(genes)
		if err != nil {
			return nil, err
		}
		ms, err := solid.Modes(ctx, mesh, model.Material, 4*n+6)
		if err != nil {
			return nil, err
		}
		r.Modes = solid.ClassifyModes(ms)
	}
	return r, nil
}

// resolveGenes validates user genes, or returns the uncut bar. Genes out of
// the bar limits are rejected; spacing is then enforced by Clamp.
func resolveGenes(args *v1alpha1.TuningArgs, model fitness.Model, genes []float64) ([]float64, error) {
	vb := tuning.BoundsFromArgs(args)
	if len(genes) == 0 {
		return algorithms.UncutGenes(args.NumCuts, vb, args.Bar.Thickness), nil
	}
	if want := vb.NumGenes(args.NumCuts); len(genes) != want {
		return nil, fmt.Errorf("got %d genes, want %d for %d cuts", len(genes), want, args.NumCuts)
	}
	if err := profile.ValidateCuts(profile.GenesToCuts(genes), model.Bar); err != nil {
		return nil, err
	}
	if vb.LengthAdjust {
		lo, hi := vb.Range(2*args.NumCuts, args.NumCuts)
		if d := genes[2*args.NumCuts]; d < lo || d > hi {
			return nil, fmt.Errorf("length adjustment %g out of bounds [%g, %g]", d, lo, hi)
		}
	}
	return vb.Clamp(genes), nil
}
