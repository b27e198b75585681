package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marimba-lab/bartuner/pkg/tuning"
	"github.com/marimba-lab/bartuner/pkg/tuning/profile"
)

type resolutionOptions struct {
	argsOptions

	genes []float64
}

func newCheckResolutionCommand() *cobra.Command {
	o := &resolutionOptions{}
	cmd := &cobra.Command{
		Use:   "check-resolution",
		Short: "Check that the mesh resolves every cut before a long run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := o.load()
			if err != nil {
				return err
			}
			model, err := tuning.ModelFromArgs(args)
			if err != nil {
				return err
			}
			genes, err := resolveGenes(args, model, o.genes)
			if err != nil {
				return err
			}
			refinement := 0.0
			if model.Adaptive != nil {
				refinement = model.Adaptive.RefinementFactor
			}
			report := profile.CheckResolution(model.Cuts(genes), model.EffectiveLength(genes),
				model.NumElements, model.Adaptive != nil, refinement)
			for _, w := range report.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w.Message)
			}
			return printObject(cmd.OutOrStdout(), o.output, report)
		},
	}
	o.addFlags(cmd.Flags())
	cmd.Flags().Float64SliceVar(&o.genes, "genes", nil, "gene vector λ1,h1,...,λn,hn[,Δlength] to check")
	return cmd
}
