package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

func newMaterialsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "materials",
		Short: "List the built-in materials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tCATEGORY\tYOUNG'S MODULUS\tDENSITY\tPOISSON")
			for _, key := range framework.MaterialKeys() {
				m, err := framework.LookupMaterial(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s kg/m³\t%.2f\n", key, m.Name, m.Category,
					humanize.SIWithDigits(m.E, 1, "Pa"), humanize.Commaf(m.Rho), m.Nu)
			}
			return w.Flush()
		},
	}
}
