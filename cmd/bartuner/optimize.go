package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/marimba-lab/bartuner/apis/config/v1alpha1"
	"github.com/marimba-lab/bartuner/pkg/tuning"
	"github.com/marimba-lab/bartuner/pkg/tuning/algorithms"
	"github.com/marimba-lab/bartuner/pkg/tuning/util"
)

type optimizeOptions struct {
	argsOptions

	population  int
	generations int
	targetError float64
	workers     int
	seed        uint64
	plotDir     string
	quiet       bool
}

func newOptimizeCommand() *cobra.Command {
	o := &optimizeOptions{}
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search undercut positions and depths that tune a bar",
		Example: `  bartuner optimize --benchmark SapeleF4 --generations 50
  bartuner optimize -c marimba-c4.yaml --plot-dir out/ -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}
	fs := cmd.Flags()
	o.addFlags(fs)
	fs.IntVar(&o.population, "population", 0, "population size")
	fs.IntVar(&o.generations, "generations", 0, "maximum number of generations")
	fs.Float64Var(&o.targetError, "target-error", 0, "stop once the tuning error in percent falls to this value")
	fs.IntVar(&o.workers, "workers", 0, "concurrent evaluations, 0 for all CPUs")
	fs.Uint64Var(&o.seed, "seed", 0, "random seed for a reproducible run")
	fs.StringVar(&o.plotDir, "plot-dir", "", "write convergence and profile charts to this directory")
	fs.BoolVarP(&o.quiet, "quiet", "q", false, "do not print per-generation progress")
	return cmd
}

func (o *optimizeOptions) overrideOptimizer(args *v1alpha1.TuningArgs) {
	opt := &args.Optimizer
	if o.changed("population") {
		opt.PopulationSize = ptr.To(o.population)
	}
	if o.changed("generations") {
		opt.MaxGenerations = ptr.To(o.generations)
	}
	if o.changed("target-error") {
		opt.TargetError = ptr.To(o.targetError)
	}
	if o.changed("workers") {
		opt.Workers = ptr.To(o.workers)
	}
	if o.changed("seed") {
		opt.Seed = ptr.To(o.seed)
	}
}

func (o *optimizeOptions) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := klog.FromContext(ctx)

	args, err := o.load(o.overrideOptimizer)
	if err != nil {
		return err
	}
	tuner, err := tuning.New(ctx, args)
	if err != nil {
		return err
	}
	if !o.quiet {
		tuner.EA().OnProgress = progressPrinter(cmd.ErrOrStderr(), *args.Optimizer.MaxGenerations)
	}

	start := time.Now()
	out, err := tuner.Run(ctx)
	if err != nil {
		return err
	}
	evaluated := int64(out.Run.Generations+1) * int64(*args.Optimizer.PopulationSize)
	logger.V(2).Info("Run complete", "reason", out.Run.Reason, "elapsed", time.Since(start))
	fmt.Fprintf(cmd.ErrOrStderr(), "%s after %s generations, ~%s candidates in %s\n",
		out.Run.Reason, humanize.Comma(int64(out.Run.Generations)), humanize.Comma(evaluated),
		time.Since(start).Round(time.Millisecond))

	if o.plotDir != "" {
		if err := writePlots(o.plotDir, args, out); err != nil {
			return err
		}
	}
	return printObject(cmd.OutOrStdout(), o.output, out.Result(metav1.Now()))
}

func progressPrinter(w io.Writer, maxGenerations int) func(algorithms.ProgressUpdate) {
	return func(u algorithms.ProgressUpdate) {
		freqs := make([]string, len(u.Frequencies))
		for i, f := range u.Frequencies {
			freqs[i] = fmt.Sprintf("%.1f", f)
		}
		fmt.Fprintf(w, "gen %3d/%d  best %.4f%%  mean %.4f  diversity %.3f  f=[%s] Hz  %s\n",
			u.Generation, maxGenerations, u.BestFitness, u.AverageFitness, u.Diversity,
			strings.Join(freqs, " "), u.Elapsed.Round(time.Millisecond))
	}
}

func writePlots(dir string, args *v1alpha1.TuningArgs, out *tuning.Outcome) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := util.PlotConvergence(filepath.Join(dir, "convergence.html"), "Convergence", out.Run.History); err != nil {
		return err
	}
	model, err := tuning.ModelFromArgs(args)
	if err != nil {
		return err
	}
	bar := model.Bar.WithLength(out.Optimization.EffectiveLength)
	return util.PlotProfile(filepath.Join(dir, "profile.html"), "Undercut profile", out.Optimization.Cuts, bar)
}
