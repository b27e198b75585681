package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/marimba-lab/bartuner/apis/config/v1alpha1"
	"github.com/marimba-lab/bartuner/pkg/tuning"
	"github.com/marimba-lab/bartuner/pkg/tuning/benchmarks"
)

// argsOptions are the flags shared by every command that needs a bar.
// Flags override the config file only when set explicitly.
type argsOptions struct {
	configFile string
	benchmark  string

	material    string
	numCuts     int
	mode        string
	numElements int
	adaptive    bool
	fundamental float64
	ratios      []float64
	targets     []float64
	output      string

	fs *pflag.FlagSet
}

func (o *argsOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configFile, "config", "c", "", "TuningArgs file (YAML or JSON)")
	fs.StringVar(&o.benchmark, "benchmark", "", "start from a named scenario instead of a config file ("+benchmarks.Name+")")
	fs.StringVar(&o.material, "material", "", "material key, see 'bartuner materials'")
	fs.IntVar(&o.numCuts, "cuts", 0, "number of undercuts")
	fs.StringVar(&o.mode, "mode", "", "analysis mode: 2d or 3d")
	fs.IntVar(&o.numElements, "elements", 0, "elements along the bar length")
	fs.BoolVar(&o.adaptive, "adaptive", false, "refine the mesh around cut boundaries")
	fs.Float64Var(&o.fundamental, "fundamental", 0, "target fundamental in Hz, used with --ratios")
	fs.Float64SliceVar(&o.ratios, "ratios", nil, "overtone ratios relative to the fundamental")
	fs.Float64SliceVar(&o.targets, "targets", nil, "explicit target frequencies in Hz")
	fs.StringVarP(&o.output, "output", "o", "yaml", "output format: yaml or json")
	o.fs = fs
}

func (o *argsOptions) changed(name string) bool {
	return o.fs != nil && o.fs.Changed(name)
}

// override copies explicitly set flags into args.
func (o *argsOptions) override(args *v1alpha1.TuningArgs) {
	if o.changed("material") {
		args.Material = o.material
		args.CustomMaterial = nil
	}
	if o.changed("cuts") {
		args.NumCuts = o.numCuts
	}
	if o.changed("mode") {
		args.Analysis.Mode = v1alpha1.AnalysisMode(o.mode)
	}
	if o.changed("elements") {
		args.Analysis.NumElements = ptr.To(o.numElements)
	}
	if o.changed("adaptive") {
		args.Analysis.Adaptive = o.adaptive
	}
	if o.changed("fundamental") {
		args.Fundamental = ptr.To(o.fundamental)
		args.TargetFrequencies = nil
	}
	if o.changed("ratios") {
		args.Ratios = o.ratios
	}
	if o.changed("targets") {
		args.TargetFrequencies = o.targets
	}
}

// load resolves the args from --config or --benchmark plus overrides.
func (o *argsOptions) load(extra ...tuning.Override) (*v1alpha1.TuningArgs, error) {
	overrides := append([]tuning.Override{o.override}, extra...)
	var args *v1alpha1.TuningArgs
	switch {
	case o.configFile != "" && o.benchmark != "":
		return nil, errors.New("--config and --benchmark are mutually exclusive")
	case o.configFile != "":
		var err error
		if args, err = tuning.LoadArgs(o.configFile, overrides...); err != nil {
			return nil, err
		}
	case o.benchmark != "":
		raw, err := benchmarkArgs(o.benchmark)
		if err != nil {
			return nil, err
		}
		args = tuning.Default(raw, overrides...)
	default:
		return nil, errors.New("either --config or --benchmark is required")
	}
	if err := v1alpha1.ValidateTuningArgs(args); err != nil {
		return nil, err
	}
	return args, nil
}

// benchmarkArgs returns the undefaulted args of a named scenario.
func benchmarkArgs(name string) (*v1alpha1.TuningArgs, error) {
	if !strings.EqualFold(name, benchmarks.Name) {
		return nil, fmt.Errorf("unknown benchmark %q, want %q", name, benchmarks.Name)
	}
	bar := benchmarks.Bar
	return &v1alpha1.TuningArgs{
		Bar: v1alpha1.BarSpec{
			Length:       bar.L,
			Width:        bar.B,
			Thickness:    bar.H0,
			MinThickness: bar.HMin,
		},
		Material:    benchmarks.MaterialKey,
		Fundamental: ptr.To(benchmarks.F4),
		Ratios:      append([]float64(nil), benchmarks.Ratios...),
		NumCuts:     benchmarks.NumCuts,
	}, nil
}

func printObject(w io.Writer, format string, obj any) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = json.MarshalIndent(obj, "", "  ")
		data = append(data, '\n')
	case "yaml", "":
		data, err = yaml.Marshal(obj)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
