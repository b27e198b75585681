package tuning

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/marimba-lab/bartuner/apis/config/v1alpha1"
)

// Override adjusts decoded args before defaults are applied.
type Override func(*v1alpha1.TuningArgs)

// LoadArgs reads a TuningArgs YAML or JSON file and applies defaults.
func LoadArgs(path string, overrides ...Override) (*v1alpha1.TuningArgs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	args, err := DecodeArgs(data, overrides...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return args, nil
}

// DecodeArgs strictly decodes data, so misspelled fields are rejected.
// The result is defaulted but not validated.
func DecodeArgs(data []byte, overrides ...Override) (*v1alpha1.TuningArgs, error) {
	args := &v1alpha1.TuningArgs{}
	if err := yaml.UnmarshalStrict(data, args); err != nil {
		return nil, err
	}
	if args.APIVersion != "" && args.APIVersion != v1alpha1.GroupVersion {
		return nil, fmt.Errorf("unsupported apiVersion %q, want %q", args.APIVersion, v1alpha1.GroupVersion)
	}
	if args.Kind != "" && args.Kind != v1alpha1.TuningArgsKind {
		return nil, fmt.Errorf("unsupported kind %q, want %q", args.Kind, v1alpha1.TuningArgsKind)
	}
	return Default(args, overrides...), nil
}

// Default applies overrides and then defaults to args in place.
func Default(args *v1alpha1.TuningArgs, overrides ...Override) *v1alpha1.TuningArgs {
	for _, o := range overrides {
		o(args)
	}
	v1alpha1.SetDefaults_TuningArgs(args)
	return args
}
