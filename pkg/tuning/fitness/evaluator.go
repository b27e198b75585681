package fitness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"k8s.io/klog/v2"

	"github.com/marimba-lab/bartuner/pkg/tuning/fem/beam"
	"github.com/marimba-lab/bartuner/pkg/tuning/fem/solid"
	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
	"github.com/marimba-lab/bartuner/pkg/tuning/profile"
)

// ErrInsufficientModes is returned when the solver yields fewer modes than
// there are targets.
var ErrInsufficientModes = errors.New("solver returned fewer modes than targets")

// Model holds everything needed to turn a gene vector into frequencies.
type Model struct {
	Bar      framework.BarParameters
	Material framework.Material
	NumCuts  int
	// NumElements is the uniform element count along the length.
	NumElements int
	Mode        framework.Mode
	// NY and NZ are the 3D element counts across width and thickness.
	NY, NZ int
	// LengthAdjust reads a trailing length gene.
	LengthAdjust bool
	// Adaptive, when set, replaces the uniform partition by a refined one.
	Adaptive *profile.MeshOptions
}

// Validate checks the model before any evaluation.
func (m Model) Validate() error {
	if err := m.Bar.Validate(); err != nil {
		return err
	}
	if err := m.Material.Validate(); err != nil {
		return err
	}
	if m.NumCuts < 0 {
		return fmt.Errorf("number of cuts must be >= 0, got %d", m.NumCuts)
	}
	if m.NumElements < 1 {
		return fmt.Errorf("number of elements must be > 0, got %d", m.NumElements)
	}
	switch m.Mode {
	case framework.Mode2D:
	case framework.Mode3D:
		if m.NY < 1 || m.NZ < 1 {
			return fmt.Errorf("3D element counts must be > 0, got ny=%d nz=%d", m.NY, m.NZ)
		}
	default:
		return fmt.Errorf("unknown analysis mode %q", m.Mode)
	}
	return nil
}

// LengthAdjustment returns the trim (positive) or extension (negative)
// applied to each end.
func (m Model) LengthAdjustment(genes []float64) float64 {
	if m.LengthAdjust && len(genes) > 2*m.NumCuts {
		return genes[2*m.NumCuts]
	}
	return 0
}

// EffectiveLength returns L - 2·adjustment.
func (m Model) EffectiveLength(genes []float64) float64 {
	return m.Bar.L - 2*m.LengthAdjustment(genes)
}

// Cuts decodes the cut genes, outermost first.
func (m Model) Cuts(genes []float64) []framework.Cut {
	n := min(2*m.NumCuts, len(genes))
	return profile.GenesToCuts(genes[:n])
}

// GenesToFrequencies computes the first numModes frequencies of the design
// encoded by genes. In 3D only the vertical bending family is returned.
func (m Model) GenesToFrequencies(ctx context.Context, genes []float64, numModes int) ([]float64, error) {
	l := m.EffectiveLength(genes)
	if !(l > 0) {
		return nil, fmt.Errorf("effective length %g is not positive", l)
	}
	cuts := m.Cuts(genes)

	if m.Adaptive != nil {
		mesh := m.adaptiveMesh(cuts, l)
		if m.Mode == framework.Mode3D {
			sm, err := solid.GenerateAdaptiveMesh(mesh.X, m.Bar.B, mesh.Heights, m.NY, m.NZ)
			if err != nil {
				return nil, err
			}
			return solid.BendingFrequenciesOnMesh(ctx, sm, m.Material, numModes)
		}
		return beam.FrequenciesOnMesh(ctx, mesh.X, mesh.Heights, m.Bar.B, m.Material, numModes)
	}

	heights := profile.Discretize(cuts, l, m.Bar.H0, m.NumElements)
	if m.Mode == framework.Mode3D {
		return solid.BendingFrequencies(ctx, heights, l, m.Bar.B, m.Material, numModes, m.NY, m.NZ)
	}
	return beam.Frequencies(ctx, heights, l, m.Bar.B, m.Material, numModes)
}

func (m Model) adaptiveMesh(cuts []framework.Cut, l float64) profile.Mesh {
	opts := *m.Adaptive
	if opts.BaseElements <= 0 {
		opts.BaseElements = m.NumElements
	}
	return profile.AdaptiveMesh(cuts, l, m.Bar.H0, opts)
}

// SolidMesh builds the 3D mesh that GenesToFrequencies solves for genes,
// refined near cut edges when the model is adaptive.
func (m Model) SolidMesh(genes []float64) (*solid.Mesh, error) {
	l := m.EffectiveLength(genes)
	if !(l > 0) {
		return nil, fmt.Errorf("effective length %g is not positive", l)
	}
	cuts := m.Cuts(genes)
	if m.Adaptive != nil {
		mesh := m.adaptiveMesh(cuts, l)
		return solid.GenerateAdaptiveMesh(mesh.X, m.Bar.B, mesh.Heights, m.NY, m.NZ)
	}
	return solid.GenerateMesh(l, m.Bar.B, profile.Discretize(cuts, l, m.Bar.H0, m.NumElements), m.NY, m.NZ)
}

// Options configures an Evaluator.
type Options struct {
	Model

	F1Priority float64
	Penalty    PenaltyType
	Alpha      float64

	// CacheTTL keeps fitness values of identical gene vectors. Zero
	// disables memoization.
	CacheTTL time.Duration
}

// Evaluator scores gene vectors. It is safe for concurrent use.
type Evaluator struct {
	opts  Options
	cache *gocache.Cache
}

// NewEvaluator validates opts and returns an Evaluator.
func NewEvaluator(opts Options) (*Evaluator, error) {
	if err := opts.Model.Validate(); err != nil {
		return nil, err
	}
	if opts.F1Priority <= 0 {
		opts.F1Priority = 1
	}
	if opts.Penalty == "" {
		opts.Penalty = PenaltyNone
	}
	switch opts.Penalty {
	case PenaltyNone, PenaltyVolume, PenaltyRoughness:
	default:
		return nil, fmt.Errorf("unknown penalty type %q", opts.Penalty)
	}
	if opts.Alpha < 0 || opts.Alpha > 1 {
		return nil, fmt.Errorf("penalty weight must be in [0, 1], got %g", opts.Alpha)
	}
	e := &Evaluator{opts: opts}
	if opts.CacheTTL > 0 {
		e.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return e, nil
}

// Model returns the geometry and solver settings.
func (e *Evaluator) Model() Model {
	return e.opts.Model
}

// Fitness scores genes against targets, lower is better. Any solver
// failure or missing mode maps to FailedFitness.
func (e *Evaluator) Fitness(ctx context.Context, genes, targets []float64) float64 {
	var key string
	if e.cache != nil {
		key = cacheKey(genes, targets)
		if v, ok := e.cache.Get(key); ok {
			return v.(float64)
		}
	}
	f := e.fitness(ctx, genes, targets)
	if e.cache != nil {
		e.cache.SetDefault(key, f)
	}
	return f
}

func (e *Evaluator) fitness(ctx context.Context, genes, targets []float64) float64 {
	freqs, err := e.opts.GenesToFrequencies(ctx, genes, len(targets))
	if err == nil && len(freqs) < len(targets) {
		err = fmt.Errorf("%w: got %d, want %d", ErrInsufficientModes, len(freqs), len(targets))
	}
	if err != nil {
		klog.FromContext(ctx).V(5).Info("candidate failed", "genes", genes, "err", err)
		return FailedFitness
	}
	tuning := TuningError(freqs, targets, e.opts.F1Priority)
	if math.IsInf(tuning, 0) || math.IsNaN(tuning) {
		return FailedFitness
	}
	if e.opts.Penalty == PenaltyNone || e.opts.Alpha == 0 {
		return tuning
	}
	return Combine(tuning, e.penalty(genes), e.opts.Alpha)
}

func (e *Evaluator) penalty(genes []float64) float64 {
	cuts := e.opts.Cuts(genes)
	if e.opts.Penalty == PenaltyVolume {
		return VolumePenalty(cuts, e.opts.EffectiveLength(genes), e.opts.Bar.H0)
	}
	return RoughnessPenalty(cuts, e.opts.Bar.H0)
}

// Evaluation is the detailed report of one design.
type Evaluation struct {
	Cuts             []framework.Cut `json:"cuts"`
	LengthAdjustment float64         `json:"lengthAdjustment"`
	EffectiveLength  float64         `json:"effectiveLength"`

	Frequencies   []float64 `json:"frequencies"`
	Targets       []float64 `json:"targets"`
	CentsErrors   []float64 `json:"centsErrors"`
	PercentErrors []float64 `json:"percentErrors"`
	MaxCentsError float64   `json:"maxCentsError"`

	TuningError      float64 `json:"tuningError"`
	MaxTuningError   float64 `json:"maxTuningError"`
	VolumePenalty    float64 `json:"volumePenalty"`
	RoughnessPenalty float64 `json:"roughnessPenalty"`
	Fitness          float64 `json:"fitness"`
}

// Evaluate computes the detailed report of genes against targets. Unlike
// Fitness it surfaces solver errors.
func (e *Evaluator) Evaluate(ctx context.Context, genes, targets []float64) (Evaluation, error) {
	freqs, err := e.opts.GenesToFrequencies(ctx, genes, len(targets))
	if err != nil {
		return Evaluation{}, err
	}
	if len(freqs) < len(targets) {
		return Evaluation{}, fmt.Errorf("%w: got %d, want %d", ErrInsufficientModes, len(freqs), len(targets))
	}

	l := e.opts.EffectiveLength(genes)
	cuts := e.opts.Cuts(genes)
	ev := Evaluation{
		Cuts:             cuts,
		LengthAdjustment: e.opts.LengthAdjustment(genes),
		EffectiveLength:  l,
		Frequencies:      freqs,
		Targets:          append([]float64(nil), targets...),
		TuningError:      TuningError(freqs, targets, e.opts.F1Priority),
		MaxTuningError:   MaxTuningError(freqs, targets),
		VolumePenalty:    VolumePenalty(cuts, l, e.opts.Bar.H0),
		RoughnessPenalty: RoughnessPenalty(cuts, e.opts.Bar.H0),
	}
	ev.Fitness = ev.TuningError
	switch {
	case e.opts.Alpha == 0:
	case e.opts.Penalty == PenaltyVolume:
		ev.Fitness = Combine(ev.TuningError, ev.VolumePenalty, e.opts.Alpha)
	case e.opts.Penalty == PenaltyRoughness:
		ev.Fitness = Combine(ev.TuningError, ev.RoughnessPenalty, e.opts.Alpha)
	}

	ev.CentsErrors = make([]float64, len(freqs))
	ev.PercentErrors = make([]float64, len(freqs))
	for i, f := range freqs {
		if i < len(targets) && targets[i] > 0 {
			ev.CentsErrors[i] = Cents(f, targets[i])
			ev.PercentErrors[i] = 100 * (f - targets[i]) / targets[i]
		}
		ev.MaxCentsError = math.Max(ev.MaxCentsError, math.Abs(ev.CentsErrors[i]))
	}
	return ev, nil
}

func cacheKey(genes, targets []float64) string {
	var sb strings.Builder
	for _, g := range genes {
		sb.WriteString(strconv.FormatUint(math.Float64bits(g), 36))
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	for _, t := range targets {
		sb.WriteString(strconv.FormatUint(math.Float64bits(t), 36))
		sb.WriteByte(',')
	}
	return sb.String()
}
