package fitness

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
	"github.com/marimba-lab/bartuner/pkg/tuning/profile"
)

var sapele = framework.Material{Name: "Sapele", E: 12.0e9, Rho: 640, Nu: 0.35}

func testModel() Model {
	return Model{
		Bar:         framework.BarParameters{L: 0.35, B: 0.032, H0: 0.024, HMin: 0.002},
		Material:    sapele,
		NumCuts:     1,
		NumElements: 120,
		Mode:        framework.Mode2D,
	}
}

func TestTuningError(t *testing.T) {
	tests := []struct {
		name     string
		computed []float64
		targets  []float64
		priority float64
		want     float64
	}{
		{name: "exact", computed: []float64{100, 400}, targets: []float64{100, 400}, priority: 1, want: 0},
		{name: "fundamental weighted", computed: []float64{110, 400}, targets: []float64{100, 400}, priority: 3, want: 0.75},
		{name: "equal weights", computed: []float64{110, 400}, targets: []float64{100, 400}, priority: 1, want: 0.5},
		{name: "zero target skipped", computed: []float64{110, 999}, targets: []float64{100, 0}, priority: 1, want: 1},
		{name: "extra modes ignored", computed: []float64{100, 400, 1000}, targets: []float64{100, 400}, priority: 1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TuningError(tt.computed, tt.targets, tt.priority), 1e-12)
		})
	}
	assert.True(t, math.IsInf(TuningError(nil, nil, 1), 1))
}

func TestMaxTuningError(t *testing.T) {
	assert.InDelta(t, 1.0, MaxTuningError([]float64{110, 404}, []float64{100, 400}), 1e-12)
}

func TestCents(t *testing.T) {
	assert.InDelta(t, 1200, Cents(880, 440), 1e-9)
	assert.InDelta(t, -100, Cents(440/math.Pow(2, 1.0/12), 440), 1e-9)
	assert.Equal(t, 0.0, Cents(440, 0))
}

func TestVolumePenalty(t *testing.T) {
	assert.Equal(t, 0.0, VolumePenalty(nil, 0.4, 0.02))
	cuts := []framework.Cut{{Lambda: 0.1, H: 0.01}}
	assert.InDelta(t, 25, VolumePenalty(cuts, 0.4, 0.02), 1e-9)

	// Nested cuts count each annulus once at its own depth.
	cuts = []framework.Cut{{Lambda: 0.1, H: 0.015}, {Lambda: 0.05, H: 0.01}}
	want := 100 * (0.05*0.01 + 0.05*0.005) / (0.2 * 0.02)
	assert.InDelta(t, want, VolumePenalty(cuts, 0.4, 0.02), 1e-9)
}

func TestRoughnessPenalty(t *testing.T) {
	assert.Equal(t, 0.0, RoughnessPenalty(nil, 0.02))
	cuts := []framework.Cut{{Lambda: 0.05, H: 0.01}, {Lambda: 0.1, H: 0.015}}
	assert.InDelta(t, 25, RoughnessPenalty(cuts, 0.02), 1e-9)
}

func TestCombine(t *testing.T) {
	assert.InDelta(t, 0.9*2+0.1*30, Combine(2, 30, 0.1), 1e-12)
	assert.Equal(t, 2.0, Combine(2, 30, 0))
}

func TestNewEvaluatorValidation(t *testing.T) {
	_, err := NewEvaluator(Options{Model: testModel(), Penalty: "smooth"})
	assert.Error(t, err)

	_, err = NewEvaluator(Options{Model: testModel(), Alpha: 1.5})
	assert.Error(t, err)

	m := testModel()
	m.Mode = framework.Mode3D
	_, err = NewEvaluator(Options{Model: m})
	assert.Error(t, err)

	m = testModel()
	m.NumElements = 0
	_, err = NewEvaluator(Options{Model: m})
	assert.Error(t, err)
}

func TestFitnessOfOwnSpectrumIsZero(t *testing.T) {
	ctx := context.Background()
	e, err := NewEvaluator(Options{Model: testModel(), F1Priority: 2})
	require.NoError(t, err)

	genes := []float64{0.08, 0.012}
	freqs, err := e.Model().GenesToFrequencies(ctx, genes, 3)
	require.NoError(t, err)
	require.Len(t, freqs, 3)

	assert.InDelta(t, 0, e.Fitness(ctx, genes, freqs), 1e-9)

	shifted := []float64{freqs[0] * 1.02, freqs[1], freqs[2]}
	assert.Greater(t, e.Fitness(ctx, genes, shifted), 0.0)
}

func TestCutLowersFundamental(t *testing.T) {
	ctx := context.Background()
	m := testModel()
	m.NumCuts = 0
	uncut, err := m.GenesToFrequencies(ctx, nil, 2)
	require.NoError(t, err)

	m.NumCuts = 1
	cut, err := m.GenesToFrequencies(ctx, []float64{0.08, 0.008}, 2)
	require.NoError(t, err)
	assert.Less(t, cut[0], uncut[0])
}

func TestLengthAdjustment(t *testing.T) {
	ctx := context.Background()
	m := testModel()
	m.NumCuts = 0
	m.LengthAdjust = true

	base, err := m.GenesToFrequencies(ctx, []float64{0}, 1)
	require.NoError(t, err)
	trimmed, err := m.GenesToFrequencies(ctx, []float64{0.01}, 1)
	require.NoError(t, err)
	extended, err := m.GenesToFrequencies(ctx, []float64{-0.01}, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.33, m.EffectiveLength([]float64{0.01}), 1e-12)
	assert.Greater(t, trimmed[0], base[0])
	assert.Less(t, extended[0], base[0])
}

func TestFailedCandidateGetsSentinel(t *testing.T) {
	ctx := context.Background()
	m := testModel()
	m.NumCuts = 0
	m.LengthAdjust = true
	e, err := NewEvaluator(Options{Model: m})
	require.NoError(t, err)

	// Trimming half the bar from each end leaves nothing.
	genes := []float64{m.Bar.L / 2}
	assert.Equal(t, FailedFitness, e.Fitness(ctx, genes, []float64{100}))

	_, err = e.Evaluate(ctx, genes, []float64{100})
	assert.Error(t, err)
}

func TestFitnessCache(t *testing.T) {
	ctx := context.Background()
	e, err := NewEvaluator(Options{Model: testModel(), CacheTTL: time.Minute})
	require.NoError(t, err)

	genes := []float64{0.08, 0.012}
	targets := []float64{500, 1500}
	first := e.Fitness(ctx, genes, targets)
	second := e.Fitness(ctx, genes, targets)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, e.cache.ItemCount())

	e.Fitness(ctx, genes, []float64{500, 1501})
	assert.Equal(t, 2, e.cache.ItemCount())
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	e, err := NewEvaluator(Options{Model: testModel(), Penalty: PenaltyVolume, Alpha: 0.1})
	require.NoError(t, err)

	genes := []float64{0.08, 0.012}
	freqs, err := e.Model().GenesToFrequencies(ctx, genes, 2)
	require.NoError(t, err)
	targets := []float64{freqs[0] * 1.01, freqs[1]}

	ev, err := e.Evaluate(ctx, genes, targets)
	require.NoError(t, err)

	assert.Equal(t, []framework.Cut{{Lambda: 0.08, H: 0.012}}, ev.Cuts)
	assert.InDelta(t, 0.35, ev.EffectiveLength, 1e-12)
	assert.InDelta(t, 100*(1/1.01-1), ev.PercentErrors[0], 1e-6)
	assert.InDelta(t, 0, ev.PercentErrors[1], 1e-6)
	assert.InDelta(t, -1200*math.Log2(1.01), ev.CentsErrors[0], 1e-6)
	assert.InDelta(t, math.Abs(ev.CentsErrors[0]), ev.MaxCentsError, 1e-12)

	wantVolume := 100 * 0.08 * 0.012 / (0.175 * 0.024)
	assert.InDelta(t, wantVolume, ev.VolumePenalty, 1e-9)
	assert.InDelta(t, Combine(ev.TuningError, ev.VolumePenalty, 0.1), ev.Fitness, 1e-12)
	assert.InDelta(t, ev.Fitness, e.Fitness(ctx, genes, targets), 1e-12)
}

func TestBarProblemFundamental(t *testing.T) {
	ctx := context.Background()
	m := testModel()
	e, err := NewEvaluator(Options{Model: m})
	require.NoError(t, err)
	vb := framework.NewVariableBounds(m.Bar, framework.Constraints{})
	p, err := NewBarProblem("test", e, vb, []float64{500, 1500, 3000}, 0)
	require.NoError(t, err)

	genes := []float64{0.08, 0.012}
	freqs, err := p.Frequencies(ctx, genes)
	require.NoError(t, err)
	require.Len(t, freqs, 3)
	f1, err := p.Fundamental(ctx, genes)
	require.NoError(t, err)
	assert.InDelta(t, freqs[0], f1, 1e-9*freqs[0])
}

func TestSolidMesh(t *testing.T) {
	m := testModel()
	m.Mode = framework.Mode3D
	m.NumElements = 20
	m.NY, m.NZ = 1, 2
	genes := []float64{0.08, 0.012}

	uniform, err := m.SolidMesh(genes)
	require.NoError(t, err)
	assert.Equal(t, 20, uniform.NX)

	opts := profile.MeshOptions{BaseElements: 20, RefinementFactor: 4, TransitionWidth: 0.02}
	m.Adaptive = &opts
	adaptive, err := m.SolidMesh(genes)
	require.NoError(t, err)
	want := profile.AdaptiveMesh(m.Cuts(genes), m.EffectiveLength(genes), m.Bar.H0, opts)
	assert.Equal(t, want.NumElements(), adaptive.NX)
	assert.Len(t, adaptive.Heights, want.NumElements()*m.NY*m.NZ)
	assert.Greater(t, adaptive.NX, uniform.NX)

	m.LengthAdjust = true
	_, err = m.SolidMesh([]float64{0.08, 0.012, m.Bar.L / 2})
	assert.Error(t, err)
}
