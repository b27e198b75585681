package profile

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

const (
	testL  = 0.45
	testH0 = 0.024
)

var twoCuts = []framework.Cut{
	{Lambda: 0.12, H: 0.018},
	{Lambda: 0.05, H: 0.008},
}

func TestHeight(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		cuts []framework.Cut
		want float64
	}{
		{name: "no cuts", x: 0.2, want: testH0},
		{name: "centre uses innermost", x: testL / 2, cuts: twoCuts, want: 0.008},
		{name: "between cuts", x: testL/2 + 0.08, cuts: twoCuts, want: 0.018},
		{name: "outside cuts", x: 0.01, cuts: twoCuts, want: testH0},
		{name: "zero lambda ignored", x: testL / 2, cuts: []framework.Cut{{Lambda: 0, H: 0.003}}, want: testH0},
		{
			name: "unsorted overlapping cuts",
			x:    testL/2 + 0.01,
			cuts: []framework.Cut{{Lambda: 0.02, H: 0.01}, {Lambda: 0.2, H: 0.02}},
			want: 0.01,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Height(tt.x, tt.cuts, testL, testH0), 1e-15)
		})
	}
}

func TestHeightCutEdge(t *testing.T) {
	// 0.5 and 0.125 are exact in binary, so x - l/2 equals λ exactly.
	const l = 0.5
	cuts := []framework.Cut{{Lambda: 0.125, H: 0.008}}
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{name: "left edge belongs to cut", x: 0.125, want: 0.008},
		{name: "right edge belongs to cut", x: 0.375, want: 0.008},
		{name: "just inside", x: 0.125 + 1e-12, want: 0.008},
		{name: "just outside", x: 0.125 - 1e-12, want: testH0},
		{name: "just outside right", x: 0.375 + 1e-12, want: testH0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Height(tt.x, cuts, l, testH0))
		})
	}
}

func TestHeightSymmetric(t *testing.T) {
	for i := 0; i <= 200; i++ {
		x := float64(i) / 200 * testL
		assert.Equal(t, Height(x, twoCuts, testL, testH0), Height(testL-x, twoCuts, testL, testH0), "x=%g", x)
	}
}

func TestDiscretize(t *testing.T) {
	for _, n := range []int{1, 7, 60, 150} {
		h := Discretize(twoCuts, testL, testH0, n)
		require.Len(t, h, n)
		for _, v := range h {
			assert.GreaterOrEqual(t, v, 0.008)
			assert.LessOrEqual(t, v, testH0)
		}
	}
	assert.Nil(t, Discretize(twoCuts, testL, testH0, 0))
}

func TestDiscretizeUniform(t *testing.T) {
	h := Discretize(nil, testL, testH0, 10)
	want := []float64{testH0, testH0, testH0, testH0, testH0, testH0, testH0, testH0, testH0, testH0}
	if diff := cmp.Diff(want, h); diff != "" {
		t.Errorf("unexpected heights (-want +got):\n%s", diff)
	}
}

func TestDiscretizeBlend(t *testing.T) {
	// The first 0.045 m element spans the left edge of a 0.2 m half-width
	// cut at x = 0.025: 0.025 m outside, 0.02 m inside.
	cuts := []framework.Cut{{Lambda: 0.2, H: 0.01}}
	h := Discretize(cuts, testL, testH0, 10)
	want := math.Sqrt((testH0*testH0*0.025 + 0.01*0.01*0.02) / 0.045)
	assert.InDelta(t, want, h[0], 1e-12)
	assert.InDelta(t, want, h[9], 1e-12)
	assert.InDelta(t, 0.01, h[4], 1e-15)
}

func TestDiscretizeSymmetric(t *testing.T) {
	h := Discretize(twoCuts, testL, testH0, 97)
	for i := range h {
		assert.InDelta(t, h[i], h[len(h)-1-i], 1e-12)
	}
}

func TestAdaptiveMesh(t *testing.T) {
	opts := DefaultMeshOptions()
	m := AdaptiveMesh(twoCuts, testL, testH0, opts)

	require.Equal(t, len(m.X)-1, m.NumElements())
	assert.Equal(t, 0.0, m.X[0])
	assert.Equal(t, testL, m.X[len(m.X)-1])

	base := testL / float64(opts.BaseElements)
	fine := base / opts.RefinementFactor
	total := 0.0
	for i := 1; i < len(m.X); i++ {
		dx := m.X[i] - m.X[i-1]
		assert.Greater(t, dx, 0.0)
		assert.LessOrEqual(t, dx, base+1e-12)
		total += dx
	}
	assert.InDelta(t, testL, total, 1e-12)
	assert.Greater(t, m.NumElements(), opts.BaseElements)

	// Every edge is bracketed by a fine element.
	for _, c := range twoCuts {
		for _, edge := range []float64{testL/2 - c.Lambda, testL/2 + c.Lambda} {
			found := false
			for i := 1; i < len(m.X); i++ {
				if m.X[i-1] <= edge && edge <= m.X[i] && m.X[i]-m.X[i-1] <= fine+1e-12 {
					found = true
				}
			}
			assert.True(t, found, "edge %g not inside a fine element", edge)
		}
	}
}

func TestAdaptiveMeshWithoutCuts(t *testing.T) {
	m := AdaptiveMesh(nil, testL, testH0, MeshOptions{BaseElements: 30, RefinementFactor: 4, TransitionWidth: 0.02})
	assert.Equal(t, 30, m.NumElements())
	want := make([]float64, 30)
	for i := range want {
		want[i] = testH0
	}
	if diff := cmp.Diff(want, m.Heights, cmpopts.EquateApprox(0, 1e-15)); diff != "" {
		t.Errorf("unexpected heights (-want +got):\n%s", diff)
	}
}

func TestCheckResolution(t *testing.T) {
	t.Run("adequate", func(t *testing.T) {
		r := CheckResolution(twoCuts, testL, 150, false, 0)
		assert.True(t, r.Adequate())
		assert.Equal(t, 2, r.NumCuts)
		assert.InDelta(t, 70.0, r.SmallestFeatureMM, 1e-9)
		assert.InDelta(t, 3.0, r.BaseElementSizeMM, 1e-12)
	})

	t.Run("narrow cut", func(t *testing.T) {
		cuts := []framework.Cut{{Lambda: 0.1, H: 0.02}, {Lambda: 0.002, H: 0.01}}
		r := CheckResolution(cuts, testL, 60, false, 0)
		require.False(t, r.Adequate())
		assert.Equal(t, FeatureCutWidth, r.Warnings[0].Feature)
		assert.InDelta(t, 4.0, r.SmallestFeatureMM, 1e-9)
		assert.Equal(t, int(math.Ceil(450/(4.0/3))), r.RecommendedNumElements)
	})

	t.Run("close boundaries adaptive", func(t *testing.T) {
		cuts := []framework.Cut{{Lambda: 0.1, H: 0.02}, {Lambda: 0.098, H: 0.01}}
		r := CheckResolution(cuts, testL, 60, true, 2)
		require.Len(t, r.Warnings, 1)
		assert.Equal(t, FeatureCutSpacing, r.Warnings[0].Feature)
		assert.InDelta(t, 3.75, r.MinElementSizeMM, 1e-12)
		assert.Equal(t, int(math.Ceil(7.5/(2.0/3)))+1, r.RecommendedRefinement)
	})

	t.Run("no cuts", func(t *testing.T) {
		r := CheckResolution(nil, testL, 60, false, 0)
		assert.True(t, r.Adequate())
		assert.True(t, math.IsInf(r.SmallestFeatureMM, 1))
	})
}

func TestGenesRoundTrip(t *testing.T) {
	genes := []float64{0.05, 0.01, 0.2, 0.02, 0.11, 0.015, 0.003}
	cuts := GenesToCuts(genes)
	require.Len(t, cuts, 3)
	assert.Equal(t, 0.2, cuts[0].Lambda)

	if diff := cmp.Diff(cuts, GenesToCuts(CutsToGenes(cuts))); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEffectiveCuts(t *testing.T) {
	assert.Equal(t, 2, EffectiveCuts(twoCuts))
	assert.Equal(t, 1, EffectiveCuts([]framework.Cut{{Lambda: 0.1, H: 0.01}, {Lambda: 0.1, H: 0.02}, {Lambda: 0, H: 0.01}}))
}

func TestValidateCuts(t *testing.T) {
	bar := framework.BarParameters{L: testL, B: 0.032, H0: testH0, HMin: 0.0024}
	assert.NoError(t, ValidateCuts(twoCuts, bar))
	assert.Error(t, ValidateCuts([]framework.Cut{{Lambda: 0.3, H: 0.01}}, bar))
	assert.Error(t, ValidateCuts([]framework.Cut{{Lambda: 0.1, H: 0.001}}, bar))
}

func TestPoints(t *testing.T) {
	pts := Points(twoCuts, testL, testH0, 100)
	assert.Len(t, pts, 101+8)
	for i := 1; i < len(pts); i++ {
		assert.LessOrEqual(t, pts[i-1].X, pts[i].X)
	}
}
