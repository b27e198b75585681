package solid

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

var sapele = framework.Material{Name: "Sapele", E: 12.0e9, Rho: 640, Nu: 0.35}

func box(a, b, c float64) Hex8 {
	h := Hex8{E: sapele.E, Nu: sapele.Nu, Rho: sapele.Rho}
	for i, n := range hexNodes {
		h.Coords[i] = [3]float64{(n[0] + 1) / 2 * a, (n[1] + 1) / 2 * b, (n[2] + 1) / 2 * c}
	}
	return h
}

func TestShapeFunctionsPartitionOfUnity(t *testing.T) {
	for _, gp := range GaussPoints() {
		n := ShapeFunctions(gp.Xi, gp.Eta, gp.Zeta)
		sum := 0.0
		for _, v := range n {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-14)

		d := ShapeDerivatives(gp.Xi, gp.Eta, gp.Zeta)
		for r := 0; r < 3; r++ {
			s := 0.0
			for _, v := range d[r] {
				s += v
			}
			assert.InDelta(t, 0.0, s, 1e-14)
		}
	}
	n := ShapeFunctions(1, 1, 1)
	assert.InDelta(t, 1.0, n[6], 1e-15)
}

func TestElasticity(t *testing.T) {
	d := Elasticity(1, 0.25)
	f := 1 / (1.25 * 0.5)
	assert.InDelta(t, f*0.75, d.At(0, 0), 1e-15)
	assert.InDelta(t, f*0.25, d.At(1, 2), 1e-15)
	assert.InDelta(t, f*0.25, d.At(3, 3), 1e-15)
	assert.Equal(t, 0.0, d.At(0, 3))
}

func TestHex8Matrices(t *testing.T) {
	h := box(0.01, 0.02, 0.005)
	ke, me, skipped := h.Matrices()
	require.Equal(t, 0, skipped)
	assert.True(t, mat.EqualApprox(ke, ke.T(), 1e-6))
	assert.True(t, mat.EqualApprox(me, me.T(), 1e-18))

	scale := mat.Norm(ke, math.Inf(1))
	for dir := 0; dir < 3; dir++ {
		u := mat.NewVecDense(24, nil)
		for i := 0; i < 8; i++ {
			u.SetVec(3*i+dir, 1)
		}
		var r mat.VecDense
		r.MulVec(ke, u)
		assert.Less(t, mat.Norm(&r, math.Inf(1)), 1e-9*scale, "translation %d", dir)
		assert.InEpsilon(t, sapele.Rho*0.01*0.02*0.005, mat.Inner(u, me, u), 1e-12)
	}
}

func TestHex8SkipsInvertedElement(t *testing.T) {
	h := box(0.01, 0.01, 0.01)
	h.Coords[0], h.Coords[1] = h.Coords[1], h.Coords[0]
	h.Coords[3], h.Coords[2] = h.Coords[2], h.Coords[3]
	h.Coords[4], h.Coords[5] = h.Coords[5], h.Coords[4]
	h.Coords[7], h.Coords[6] = h.Coords[6], h.Coords[7]
	_, _, skipped := h.Matrices()
	assert.Equal(t, 8, skipped)
}

func TestGenerateMesh(t *testing.T) {
	heights := []float64{0.02, 0.01, 0.02}
	m, err := GenerateMesh(0.3, 0.04, heights, 2, 2)
	require.NoError(t, err)

	assert.Len(t, m.Nodes, 4*3*3)
	assert.Len(t, m.Elements, 3*2*2)
	assert.Equal(t, 3*36, m.NumDofs())

	top := func(ix int) float64 { return m.Nodes[m.NodeIndex(ix, 0, 2)][2] }
	assert.InDelta(t, 0.02, top(0), 1e-15)
	assert.InDelta(t, 0.015, top(1), 1e-15)
	assert.InDelta(t, 0.015, top(2), 1e-15)
	assert.InDelta(t, 0.02, top(3), 1e-15)
	assert.InDelta(t, 0.2, m.Nodes[m.NodeIndex(2, 1, 0)][0], 1e-15)
	assert.InDelta(t, 0.02, m.Nodes[m.NodeIndex(2, 1, 0)][1], 1e-15)

	// Every element's dofs fit the declared bandwidth.
	for _, el := range m.Elements {
		lo, hi := el[0], el[0]
		for _, n := range el {
			lo, hi = min(lo, n), max(hi, n)
		}
		assert.LessOrEqual(t, 3*hi+2-3*lo, m.Bandwidth())
	}
	assert.Equal(t, 0.01, m.Heights[4])
}

func TestGenerateAdaptiveMesh(t *testing.T) {
	m, err := GenerateAdaptiveMesh([]float64{0, 0.1, 0.15, 0.3}, 0.04, []float64{0.02, 0.01, 0.02}, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, m.Nodes[m.NodeIndex(2, 0, 0)][0], 1e-15)

	_, err = GenerateAdaptiveMesh([]float64{0, 0.1}, 0.04, []float64{0.02, 0.01}, 1, 1)
	assert.True(t, errors.Is(err, ErrMeshMismatch))
	_, err = GenerateAdaptiveMesh([]float64{0, 0.2, 0.1}, 0.04, []float64{0.02, 0.01}, 1, 1)
	assert.True(t, errors.Is(err, ErrMeshMismatch))
	_, err = GenerateMesh(0.3, 0.04, nil, 2, 2)
	assert.True(t, errors.Is(err, ErrMeshMismatch))
}

func TestCornerNodes(t *testing.T) {
	m, err := GenerateMesh(0.3, 0.04, []float64{0.02, 0.02}, 2, 2)
	require.NoError(t, err)
	s1, s2 := CornerNodes(m.Nodes)
	assert.Equal(t, m.NodeIndex(0, 2, 2), s1)
	assert.Equal(t, m.NodeIndex(0, 0, 2), s2)
}

func TestClassifyMode(t *testing.T) {
	shape := make([]float64, 6)
	set := func(p1, p2 [3]float64) []float64 {
		copy(shape[0:3], p1[:])
		copy(shape[3:6], p2[:])
		return shape
	}
	assert.Equal(t, VerticalBending, ClassifyMode(set([3]float64{0.1, 0, 1}, [3]float64{0.1, 0, 0.9}), 0, 1))
	assert.Equal(t, Torsional, ClassifyMode(set([3]float64{0, 0.1, 1}, [3]float64{0, 0.1, -1}), 0, 1))
	assert.Equal(t, Lateral, ClassifyMode(set([3]float64{0, 1, 0.1}, [3]float64{0, 1, 0.1}), 0, 1))
	assert.Equal(t, Axial, ClassifyMode(set([3]float64{1, 0, 0.1}, [3]float64{1, 0, 0.1}), 0, 1))
}

func TestSmallMeshUsesDenseStorage(t *testing.T) {
	m, err := GenerateMesh(0.3, 0.04, []float64{0.02, 0.02, 0.02, 0.02}, 1, 1)
	require.NoError(t, err)
	k, mm := Assemble(context.Background(), m, sapele)
	assert.False(t, k.Banded())
	assert.False(t, mm.Banded())

	freqs, err := Frequencies(context.Background(), []float64{0.02, 0.02, 0.02, 0.02}, 0.3, 0.04, sapele, 3, 1, 1)
	require.NoError(t, err)
	require.Len(t, freqs, 3)
	assert.True(t, freqs[0] > 0 && freqs[0] <= freqs[1] && freqs[1] <= freqs[2])
}

func TestUncutBarRatios(t *testing.T) {
	if testing.Short() {
		t.Skip("3D eigen extraction is slow")
	}
	const (
		l = 0.45
		b = 0.032
		h = 0.01
	)
	heights := make([]float64, 90)
	for i := range heights {
		heights[i] = h
	}
	freqs, err := BendingFrequencies(context.Background(), heights, l, b, sapele, 3, 2, 2)
	require.NoError(t, err)
	require.Len(t, freqs, 3)

	assert.InEpsilon(t, 2.756, freqs[1]/freqs[0], 0.06)
	assert.InEpsilon(t, 5.404, freqs[2]/freqs[0], 0.06)

	// Full integration stiffens bending, so f1 sits above beam theory.
	beam := 4.730 * 4.730 / (2 * math.Pi * l * l) * math.Sqrt(sapele.E*h*h/(12*sapele.Rho))
	assert.Greater(t, freqs[0], 0.95*beam)
	assert.Less(t, freqs[0], 1.5*beam)
}

func TestPrismaticBarClassification(t *testing.T) {
	if testing.Short() {
		t.Skip("3D eigen extraction is slow")
	}
	heights := make([]float64, 90)
	for i := range heights {
		heights[i] = 0.008
	}
	mesh, err := GenerateMesh(0.45, 0.05, heights, 2, 2)
	require.NoError(t, err)
	require.Greater(t, mesh.NumDofs(), SparseDofThreshold)

	ms, err := Modes(context.Background(), mesh, sapele, 6)
	require.NoError(t, err)
	require.Len(t, ms.Frequencies, 6)

	s1, s2 := CornerNodes(mesh.Nodes)
	assert.Equal(t, VerticalBending, ClassifyMode(ms.Shape(0), s1, s2))
	assert.Equal(t, VerticalBending, ClassifyMode(ms.Shape(1), s1, s2))

	classified := ClassifyModes(ms)
	require.GreaterOrEqual(t, len(classified[VerticalBending]), 2)
	assert.Equal(t, 1, classified[VerticalBending][0].Number)
	assert.Equal(t, 0, classified[VerticalBending][0].Index)
	assert.NotEmpty(t, classified[Torsional])
	for i := 1; i < len(ms.Frequencies); i++ {
		assert.LessOrEqual(t, ms.Frequencies[i-1], ms.Frequencies[i])
	}
}
