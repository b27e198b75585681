package solid

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"github.com/marimba-lab/bartuner/pkg/tuning/fem"
	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

const (
	// RigidThreshold is the ω² below which an eigenvalue is treated as a
	// rigid-body mode.
	RigidThreshold = 100.0
	// SparseDofThreshold is the dof count above which band storage is used.
	SparseDofThreshold = 1000

	extraPairs       = 10
	extraVectorPairs = 12
)

// DefaultRetryPolicy solves once as assembled, then once more with a small
// mass regularization.
var DefaultRetryPolicy = fem.RetryPolicy{
	{},
	{Scaled: 1e-10},
}

// Assemble builds global stiffness and mass matrices for mesh. Band storage
// is used above SparseDofThreshold dofs.
func Assemble(ctx context.Context, mesh *Mesh, m framework.Material) (*fem.System, *fem.System) {
	n := mesh.NumDofs()
	var k, mm *fem.System
	if n > SparseDofThreshold {
		k = fem.NewBandSystem(n, mesh.Bandwidth())
		mm = fem.NewBandSystem(n, mesh.Bandwidth())
	} else {
		k = fem.NewDenseSystem(n)
		mm = fem.NewDenseSystem(n)
	}

	skipped := 0
	dofs := make([]int, 24)
	for _, el := range mesh.Elements {
		h := Hex8{E: m.E, Nu: m.Nu, Rho: m.Rho}
		for i, node := range el {
			h.Coords[i] = mesh.Nodes[node]
			dofs[3*i] = 3 * node
			dofs[3*i+1] = 3*node + 1
			dofs[3*i+2] = 3*node + 2
		}
		ke, me, s := h.Matrices()
		skipped += s
		k.Scatter(dofs, ke)
		mm.Scatter(dofs, me)
	}
	if skipped > 0 {
		klog.FromContext(ctx).V(4).Info("skipped degenerate gauss points", "count", skipped, "elements", len(mesh.Elements))
	}
	return k, mm
}

// ModeSet holds elastic modes of a mesh sorted by ascending frequency.
type ModeSet struct {
	Frequencies []float64
	// Shapes has one column per mode, 3 dofs per node in node order.
	Shapes *mat.Dense
	Mesh   *Mesh
}

// Shape returns the mode shape of mode i.
func (s *ModeSet) Shape(i int) []float64 {
	return mat.Col(nil, i, s.Shapes)
}

func solve(ctx context.Context, mesh *Mesh, m framework.Material, numModes int, vectors bool) ([]float64, *mat.Dense, error) {
	k, mm := Assemble(ctx, mesh, m)
	pairs := numModes + extraPairs
	if vectors {
		pairs = numModes + extraVectorPairs
	}
	e, err := DefaultRetryPolicy.Solve(ctx, k, mm, fem.EigenOptions{NumPairs: pairs, Vectors: vectors})
	if err != nil {
		return nil, nil, err
	}

	var freqs []float64
	var keep []int
	for i, w2 := range e.Values {
		if w2 <= RigidThreshold {
			continue
		}
		freqs = append(freqs, math.Sqrt(w2)/(2*math.Pi))
		keep = append(keep, i)
		if len(freqs) == numModes {
			break
		}
	}
	if !vectors || len(keep) == 0 {
		return freqs, nil, nil
	}
	shapes := mat.NewDense(mesh.NumDofs(), len(keep), nil)
	for c, i := range keep {
		shapes.SetCol(c, mat.Col(nil, i, e.Vectors))
	}
	return freqs, shapes, nil
}

// Frequencies returns the first numModes elastic frequencies in Hz of a bar
// meshed with one uniform element column per entry of heights.
func Frequencies(ctx context.Context, heights []float64, length, width float64, m framework.Material, numModes, ny, nz int) ([]float64, error) {
	mesh, err := GenerateMesh(length, width, heights, ny, nz)
	if err != nil {
		return nil, err
	}
	freqs, _, err := solve(ctx, mesh, m, numModes, false)
	if err != nil {
		return nil, err
	}
	klog.FromContext(ctx).V(5).Info("solid frequencies", "dofs", mesh.NumDofs(), "frequencies", freqs)
	return freqs, nil
}

// Modes returns the first numModes elastic modes of mesh with shapes.
func Modes(ctx context.Context, mesh *Mesh, m framework.Material, numModes int) (*ModeSet, error) {
	freqs, shapes, err := solve(ctx, mesh, m, numModes, true)
	if err != nil {
		return nil, err
	}
	return &ModeSet{Frequencies: freqs, Shapes: shapes, Mesh: mesh}, nil
}

// BendingFrequencies returns up to n vertical bending frequencies of a bar
// meshed with uniform element columns. Other mode families are discarded.
func BendingFrequencies(ctx context.Context, heights []float64, length, width float64, m framework.Material, n, ny, nz int) ([]float64, error) {
	mesh, err := GenerateMesh(length, width, heights, ny, nz)
	if err != nil {
		return nil, err
	}
	return BendingFrequenciesOnMesh(ctx, mesh, m, n)
}

// BendingFrequenciesOnMesh is BendingFrequencies on a prebuilt mesh.
func BendingFrequenciesOnMesh(ctx context.Context, mesh *Mesh, m framework.Material, n int) ([]float64, error) {
	ms, err := Modes(ctx, mesh, m, 4*n+6)
	if err != nil {
		return nil, err
	}
	bending := ClassifyModes(ms)[VerticalBending]
	if len(bending) > n {
		bending = bending[:n]
	}
	out := make([]float64, len(bending))
	for i, mode := range bending {
		out[i] = mode.Frequency
	}
	return out, nil
}
