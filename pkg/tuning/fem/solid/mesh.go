package solid

import (
	"errors"
	"fmt"
)

// ErrMeshMismatch is returned when mesh inputs disagree in size.
var ErrMeshMismatch = errors.New("mesh input size mismatch")

// Mesh is a structured hexahedral mesh of a bar. Length runs along x, width
// along y and thickness along z, with the undercut on the z = 0 face side.
type Mesh struct {
	Nodes    [][3]float64
	Elements [][8]int
	// Heights holds the column thickness of every element.
	Heights []float64

	NX, NY, NZ int
}

// NodeIndex returns the index of grid node (ix, iy, iz).
func (m *Mesh) NodeIndex(ix, iy, iz int) int {
	return ix*(m.NY+1)*(m.NZ+1) + iy*(m.NZ+1) + iz
}

// NumDofs returns three dofs per node.
func (m *Mesh) NumDofs() int {
	return 3 * len(m.Nodes)
}

// Bandwidth returns the largest |i-j| between dofs sharing an element.
func (m *Mesh) Bandwidth() int {
	return 3*((m.NY+1)*(m.NZ+1)+(m.NZ+1)+1) + 2
}

// GenerateMesh builds a mesh with uniform element length over length and
// one element column per entry of heights.
func GenerateMesh(length, width float64, heights []float64, ny, nz int) (*Mesh, error) {
	if len(heights) == 0 {
		return nil, fmt.Errorf("%w: no element heights", ErrMeshMismatch)
	}
	nx := len(heights)
	xs := make([]float64, nx+1)
	dx := length / float64(nx)
	for i := range xs {
		xs[i] = float64(i) * dx
	}
	return GenerateAdaptiveMesh(xs, width, heights, ny, nz)
}

// GenerateAdaptiveMesh builds a mesh on the monotonically increasing
// element boundaries xs, which must hold len(heights)+1 values.
func GenerateAdaptiveMesh(xs []float64, width float64, heights []float64, ny, nz int) (*Mesh, error) {
	nx := len(heights)
	if nx == 0 || len(xs) != nx+1 {
		return nil, fmt.Errorf("%w: %d x positions for %d elements", ErrMeshMismatch, len(xs), nx)
	}
	if ny < 1 || nz < 1 {
		return nil, fmt.Errorf("%w: ny and nz must be >= 1, got %d and %d", ErrMeshMismatch, ny, nz)
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("%w: x positions must increase, got %g after %g", ErrMeshMismatch, xs[i], xs[i-1])
		}
	}

	m := &Mesh{NX: nx, NY: ny, NZ: nz}
	m.Nodes = make([][3]float64, 0, (nx+1)*(ny+1)*(nz+1))
	dy := width / float64(ny)
	for ix := 0; ix <= nx; ix++ {
		var h float64
		switch ix {
		case 0:
			h = heights[0]
		case nx:
			h = heights[nx-1]
		default:
			h = (heights[ix-1] + heights[ix]) / 2
		}
		dz := h / float64(nz)
		for iy := 0; iy <= ny; iy++ {
			for iz := 0; iz <= nz; iz++ {
				m.Nodes = append(m.Nodes, [3]float64{xs[ix], float64(iy) * dy, float64(iz) * dz})
			}
		}
	}

	m.Elements = make([][8]int, 0, nx*ny*nz)
	m.Heights = make([]float64, 0, nx*ny*nz)
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			for iz := 0; iz < nz; iz++ {
				m.Elements = append(m.Elements, [8]int{
					m.NodeIndex(ix, iy, iz),
					m.NodeIndex(ix+1, iy, iz),
					m.NodeIndex(ix+1, iy+1, iz),
					m.NodeIndex(ix, iy+1, iz),
					m.NodeIndex(ix, iy, iz+1),
					m.NodeIndex(ix+1, iy, iz+1),
					m.NodeIndex(ix+1, iy+1, iz+1),
					m.NodeIndex(ix, iy+1, iz+1),
				})
				m.Heights = append(m.Heights, heights[ix])
			}
		}
	}
	return m, nil
}
