// Package beam implements the 2D Timoshenko beam model of a bar with a
// piecewise-constant thickness.
package beam

import (
	"gonum.org/v1/gonum/mat"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// Element is a 2-node Timoshenko beam element of rectangular section. Each
// node carries a transverse displacement and a rotation.
type Element struct {
	Le  float64 // length
	H   float64 // thickness
	B   float64 // width
	Mat framework.Material
}

func (e Element) area() float64    { return e.B * e.H }
func (e Element) inertia() float64 { return e.B * e.H * e.H * e.H / 12 }

// Phi is the shear deformation parameter 12EI/(κGAle²).
func (e Element) Phi() float64 {
	return 12 * e.Mat.E * e.inertia() / (framework.Kappa * e.Mat.ShearModulus() * e.area() * e.Le * e.Le)
}

// Stiffness returns the 4×4 element stiffness matrix.
func (e Element) Stiffness() *mat.Dense {
	ei := e.Mat.E * e.inertia()
	phi := e.Phi()
	le := e.Le
	den := (1 + phi) * le * le * le

	k11 := 12 * ei / den
	k12 := 6 * ei * le / den
	k22 := (4 + phi) * ei * le * le / den
	k23 := (2 - phi) * ei * le * le / den

	return mat.NewDense(4, 4, []float64{
		k11, k12, -k11, k12,
		k12, k22, -k12, k23,
		-k11, -k12, k11, -k12,
		k12, k23, -k12, k22,
	})
}

// Mass returns the 4×4 consistent mass matrix including rotary inertia.
func (e Element) Mass() *mat.Dense {
	phi := e.Phi()
	le := e.Le
	den := (1 + phi) * (1 + phi)
	m := e.Mat.Rho * e.area() * le

	c1 := (13.0/35 + 7*phi/10 + phi*phi/3) / den
	c2 := (9.0/70 + 3*phi/10 + phi*phi/6) / den
	c3 := (11.0/210 + 11*phi/120 + phi*phi/24) * le / den
	c4 := (13.0/420 + 3*phi/40 + phi*phi/24) * le / den
	c5 := (1.0/105 + phi/60 + phi*phi/120) * le * le / den
	c6 := (1.0/140 + phi/60 + phi*phi/120) * le * le / den

	rs := e.inertia() / e.area() / (le * le)
	r1 := 6.0 / 5 / den * rs
	r2 := (2.0/15 + phi/6 + phi*phi/3) * le * le / den * rs
	r3 := (1.0/10 - phi/2) * le / den * rs
	r4 := (-1.0/30 - phi/6 + phi*phi/6) * le * le / den * rs

	return mat.NewDense(4, 4, []float64{
		m * (c1 + r1), m * (c3 + r3), m * (c2 - r1), m * (-c4 + r3),
		m * (c3 + r3), m * (c5 + r2), m * (c4 - r3), m * (-c6 + r4),
		m * (c2 - r1), m * (c4 - r3), m * (c1 + r1), m * (-c3 - r3),
		m * (-c4 + r3), m * (-c6 + r4), m * (-c3 - r3), m * (c5 + r2),
	})
}

// Dofs returns the global dof indices of element idx.
func Dofs(idx int) []int {
	return []int{2 * idx, 2*idx + 1, 2*idx + 2, 2*idx + 3}
}
