// Package solid implements the 3D model of a bar meshed with 8-node
// hexahedra, and the classification of its vibration modes.
package solid

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// natural coordinates of the 8 nodes, bottom face then top face
var hexNodes = [8][3]float64{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

// GaussPoint is an integration point in natural coordinates.
type GaussPoint struct {
	Xi, Eta, Zeta float64
	W             float64
}

// GaussPoints returns the 2×2×2 Gauss-Legendre rule.
func GaussPoints() []GaussPoint {
	g := 1 / math.Sqrt(3)
	pts := make([]GaussPoint, 0, 8)
	for _, xi := range [2]float64{-g, g} {
		for _, eta := range [2]float64{-g, g} {
			for _, zeta := range [2]float64{-g, g} {
				pts = append(pts, GaussPoint{Xi: xi, Eta: eta, Zeta: zeta, W: 1})
			}
		}
	}
	return pts
}

// ShapeFunctions returns the 8 trilinear shape functions at (xi, eta, zeta).
func ShapeFunctions(xi, eta, zeta float64) [8]float64 {
	var n [8]float64
	for i, c := range hexNodes {
		n[i] = (1 + c[0]*xi) * (1 + c[1]*eta) * (1 + c[2]*zeta) / 8
	}
	return n
}

// ShapeDerivatives returns dN_i/d(xi, eta, zeta) as a 3×8 array.
func ShapeDerivatives(xi, eta, zeta float64) [3][8]float64 {
	var d [3][8]float64
	for i, c := range hexNodes {
		d[0][i] = c[0] * (1 + c[1]*eta) * (1 + c[2]*zeta) / 8
		d[1][i] = c[1] * (1 + c[0]*xi) * (1 + c[2]*zeta) / 8
		d[2][i] = c[2] * (1 + c[0]*xi) * (1 + c[1]*eta) / 8
	}
	return d
}

// Elasticity returns the isotropic 6×6 constitutive matrix with strain
// order [xx, yy, zz, xy, yz, xz] and engineering shear strains.
func Elasticity(e, nu float64) *mat.SymDense {
	f := e / ((1 + nu) * (1 - 2*nu))
	d := mat.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				d.SetSym(i, j, f*(1-nu))
			} else {
				d.SetSym(i, j, f*nu)
			}
		}
		d.SetSym(3+i, 3+i, f*(1-2*nu)/2)
	}
	return d
}

// Hex8 computes the element stiffness and consistent mass matrices of an
// 8-node hexahedron.
type Hex8 struct {
	// Coords holds the physical coordinates of the nodes.
	Coords [8][3]float64
	E, Nu  float64
	Rho    float64
}

// Matrices returns the 24×24 stiffness and mass matrices and the number of
// Gauss points skipped because of a non-positive Jacobian.
func (h Hex8) Matrices() (*mat.Dense, *mat.Dense, int) {
	ke := mat.NewDense(24, 24, nil)
	me := mat.NewDense(24, 24, nil)
	d := Elasticity(h.E, h.Nu)
	coords := mat.NewDense(8, 3, nil)
	for i, c := range h.Coords {
		coords.SetRow(i, c[:])
	}

	skipped := 0
	b := mat.NewDense(6, 24, nil)
	dnat := mat.NewDense(3, 8, nil)
	var jac, jinv, dphys, db, btdb mat.Dense
	for _, gp := range GaussPoints() {
		dn := ShapeDerivatives(gp.Xi, gp.Eta, gp.Zeta)
		for r := 0; r < 3; r++ {
			dnat.SetRow(r, dn[r][:])
		}
		jac.Reset()
		jac.Mul(dnat, coords)
		detJ := mat.Det(&jac)
		if detJ <= 0 {
			skipped++
			continue
		}
		jinv.Reset()
		if err := jinv.Inverse(&jac); err != nil {
			skipped++
			continue
		}
		dphys.Reset()
		dphys.Mul(&jinv, dnat)

		b.Zero()
		for i := 0; i < 8; i++ {
			dx, dy, dz := dphys.At(0, i), dphys.At(1, i), dphys.At(2, i)
			c := 3 * i
			b.Set(0, c, dx)
			b.Set(1, c+1, dy)
			b.Set(2, c+2, dz)
			b.Set(3, c, dy)
			b.Set(3, c+1, dx)
			b.Set(4, c+1, dz)
			b.Set(4, c+2, dy)
			b.Set(5, c, dz)
			b.Set(5, c+2, dx)
		}
		db.Reset()
		db.Mul(d, b)
		btdb.Reset()
		btdb.Mul(b.T(), &db)
		w := gp.W * detJ
		ke.Add(ke, scaled(w, &btdb))

		n := ShapeFunctions(gp.Xi, gp.Eta, gp.Zeta)
		for i := 0; i < 8; i++ {
			for j := 0; j < 8; j++ {
				v := w * h.Rho * n[i] * n[j]
				for k := 0; k < 3; k++ {
					me.Set(3*i+k, 3*j+k, me.At(3*i+k, 3*j+k)+v)
				}
			}
		}
	}
	return ke, me, skipped
}

func scaled(f float64, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}
