// Package fem holds the storage and eigen-extraction shared by the beam and
// solid solvers.
package fem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// System is a symmetric global matrix stored either densely or as an upper
// symmetric band.
type System struct {
	n int
	k int

	dense *mat.SymDense
	band  *mat.SymBandDense
}

// NewDenseSystem returns an n×n zero dense system.
func NewDenseSystem(n int) *System {
	return &System{n: n, k: n - 1, dense: mat.NewSymDense(n, nil)}
}

// NewBandSystem returns an n×n zero system with k super-diagonals.
func NewBandSystem(n, k int) *System {
	if k > n-1 {
		k = n - 1
	}
	return &System{n: n, k: k, band: mat.NewSymBandDense(n, k, nil)}
}

// Size returns the system dimension.
func (s *System) Size() int { return s.n }

// Bandwidth returns the number of super-diagonals held.
func (s *System) Bandwidth() int { return s.k }

// Banded reports whether band storage is used.
func (s *System) Banded() bool { return s.band != nil }

// Matrix exposes the system as a gonum symmetric matrix.
func (s *System) Matrix() mat.Symmetric {
	if s.band != nil {
		return s.band
	}
	return s.dense
}

// index returns the raw storage offset of (i, j) with i <= j.
func (s *System) index(i, j int) int {
	if s.band != nil {
		raw := s.band.RawSymBand()
		return i*raw.Stride + j - i
	}
	return i*s.dense.RawSymmetric().Stride + j
}

func (s *System) data() []float64 {
	if s.band != nil {
		return s.band.RawSymBand().Data
	}
	return s.dense.RawSymmetric().Data
}

// Add accumulates v into (i, j) and its mirror.
func (s *System) Add(i, j int, v float64) {
	if i > j {
		i, j = j, i
	}
	if j-i > s.k {
		panic(fmt.Sprintf("fem: entry (%d, %d) outside bandwidth %d", i, j, s.k))
	}
	s.data()[s.index(i, j)] += v
}

// At returns entry (i, j).
func (s *System) At(i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	if j-i > s.k {
		return 0
	}
	return s.data()[s.index(i, j)]
}

// Scatter adds the element matrix ke, whose rows map to global dofs, into
// the system. Only the upper triangle of ke in global numbering is read.
func (s *System) Scatter(dofs []int, ke *mat.Dense) {
	for a, i := range dofs {
		for b, j := range dofs {
			if i <= j {
				s.Add(i, j, ke.At(a, b))
			}
		}
	}
}

// Diag returns the diagonal.
func (s *System) Diag() []float64 {
	d := make([]float64, s.n)
	for i := range d {
		d[i] = s.At(i, i)
	}
	return d
}

// AddDiag adds v[i] to each diagonal entry.
func (s *System) AddDiag(v []float64) {
	for i, x := range v {
		s.data()[s.index(i, i)] += x
	}
}

// MaxAbsDiag returns max |s_ii|.
func (s *System) MaxAbsDiag() float64 {
	m := 0.0
	for i := 0; i < s.n; i++ {
		m = math.Max(m, math.Abs(s.At(i, i)))
	}
	return m
}

// Clone returns an independent copy.
func (s *System) Clone() *System {
	out := &System{n: s.n, k: s.k}
	if s.band != nil {
		out.band = mat.NewSymBandDense(s.n, s.k, append([]float64(nil), s.band.RawSymBand().Data...))
		return out
	}
	out.dense = mat.NewSymDense(s.n, append([]float64(nil), s.dense.RawSymmetric().Data...))
	return out
}

// AddScaled sets s = s + alpha·o. Both systems must share the layout.
func (s *System) AddScaled(alpha float64, o *System) {
	if s.n != o.n || s.k != o.k || s.Banded() != o.Banded() {
		panic("fem: mismatched system layouts")
	}
	dst, src := s.data(), o.data()
	for i := range dst {
		dst[i] += alpha * src[i]
	}
}

// MulVecTo sets dst = s·x.
func (s *System) MulVecTo(dst, x []float64) {
	if s.band != nil {
		blas64.Sbmv(1, s.band.RawSymBand(),
			blas64.Vector{N: s.n, Data: x, Inc: 1}, 0,
			blas64.Vector{N: s.n, Data: dst, Inc: 1})
		return
	}
	blas64.Symv(1, s.dense.RawSymmetric(),
		blas64.Vector{N: s.n, Data: x, Inc: 1}, 0,
		blas64.Vector{N: s.n, Data: dst, Inc: 1})
}

// ToDense returns a dense copy of the system.
func (s *System) ToDense() *System {
	if s.band == nil {
		return s.Clone()
	}
	out := NewDenseSystem(s.n)
	for i := 0; i < s.n; i++ {
		for j := i; j <= min(i+s.k, s.n-1); j++ {
			out.dense.SetSym(i, j, s.At(i, j))
		}
	}
	return out
}
