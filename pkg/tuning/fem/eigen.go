package fem

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotPositiveDefinite is returned when a Cholesky factorization fails.
	ErrNotPositiveDefinite = errors.New("matrix is not positive definite")
	// ErrNoConvergence is returned when subspace iteration runs out of iterations.
	ErrNoConvergence = errors.New("eigen iteration did not converge")
)

// EigenOptions controls extraction of the lowest eigenpairs of K·φ = λ·M·φ.
type EigenOptions struct {
	// NumPairs is the number of lowest eigenpairs wanted. Zero means all,
	// which only the dense path supports.
	NumPairs int
	// Vectors requests eigenvectors.
	Vectors bool
	// Shift is the spectral shift s used by the banded path, which factors
	// K + s·M. Zero selects one from the diagonal scales.
	Shift float64
	// Tol is the relative eigenvalue change accepted as converged.
	Tol float64
	// MaxIter bounds the banded subspace iteration.
	MaxIter int
	// Seed feeds the starting subspace.
	Seed uint64
}

func (o EigenOptions) withDefaults() EigenOptions {
	if o.Tol <= 0 {
		o.Tol = 1e-8
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 300
	}
	return o
}

// Eigen holds eigenpairs sorted by ascending eigenvalue. Column i of
// Vectors is M-normalised and pairs with Values[i].
type Eigen struct {
	Values  []float64
	Vectors *mat.Dense
}

// SolveGeneralized returns the lowest eigenpairs of (K, M). Dense systems
// are reduced to standard form with a Cholesky factor of M; banded systems
// use shift-invert subspace iteration.
func SolveGeneralized(k, m *System, opts EigenOptions) (Eigen, error) {
	opts = opts.withDefaults()
	if k.Size() != m.Size() {
		return Eigen{}, fmt.Errorf("stiffness is %d×%d but mass is %d×%d", k.Size(), k.Size(), m.Size(), m.Size())
	}
	if k.Banded() && m.Banded() {
		return subspaceIteration(k, m, opts)
	}
	vals, vecs, err := denseGeneralized(k.Matrix(), m.Matrix(), opts.Vectors)
	if err != nil {
		return Eigen{}, err
	}
	return truncate(vals, vecs, opts.NumPairs), nil
}

func truncate(vals []float64, vecs *mat.Dense, p int) Eigen {
	if p <= 0 || p >= len(vals) {
		return Eigen{Values: vals, Vectors: vecs}
	}
	e := Eigen{Values: vals[:p]}
	if vecs != nil {
		r, _ := vecs.Dims()
		e.Vectors = mat.DenseCopyOf(vecs.Slice(0, r, 0, p))
	}
	return e
}

// denseGeneralized solves K·x = λ·M·x through C = L⁻¹·K·L⁻ᵀ with M = L·Lᵀ.
func denseGeneralized(k, m mat.Symmetric, vectors bool) ([]float64, *mat.Dense, error) {
	n := m.SymmetricDim()

	var chol mat.Cholesky
	if ok := chol.Factorize(m); !ok {
		return nil, nil, ErrNotPositiveDefinite
	}
	var l, li mat.TriDense
	chol.LTo(&l)
	if err := li.InverseTri(&l); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}

	var tmp, c mat.Dense
	tmp.Mul(&li, k)
	c.Mul(&tmp, li.T())
	cs := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cs.SetSym(i, j, 0.5*(c.At(i, j)+c.At(j, i)))
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(cs, vectors); !ok {
		return nil, nil, ErrNoConvergence
	}
	vals := es.Values(nil)
	if !vectors {
		return vals, nil, nil
	}
	var y, x mat.Dense
	es.VectorsTo(&y)
	x.Mul(li.T(), &y)
	return vals, &x, nil
}

// autoShift picks s so that K + s·M is safely positive definite for a free
// body while staying well below the first elastic eigenvalue.
func autoShift(k, m *System) float64 {
	mm := m.MaxAbsDiag()
	if mm == 0 {
		return 1
	}
	return math.Max(1, 1e-8*k.MaxAbsDiag()/mm)
}

// subspaceIteration extracts the lowest p eigenpairs with the shift-invert
// operator (K + s·M)⁻¹·M and a Rayleigh-Ritz projection every iteration.
func subspaceIteration(k, m *System, opts EigenOptions) (Eigen, error) {
	n := k.Size()
	p := opts.NumPairs
	if p <= 0 || p > n {
		p = n
	}
	q := max(2*p, p+8)
	if q > n {
		q = n
	}

	s := opts.Shift
	if s <= 0 {
		s = autoShift(k, m)
	}
	a := k.Clone()
	a.AddScaled(s, m)
	var chol mat.BandCholesky
	if ok := chol.Factorize(a.band); !ok {
		return Eigen{}, ErrNotPositiveDefinite
	}

	rng := rand.New(rand.NewPCG(opts.Seed, 0x5eed))
	x := make([][]float64, q)
	diag := m.Diag()
	for j := range x {
		x[j] = make([]float64, n)
		if j == 0 {
			copy(x[j], diag)
			continue
		}
		for i := range x[j] {
			x[j][i] = rng.Float64()*2 - 1
		}
	}

	y := make([]float64, n)
	xbar := make([][]float64, q)
	kx := make([][]float64, q)
	mx := make([][]float64, q)
	for j := range xbar {
		xbar[j] = make([]float64, n)
		kx[j] = make([]float64, n)
		mx[j] = make([]float64, n)
	}
	yv := mat.NewVecDense(n, y)

	prev := make([]float64, p)
	for i := range prev {
		prev[i] = math.Inf(1)
	}
	kr := mat.NewSymDense(q, nil)
	mr := mat.NewSymDense(q, nil)

	for iter := 0; iter < opts.MaxIter; iter++ {
		for j := 0; j < q; j++ {
			m.MulVecTo(y, x[j])
			dst := mat.NewVecDense(n, xbar[j])
			if err := chol.SolveVecTo(dst, yv); err != nil {
				return Eigen{}, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
			}
			m.MulVecTo(mx[j], xbar[j])
			// Column scaling keeps the projected mass well conditioned.
			norm := math.Sqrt(math.Abs(floats.Dot(xbar[j], mx[j])))
			if norm == 0 {
				norm = 1
			}
			floats.Scale(1/norm, xbar[j])
			floats.Scale(1/norm, mx[j])
			k.MulVecTo(kx[j], xbar[j])
		}
		for i := 0; i < q; i++ {
			for j := i; j < q; j++ {
				kr.SetSym(i, j, 0.5*(floats.Dot(xbar[i], kx[j])+floats.Dot(xbar[j], kx[i])))
				mr.SetSym(i, j, 0.5*(floats.Dot(xbar[i], mx[j])+floats.Dot(xbar[j], mx[i])))
			}
		}
		vals, qv, err := denseGeneralized(kr, mr, true)
		if err != nil {
			return Eigen{}, fmt.Errorf("projected problem at iteration %d: %w", iter, err)
		}
		for j := 0; j < q; j++ {
			col := x[j]
			for i := range col {
				col[i] = 0
			}
			for i := 0; i < q; i++ {
				floats.AddScaled(col, qv.At(i, j), xbar[i])
			}
		}

		converged := true
		for i := 0; i < p; i++ {
			scale := math.Max(math.Abs(vals[i]), s)
			if math.Abs(vals[i]-prev[i]) > opts.Tol*scale {
				converged = false
			}
			prev[i] = vals[i]
		}
		if converged {
			return ritzPairs(vals[:p], x[:p], opts.Vectors), nil
		}
	}
	return Eigen{}, ErrNoConvergence
}

func ritzPairs(vals []float64, x [][]float64, vectors bool) Eigen {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })

	e := Eigen{Values: make([]float64, len(vals))}
	for i, j := range idx {
		e.Values[i] = vals[j]
	}
	if !vectors || len(x) == 0 {
		return e
	}
	n := len(x[0])
	e.Vectors = mat.NewDense(n, len(vals), nil)
	for c, j := range idx {
		e.Vectors.SetCol(c, x[j])
	}
	return e
}
