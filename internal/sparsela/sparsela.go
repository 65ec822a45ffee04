// Package sparsela supplements the sparse matrix formats from
// github.com/james-bowman/sparse with the operations the weight-inpainting
// solver needs: index-set submatrix extraction, finite-value validation and a
// conjugate-gradient solver for the SPD systems the Laplacian pipeline
// produces.
package sparsela

import (
	"errors"
	"math"

	"github.com/james-bowman/sparse"
)

// ErrNotConverged is returned when conjugate gradient fails to reach the
// requested tolerance, typically because the system is singular or
// indefinite.
var ErrNotConverged = errors.New("sparsela: conjugate gradient did not converge")

// Submatrix extracts the block a[rows, cols] as a new CSR matrix.
func Submatrix(a *sparse.CSR, rows, cols []int) *sparse.CSR {
	rowMap := make(map[int]int, len(rows))
	for i, r := range rows {
		rowMap[r] = i
	}
	colMap := make(map[int]int, len(cols))
	for j, c := range cols {
		colMap[c] = j
	}

	out := sparse.NewDOK(len(rows), len(cols))
	a.DoNonZero(func(i, j int, v float64) {
		ri, ok := rowMap[i]
		if !ok {
			return
		}
		cj, ok := colMap[j]
		if !ok {
			return
		}
		out.Set(ri, cj, v)
	})
	return out.ToCSR()
}

// AllFinite reports whether every stored entry is a finite number.
func AllFinite(a *sparse.CSR) bool {
	finite := true
	a.DoNonZero(func(_, _ int, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			finite = false
		}
	})
	return finite
}

// Compact is a frozen CSR snapshot used by the iterative solver. Extracting
// once up front keeps the CG inner loop free of interface dispatch.
type Compact struct {
	rows, cols int
	rowPtr     []int
	colIdx     []int
	vals       []float64
}

// FromCSR snapshots a sparse matrix into compact CSR arrays.
// DoNonZero on a CSR iterates in row-major storage order, which is what the
// row-pointer construction below relies on.
func FromCSR(a *sparse.CSR) *Compact {
	r, c := a.Dims()
	m := &Compact{
		rows:   r,
		cols:   c,
		rowPtr: make([]int, r+1),
	}
	a.DoNonZero(func(i, j int, v float64) {
		m.colIdx = append(m.colIdx, j)
		m.vals = append(m.vals, v)
		m.rowPtr[i+1]++
	})
	for i := 0; i < r; i++ {
		m.rowPtr[i+1] += m.rowPtr[i]
	}
	return m
}

// Dims returns the matrix dimensions.
func (m *Compact) Dims() (rows, cols int) { return m.rows, m.cols }

// MulVec computes dst = M·x. dst must have length rows.
func (m *Compact) MulVec(x, dst []float64) {
	for i := 0; i < m.rows; i++ {
		var sum float64
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			sum += m.vals[k] * x[m.colIdx[k]]
		}
		dst[i] = sum
	}
}

// SolveCG solves M·x = b for symmetric positive-definite M using conjugate
// gradient. Returns ErrNotConverged when the residual fails to drop below
// tol·|b| within maxIter iterations, or when a breakdown (zero or negative
// curvature) indicates a singular or indefinite system.
func (m *Compact) SolveCG(b []float64, tol float64, maxIter int) ([]float64, error) {
	n := m.rows
	x := make([]float64, n)
	r := make([]float64, n)
	copy(r, b)

	bNorm := norm2(b)
	if bNorm == 0 {
		return x, nil
	}
	target := tol * bNorm

	p := make([]float64, n)
	copy(p, r)
	ap := make([]float64, n)

	rr := dot(r, r)
	for iter := 0; iter < maxIter; iter++ {
		if math.Sqrt(rr) <= target {
			return x, nil
		}
		m.MulVec(p, ap)
		pap := dot(p, ap)
		if pap <= 0 || math.IsNaN(pap) {
			return nil, ErrNotConverged
		}
		alpha := rr / pap
		for i := 0; i < n; i++ {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
		}
		rrNew := dot(r, r)
		beta := rrNew / rr
		for i := 0; i < n; i++ {
			p[i] = r[i] + beta*p[i]
		}
		rr = rrNew
	}
	if math.Sqrt(rr) <= target {
		return x, nil
	}
	return nil, ErrNotConverged
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm2(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}
