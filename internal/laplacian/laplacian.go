// Package laplacian builds discrete Laplacian and mass matrices from mesh
// geometry, and the system matrix Q = -L + L·M⁻¹·L the weight-inpainting
// solver factorizes.
package laplacian

import (
	"errors"
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/sparsela"
)

// ErrInvalidMatrix signals NaN/Inf entries in an assembled operator; the
// caller must re-derive from a cleaned mesh.
var ErrInvalidMatrix = errors.New("laplacian: matrix contains non-finite entries")

// Backend selects the Laplacian construction. Resolved once at pipeline
// configuration, not per call.
type Backend int

const (
	// BackendCotangent is the classic discrete cotangent Laplacian with
	// barycentric lumped mass. Requires triangle connectivity.
	BackendCotangent Backend = iota
	// BackendPointCloud builds a Gaussian-weighted k-nearest-neighbor graph
	// Laplacian from positions alone. More robust on non-manifold or soup
	// geometry, lower fidelity.
	BackendPointCloud
)

func (b Backend) String() string {
	switch b {
	case BackendCotangent:
		return "cotangent"
	case BackendPointCloud:
		return "pointcloud"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// System holds a sparse Laplacian and its diagonal lumped mass matrix.
// Sign convention: off-diagonal entries are non-negative weights and the
// diagonal carries their negated sum, so Q = -L + L·M⁻¹·L is positive
// semi-definite for every backend.
type System struct {
	L    *sparse.CSR
	Mass []float64
}

// Builder produces a Laplacian system from a mesh snapshot.
type Builder interface {
	Build(positions []r3.Vec, triangles [][3]int) (*System, error)
}

// NewBuilder returns the builder for a backend.
func NewBuilder(b Backend) (Builder, error) {
	switch b {
	case BackendCotangent:
		return &CotangentBuilder{}, nil
	case BackendPointCloud:
		return &PointCloudBuilder{}, nil
	}
	return nil, fmt.Errorf("laplacian: unknown backend %d", int(b))
}

// Validate checks the assembled system for non-finite entries.
func (s *System) Validate() error {
	if !sparsela.AllFinite(s.L) {
		return ErrInvalidMatrix
	}
	for _, m := range s.Mass {
		if m != m || m > 1e300 || m < -1e300 {
			return ErrInvalidMatrix
		}
	}
	return nil
}

// SystemMatrix computes Q = -L + L·M⁻¹·L. Near-zero mass entries are clamped
// so isolated vertices do not poison the product with infinities.
func (s *System) SystemMatrix() *sparse.CSR {
	n := len(s.Mass)

	// M⁻¹·L: scale row i of L by 1/mass[i].
	scaled := sparse.NewDOK(n, n)
	s.L.DoNonZero(func(i, j int, v float64) {
		m := s.Mass[i]
		if m < 1e-10 && m > -1e-10 {
			m = 1e-10
		}
		scaled.Set(i, j, v/m)
	})

	var prod sparse.CSR
	prod.Mul(s.L, scaled.ToCSR())

	// Q = -L + prod, accumulated entry-wise.
	q := sparse.NewDOK(n, n)
	s.L.DoNonZero(func(i, j int, v float64) {
		q.Set(i, j, -v)
	})
	prod.DoNonZero(func(i, j int, v float64) {
		q.Set(i, j, q.At(i, j)+v)
	})
	return q.ToCSR()
}
