package mathutil

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// PCANormal estimates a surface normal from a local point neighborhood as the
// eigenvector of the smallest eigenvalue of the neighborhood covariance.
// Returns false when fewer than 3 points are given or the eigendecomposition
// fails (collinear neighborhood).
func PCANormal(points []r3.Vec) (r3.Vec, bool) {
	if len(points) < 3 {
		return r3.Vec{}, false
	}

	var cx, cy, cz float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
		cz += p.Z
	}
	n := float64(len(points))
	cx /= n
	cy /= n
	cz /= n

	// Covariance matrix of centered points.
	var xx, xy, xz, yy, yz, zz float64
	for _, p := range points {
		dx, dy, dz := p.X-cx, p.Y-cy, p.Z-cz
		xx += dx * dx
		xy += dx * dy
		xz += dx * dz
		yy += dy * dy
		yz += dy * dz
		zz += dz * dz
	}

	cov := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return r3.Vec{}, false
	}

	// EigenSym orders eigenvalues ascending; the first eigenvector is the
	// direction of least variance, i.e. the surface normal.
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	normal := r3.Vec{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}

	l := r3.Norm(normal)
	if l < 1e-12 {
		return r3.Vec{}, false
	}
	return r3.Scale(1/l, normal), true
}
