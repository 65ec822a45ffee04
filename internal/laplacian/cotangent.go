package laplacian

import (
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/mathutil"
)

// CotangentBuilder assembles the discrete cotangent Laplacian with
// barycentric lumped mass (one third of incident triangle area per vertex).
type CotangentBuilder struct{}

// Build assembles (L, M) for the given snapshot. Degenerate triangles
// contribute zero cotangent weight and zero area, so they are effectively
// skipped without poisoning the matrix.
func (CotangentBuilder) Build(positions []r3.Vec, triangles [][3]int) (*System, error) {
	n := len(positions)
	dok := sparse.NewDOK(n, n)
	mass := make([]float64, n)

	add := func(i, j int, v float64) {
		if v == 0 {
			return
		}
		dok.Set(i, j, dok.At(i, j)+v)
	}

	for _, tri := range triangles {
		i0, i1, i2 := tri[0], tri[1], tri[2]
		v0, v1, v2 := positions[i0], positions[i1], positions[i2]

		// Cotangent of the interior angle at each corner; the weight of an
		// edge is the cotangent of the angle opposite it.
		cot0 := mathutil.Cotangent(v1, v0, v2)
		cot1 := mathutil.Cotangent(v0, v1, v2)
		cot2 := mathutil.Cotangent(v0, v2, v1)

		// Edge (i0, i1) is opposite corner 2.
		add(i0, i1, cot2)
		add(i1, i0, cot2)
		add(i0, i0, -cot2)
		add(i1, i1, -cot2)

		// Edge (i1, i2) is opposite corner 0.
		add(i1, i2, cot0)
		add(i2, i1, cot0)
		add(i1, i1, -cot0)
		add(i2, i2, -cot0)

		// Edge (i2, i0) is opposite corner 1.
		add(i2, i0, cot1)
		add(i0, i2, cot1)
		add(i2, i2, -cot1)
		add(i0, i0, -cot1)

		area := mathutil.TriangleArea(v0, v1, v2)
		mass[i0] += area / 3
		mass[i1] += area / 3
		mass[i2] += area / 3
	}

	sys := &System{L: dok.ToCSR(), Mass: mass}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return sys, nil
}
