package laplacian

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/sparsela"
)

func TestBackendString(t *testing.T) {
	assert.Equal(t, "cotangent", BackendCotangent.String())
	assert.Equal(t, "pointcloud", BackendPointCloud.String())
	assert.Equal(t, "Backend(7)", Backend(7).String())
}

func TestNewBuilder(t *testing.T) {
	b, err := NewBuilder(BackendCotangent)
	require.NoError(t, err)
	assert.IsType(t, &CotangentBuilder{}, b)

	b, err = NewBuilder(BackendPointCloud)
	require.NoError(t, err)
	assert.IsType(t, &PointCloudBuilder{}, b)

	_, err = NewBuilder(Backend(99))
	assert.Error(t, err)
}

func TestCotangentSingleTriangle(t *testing.T) {
	// Right isoceles triangle: angles 90°, 45°, 45°.
	positions := []r3.Vec{{}, {X: 1}, {Y: 1}}
	sys, err := CotangentBuilder{}.Build(positions, [][3]int{{0, 1, 2}})
	require.NoError(t, err)

	// Edge (1,2) is opposite the right angle at vertex 0: weight cot(90°)=0.
	// Edges (0,1) and (0,2) are opposite 45° corners: weight cot(45°)=1.
	assert.InDelta(t, 1, sys.L.At(0, 1), 1e-12)
	assert.InDelta(t, 1, sys.L.At(1, 0), 1e-12)
	assert.InDelta(t, 1, sys.L.At(0, 2), 1e-12)
	assert.InDelta(t, 0, sys.L.At(1, 2), 1e-12)

	// Rows sum to zero
	n := len(positions)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += sys.L.At(i, j)
		}
		assert.InDelta(t, 0, sum, 1e-12, "row %d", i)
	}

	// Barycentric mass: a third of the triangle area per corner
	for i := 0; i < n; i++ {
		assert.InDelta(t, 0.5/3, sys.Mass[i], 1e-12)
	}
}

func TestCotangentDegenerateTriangle(t *testing.T) {
	// Collinear triangle: zero cotangents, zero area, nothing poisoned.
	positions := []r3.Vec{{}, {X: 1}, {X: 2}}
	sys, err := CotangentBuilder{}.Build(positions, [][3]int{{0, 1, 2}})
	require.NoError(t, err)
	assert.True(t, sparsela.AllFinite(sys.L))
	for i := range positions {
		assert.InDelta(t, 0, sys.Mass[i], 1e-12)
	}
}

func TestCotangentSymmetry(t *testing.T) {
	// Two triangles sharing edge (0,2). A unit square would put both angles
	// opposite the diagonal at exactly 90 degrees and the shared edge weight
	// at cot(90)+cot(90) = 0, so skew the outer vertices to keep the angles
	// acute and the weight strictly positive.
	positions := []r3.Vec{
		{}, {X: 1, Y: -0.5}, {X: 1, Y: 1}, {X: -0.5, Y: 1},
	}
	sys, err := CotangentBuilder{}.Build(positions, [][3]int{{0, 1, 2}, {0, 2, 3}})
	require.NoError(t, err)

	n := len(positions)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.InDelta(t, sys.L.At(i, j), sys.L.At(j, i), 1e-12)
		}
	}
	// Interior edge (0,2) accumulates cotangents from both sides
	assert.Greater(t, sys.L.At(0, 2), 0.0)
}

func TestPointCloudLaplacian(t *testing.T) {
	positions := []r3.Vec{
		{}, {X: 1}, {Y: 1}, {X: 1, Y: 1},
		{Z: 1}, {X: 1, Z: 1}, {Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1},
	}
	b := &PointCloudBuilder{K: 3}
	sys, err := b.Build(positions, nil)
	require.NoError(t, err)

	n := len(positions)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			v := sys.L.At(i, j)
			sum += v
			if i != j {
				assert.GreaterOrEqual(t, v, 0.0)
			}
			assert.InDelta(t, sys.L.At(j, i), v, 1e-12)
		}
		assert.InDelta(t, 0, sum, 1e-12, "row %d", i)
		assert.Greater(t, sys.Mass[i], 0.0)
	}
}

func TestSystemMatrixFinite(t *testing.T) {
	positions := []r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}}
	sys, err := CotangentBuilder{}.Build(positions, [][3]int{{0, 1, 2}, {1, 3, 2}})
	require.NoError(t, err)

	q := sys.SystemMatrix()
	require.True(t, sparsela.AllFinite(q))

	// Q must be symmetric positive semi-definite: x·Qx ≥ 0 for a few probes.
	n := len(positions)
	probes := [][]float64{
		{1, 0, 0, 0},
		{1, -1, 1, -1},
		{0.3, 0.1, -0.7, 0.2},
	}
	qc := sparsela.FromCSR(q)
	dst := make([]float64, n)
	for _, x := range probes {
		qc.MulVec(x, dst)
		var xqx float64
		for i := range x {
			xqx += x[i] * dst[i]
		}
		assert.GreaterOrEqual(t, xqx, -1e-9)
	}

	// Constant vectors are in the null space of L, hence of Q.
	ones := []float64{1, 1, 1, 1}
	qc.MulVec(ones, dst)
	for i := range dst {
		assert.InDelta(t, 0, dst[i], 1e-9)
	}
}

func TestValidateRejectsNaNMass(t *testing.T) {
	positions := []r3.Vec{{}, {X: 1}, {Y: 1}}
	sys, err := CotangentBuilder{}.Build(positions, [][3]int{{0, 1, 2}})
	require.NoError(t, err)

	sys.Mass[0] = math.NaN()
	assert.ErrorIs(t, sys.Validate(), ErrInvalidMatrix)
}
