package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestTriangleArea(t *testing.T) {
	a := r3.Vec{}
	b := r3.Vec{X: 1}
	c := r3.Vec{Y: 1}
	assert.InDelta(t, 0.5, TriangleArea(a, b, c), 1e-12)

	// Degenerate: collinear points have zero area
	assert.InDelta(t, 0, TriangleArea(a, b, r3.Vec{X: 2}), 1e-12)
}

func TestTriangleNormal(t *testing.T) {
	n := TriangleNormal(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1})
	assert.InDelta(t, 0, n.X, 1e-12)
	assert.InDelta(t, 0, n.Y, 1e-12)
	assert.InDelta(t, 1, n.Z, 1e-12)

	// Degenerate triangle yields the zero vector
	z := TriangleNormal(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 2})
	assert.Equal(t, r3.Vec{}, z)
}

func TestCotangent(t *testing.T) {
	center := r3.Vec{}

	// Right angle: cot(90°) = 0
	assert.InDelta(t, 0, Cotangent(r3.Vec{X: 1}, center, r3.Vec{Y: 1}), 1e-12)

	// 45 degrees: cot(45°) = 1
	assert.InDelta(t, 1, Cotangent(r3.Vec{X: 1}, center, r3.Vec{X: 1, Y: 1}), 1e-12)

	// 60 degrees (equilateral corner): cot(60°) = 1/√3
	got := Cotangent(r3.Vec{X: 1}, center, r3.Vec{X: 0.5, Y: math.Sqrt(3) / 2})
	assert.InDelta(t, 1/math.Sqrt(3), got, 1e-12)

	// Collinear edges are treated as degenerate
	assert.Equal(t, 0.0, Cotangent(r3.Vec{X: 1}, center, r3.Vec{X: 2}))
}

func TestBarycentric(t *testing.T) {
	a := r3.Vec{}
	b := r3.Vec{X: 1}
	c := r3.Vec{Y: 1}

	u, v, w, ok := Barycentric(r3.Vec{X: 1.0 / 3, Y: 1.0 / 3}, a, b, c)
	require.True(t, ok)
	assert.InDelta(t, 1.0/3, u, 1e-12)
	assert.InDelta(t, 1.0/3, v, 1e-12)
	assert.InDelta(t, 1.0/3, w, 1e-12)

	u, v, w, ok = Barycentric(b, a, b, c)
	require.True(t, ok)
	assert.InDelta(t, 0, u, 1e-12)
	assert.InDelta(t, 1, v, 1e-12)
	assert.InDelta(t, 0, w, 1e-12)

	_, _, _, ok = Barycentric(r3.Vec{}, a, b, r3.Vec{X: 2})
	assert.False(t, ok)
}

func TestClosestPointOnTriangle(t *testing.T) {
	a := r3.Vec{}
	b := r3.Vec{X: 2}
	c := r3.Vec{Y: 2}

	// Interior point projects straight down
	got := ClosestPointOnTriangle(r3.Vec{X: 0.5, Y: 0.5, Z: 3}, a, b, c)
	assert.InDelta(t, 0.5, got.X, 1e-12)
	assert.InDelta(t, 0.5, got.Y, 1e-12)
	assert.InDelta(t, 0, got.Z, 1e-12)

	// Beyond vertex a
	got = ClosestPointOnTriangle(r3.Vec{X: -1, Y: -1}, a, b, c)
	assert.Equal(t, a, got)

	// Beyond edge ab
	got = ClosestPointOnTriangle(r3.Vec{X: 1, Y: -5}, a, b, c)
	assert.InDelta(t, 1, got.X, 1e-12)
	assert.InDelta(t, 0, got.Y, 1e-12)

	// Beyond the hypotenuse bc
	got = ClosestPointOnTriangle(r3.Vec{X: 2, Y: 2}, a, b, c)
	assert.InDelta(t, 1, got.X, 1e-12)
	assert.InDelta(t, 1, got.Y, 1e-12)
}

func TestPCANormal(t *testing.T) {
	// Points on the z=0 plane: normal must be ±Z
	pts := []r3.Vec{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1},
		{X: 1, Y: 1}, {X: 0.5, Y: 0.3},
	}
	n, ok := PCANormal(pts)
	require.True(t, ok)
	assert.InDelta(t, 1, math.Abs(n.Z), 1e-9)
	assert.InDelta(t, 1, r3.Norm(n), 1e-12)

	_, ok = PCANormal(pts[:2])
	assert.False(t, ok)
}

func TestQuatRotationMatches(t *testing.T) {
	// A pure X rotation through the quaternion path must equal RotX
	angle := Deg2Rad(37)
	m := QuatFromEuler(angle, 0, 0).Mat3()
	want := RotX(angle)
	for i := 0; i < 9; i++ {
		assert.InDelta(t, want[i], m[i], 1e-12)
	}

	// Full XYZ Euler agrees with the stacked axis rotations
	rx, ry, rz := Deg2Rad(20), Deg2Rad(-45), Deg2Rad(110)
	m = QuatFromEuler(rx, ry, rz).Mat3()
	want = Mat3Mul(Mat3Mul(RotZ(rz), RotY(ry)), RotX(rx))
	for i := 0; i < 9; i++ {
		assert.InDelta(t, want[i], m[i], 1e-12)
	}
}

func TestMat4InverseRigid(t *testing.T) {
	m := FromMat3Translation(RotY(Deg2Rad(63)), r3.Vec{X: 1, Y: -2, Z: 0.5})
	inv := m.InverseRigid()
	assert.True(t, Mat4Mul(m, inv).IsIdentity())

	p := r3.Vec{X: 0.3, Y: 0.7, Z: -1.1}
	back := inv.MulPoint(m.MulPoint(p))
	assert.InDelta(t, p.X, back.X, 1e-12)
	assert.InDelta(t, p.Y, back.Y, 1e-12)
	assert.InDelta(t, p.Z, back.Z, 1e-12)
}
