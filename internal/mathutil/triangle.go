package mathutil

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// TriangleArea returns the area of triangle (a, b, c).
func TriangleArea(a, b, c r3.Vec) float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
}

// TriangleNormal returns the unit normal of triangle (a, b, c), or the zero
// vector if the triangle is degenerate.
func TriangleNormal(a, b, c r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	l := r3.Norm(n)
	if l < 1e-12 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Cotangent returns the cotangent of the angle at center formed by the edges
// (center, a) and (center, b). Degenerate configurations (near-zero cross
// product) return 0 so cotangent-Laplacian assembly can skip them safely.
func Cotangent(a, center, b r3.Vec) float64 {
	e1 := r3.Sub(a, center)
	e2 := r3.Sub(b, center)
	crossNorm := r3.Norm(r3.Cross(e1, e2))
	if crossNorm < 1e-10 {
		return 0
	}
	return r3.Dot(e1, e2) / crossNorm
}

// Barycentric returns the barycentric coordinates (u, v, w) of point p with
// respect to triangle (a, b, c), so that p ≈ u·a + v·b + w·c. The bool result
// is false when the triangle is degenerate.
func Barycentric(p, a, b, c r3.Vec) (u, v, w float64, ok bool) {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)

	d00 := r3.Dot(ab, ab)
	d01 := r3.Dot(ab, ac)
	d11 := r3.Dot(ac, ac)
	d20 := r3.Dot(ap, ab)
	d21 := r3.Dot(ap, ac)

	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-14 {
		return 0, 0, 0, false
	}

	v = (d11*d20 - d01*d21) / denom
	w = (d00*d21 - d01*d20) / denom
	u = 1 - v - w
	return u, v, w, true
}

// ClosestPointOnTriangle returns the point on triangle (a, b, c) closest to p.
// Region classification over the triangle's Voronoi features; handles points
// projecting onto vertices, edges and the interior.
func ClosestPointOnTriangle(p, a, b, c r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)

	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := r3.Sub(p, b)
	d3 := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		t := d1 / (d1 - d3)
		return r3.Add(a, r3.Scale(t, ab))
	}

	cp := r3.Sub(p, c)
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		t := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(t, ac))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		t := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(t, r3.Sub(c, b)))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}
