package transfer

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/mathutil"
	"robust-weight-transfer/internal/scene"
	"robust-weight-transfer/internal/spatial"
)

// candidateNeighbors is how many source vertices seed the incident-triangle
// candidate set for the exact surface search.
const candidateNeighbors = 12

// Match holds the closest-point data for one matched target vertex.
type Match struct {
	// Face is the source triangle index, or -1 when the match snapped to a
	// single source vertex (nearest-vertex mode, or a surface query that
	// found no candidate triangle).
	Face int
	// Vertex is the source vertex index for vertex-snapped matches, -1 for
	// surface matches.
	Vertex int
	// Bary are the barycentric coordinates of the closest point within Face.
	Bary [3]float64
	// Point is the closest point on the source surface.
	Point r3.Vec
	// Distance is the Euclidean distance from the target vertex.
	Distance float64
	// AngleDegrees is the deviation between target and source normals.
	AngleDegrees float64
}

// MatchResult partitions target vertices into matched and unmatched sets and
// carries the interpolated source weights for matched vertices, already
// remapped into the target influence set.
type MatchResult struct {
	TargetMesh string
	// Influences is the target influence set the Weights columns refer to.
	Influences []string
	// Matched and Unmatched are disjoint, ascending vertex index sets
	// covering every target vertex.
	Matched   []int
	Unmatched []int
	// Matches has one entry per target vertex; only entries for matched
	// vertices are meaningful.
	Matches []Match
	// Weights has one row per target vertex; rows of unmatched vertices are
	// zero.
	Weights *scene.WeightMatrix

	matched []bool
}

// IsMatched reports whether target vertex v was matched.
func (r *MatchResult) IsMatched(v int) bool { return r.matched[v] }

// FindMatches classifies every target vertex against the source mesh
// (stage 1). A vertex matches when its closest source point lies within
// DistanceRatio × source-bbox-diagonal and the normal deviation is within
// AngleDegrees (or within it after negation when FlipNormals is set).
func (p *Pipeline) FindMatches(ctx context.Context, sourceMesh, targetMesh string) (*MatchResult, error) {
	srcPos, srcNrm, err := p.meshSnapshot(sourceMesh, p.opts.UseDeformedSource)
	if err != nil {
		return nil, err
	}
	tgtPos, tgtNrm, err := p.meshSnapshot(targetMesh, p.opts.UseDeformedTarget)
	if err != nil {
		return nil, err
	}
	srcTris, err := p.scene.Triangles(sourceMesh)
	if err != nil {
		return nil, err
	}

	srcWeights, srcInfs, err := p.scene.AllWeights(sourceMesh)
	if err != nil {
		return nil, err
	}

	// The target influence set: existing binding when present, otherwise the
	// source set carries over unchanged.
	tgtInfs := srcInfs
	if b, err := p.scene.Binding(targetMesh); err == nil {
		tgtInfs = b.Influences
	}
	remap := influenceRemap(srcInfs, tgtInfs)

	bboxDiag, err := p.scene.BoundingBoxDiagonal(sourceMesh)
	if err != nil {
		return nil, err
	}
	maxDist := p.opts.DistanceRatio * bboxDiag

	tree := spatial.NewVertexTree(srcPos)
	var incident [][]int
	if p.opts.Search == SearchSurface {
		incident = incidentTriangles(len(srcPos), srcTris)
	}

	n := len(tgtPos)
	res := &MatchResult{
		TargetMesh: targetMesh,
		Influences: tgtInfs,
		Matches:    make([]Match, n),
		Weights:    scene.NewWeightMatrix(n, len(tgtInfs)),
		matched:    make([]bool, n),
	}

	row := make([]float64, len(srcInfs))
	for vi := 0; vi < n; vi++ {
		if vi%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var m Match
		var srcNormal r3.Vec
		if p.opts.Search == SearchSurface {
			m, srcNormal = closestSurfacePoint(tgtPos[vi], srcPos, srcNrm, srcTris, incident, tree)
		} else {
			idx, dist := tree.Nearest(tgtPos[vi])
			m = Match{Face: -1, Vertex: idx, Point: srcPos[idx], Distance: dist}
			srcNormal = srcNrm[idx]
		}
		if m.Face < 0 && m.Vertex < 0 {
			continue
		}

		if m.Distance > maxDist {
			continue
		}
		angle := normalAngleDegrees(tgtNrm[vi], srcNormal)
		m.AngleDegrees = angle
		accept := angle <= p.opts.AngleDegrees
		if p.opts.FlipNormals {
			accept = accept || angle >= 180-p.opts.AngleDegrees
		}
		if !accept {
			continue
		}

		// Interpolate source weights at the closest point.
		for i := range row {
			row[i] = 0
		}
		if m.Face >= 0 {
			tri := srcTris[m.Face]
			for k := 0; k < 3; k++ {
				w := srcWeights.Row(tri[k])
				for i := range row {
					row[i] += m.Bary[k] * w[i]
				}
			}
		} else {
			copy(row, srcWeights.Row(m.Vertex))
		}

		if !writeRemappedRow(res.Weights.Row(vi), row, remap) {
			// Every source influence was dropped by the remap; nothing
			// constrains this vertex, leave it for inpainting.
			continue
		}

		res.matched[vi] = true
		res.Matches[vi] = m
	}

	for vi := 0; vi < n; vi++ {
		if res.matched[vi] {
			res.Matched = append(res.Matched, vi)
		} else {
			res.Unmatched = append(res.Unmatched, vi)
		}
	}

	Logger().Debug("stage 1 matching complete",
		"source", sourceMesh, "target", targetMesh,
		"matched", len(res.Matched), "total", n,
		"distance_threshold", maxDist)
	return res, nil
}

// UnmatchedVertices returns the matched and unmatched target vertex index
// sets without transferring any weights. Used for previews.
func (p *Pipeline) UnmatchedVertices(ctx context.Context, sourceMesh, targetMesh string) (matched, unmatched []int, err error) {
	res, err := p.FindMatches(ctx, sourceMesh, targetMesh)
	if err != nil {
		return nil, nil, err
	}
	return res.Matched, res.Unmatched, nil
}

// influenceRemap maps each source influence column to its target column by
// name, -1 when absent from the target set.
func influenceRemap(source, target []string) []int {
	idx := make(map[string]int, len(target))
	for i, name := range target {
		idx[name] = i
	}
	remap := make([]int, len(source))
	for i, name := range source {
		if j, ok := idx[name]; ok {
			remap[i] = j
		} else {
			remap[i] = -1
		}
	}
	return remap
}

// writeRemappedRow scatters a source-space weight row into a target-space
// row, dropping influences absent from the target set and renormalizing.
// Returns false when the remapped row has no weight left.
func writeRemappedRow(dst, src []float64, remap []int) bool {
	for i := range dst {
		dst[i] = 0
	}
	var sum float64
	for i, j := range remap {
		if j < 0 {
			continue
		}
		dst[j] += src[i]
		sum += src[i]
	}
	if sum <= 0 {
		return false
	}
	if math.Abs(sum-1) > 1e-12 {
		inv := 1 / sum
		for i := range dst {
			dst[i] *= inv
		}
	}
	return true
}

// incidentTriangles builds the vertex → incident triangle index lists.
func incidentTriangles(numVerts int, tris [][3]int) [][]int {
	incident := make([][]int, numVerts)
	for ti, tri := range tris {
		for _, vi := range tri {
			incident[vi] = append(incident[vi], ti)
		}
	}
	return incident
}

// closestSurfacePoint finds the closest point on the source surface to p by
// testing the triangles incident to the k nearest source vertices. Falls
// back to the nearest vertex itself when no candidate triangle exists
// (isolated vertices).
func closestSurfacePoint(
	p r3.Vec,
	srcPos, srcNrm []r3.Vec,
	srcTris [][3]int,
	incident [][]int,
	tree *spatial.VertexTree,
) (Match, r3.Vec) {
	neighbors := tree.KNearest(p, candidateNeighbors)

	bestDist := math.Inf(1)
	bestFace := -1
	var bestPoint r3.Vec
	seen := make(map[int]struct{}, candidateNeighbors*6)
	for _, nb := range neighbors {
		for _, ti := range incident[nb.Index] {
			if _, ok := seen[ti]; ok {
				continue
			}
			seen[ti] = struct{}{}
			tri := srcTris[ti]
			cp := mathutil.ClosestPointOnTriangle(p, srcPos[tri[0]], srcPos[tri[1]], srcPos[tri[2]])
			d := r3.Norm(r3.Sub(p, cp))
			if d < bestDist {
				bestDist = d
				bestFace = ti
				bestPoint = cp
			}
		}
	}

	if bestFace < 0 {
		if len(neighbors) == 0 {
			return Match{Face: -1, Vertex: -1, Distance: math.Inf(1)}, r3.Vec{}
		}
		nb := neighbors[0]
		return Match{
			Face:     -1,
			Vertex:   nb.Index,
			Point:    srcPos[nb.Index],
			Distance: nb.Distance,
		}, srcNrm[nb.Index]
	}

	tri := srcTris[bestFace]
	u, v, w, ok := mathutil.Barycentric(bestPoint, srcPos[tri[0]], srcPos[tri[1]], srcPos[tri[2]])
	if !ok {
		u, v, w = 1.0/3, 1.0/3, 1.0/3
	}
	u = clamp01(u)
	v = clamp01(v)
	w = clamp01(w)
	if s := u + v + w; s > 0 {
		u, v, w = u/s, v/s, w/s
	}

	normal := r3.Add(r3.Add(
		r3.Scale(u, srcNrm[tri[0]]),
		r3.Scale(v, srcNrm[tri[1]])),
		r3.Scale(w, srcNrm[tri[2]]))
	if l := r3.Norm(normal); l > 1e-12 {
		normal = r3.Scale(1/l, normal)
	} else {
		normal = mathutil.TriangleNormal(srcPos[tri[0]], srcPos[tri[1]], srcPos[tri[2]])
	}

	return Match{
		Face:     bestFace,
		Vertex:   -1,
		Bary:     [3]float64{u, v, w},
		Point:    bestPoint,
		Distance: bestDist,
	}, normal
}

func normalAngleDegrees(a, b r3.Vec) float64 {
	la, lb := r3.Norm(a), r3.Norm(b)
	if la < 1e-10 || lb < 1e-10 {
		return 180
	}
	cos := r3.Dot(a, b) / (la * lb)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return mathutil.Rad2Deg(math.Acos(cos))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
