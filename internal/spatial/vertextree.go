// Package spatial provides a kd-tree index over mesh vertices for
// nearest-vertex and k-nearest-neighbor queries.
package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

type vertexPoint struct {
	pos   r3.Vec
	index int
}

func (p vertexPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertexPoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	case 1:
		return p.pos.Y - q.pos.Y
	case 2:
		return p.pos.Z - q.pos.Z
	}
	panic("spatial: unreachable dimension")
}

func (p vertexPoint) Dims() int { return 3 }

func (p vertexPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(vertexPoint)
	return r3.Norm2(r3.Sub(p.pos, q.pos))
}

type vertexPoints []vertexPoint

func (p vertexPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p vertexPoints) Len() int                      { return len(p) }
func (p vertexPoints) Pivot(d kdtree.Dim) int        { return plane{points: p, dim: d}.Pivot() }
func (p vertexPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

type plane struct {
	points vertexPoints
	dim    kdtree.Dim
}

func (p plane) Len() int { return len(p.points) }
func (p plane) Less(i, j int) bool {
	return p.points[i].Compare(p.points[j], p.dim) < 0
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

// Neighbor is one k-nearest-neighbor query result.
type Neighbor struct {
	Index    int
	Distance float64
}

// VertexTree is an immutable kd-tree over a vertex position list.
type VertexTree struct {
	tree *kdtree.Tree
	n    int
}

// NewVertexTree builds the index. The position slice is copied into tree
// nodes; later mutation of the input does not affect queries.
func NewVertexTree(positions []r3.Vec) *VertexTree {
	pts := make(vertexPoints, len(positions))
	for i, p := range positions {
		pts[i] = vertexPoint{pos: p, index: i}
	}
	return &VertexTree{tree: kdtree.New(pts, false), n: len(positions)}
}

// Len returns the number of indexed vertices.
func (t *VertexTree) Len() int { return t.n }

// Nearest returns the index of and distance to the vertex closest to p.
// Returns index -1 on an empty tree.
func (t *VertexTree) Nearest(p r3.Vec) (index int, distance float64) {
	if t.n == 0 {
		return -1, math.Inf(1)
	}
	c, distSq := t.tree.Nearest(vertexPoint{pos: p, index: -1})
	return c.(vertexPoint).index, math.Sqrt(distSq)
}

// KNearest returns up to k nearest vertices to p, ordered by ascending
// distance.
func (t *VertexTree) KNearest(p r3.Vec, k int) []Neighbor {
	if t.n == 0 || k <= 0 {
		return nil
	}
	if k > t.n {
		k = t.n
	}
	keeper := kdtree.NewNKeeper(k)
	t.tree.NearestSet(keeper, vertexPoint{pos: p, index: -1})

	out := make([]Neighbor, 0, k)
	for _, cd := range keeper.Heap {
		vp, ok := cd.Comparable.(vertexPoint)
		if !ok {
			continue
		}
		out = append(out, Neighbor{Index: vp.index, Distance: math.Sqrt(cd.Dist)})
	}
	// The keeper is a max-heap, not sorted; order by distance for callers.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Distance < out[j-1].Distance; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
