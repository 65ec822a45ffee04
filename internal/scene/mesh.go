package scene

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/mathutil"
)

// Mesh is a read-only triangle mesh snapshot: positions, per-vertex normals
// and triangle indices. Adjacency is derived on first use and cached.
type Mesh struct {
	Name      string
	Positions []r3.Vec
	Normals   []r3.Vec
	Triangles [][3]int

	adjacency [][]int
}

// Validate checks the mesh invariants: at least one vertex, every triangle
// index in range, no triangle with repeated indices.
func (m *Mesh) Validate() error {
	if len(m.Positions) == 0 {
		return &TopologyError{Mesh: m.Name, Vertex: -1, Triangle: -1, Detail: "mesh has no vertices"}
	}
	n := len(m.Positions)
	for ti, tri := range m.Triangles {
		for _, vi := range tri {
			if vi < 0 || vi >= n {
				return &TopologyError{Mesh: m.Name, Vertex: vi, Triangle: ti, Detail: "vertex index out of range"}
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return &TopologyError{Mesh: m.Name, Vertex: -1, Triangle: ti, Detail: "repeated vertex index"}
		}
	}
	if len(m.Normals) != 0 && len(m.Normals) != n {
		return &TopologyError{Mesh: m.Name, Vertex: -1, Triangle: -1, Detail: "normal count does not match vertex count"}
	}
	return nil
}

// Adjacency returns the neighbor index list per vertex, sorted ascending.
// Symmetric by construction: j appears in Adjacency()[i] iff i appears in
// Adjacency()[j].
func (m *Mesh) Adjacency() [][]int {
	if m.adjacency != nil {
		return m.adjacency
	}

	seen := make(map[[2]int]struct{}, len(m.Triangles)*3)
	adj := make([][]int, len(m.Positions))
	addEdge := func(a, b int) {
		if a > b {
			a, b = b, a
		}
		key := [2]int{a, b}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}

	for _, tri := range m.Triangles {
		addEdge(tri[0], tri[1])
		addEdge(tri[1], tri[2])
		addEdge(tri[2], tri[0])
	}
	for i := range adj {
		sort.Ints(adj[i])
	}

	m.adjacency = adj
	return adj
}

// BoundingBoxDiagonal returns the length of the axis-aligned bounding box
// diagonal, 0 for an empty mesh.
func (m *Mesh) BoundingBoxDiagonal() float64 {
	if len(m.Positions) == 0 {
		return 0
	}
	min := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range m.Positions {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return r3.Norm(r3.Sub(max, min))
}

// VertexNormals returns the per-vertex normals, computing them from triangle
// geometry when the scene file carried none. Area-weighted face-normal
// accumulation; vertices whose incident triangles are all degenerate fall
// back to a PCA estimate over their one-ring neighborhood.
func (m *Mesh) VertexNormals() []r3.Vec {
	if len(m.Normals) == len(m.Positions) {
		return m.Normals
	}

	normals := make([]r3.Vec, len(m.Positions))
	for _, tri := range m.Triangles {
		a, b, c := m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]]
		// Cross product magnitude is twice the area, so accumulating the raw
		// cross product gives area weighting for free.
		fn := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for _, vi := range tri {
			normals[vi] = r3.Add(normals[vi], fn)
		}
	}

	adj := m.Adjacency()
	for i := range normals {
		l := r3.Norm(normals[i])
		if l > 1e-12 {
			normals[i] = r3.Scale(1/l, normals[i])
			continue
		}
		pts := make([]r3.Vec, 0, len(adj[i])+1)
		pts = append(pts, m.Positions[i])
		for _, j := range adj[i] {
			pts = append(pts, m.Positions[j])
		}
		if n, ok := mathutil.PCANormal(pts); ok {
			normals[i] = n
		} else {
			normals[i] = r3.Vec{Y: 1}
		}
	}

	m.Normals = normals
	return normals
}
