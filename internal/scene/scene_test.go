package scene

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func quadMesh(name string) *Mesh {
	return &Mesh{
		Name: name,
		Positions: []r3.Vec{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		},
		Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
}

func TestMeshValidate(t *testing.T) {
	require.NoError(t, quadMesh("quad").Validate())

	empty := &Mesh{Name: "empty"}
	var topo *TopologyError
	require.ErrorAs(t, empty.Validate(), &topo)

	oob := quadMesh("oob")
	oob.Triangles = append(oob.Triangles, [3]int{0, 1, 9})
	err := oob.Validate()
	require.ErrorAs(t, err, &topo)
	assert.Equal(t, 9, topo.Vertex)
	assert.Equal(t, 2, topo.Triangle)

	rep := quadMesh("rep")
	rep.Triangles[0] = [3]int{1, 1, 2}
	require.ErrorAs(t, rep.Validate(), &topo)
}

func TestMeshAdjacency(t *testing.T) {
	adj := quadMesh("quad").Adjacency()
	require.Len(t, adj, 4)
	assert.Equal(t, []int{1, 2, 3}, adj[0])
	assert.Equal(t, []int{0, 2}, adj[1])
	assert.Equal(t, []int{0, 1, 3}, adj[2])
	assert.Equal(t, []int{0, 2}, adj[3])

	// Symmetric by construction
	for i, nbs := range adj {
		for _, j := range nbs {
			assert.Contains(t, adj[j], i)
		}
	}
}

func TestMeshBoundingBoxDiagonal(t *testing.T) {
	m := quadMesh("quad")
	assert.InDelta(t, r3.Norm(r3.Vec{X: 1, Y: 1}), m.BoundingBoxDiagonal(), 1e-12)
	assert.Equal(t, 0.0, (&Mesh{}).BoundingBoxDiagonal())
}

func TestVertexNormals(t *testing.T) {
	m := quadMesh("quad")
	normals := m.VertexNormals()
	require.Len(t, normals, 4)
	for _, n := range normals {
		assert.InDelta(t, 0, n.X, 1e-12)
		assert.InDelta(t, 0, n.Y, 1e-12)
		assert.InDelta(t, 1, n.Z, 1e-12)
	}
}

func TestWeightMatrix(t *testing.T) {
	w := NewWeightMatrix(2, 3)
	w.SetRow(0, []float64{2, 1, 1})
	w.Set(1, 2, 5)

	assert.Equal(t, 2.0, w.At(0, 0))

	c := w.Clone()
	c.Set(0, 0, 99)
	assert.Equal(t, 2.0, w.At(0, 0))

	w.NormalizeRows()
	assert.InDelta(t, 0.5, w.At(0, 0), 1e-12)
	assert.InDelta(t, 1, w.At(1, 2), 1e-12)

	w.Set(0, 1, -0.5)
	w.ClampNonNegative()
	assert.Equal(t, 0.0, w.At(0, 1))
}

func TestWeightMatrixPrune(t *testing.T) {
	w := NewWeightMatrix(1, 3)
	w.SetRow(0, []float64{0.94, 0.05, 0.01})
	w.Prune(0.02)
	assert.Equal(t, 0.0, w.At(0, 2))
	sum := w.At(0, 0) + w.At(0, 1) + w.At(0, 2)
	assert.InDelta(t, 1, sum, 1e-12)
}

func TestSceneProviders(t *testing.T) {
	s := New()
	require.NoError(t, s.AddMesh(quadMesh("quad")))
	s.Joints = []Joint{
		{Name: "root", Parent: -1},
		{Name: "tip", Parent: 0, BindPosition: r3.Vec{X: 1}},
	}

	_, _, err := s.MeshData("missing")
	assert.ErrorIs(t, err, ErrMeshNotFound)

	_, err = s.Binding("quad")
	assert.ErrorIs(t, err, ErrNoBinding)

	_, err = s.GetOrCreateBinding("quad", []string{"root", "nope"})
	assert.ErrorIs(t, err, ErrJointNotFound)

	b, err := s.GetOrCreateBinding("quad", []string{"root", "tip"})
	require.NoError(t, err)
	assert.Equal(t, 4, b.Weights.VertexCount())
	assert.Equal(t, 2, b.Weights.InfluenceCount())

	// Second call returns the existing binding untouched
	b2, err := s.GetOrCreateBinding("quad", []string{"root"})
	require.NoError(t, err)
	assert.Same(t, b, b2)
}

func TestSetWeights(t *testing.T) {
	s := New()
	require.NoError(t, s.AddMesh(quadMesh("quad")))
	s.Joints = []Joint{{Name: "root", Parent: -1}}
	_, err := s.GetOrCreateBinding("quad", []string{"root"})
	require.NoError(t, err)

	w := NewWeightMatrix(4, 1)
	for v := 0; v < 4; v++ {
		w.Set(v, 0, 2)
	}
	require.NoError(t, s.SetAllWeights("quad", w, true))
	b, _ := s.Binding("quad")
	assert.InDelta(t, 1, b.Weights.At(0, 0), 1e-12)

	// Caller's matrix is copied, not aliased
	w.Set(0, 0, 123)
	assert.InDelta(t, 1, b.Weights.At(0, 0), 1e-12)

	// Shape mismatches are rejected
	assert.Error(t, s.SetAllWeights("quad", NewWeightMatrix(3, 1), false))
	assert.Error(t, s.SetAllWeights("quad", NewWeightMatrix(4, 2), false))

	// Subset write
	sub := NewWeightMatrixFrom(2, 1, []float64{0.5, 0.25})
	require.NoError(t, s.SetWeightsForVertices("quad", []int{1, 3}, sub, true))
	assert.InDelta(t, 1, b.Weights.At(1, 0), 1e-12)

	assert.Error(t, s.SetWeightsForVertices("quad", []int{99}, NewWeightMatrix(1, 1), false))
}

func TestSceneJSONRoundTrip(t *testing.T) {
	src := `{
		"meshes": [{
			"name": "quad",
			"vertices": [[0,0,0],[1,0,0],[1,1,0],[0,1,0]],
			"triangles": [[0,1,2],[0,2,3]]
		}],
		"joints": [
			{"name": "root", "parent": -1, "bind_position": [0,0,0], "bind_rotation": [0,0,0]},
			{"name": "tip", "parent": 0, "bind_position": [1,0,0], "bind_rotation": [0,0,0],
			 "pose_position": [1,1,0]}
		],
		"bindings": [{
			"mesh": "quad",
			"influences": ["root", "tip"],
			"weights": [1,0, 0.5,0.5, 0,1, 1,0]
		}]
	}`

	s, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, s.Joints, 2)
	require.NotNil(t, s.Joints[1].PosePosition)
	assert.Equal(t, r3.Vec{X: 1, Y: 1}, *s.Joints[1].PosePosition)

	b, err := s.Binding("quad")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, b.Weights.At(1, 0), 1e-12)

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))

	s2, err := Decode(&buf)
	require.NoError(t, err)
	b2, err := s2.Binding("quad")
	require.NoError(t, err)
	assert.Equal(t, b.Weights.Raw(), b2.Weights.Raw())
	assert.Equal(t, s.MeshNames(), s2.MeshNames())
}

func TestDecodeRejectsBadInput(t *testing.T) {
	// Joint parent must precede the joint
	_, err := Decode(strings.NewReader(`{"joints":[{"name":"a","parent":0}]}`))
	assert.Error(t, err)

	// Weight count must equal verts × influences
	_, err = Decode(strings.NewReader(`{
		"meshes": [{"name":"m","vertices":[[0,0,0],[1,0,0],[0,1,0]],"triangles":[[0,1,2]]}],
		"joints": [{"name":"root","parent":-1}],
		"bindings": [{"mesh":"m","influences":["root"],"weights":[1,0]}]
	}`))
	assert.Error(t, err)

	// Binding referencing an unknown mesh
	_, err = Decode(strings.NewReader(`{"bindings":[{"mesh":"ghost","influences":[],"weights":[]}]}`))
	assert.ErrorIs(t, err, ErrMeshNotFound)
}
