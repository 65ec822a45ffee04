package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/scene"
)

// twoQuadScene builds two quads sharing the edge x=1 as separate meshes,
// with disagreeing weights on the shared vertices.
func twoQuadScene(t *testing.T) *scene.Scene {
	t.Helper()
	s := scene.New()
	s.Joints = []scene.Joint{
		{Name: "left", Parent: -1},
		{Name: "right", Parent: -1, BindPosition: r3.Vec{X: 2}},
	}

	addMesh(t, s, "a", []r3.Vec{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	}, [][3]int{{0, 1, 2}, {0, 2, 3}})
	bindMesh(t, s, "a", []string{"left", "right"}, []float64{
		1, 0,
		1, 0, // seam vertex, disagrees with mesh b
		1, 0, // seam vertex
		1, 0,
	})

	addMesh(t, s, "b", []r3.Vec{
		{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1},
	}, [][3]int{{0, 1, 2}, {0, 2, 3}})
	bindMesh(t, s, "b", []string{"left", "right"}, []float64{
		0, 1, // seam vertex
		0, 1,
		0, 1,
		0, 1, // seam vertex
	})

	return s
}

func TestAverageSeamWeights(t *testing.T) {
	s := twoQuadScene(t)
	pipe, err := NewPipeline(s, DefaultOptions())
	require.NoError(t, err)

	res, err := pipe.AverageSeamWeights([]string{"a", "b"}, 1e-5, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SeamGroups)
	assert.Equal(t, 4, res.VerticesAveraged)

	aB, _ := s.Binding("a")
	bB, _ := s.Binding("b")

	// Shared vertices agree on the (0.5, 0.5) mean
	for _, v := range []int{1, 2} {
		assert.InDelta(t, 0.5, aB.Weights.At(v, 0), 1e-12)
		assert.InDelta(t, 0.5, aB.Weights.At(v, 1), 1e-12)
	}
	for _, v := range []int{0, 3} {
		assert.InDelta(t, 0.5, bB.Weights.At(v, 0), 1e-12)
		assert.InDelta(t, 0.5, bB.Weights.At(v, 1), 1e-12)
	}

	// Interior vertices are untouched
	assert.InDelta(t, 1, aB.Weights.At(0, 0), 1e-12)
	assert.InDelta(t, 1, bB.Weights.At(1, 1), 1e-12)
}

func TestAverageSeamWeightsNoCoincidence(t *testing.T) {
	s := twoQuadScene(t)
	// Move mesh b far away so no vertices coincide
	m, err := s.Mesh("b")
	require.NoError(t, err)
	for i := range m.Positions {
		m.Positions[i].Z += 50
	}

	pipe, err := NewPipeline(s, DefaultOptions())
	require.NoError(t, err)

	res, err := pipe.AverageSeamWeights([]string{"a", "b"}, 1e-5, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SeamGroups)
	assert.Equal(t, 0, res.VerticesAveraged)
}

func TestAverageSeamWeightsInternal(t *testing.T) {
	s := scene.New()
	s.Joints = []scene.Joint{
		{Name: "left", Parent: -1},
		{Name: "right", Parent: -1},
	}
	// One mesh with a UV-split style duplicate vertex: 2 and 3 coincide
	addMesh(t, s, "m", []r3.Vec{
		{X: 0}, {X: 1}, {X: 2}, {X: 2}, {X: 3, Y: 1},
	}, [][3]int{{0, 1, 2}, {3, 4, 1}})
	bindMesh(t, s, "m", []string{"left", "right"}, []float64{
		1, 0,
		1, 0,
		1, 0,
		0, 1,
		0, 1,
	})

	pipe, err := NewPipeline(s, DefaultOptions())
	require.NoError(t, err)

	// Without includeInternal a single mesh is rejected
	_, err = pipe.AverageSeamWeights([]string{"m"}, 1e-5, false)
	assert.Error(t, err)

	res, err := pipe.AverageSeamWeights([]string{"m"}, 1e-5, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SeamGroups)
	assert.Equal(t, 2, res.VerticesAveraged)

	b, _ := s.Binding("m")
	for _, v := range []int{2, 3} {
		assert.InDelta(t, 0.5, b.Weights.At(v, 0), 1e-12)
		assert.InDelta(t, 0.5, b.Weights.At(v, 1), 1e-12)
	}
}

func TestAverageSeamWeightsRequiresBindings(t *testing.T) {
	s := twoQuadScene(t)
	addMesh(t, s, "naked", []r3.Vec{{X: 9}, {X: 10}, {X: 9, Y: 1}}, [][3]int{{0, 1, 2}})

	pipe, err := NewPipeline(s, DefaultOptions())
	require.NoError(t, err)

	_, err = pipe.AverageSeamWeights([]string{"a", "naked"}, 1e-5, false)
	assert.ErrorIs(t, err, scene.ErrNoBinding)
}
