package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/scene"
)

func buildScene(t *testing.T, joints []scene.Joint, weights []float64) *scene.Scene {
	t.Helper()
	s := scene.New()
	s.Joints = joints

	m := &scene.Mesh{
		Name: "tri",
		Positions: []r3.Vec{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1},
		},
		Triangles: [][3]int{{0, 1, 2}},
	}
	require.NoError(t, s.AddMesh(m))

	infs := make([]string, len(joints))
	for i, j := range joints {
		infs[i] = j.Name
	}
	_, err := s.GetOrCreateBinding("tri", infs)
	require.NoError(t, err)
	w := scene.NewWeightMatrixFrom(3, len(infs), weights)
	require.NoError(t, s.SetAllWeights("tri", w, false))
	return s
}

func TestBuildWorldMatrices(t *testing.T) {
	joints := []scene.Joint{
		{Name: "root", Parent: -1, BindPosition: r3.Vec{X: 1}},
		{Name: "child", Parent: 0, BindPosition: r3.Vec{X: 2}},
	}
	worlds := BuildWorldMatrices(joints, false)
	require.Len(t, worlds, 2)

	// Child world position accumulates the parent translation
	p := worlds[1].MulPoint(r3.Vec{})
	assert.InDelta(t, 3, p.X, 1e-12)
}

func TestDeformedMeshDataIdentityPose(t *testing.T) {
	joints := []scene.Joint{{Name: "root", Parent: -1, BindPosition: r3.Vec{X: 5}}}
	s := buildScene(t, joints, []float64{1, 1, 1})

	pos, _, err := DeformedMeshData(s, "tri")
	require.NoError(t, err)

	rest, _, err := s.MeshData("tri")
	require.NoError(t, err)
	assert.Equal(t, rest, pos)
}

func TestDeformedMeshDataTranslation(t *testing.T) {
	pose := r3.Vec{X: 0, Y: 0, Z: 2}
	joints := []scene.Joint{{Name: "root", Parent: -1, PosePosition: &pose}}
	s := buildScene(t, joints, []float64{1, 1, 1})

	pos, nrm, err := DeformedMeshData(s, "tri")
	require.NoError(t, err)

	rest, restNrm, err := s.MeshData("tri")
	require.NoError(t, err)
	for i := range pos {
		assert.InDelta(t, rest[i].X, pos[i].X, 1e-12)
		assert.InDelta(t, rest[i].Y, pos[i].Y, 1e-12)
		assert.InDelta(t, rest[i].Z+2, pos[i].Z, 1e-12)
	}
	// Rigid translation leaves normals unchanged
	assert.Equal(t, restNrm, nrm)
}

func TestDeformedMeshDataZeroWeightRow(t *testing.T) {
	pose := r3.Vec{X: 10}
	joints := []scene.Joint{{Name: "root", Parent: -1, PosePosition: &pose}}
	s := buildScene(t, joints, []float64{1, 0, 1})

	pos, _, err := DeformedMeshData(s, "tri")
	require.NoError(t, err)

	rest, _, err := s.MeshData("tri")
	require.NoError(t, err)
	assert.InDelta(t, rest[0].X+10, pos[0].X, 1e-12)
	// Unweighted vertex stays at its rest position
	assert.Equal(t, rest[1], pos[1])
}
