package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestVertexTreeNearest(t *testing.T) {
	positions := []r3.Vec{
		{X: 0}, {X: 1}, {X: 2}, {X: 10},
	}
	tree := NewVertexTree(positions)
	require.Equal(t, 4, tree.Len())

	idx, dist := tree.Nearest(r3.Vec{X: 1.9})
	assert.Equal(t, 2, idx)
	assert.InDelta(t, 0.1, dist, 1e-12)

	idx, dist = tree.Nearest(r3.Vec{X: 10})
	assert.Equal(t, 3, idx)
	assert.InDelta(t, 0, dist, 1e-12)
}

func TestVertexTreeNearestEmpty(t *testing.T) {
	tree := NewVertexTree(nil)
	idx, dist := tree.Nearest(r3.Vec{})
	assert.Equal(t, -1, idx)
	assert.True(t, math.IsInf(dist, 1))
}

func TestVertexTreeNearestLargeGrid(t *testing.T) {
	// Enough points that construction goes through median partitioning on
	// every axis, with the brute-force answer as the oracle.
	var positions []r3.Vec
	for x := 0; x < 7; x++ {
		for y := 0; y < 7; y++ {
			for z := 0; z < 7; z++ {
				positions = append(positions, r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)})
			}
		}
	}
	tree := NewVertexTree(positions)
	require.Equal(t, len(positions), tree.Len())

	queries := []r3.Vec{
		{X: 3.2, Y: 3.9, Z: 0.1},
		{X: -1, Y: -1, Z: -1},
		{X: 6.4, Y: 2.4, Z: 5.8},
	}
	for _, q := range queries {
		best, bestDist := -1, math.Inf(1)
		for i, p := range positions {
			if d := r3.Norm(r3.Sub(p, q)); d < bestDist {
				best, bestDist = i, d
			}
		}
		idx, dist := tree.Nearest(q)
		assert.Equal(t, best, idx)
		assert.InDelta(t, bestDist, dist, 1e-12)
	}
}

func TestVertexTreeKNearest(t *testing.T) {
	positions := []r3.Vec{
		{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4},
	}
	tree := NewVertexTree(positions)

	nbs := tree.KNearest(r3.Vec{X: 0.1}, 3)
	require.Len(t, nbs, 3)
	assert.Equal(t, 0, nbs[0].Index)
	assert.Equal(t, 1, nbs[1].Index)
	assert.Equal(t, 2, nbs[2].Index)

	// Sorted ascending by distance
	for i := 1; i < len(nbs); i++ {
		assert.LessOrEqual(t, nbs[i-1].Distance, nbs[i].Distance)
	}

	// k larger than the point count returns everything
	nbs = tree.KNearest(r3.Vec{}, 10)
	assert.Len(t, nbs, 5)
}
