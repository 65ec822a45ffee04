package laplacian

import (
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/spatial"
)

// DefaultPointCloudNeighbors is the k used when PointCloudBuilder.K is zero.
const DefaultPointCloudNeighbors = 8

// PointCloudBuilder assembles a graph Laplacian from positions alone: each
// vertex is connected to its k nearest neighbors with Gaussian weights
// scaled by the local neighborhood radius. Triangles are ignored, which
// makes this backend usable on soup or non-manifold input where cotangent
// weights blow up.
type PointCloudBuilder struct {
	K int
}

// Build assembles (L, M). The mass entry per vertex is the squared mean
// neighbor distance, a surrogate for local surface area.
func (b *PointCloudBuilder) Build(positions []r3.Vec, _ [][3]int) (*System, error) {
	n := len(positions)
	k := b.K
	if k <= 0 {
		k = DefaultPointCloudNeighbors
	}

	tree := spatial.NewVertexTree(positions)
	dok := sparse.NewDOK(n, n)
	mass := make([]float64, n)

	for i, p := range positions {
		neighbors := tree.KNearest(p, k+1) // includes the query vertex itself
		var meanDist float64
		count := 0
		for _, nb := range neighbors {
			if nb.Index == i {
				continue
			}
			meanDist += nb.Distance
			count++
		}
		if count == 0 {
			mass[i] = 1
			continue
		}
		meanDist /= float64(count)
		if meanDist < 1e-12 {
			meanDist = 1e-12
		}
		sigma2 := 2 * meanDist * meanDist

		for _, nb := range neighbors {
			if nb.Index == i {
				continue
			}
			w := math.Exp(-nb.Distance * nb.Distance / sigma2)
			// Symmetrize: keep the larger weight when both directions set
			// the same edge.
			if w > dok.At(i, nb.Index) {
				dok.Set(i, nb.Index, w)
				dok.Set(nb.Index, i, w)
			}
		}
		mass[i] = meanDist * meanDist
	}

	// Diagonal: negated row sums of the off-diagonal weights.
	rowSums := make([]float64, n)
	dok.DoNonZero(func(i, j int, v float64) {
		if i != j {
			rowSums[i] += v
		}
	})
	for i := 0; i < n; i++ {
		if rowSums[i] != 0 {
			dok.Set(i, i, -rowSums[i])
		}
	}

	sys := &System{L: dok.ToCSR(), Mass: mass}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return sys, nil
}
