package transfer

import (
	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/scene"
)

// SmoothWeights runs iterative Laplacian smoothing over the transferred
// weights. Each iteration blends a vertex's row with the uniform average of
// its neighbors' rows: new = (1-alpha)·old + alpha·avg, then renormalizes.
// Only the smoothing region is touched: unmatched vertices plus, unless
// excludeMatched is set, matched vertices within the distance threshold of
// an unmatched one (grown by BFS over the adjacency graph). Row sums stay 1
// after every iteration and the influence set is never changed.
func (p *Pipeline) SmoothWeights(targetMesh string, weights *scene.WeightMatrix, res *MatchResult, iterations int, alpha float64) (*scene.WeightMatrix, error) {
	if iterations <= 0 || alpha == 0 {
		return weights.Clone(), nil
	}

	positions, _, err := p.scene.MeshData(targetMesh)
	if err != nil {
		return nil, err
	}
	adjacency, err := p.scene.Adjacency(targetMesh)
	if err != nil {
		return nil, err
	}
	bboxDiag, err := p.scene.BoundingBoxDiagonal(targetMesh)
	if err != nil {
		return nil, err
	}
	threshold := p.opts.DistanceRatio * bboxDiag

	n := weights.VertexCount()
	mask := make([]bool, n)
	for _, ui := range res.Unmatched {
		mask[ui] = true
	}
	if !p.opts.SmoothExcludeMatched {
		growSmoothRegion(mask, res.Unmatched, positions, adjacency, threshold)
	}

	cur := weights.Clone()
	next := weights.Clone()
	numInf := cur.InfluenceCount()
	avg := make([]float64, numInf)

	for it := 0; it < iterations; it++ {
		for vi := 0; vi < n; vi++ {
			if !mask[vi] {
				continue
			}
			nbs := adjacency[vi]
			if len(nbs) == 0 {
				continue
			}
			for k := range avg {
				avg[k] = 0
			}
			for _, nb := range nbs {
				row := cur.Row(nb)
				for k := range avg {
					avg[k] += row[k]
				}
			}
			invDeg := 1 / float64(len(nbs))
			src := cur.Row(vi)
			dst := next.Row(vi)
			var sum float64
			for k := range dst {
				dst[k] = (1-alpha)*src[k] + alpha*avg[k]*invDeg
				sum += dst[k]
			}
			if sum > 0 {
				inv := 1 / sum
				for k := range dst {
					dst[k] *= inv
				}
			}
		}
		// Copy smoothed rows back; untouched rows are already equal.
		for vi := 0; vi < n; vi++ {
			if mask[vi] {
				cur.SetRow(vi, next.Row(vi))
			}
		}
	}

	return cur, nil
}

// growSmoothRegion extends the mask from each unmatched vertex over adjacent
// vertices closer than threshold, breadth-first.
func growSmoothRegion(mask []bool, unmatched []int, positions []r3.Vec, adjacency [][]int, threshold float64) {
	for _, start := range unmatched {
		visited := map[int]struct{}{start: {}}
		queue := []int{start}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, nb := range adjacency[current] {
				if _, ok := visited[nb]; ok {
					continue
				}
				if r3.Norm(r3.Sub(positions[start], positions[nb])) < threshold {
					visited[nb] = struct{}{}
					mask[nb] = true
					queue = append(queue, nb)
				}
			}
		}
	}
}
