package transfer

import (
	"context"
	"fmt"

	"robust-weight-transfer/internal/scene"
	"robust-weight-transfer/internal/sparsela"
	"robust-weight-transfer/internal/spatial"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	cgTolerance = 1e-10
	cgMinIter   = 200
)

// inpaintWeights fills in weight rows for unmatched vertices (stage 2) by
// solving Q_uu·x_u = -Q_uk·x_k per influence, with Q = -L + L·M⁻¹·L built
// from the target mesh. A failed influence solve is recovered by copying the
// nearest matched vertex's weight, so the result never has an unweighted
// row; the error is only returned when every influence fails.
func (p *Pipeline) inpaintWeights(ctx context.Context, targetMesh string, res *MatchResult) (*scene.WeightMatrix, error) {
	numInfluences := res.Weights.InfluenceCount()

	if len(res.Matched) == 0 {
		return nil, ErrEmptyMatch
	}
	out := res.Weights.Clone()
	if len(res.Unmatched) == 0 {
		return out, nil
	}

	// The Laplacian is built from the rest-pose geometry; the deformed state
	// only drives matching.
	positions, _, err := p.scene.MeshData(targetMesh)
	if err != nil {
		return nil, err
	}
	triangles, err := p.scene.Triangles(targetMesh)
	if err != nil {
		return nil, err
	}

	sys, err := p.builder.Build(positions, triangles)
	if err != nil {
		return nil, fmt.Errorf("transfer: build laplacian for %s: %w", targetMesh, err)
	}
	q := sys.SystemMatrix()

	quu := sparsela.FromCSR(sparsela.Submatrix(q, res.Unmatched, res.Unmatched))
	quk := sparsela.FromCSR(sparsela.Submatrix(q, res.Unmatched, res.Matched))

	nu := len(res.Unmatched)
	maxIter := 10 * nu
	if maxIter < cgMinIter {
		maxIter = cgMinIter
	}

	// Known boundary values per influence, gathered once.
	xk := make([]float64, len(res.Matched))
	rhs := make([]float64, nu)
	solved := make([][]float64, numInfluences)

	var failed []*SingularSystemError
	for inf := 0; inf < numInfluences; inf++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, mi := range res.Matched {
			xk[i] = res.Weights.At(mi, inf)
		}
		quk.MulVec(xk, rhs)
		for i := range rhs {
			rhs[i] = -rhs[i]
		}

		x, err := quu.SolveCG(rhs, cgTolerance, maxIter)
		if err != nil {
			solveErr := &SingularSystemError{Influence: res.Influences[inf], Err: err}
			failed = append(failed, solveErr)
			Logger().Warn("influence solve failed, falling back to nearest match",
				"target", targetMesh, "influence", res.Influences[inf], "err", err)
			continue
		}
		solved[inf] = x
	}

	if len(failed) == numInfluences {
		return nil, fmt.Errorf("transfer: all %d influence solves failed on %s: %w",
			numInfluences, targetMesh, failed[0])
	}

	// Nearest matched vertex per unmatched vertex, for failed columns and
	// zero-sum repair.
	var nearestMatched []int
	needNearest := len(failed) > 0
	lookupNearest := func() []int {
		if nearestMatched != nil {
			return nearestMatched
		}
		matchedPos := make([]r3.Vec, len(res.Matched))
		for i, mi := range res.Matched {
			matchedPos[i] = positions[mi]
		}
		tree := spatial.NewVertexTree(matchedPos)
		nearestMatched = make([]int, nu)
		for i, ui := range res.Unmatched {
			idx, _ := tree.Nearest(positions[ui])
			nearestMatched[i] = res.Matched[idx]
		}
		return nearestMatched
	}
	if needNearest {
		lookupNearest()
	}

	for i, ui := range res.Unmatched {
		row := out.Row(ui)
		for inf := 0; inf < numInfluences; inf++ {
			if solved[inf] != nil {
				row[inf] = clamp01(solved[inf][i])
			} else {
				row[inf] = res.Weights.At(lookupNearest()[i], inf)
			}
		}
		var sum float64
		for _, w := range row {
			sum += w
		}
		if sum <= 0 {
			// Never leave a vertex unweighted.
			copy(row, res.Weights.Row(lookupNearest()[i]))
			continue
		}
		inv := 1 / sum
		for k := range row {
			row[k] *= inv
		}
	}

	Logger().Debug("stage 2 inpainting complete",
		"target", targetMesh,
		"inpainted", nu, "influences", numInfluences,
		"recovered_influences", len(failed))
	return out, nil
}
