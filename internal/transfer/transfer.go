package transfer

import (
	"context"
	"fmt"

	"robust-weight-transfer/internal/scene"
)

// TransferResult summarizes a completed weight transfer.
type TransferResult struct {
	MatchedCount   int
	UnmatchedCount int
	TotalVertices  int
}

// TransferWeights runs the full pipeline: stage-1 matching, stage-2
// inpainting, optional smoothing, then a single write-back through the
// scene's weight provider. Nothing is written until the whole matrix is
// finalized, so cancellation or failure leaves the target's prior weights
// untouched.
func (p *Pipeline) TransferWeights(ctx context.Context, sourceMesh, targetMesh string) (*TransferResult, error) {
	if err := p.PrepareBinding(sourceMesh, targetMesh); err != nil {
		return nil, err
	}

	weights, result, err := p.ComputeWeights(ctx, sourceMesh, targetMesh)
	if err != nil {
		return nil, err
	}

	p.progress("Applying weights...", 90)
	if err := p.ApplyWeights(targetMesh, weights); err != nil {
		return nil, err
	}

	p.progress("Complete", 100)
	Logger().Debug("transfer complete",
		"source", sourceMesh, "target", targetMesh,
		"matched", result.MatchedCount, "inpainted", result.UnmatchedCount)
	return result, nil
}

// PrepareBinding ensures the target mesh has a binding covering the source's
// influence set. Batch runs call this for every target up front so the
// compute stage never mutates the scene.
func (p *Pipeline) PrepareBinding(sourceMesh, targetMesh string) error {
	srcBinding, err := p.scene.Binding(sourceMesh)
	if err != nil {
		return err
	}
	_, err = p.scene.GetOrCreateBinding(targetMesh, srcBinding.Influences)
	return err
}

// ComputeWeights runs matching, inpainting and smoothing without touching
// the scene. The target binding must already exist. Concurrent calls for
// different targets are safe as long as no write-back runs in parallel.
func (p *Pipeline) ComputeWeights(ctx context.Context, sourceMesh, targetMesh string) (*scene.WeightMatrix, *TransferResult, error) {
	p.progress("Stage 1: finding matches...", 0)

	res, err := p.FindMatches(ctx, sourceMesh, targetMesh)
	if err != nil {
		return nil, nil, err
	}

	// The Laplacian system is constrained by every matched vertex on the
	// mesh, so only a globally empty match is fatal. A vertex subset made
	// of unmatched vertices still gets inpainted.
	if len(res.Matched) == 0 {
		return nil, nil, fmt.Errorf("%w (target %s)", ErrEmptyMatch, targetMesh)
	}
	result := countMatches(res, p.opts.VertexIndices)

	p.progress(fmt.Sprintf("Stage 1 complete: %d/%d matched", result.MatchedCount, result.TotalVertices), 33)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	p.progress("Stage 2: inpainting weights...", 33)
	weights, err := p.inpaintWeights(ctx, targetMesh, res)
	if err != nil {
		return nil, nil, err
	}
	p.progress("Stage 2 complete", 66)

	if p.opts.Smooth {
		p.progress("Smoothing weights...", 66)
		weights, err = p.SmoothWeights(targetMesh, weights, res, p.opts.SmoothIterations, p.opts.SmoothAlpha)
		if err != nil {
			return nil, nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	return weights, result, nil
}

// ApplyWeights writes a finalized matrix back to the target binding,
// restricted to the configured vertex subset when one is set.
func (p *Pipeline) ApplyWeights(targetMesh string, weights *scene.WeightMatrix) error {
	if p.opts.VertexIndices != nil {
		subset := scene.NewWeightMatrix(len(p.opts.VertexIndices), weights.InfluenceCount())
		for row, vi := range p.opts.VertexIndices {
			if vi < 0 || vi >= weights.VertexCount() {
				return fmt.Errorf("transfer: vertex index %d out of range for %s", vi, targetMesh)
			}
			subset.SetRow(row, weights.Row(vi))
		}
		return p.scene.SetWeightsForVertices(targetMesh, p.opts.VertexIndices, subset, true)
	}
	return p.scene.SetAllWeights(targetMesh, weights, true)
}

// PruneSmallWeights zeroes per-vertex weights below threshold on the mesh's
// binding and renormalizes the rows, then writes the result back. Useful after
// a transfer to cut the influence count game engines have to skin with.
func (p *Pipeline) PruneSmallWeights(meshName string, threshold float64) error {
	if threshold < 0 {
		return fmt.Errorf("transfer: prune threshold must be non-negative, got %g", threshold)
	}
	weights, _, err := p.scene.AllWeights(meshName)
	if err != nil {
		return err
	}
	weights.Prune(threshold)
	return p.scene.SetAllWeights(meshName, weights, false)
}

// countMatches tallies matched/unmatched vertices, restricted to a subset
// when one was configured.
func countMatches(res *MatchResult, subset []int) *TransferResult {
	if subset == nil {
		return &TransferResult{
			MatchedCount:   len(res.Matched),
			UnmatchedCount: len(res.Unmatched),
			TotalVertices:  len(res.Matches),
		}
	}
	matched := 0
	for _, vi := range subset {
		if vi >= 0 && vi < len(res.matched) && res.matched[vi] {
			matched++
		}
	}
	return &TransferResult{
		MatchedCount:   matched,
		UnmatchedCount: len(subset) - matched,
		TotalVertices:  len(subset),
	}
}
