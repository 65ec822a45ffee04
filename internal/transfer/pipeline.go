// Package transfer implements the two-stage robust skin-weight transfer:
// high-confidence correspondence matching followed by Laplacian weight
// inpainting for the remaining vertices, with optional smoothing and
// multi-mesh seam averaging.
package transfer

import (
	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/laplacian"
	"robust-weight-transfer/internal/scene"
	"robust-weight-transfer/internal/skeleton"
)

// Pipeline runs weight-transfer operations against one scene. The search
// strategy and Laplacian backend are resolved once here. Read-only
// operations (matching, weight computation) may run concurrently; anything
// that writes bindings must not overlap with them.
type Pipeline struct {
	scene   *scene.Scene
	opts    Options
	builder laplacian.Builder
}

// NewPipeline validates the options and resolves strategy choices.
func NewPipeline(s *scene.Scene, opts Options) (*Pipeline, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	var builder laplacian.Builder
	var err error
	if opts.Backend == laplacian.BackendPointCloud && opts.PointCloudNeighbors > 0 {
		builder = &laplacian.PointCloudBuilder{K: opts.PointCloudNeighbors}
	} else {
		builder, err = laplacian.NewBuilder(opts.Backend)
		if err != nil {
			return nil, err
		}
	}
	return &Pipeline{scene: s, opts: opts, builder: builder}, nil
}

// Scene returns the pipeline's scene.
func (p *Pipeline) Scene() *scene.Scene { return p.scene }

// Options returns the resolved pipeline options.
func (p *Pipeline) Options() Options { return p.opts }

// meshSnapshot returns positions and normals either at rest or deformed by
// the current joint pose.
func (p *Pipeline) meshSnapshot(name string, deformed bool) ([]r3.Vec, []r3.Vec, error) {
	if deformed {
		return skeleton.DeformedMeshData(p.scene, name)
	}
	return p.scene.MeshData(name)
}

func (p *Pipeline) progress(message string, percent int) {
	if p.opts.Progress != nil {
		p.opts.Progress(message, percent)
	}
}
