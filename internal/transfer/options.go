package transfer

import (
	"fmt"

	"robust-weight-transfer/internal/laplacian"
)

// SearchStrategy selects how target vertices are matched to the source mesh.
type SearchStrategy int

const (
	// SearchSurface projects each target vertex onto the closest point of
	// the source surface and interpolates weights barycentrically. Accurate;
	// the default.
	SearchSurface SearchStrategy = iota
	// SearchNearestVertex snaps to the nearest source vertex via a kd-tree.
	// Faster, lower fidelity.
	SearchNearestVertex
)

func (s SearchStrategy) String() string {
	switch s {
	case SearchSurface:
		return "surface"
	case SearchNearestVertex:
		return "nearest-vertex"
	}
	return fmt.Sprintf("SearchStrategy(%d)", int(s))
}

// Progress receives status updates from long-running operations. Percent is
// 0–100. Abort is requested by cancelling the context passed to the
// operation, checked between progress invocations.
type Progress func(message string, percent int)

// Options configures a Pipeline. Strategy choices are resolved once at
// pipeline construction.
type Options struct {
	// Matching thresholds.
	DistanceRatio float64 // fraction of the source bbox diagonal; default 0.05
	AngleDegrees  float64 // max normal deviation; default 30
	FlipNormals   bool    // also accept matches against negated source normals
	Search        SearchStrategy

	// Laplacian construction.
	Backend             laplacian.Backend
	PointCloudNeighbors int // k for BackendPointCloud; 0 = default

	// Post-transfer smoothing.
	Smooth               bool
	SmoothIterations     int
	SmoothAlpha          float64
	SmoothExcludeMatched bool // keep matched vertices pinned during smoothing

	// Geometry state selection.
	UseDeformedSource bool
	UseDeformedTarget bool

	// VertexIndices restricts write-back to a target vertex subset.
	// nil writes all vertices.
	VertexIndices []int

	Progress Progress
}

// DefaultOptions mirrors the thresholds from the weight-inpainting paper.
func DefaultOptions() Options {
	return Options{
		DistanceRatio:    0.05,
		AngleDegrees:     30,
		Search:           SearchSurface,
		Backend:          laplacian.BackendCotangent,
		Smooth:           true,
		SmoothIterations: 10,
		SmoothAlpha:      0.2,
	}
}

func (o *Options) validate() error {
	if o.DistanceRatio < 0 {
		return fmt.Errorf("transfer: distance ratio must be >= 0, got %g", o.DistanceRatio)
	}
	if o.AngleDegrees < 0 || o.AngleDegrees > 180 {
		return fmt.Errorf("transfer: angle threshold must be in [0, 180], got %g", o.AngleDegrees)
	}
	if o.SmoothAlpha < 0 || o.SmoothAlpha > 1 {
		return fmt.Errorf("transfer: smooth alpha must be in [0, 1], got %g", o.SmoothAlpha)
	}
	if o.SmoothIterations < 0 {
		return fmt.Errorf("transfer: smooth iterations must be >= 0, got %d", o.SmoothIterations)
	}
	return nil
}
