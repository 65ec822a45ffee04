package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrMeshNotFound is returned when a named mesh does not exist in the scene.
	ErrMeshNotFound = errors.New("scene: mesh not found")

	// ErrNoBinding is returned when a mesh has no skin binding and creation
	// was not requested.
	ErrNoBinding = errors.New("scene: mesh has no skin binding")

	// ErrJointNotFound is returned when a binding references a joint that is
	// not present in the scene.
	ErrJointNotFound = errors.New("scene: joint not found")
)

// TopologyError reports a degenerate or inconsistent mesh. Vertex and Triangle
// carry the offending indices when known (-1 otherwise).
type TopologyError struct {
	Mesh     string
	Vertex   int
	Triangle int
	Detail   string
}

func (e *TopologyError) Error() string {
	switch {
	case e.Triangle >= 0:
		return fmt.Sprintf("scene: invalid topology in %s: triangle %d: %s", e.Mesh, e.Triangle, e.Detail)
	case e.Vertex >= 0:
		return fmt.Sprintf("scene: invalid topology in %s: vertex %d: %s", e.Mesh, e.Vertex, e.Detail)
	default:
		return fmt.Sprintf("scene: invalid topology in %s: %s", e.Mesh, e.Detail)
	}
}
