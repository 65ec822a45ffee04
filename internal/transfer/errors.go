package transfer

import (
	"errors"
	"fmt"
)

// ErrEmptyMatch is returned when no target vertex satisfied the matching
// thresholds; the Laplacian system would be unconstrained. The caller should
// relax the distance ratio or angle threshold.
var ErrEmptyMatch = errors.New("transfer: no vertices matched; relax distance or angle thresholds")

// SingularSystemError reports a failed per-influence solve. The engine
// recovers by copying weights from the nearest matched vertex, so this is
// only surfaced when every influence column fails.
type SingularSystemError struct {
	Influence string
	Err       error
}

func (e *SingularSystemError) Error() string {
	return fmt.Sprintf("transfer: singular system for influence %s: %v", e.Influence, e.Err)
}

func (e *SingularSystemError) Unwrap() error { return e.Err }
