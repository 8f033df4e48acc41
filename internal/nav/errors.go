package nav

import (
	"errors"
	"fmt"
)

// Domain errors for the control cycle.
var (
	// ErrNoPath indicates a command was requested before any path was set.
	ErrNoPath = errors.New("nav: no path set")

	// ErrEmptyPath indicates a path with zero waypoints, or a pruned path
	// that ended up empty.
	ErrEmptyPath = errors.New("nav: path has no waypoints")

	// ErrSingularGain indicates R + BᵀPB could not be inverted reliably.
	ErrSingularGain = errors.New("nav: riccati gain matrix is singular or ill-conditioned")

	// ErrInvalidInput indicates a non-finite pose or speed from the host.
	ErrInvalidInput = errors.New("nav: pose or speed is not finite")
)

// CycleError wraps an error with control-cycle context.
type CycleError struct {
	Cycle   int
	Pose    Pose
	Wrapped error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %d at %s: %v", e.Cycle, e.Pose, e.Wrapped)
}

func (e *CycleError) Unwrap() error {
	return e.Wrapped
}
