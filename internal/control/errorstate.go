package control

import (
	"math"

	"github.com/san-kum/pathtrack/internal/nav"
)

// ComputeError returns reference − pose rotated by −pose.Heading, with the
// heading error wrapped to (-π, π].
func ComputeError(pose, reference nav.Pose) nav.ErrorState {
	dx := reference.X - pose.X
	dy := reference.Y - pose.Y
	s, c := math.Sincos(pose.Heading)
	return nav.ErrorState{
		c*dx + s*dy,
		-s*dx + c*dy,
		nav.AngleDiff(reference.Heading, pose.Heading),
	}
}
