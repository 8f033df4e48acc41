package nav

import "math"

// WrapAngle reduces a to the interval (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// AngleDiff is the shortest signed rotation from b to a.
func AngleDiff(a, b float64) float64 {
	return WrapAngle(a - b)
}

// Bearing is the heading of the segment from p to q.
func Bearing(p, q Pose) float64 {
	return math.Atan2(q.Y-p.Y, q.X-p.X)
}
