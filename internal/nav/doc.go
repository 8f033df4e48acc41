// Package nav provides the shared primitives of the path-following core.
//
// The package defines the value types that flow through one control cycle:
//
//   - [Pose]: planar position and heading in the shared world frame
//   - [Path]: ordered waypoints, traversal order = slice order
//   - [ErrorState]: tracking error expressed in the agent frame
//   - [ControlVector]: linear and angular rate command
//
// # Angles
//
// Headings are radians. Differences are always reduced with [WrapAngle]
// into (-π, π] before they are compared against tolerances.
//
// # Errors
//
// The sentinel errors [ErrNoPath], [ErrEmptyPath] and [ErrSingularGain]
// are shared by every package of the core so callers can match them with
// errors.Is regardless of which layer produced them.
package nav
