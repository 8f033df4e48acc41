// Package physics provides the plant models driven by the simulator.
//
// Each model implements the [sim.Dynamics] interface:
//
//   - [Unicycle]: planar kinematic agent commanded by forward speed and
//     turn rate
//
// # Units
//
// Positions are metres, headings radians in the global frame, and
// commands are m/s and rad/s.
package physics
