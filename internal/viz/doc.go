// Package viz provides terminal rendering for tracking runs.
//
//   - [Model]: Bubble Tea live view that steps a simulation session in real
//     time
//   - [Canvas]: Braille-based pixel canvas with a world [Viewport]
//   - [PlotSeries], [PlotMany], [RenderScene]: static charts for recorded runs
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart the run
//	+/-   - Double/halve simulation speed
//	[]    - Step through history
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
