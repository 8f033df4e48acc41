// Package analysis characterises recorded tracking runs.
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillation in the turn-rate
//     command, a symptom of over-aggressive heading weights
//   - [SettlingTime]: when the lateral error enters and stays in a band
//   - [RMS]: root-mean-square of an error channel
//   - [NewErrorPortrait]: lateral versus heading error, rendered with
//     [PortraitToASCII]
//
// # Example
//
//	freq, _ := analysis.DominantFrequency(omega, dt)
//	if freq > 0.5 {
//	    // weaving around the path
//	}
package analysis
