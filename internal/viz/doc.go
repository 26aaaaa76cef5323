// Package viz renders simulation results.
//
//   - [RenderASCII]: z and command charts for the terminal (asciigraph)
//   - [WritePNG], [SavePNG]: the two-panel figure (gonum/plot)
//   - [LiveModel]: a Bubble Tea program stepping a [sim.Session] in real time
//     over a Braille [Canvas] of the poloidal cross-section
//   - [Summary]: a lipgloss block of run metrics
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single step
//	+/-   - Double/halve steps per frame
//	Q     - Quit
package viz
