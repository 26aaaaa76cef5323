// Package control provides the vertical position controllers.
//
// Controllers implement [dynamo.Controller]:
//
//   - [LQR]: static state feedback from the continuous algebraic Riccati
//     equation of the linearized vertical channel. Output is in physical
//     units.
//   - [NMPC]: receding-horizon optimization of a normalized command sequence
//     against a reduced vertical model, warm-started from the previous solve.
//   - [None]: zero command, for open-loop studies.
//
// # Usage
//
//	ctrl, err := control.New(control.KindLQR, phys, cfg, logger)
//	u := ctrl.Compute(state)
//
// Solver trouble never surfaces as an error from Compute: LQR falls back to a
// zero gain at construction and NMPC returns zero for a step whose solve did
// not converge.
package control
