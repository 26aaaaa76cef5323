// Package sim runs closed-loop VDE experiments.
//
// A [Session] is one run advanced step by step: each step reads the plant
// state, asks the controller for a command, normalizes it to [−1, 1] and
// advances the plant. [Simulator.Run] drives a session for a fixed duration
// and packages the history and summary metrics. [Simulator.Sweep] fans a
// controller out over many seeds, and [Simulator.TuneLQR] grid-searches the
// LQR weights.
//
// Runs share nothing: each owns its plant, random source and controller, so
// sweeps are safe to parallelize and every run is reproducible from its seed.
package sim
