// Package analysis characterizes a recorded z trace in the frequency domain.
//
// A controller that holds the plasma but rings shows up as a sharp peak in
// [PowerSpectrum]; [DominantFrequency] reports where it sits:
//
//	f, err := analysis.DominantFrequency(res.History.Z, phys.Dt)
package analysis
