// Package metrics accumulates per-run summary statistics over the sampled
// trajectory: peak vertical displacement, mean control effort and threshold
// violations.
package metrics
