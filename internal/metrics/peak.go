package metrics

import (
	"math"

	"github.com/san-kum/vdesim/internal/dynamo"
)

// Metric names as reported by Set.Values.
const (
	NamePeakZ      = "max_z"
	NameMeanU      = "mean_u"
	NameViolations = "violations"
)

// PeakZ is the largest finite |z| observed.
type PeakZ struct {
	peak float64
}

func NewPeakZ() *PeakZ { return &PeakZ{} }

func (p *PeakZ) Name() string { return NamePeakZ }

func (p *PeakZ) Observe(s dynamo.StateVector, u float64, t float64) {
	a := math.Abs(s.Z)
	if a > p.peak && !math.IsInf(a, 0) {
		p.peak = a
	}
}

func (p *PeakZ) Value() float64 { return p.peak }

func (p *PeakZ) Reset() { p.peak = 0 }

// Set feeds every sample to a group of metrics.
type Set []dynamo.Metric

// Standard builds the run summary metrics for a VDE threshold.
func Standard(vdeThreshold float64) Set {
	return Set{NewPeakZ(), NewControlEffort(), NewViolations(vdeThreshold)}
}

func (s Set) Observe(state dynamo.StateVector, u float64, t float64) {
	for _, m := range s {
		m.Observe(state, u, t)
	}
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}
