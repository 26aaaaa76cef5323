package metrics

import (
	"math"

	"github.com/san-kum/vdesim/internal/dynamo"
)

// Violations counts observed states whose vertical displacement is beyond
// the threshold.
type Violations struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewViolations(threshold float64) *Violations {
	return &Violations{
		name:      NameViolations,
		threshold: threshold,
	}
}

func (v *Violations) Name() string {
	return v.name
}

func (v *Violations) Observe(s dynamo.StateVector, u float64, t float64) {
	v.samples++
	if math.Abs(s.Z) > v.threshold {
		v.violations++
	}
}

func (v *Violations) Value() float64 {
	return float64(v.violations)
}

func (v *Violations) Count() int { return v.violations }

// InBounds is the fraction of samples inside the threshold, 1 when nothing
// was observed.
func (v *Violations) InBounds() float64 {
	if v.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(v.violations)/float64(v.samples)
}

func (v *Violations) Reset() {
	v.violations = 0
	v.samples = 0
}
