package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/vdesim/internal/dynamo"
)

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	if m.Value() != 0 {
		t.Errorf("empty value = %g, want 0", m.Value())
	}
	for _, u := range []float64{0.5, -1, 0, 0.5} {
		m.Observe(dynamo.StateVector{}, u, 0)
	}
	if m.Value() != 0.5 {
		t.Errorf("mean |u| = %g, want 0.5", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Errorf("after reset = %g", m.Value())
	}
}

func TestViolations(t *testing.T) {
	v := NewViolations(1.0)
	if v.InBounds() != 1 {
		t.Errorf("empty InBounds = %g", v.InBounds())
	}
	for _, z := range []float64{0.2, -1.5, 1.0, 1.01} {
		v.Observe(dynamo.StateVector{Z: z}, 0, 0)
	}
	if v.Count() != 2 || v.Value() != 2 {
		t.Errorf("violations = %d, want 2", v.Count())
	}
	if v.InBounds() != 0.5 {
		t.Errorf("InBounds = %g, want 0.5", v.InBounds())
	}
}

func TestPeakZ(t *testing.T) {
	p := NewPeakZ()
	for _, z := range []float64{0.1, -0.4, 0.3} {
		p.Observe(dynamo.StateVector{Z: z}, 0, 0)
	}
	if p.Value() != 0.4 {
		t.Errorf("peak = %g, want 0.4", p.Value())
	}
	p.Observe(dynamo.StateVector{Z: math.NaN()}, 0, 0)
	p.Observe(dynamo.StateVector{Z: math.Inf(-1)}, 0, 0)
	if p.Value() != 0.4 {
		t.Errorf("peak after non-finite samples = %g, want 0.4", p.Value())
	}
}

func TestStandardSet(t *testing.T) {
	set := Standard(1.0)
	set.Observe(dynamo.StateVector{Z: 1.2}, -0.5, 0)
	set.Observe(dynamo.StateVector{Z: 0.1}, 0.25, 0.1)

	vals := set.Values()
	want := map[string]float64{NamePeakZ: 1.2, NameMeanU: 0.375, NameViolations: 1}
	for k, w := range want {
		if vals[k] != w {
			t.Errorf("%s = %g, want %g", k, vals[k], w)
		}
	}

	set.Reset()
	for k, v := range set.Values() {
		if v != 0 {
			t.Errorf("%s = %g after reset", k, v)
		}
	}
}
