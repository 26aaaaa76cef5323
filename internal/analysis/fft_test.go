package analysis

import (
	"errors"
	"math"
	"testing"
)

func sine(freq, dt float64, n int, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + math.Sin(2*math.Pi*freq*float64(i)*dt)
	}
	return out
}

func TestDominantFrequency(t *testing.T) {
	tests := []struct {
		name string
		freq float64
		dt   float64
		n    int
	}{
		{"50Hz at 1kHz", 50, 1e-3, 1000},
		{"120Hz at 2kHz", 120, 5e-4, 2000},
		{"odd length", 25, 1e-3, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DominantFrequency(sine(tt.freq, tt.dt, tt.n, 0.3), tt.dt)
			if err != nil {
				t.Fatal(err)
			}
			res := 1 / (float64(tt.n) * tt.dt)
			if math.Abs(got-tt.freq) > res {
				t.Errorf("dominant = %g Hz, want %g ± %g", got, tt.freq, res)
			}
		})
	}
}

func TestDominantFrequencyFlat(t *testing.T) {
	flat := make([]float64, 64)
	for i := range flat {
		flat[i] = 0.02
	}
	got, err := DominantFrequency(flat, 1e-3)
	if err != nil || got != 0 {
		t.Errorf("flat trace = %g, %v; want 0, nil", got, err)
	}
}

func TestPowerSpectrumSkipsNonFinite(t *testing.T) {
	x := sine(50, 1e-3, 1000, 0)
	x[10] = math.NaN()
	x[20] = math.Inf(1)

	sp, err := PowerSpectrum(x, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range sp.Power {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("power[%d] = %g", i, p)
		}
	}
	if sp.Freq[len(sp.Freq)-1] != 500 {
		t.Errorf("last bin = %g Hz, want Nyquist 500", sp.Freq[len(sp.Freq)-1])
	}
	if near, far := sp.Band(45, 55), sp.Band(200, 500); near < 100*far {
		t.Errorf("band power near 50 Hz %g not dominant over %g", near, far)
	}
}

func TestPowerSpectrumErrors(t *testing.T) {
	if _, err := PowerSpectrum(make([]float64, 4), 1e-3); !errors.Is(err, ErrShortTrace) {
		t.Errorf("short trace error = %v", err)
	}
	if _, err := PowerSpectrum(make([]float64, 64), 0); err == nil {
		t.Error("dt = 0 accepted")
	}
}
