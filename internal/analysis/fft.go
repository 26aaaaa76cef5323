package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// minSamples is the shortest trace with a meaningful spectrum.
	minSamples = 8
	// flatTol is the relative power below which a trace counts as flat.
	flatTol = 1e-20
)

var ErrShortTrace = errors.New("analysis: trace too short for a spectrum")

// Spectrum is a one-sided power spectrum. Freq is in Hz.
type Spectrum struct {
	Freq  []float64
	Power []float64

	// scale bounds the amplitude of any bin; used to tell rounding noise
	// from signal.
	scale float64
}

// PowerSpectrum removes the mean from samples taken every dt seconds, applies
// a Hann window and returns |X(f)|² for f in [0, 1/(2dt)]. Non-finite samples
// are treated as the mean.
func PowerSpectrum(samples []float64, dt float64) (Spectrum, error) {
	if dt <= 0 {
		return Spectrum{}, errors.New("analysis: dt must be > 0")
	}
	seq := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			seq = append(seq, v)
		}
	}
	if len(seq) < minSamples {
		return Spectrum{}, ErrShortTrace
	}
	mean := stat.Mean(seq, nil)

	x := make([]float64, len(samples))
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		x[i] = v - mean
	}
	window.Hann(x)

	fft := fourier.NewFFT(len(x))
	coeff := fft.Coefficients(nil, x)

	sp := Spectrum{
		Freq:  make([]float64, len(coeff)),
		Power: make([]float64, len(coeff)),
		scale: float64(len(seq)) * floats.Norm(seq, math.Inf(1)),
	}
	for i, c := range coeff {
		sp.Freq[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		sp.Power[i] = a * a
	}
	return sp, nil
}

// DominantFrequency is the non-DC frequency carrying the most power, in Hz.
// A flat trace has no dominant frequency and returns 0.
func DominantFrequency(samples []float64, dt float64) (float64, error) {
	sp, err := PowerSpectrum(samples, dt)
	if err != nil {
		return 0, err
	}
	best, bestPow := 0, 0.0
	for i := 1; i < len(sp.Power); i++ {
		if sp.Power[i] > bestPow {
			best, bestPow = i, sp.Power[i]
		}
	}
	if best == 0 || bestPow <= flatTol*sp.scale*sp.scale {
		return 0, nil
	}
	return sp.Freq[best], nil
}

// Band sums the power between lo and hi Hz inclusive.
func (s Spectrum) Band(lo, hi float64) float64 {
	var sum float64
	for i, f := range s.Freq {
		if f >= lo && f <= hi {
			sum += s.Power[i]
		}
	}
	return sum
}
