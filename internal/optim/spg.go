package optim

import (
	"errors"
	"fmt"
	"math"
)

// Objective evaluates f at x and writes ∇f(x) into grad.
type Objective func(x, grad []float64) float64

// Status reports why Minimize stopped.
type Status int

const (
	StatusProjectedGradient Status = iota
	StatusFunctionTolerance
	StatusIterationLimit
	StatusLineSearchFailed
	StatusNonFinite
)

var statusNames = [...]string{
	StatusProjectedGradient: "projected gradient below tolerance",
	StatusFunctionTolerance: "function change below tolerance",
	StatusIterationLimit:    "iteration limit reached",
	StatusLineSearchFailed:  "line search failed",
	StatusNonFinite:         "non-finite objective",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Success reports whether the status is a convergence status.
func (s Status) Success() bool {
	return s == StatusProjectedGradient || s == StatusFunctionTolerance
}

var ErrBounds = errors.New("optim: invalid bounds")

// Settings for the spectral projected gradient method. Non-positive counts
// and negative tolerances take the values from DefaultSettings.
type Settings struct {
	MaxIter int
	// PGTol stops on the infinity norm of the projected gradient step.
	PGTol float64
	// FTol stops when |f_k − f_{k−1}| <= FTol·max(1, |f_k|).
	FTol float64
	// Memory is the window of past values the nonmonotone line search
	// compares against.
	Memory        int
	MaxLineSearch int
}

func DefaultSettings() Settings {
	return Settings{MaxIter: 100, PGTol: 1e-6, FTol: 1e-9, Memory: 10, MaxLineSearch: 30}
}

type Result struct {
	X           []float64
	F           float64
	Iterations  int
	Evaluations int
	Status      Status
}

func (r Result) Success() bool { return r.Status.Success() }

const (
	armijoGamma = 1e-4
	sigma1      = 0.1
	sigma2      = 0.9
	alphaMin    = 1e-10
	alphaMax    = 1e10
)

// Minimize runs the nonmonotone spectral projected gradient method (SPG2) on
// fn over the box [lower, upper]. x0 is projected onto the box first and is
// not modified. The returned error covers malformed input only; failure to
// converge is reported through Result.Status.
func Minimize(fn Objective, x0, lower, upper []float64, settings Settings) (Result, error) {
	n := len(x0)
	if len(lower) != n || len(upper) != n {
		return Result{}, fmt.Errorf("%w: %d bounds for %d variables", ErrBounds, len(lower), n)
	}
	for i := range lower {
		if lower[i] > upper[i] || math.IsNaN(lower[i]) || math.IsNaN(upper[i]) {
			return Result{}, fmt.Errorf("%w: [%g, %g] at %d", ErrBounds, lower[i], upper[i], i)
		}
	}
	s := settings.withDefaults()

	x := make([]float64, n)
	copy(x, x0)
	project(x, lower, upper)

	g := make([]float64, n)
	f := fn(x, g)
	res := Result{X: x, F: f, Evaluations: 1}
	if !finite(f) || !allFinite(g) {
		res.Status = StatusNonFinite
		return res, nil
	}

	hist := make([]float64, 0, s.Memory)
	hist = append(hist, f)

	var (
		d     = make([]float64, n)
		xn    = make([]float64, n)
		gn    = make([]float64, n)
		pgInf = projectedGradientNorm(x, g, lower, upper, d)
	)
	if pgInf <= s.PGTol {
		res.Status = StatusProjectedGradient
		return res, nil
	}
	alpha := clamp(1/pgInf, alphaMin, alphaMax)

	for k := 1; k <= s.MaxIter; k++ {
		res.Iterations = k

		// d = P(x − αg) − x
		for i := range x {
			d[i] = x[i] - alpha*g[i]
		}
		project(d, lower, upper)
		gtd := 0.0
		for i := range x {
			d[i] -= x[i]
			gtd += g[i] * d[i]
		}

		fmax := hist[0]
		for _, v := range hist[1:] {
			fmax = math.Max(fmax, v)
		}

		lambda := 1.0
		accepted := false
		var fnew float64
		for ls := 0; ls < s.MaxLineSearch; ls++ {
			for i := range x {
				xn[i] = x[i] + lambda*d[i]
			}
			fnew = fn(xn, gn)
			res.Evaluations++
			if fnew <= fmax+armijoGamma*lambda*gtd && allFinite(gn) {
				accepted = true
				break
			}
			lambda = backtrack(lambda, f, fnew, gtd)
		}
		if !accepted {
			if !finite(fnew) {
				res.Status = StatusNonFinite
			} else {
				res.Status = StatusLineSearchFailed
			}
			return res, nil
		}

		sts, sty := 0.0, 0.0
		for i := range x {
			si := xn[i] - x[i]
			yi := gn[i] - g[i]
			sts += si * si
			sty += si * yi
		}

		fprev := f
		copy(x, xn)
		copy(g, gn)
		f = fnew
		res.F = f

		if len(hist) < s.Memory {
			hist = append(hist, f)
		} else {
			hist = append(hist[1:], f)
		}

		if projectedGradientNorm(x, g, lower, upper, d) <= s.PGTol {
			res.Status = StatusProjectedGradient
			return res, nil
		}
		if math.Abs(fprev-f) <= s.FTol*math.Max(1, math.Abs(f)) {
			res.Status = StatusFunctionTolerance
			return res, nil
		}

		if sty <= 0 {
			alpha = alphaMax
		} else {
			alpha = clamp(sts/sty, alphaMin, alphaMax)
		}
	}

	res.Status = StatusIterationLimit
	return res, nil
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.MaxIter <= 0 {
		s.MaxIter = def.MaxIter
	}
	if s.PGTol < 0 {
		s.PGTol = def.PGTol
	}
	if s.FTol < 0 {
		s.FTol = def.FTol
	}
	if s.Memory <= 0 {
		s.Memory = def.Memory
	}
	if s.MaxLineSearch <= 0 {
		s.MaxLineSearch = def.MaxLineSearch
	}
	return s
}

// backtrack picks the next step length by safeguarded quadratic
// interpolation, falling back to halving.
func backtrack(lambda, f, fnew, gtd float64) float64 {
	den := fnew - f - lambda*gtd
	next := lambda / 2
	if den > 0 && finite(den) {
		q := -0.5 * lambda * lambda * gtd / den
		if q >= sigma1*lambda && q <= sigma2*lambda {
			next = q
		}
	}
	return next
}

// projectedGradientNorm returns ‖P(x − g) − x‖∞ using buf as scratch.
func projectedGradientNorm(x, g, lower, upper, buf []float64) float64 {
	for i := range x {
		buf[i] = x[i] - g[i]
	}
	project(buf, lower, upper)
	norm := 0.0
	for i := range x {
		norm = math.Max(norm, math.Abs(buf[i]-x[i]))
	}
	return norm
}

func project(x, lower, upper []float64) {
	for i := range x {
		x[i] = clamp(x[i], lower[i], upper[i])
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !finite(x) {
			return false
		}
	}
	return true
}
