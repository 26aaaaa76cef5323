package riccati

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingular is returned when the sign iteration meets a singular
	// iterate, which happens when the Hamiltonian has eigenvalues on the
	// imaginary axis (for example an uncontrollable marginal mode).
	ErrSingular = errors.New("riccati: singular hamiltonian iterate")

	ErrNotConverged = errors.New("riccati: sign iteration did not converge")

	// ErrNoStabilizingSolution is returned when the extracted P does not
	// satisfy the equation or does not stabilize A − BR⁻¹BᵀP.
	ErrNoStabilizingSolution = errors.New("riccati: no stabilizing solution")

	ErrDimension = errors.New("riccati: dimension mismatch")
)

// Settings bound the sign iteration.
type Settings struct {
	MaxIter int
	// Tol is the relative 1-norm change between iterates at which the
	// iteration stops.
	Tol float64
	// ResidualTol is the accepted CARE residual relative to the size of its
	// terms.
	ResidualTol float64
}

func DefaultSettings() Settings {
	return Settings{MaxIter: 100, Tol: 1e-10, ResidualTol: 1e-8}
}

// SolveCARE returns the stabilizing solution of the CARE for (A, B, Q, R)
// with default settings.
func SolveCARE(a, b, q, r mat.Matrix) (*mat.Dense, error) {
	return DefaultSettings().Solve(a, b, q, r)
}

func (s Settings) Solve(a, b, q, r mat.Matrix) (*mat.Dense, error) {
	n, nc := a.Dims()
	if n != nc {
		return nil, fmt.Errorf("%w: A is %dx%d", ErrDimension, n, nc)
	}
	if br, _ := b.Dims(); br != n {
		return nil, fmt.Errorf("%w: B has %d rows, want %d", ErrDimension, br, n)
	}
	if qr, qc := q.Dims(); qr != n || qc != n {
		return nil, fmt.Errorf("%w: Q is %dx%d, want %dx%d", ErrDimension, qr, qc, n, n)
	}
	_, m := b.Dims()
	if rr, rc := r.Dims(); rr != m || rc != m {
		return nil, fmt.Errorf("%w: R is %dx%d, want %dx%d", ErrDimension, rr, rc, m, m)
	}

	g, err := controlWeight(b, r)
	if err != nil {
		return nil, err
	}
	h := Hamiltonian(a, g, q)

	w, err := s.sign(h)
	if err != nil {
		return nil, err
	}

	p, err := extract(w, n)
	if err != nil {
		return nil, err
	}

	if err := s.check(a, g, q, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Gain returns K = R⁻¹BᵀP.
func Gain(b, r, p mat.Matrix) (*mat.Dense, error) {
	var btp mat.Dense
	btp.Mul(b.T(), p)
	var k mat.Dense
	if err := k.Solve(r, &btp); err != nil {
		return nil, fmt.Errorf("%w: R: %v", ErrSingular, err)
	}
	return &k, nil
}

// controlWeight returns G = BR⁻¹Bᵀ.
func controlWeight(b, r mat.Matrix) (*mat.Dense, error) {
	var rinvBt mat.Dense
	if err := rinvBt.Solve(r, b.T()); err != nil {
		return nil, fmt.Errorf("%w: R: %v", ErrSingular, err)
	}
	var g mat.Dense
	g.Mul(b, &rinvBt)
	return &g, nil
}

// Hamiltonian builds [[A, −G], [−Q, −Aᵀ]].
func Hamiltonian(a, g, q mat.Matrix) *mat.Dense {
	n, _ := a.Dims()
	h := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			h.Set(i, j, a.At(i, j))
			h.Set(i, n+j, -g.At(i, j))
			h.Set(n+i, j, -q.At(i, j))
			h.Set(n+i, n+j, -a.At(j, i))
		}
	}
	return h
}

// sign computes sign(H) by the determinant-scaled Newton iteration
// Z ← (cZ + Z⁻¹/c)/2 with c = |det Z|^(−1/N).
func (s Settings) sign(h *mat.Dense) (*mat.Dense, error) {
	size, _ := h.Dims()
	z := mat.DenseCopyOf(h)

	var inv, next, diff mat.Dense
	for k := 0; k < s.MaxIter; k++ {
		det := mat.Det(z)
		if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
			return nil, fmt.Errorf("%w: det = %g at iteration %d", ErrSingular, det, k)
		}
		if err := inv.Inverse(z); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}

		c := math.Pow(math.Abs(det), -1/float64(size))
		next.Scale(c, z)
		inv.Scale(1/c, &inv)
		next.Add(&next, &inv)
		next.Scale(0.5, &next)

		diff.Sub(&next, z)
		change := mat.Norm(&diff, 1)
		norm := mat.Norm(&next, 1)
		z.Copy(&next)

		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, fmt.Errorf("%w: iterate diverged", ErrNotConverged)
		}
		if change <= s.Tol*norm {
			return z, nil
		}
	}
	return nil, fmt.Errorf("%w after %d iterations", ErrNotConverged, s.MaxIter)
}

// extract solves [W12; W22+I]·P = −[W11+I; W21] in the least-squares sense
// and symmetrizes the result.
func extract(w *mat.Dense, n int) (*mat.Dense, error) {
	lhs := mat.NewDense(2*n, n, nil)
	rhs := mat.NewDense(2*n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			lhs.Set(i, j, w.At(i, n+j))
			lhs.Set(n+i, j, w.At(n+i, n+j))
			rhs.Set(i, j, -w.At(i, j))
			rhs.Set(n+i, j, -w.At(n+i, j))
		}
		lhs.Set(n+i, i, lhs.At(n+i, i)+1)
		rhs.Set(i, i, rhs.At(i, i)-1)
	}

	var p mat.Dense
	if err := p.Solve(lhs, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoStabilizingSolution, err)
	}

	sym := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := 0.5 * (p.At(i, j) + p.At(j, i))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite P", ErrNoStabilizingSolution)
			}
			sym.Set(i, j, v)
		}
	}
	return sym, nil
}

// Residual returns AᵀP + PA − PGP + Q.
func Residual(a, g, q, p mat.Matrix) *mat.Dense {
	var atp, pa, gp, pgp, res mat.Dense
	atp.Mul(a.T(), p)
	pa.Mul(p, a)
	gp.Mul(g, p)
	pgp.Mul(p, &gp)
	res.Add(&atp, &pa)
	res.Sub(&res, &pgp)
	res.Add(&res, q)
	return &res
}

func (s Settings) check(a, g, q mat.Matrix, p *mat.Dense) error {
	res := Residual(a, g, q, p)

	var atp, gp, pgp mat.Dense
	atp.Mul(a.T(), p)
	gp.Mul(g, p)
	pgp.Mul(p, &gp)
	scale := 2*mat.Norm(&atp, 1) + mat.Norm(&pgp, 1) + mat.Norm(q, 1)
	if scale == 0 {
		scale = 1
	}
	if r := mat.Norm(res, 1); r > s.ResidualTol*scale {
		return fmt.Errorf("%w: residual %.3g (scale %.3g)", ErrNoStabilizingSolution, r, scale)
	}

	var closed mat.Dense
	closed.Sub(a, &gp)
	var eig mat.Eigen
	if ok := eig.Factorize(&closed, mat.EigenNone); !ok {
		return fmt.Errorf("%w: closed-loop eigen decomposition failed", ErrNoStabilizingSolution)
	}
	for _, v := range eig.Values(nil) {
		if real(v) >= 0 {
			return fmt.Errorf("%w: closed-loop eigenvalue %v", ErrNoStabilizingSolution, v)
		}
	}
	return nil
}
