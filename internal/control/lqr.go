package control

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/dynamo"
	"github.com/san-kum/vdesim/internal/riccati"
)

// LQR is static feedback u = −K·[z, v_z] designed on the linearized vertical
// channel A = [[0, 1], [γ_z², 0]], B = [0, B_z/M_z]. The gain is fixed at
// construction.
type LQR struct {
	K        [2]float64
	fallback bool
}

// NewLQR solves the Riccati equation for the given weights. If the solve
// fails the controller keeps a zero gain and logs a warning.
func NewLQR(phys config.PhysicalConfig, w config.LQRConfig, logger *zap.Logger) *LQR {
	if logger == nil {
		logger = zap.NewNop()
	}

	a, b, q, r := LinearizedVertical(phys, w)
	k, err := gain(a, b, q, r)
	if err != nil {
		logger.Warn("riccati solve failed, falling back to zero gain",
			zap.Error(err),
			zap.Float64("gamma_z", phys.GammaZ),
			zap.Float64("b_control_z", phys.BControlZ),
		)
		return &LQR{fallback: true}
	}

	logger.Debug("lqr gain computed", zap.Float64("k_z", k[0]), zap.Float64("k_vz", k[1]))
	return &LQR{K: k}
}

// LinearizedVertical returns (A, B, Q, R) for the decoupled vertical model.
func LinearizedVertical(phys config.PhysicalConfig, w config.LQRConfig) (a, b, q, r *mat.Dense) {
	a = mat.NewDense(2, 2, []float64{0, 1, phys.GammaZ * phys.GammaZ, 0})
	b = mat.NewDense(2, 1, []float64{0, phys.BControlZ / phys.MassZ})
	q = mat.NewDense(2, 2, []float64{w.QZ, 0, 0, w.QVZ})
	r = mat.NewDense(1, 1, []float64{w.R})
	return
}

func gain(a, b, q, r *mat.Dense) ([2]float64, error) {
	p, err := riccati.SolveCARE(a, b, q, r)
	if err != nil {
		return [2]float64{}, err
	}
	k, err := riccati.Gain(b, r, p)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{k.At(0, 0), k.At(0, 1)}, nil
}

func (l *LQR) Name() string { return KindLQR.String() }

// Compute returns the physical-unit command −K·[z, v_z].
func (l *LQR) Compute(s dynamo.StateVector) float64 {
	return -(l.K[0]*s.Z + l.K[1]*s.VZ)
}

// Fallback reports whether the zero-gain fallback is in effect.
func (l *LQR) Fallback() bool { return l.fallback }
