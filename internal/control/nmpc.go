package control

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/dynamo"
	"github.com/san-kum/vdesim/internal/optim"
	"github.com/san-kum/vdesim/internal/physics"
)

// NMPC re-optimizes a horizon of normalized vertical commands on every call
// and applies the first one.
//
// The prediction model is the vertical channel alone, stepped with
// semi-implicit Euler at the plant timestep, with the plasma current frozen
// at its measured value:
//
//	v ← v + dt·(F_mag(z) + F_eddy(z) + B_z·u)/M_z
//	z ← z + dt·v
//
// Each predicted step costs W_z·z² + W_u·u², plus P·(|z| − z_vde)² while the
// prediction is beyond the VDE threshold.
type NMPC struct {
	phys     config.PhysicalConfig
	cfg      config.NMPCConfig
	settings optim.Settings
	logger   *zap.Logger

	warm         []float64
	lower, upper []float64
	zs, vs       []float64

	last     optim.Result
	failures int
}

func NewNMPC(phys config.PhysicalConfig, cfg config.NMPCConfig, logger *zap.Logger) *NMPC {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Horizon < 1 {
		cfg.Horizon = config.DefaultHorizon
	}
	h := cfg.Horizon

	n := &NMPC{
		phys: phys,
		cfg:  cfg,
		settings: optim.Settings{
			MaxIter: cfg.MaxIterations,
			PGTol:   cfg.Tolerance,
			FTol:    cfg.Tolerance,
		},
		logger: logger,
		warm:   make([]float64, h),
		lower:  make([]float64, h),
		upper:  make([]float64, h),
		zs:     make([]float64, h+1),
		vs:     make([]float64, h+1),
	}
	for i := range n.lower {
		n.lower[i], n.upper[i] = -1, 1
	}
	return n
}

func (n *NMPC) Name() string { return KindNMPC.String() }

func (n *NMPC) Horizon() int { return n.cfg.Horizon }

// Compute solves the horizon problem from s. On success the solution, shifted
// left by one with a trailing zero, becomes the next warm start and its first
// entry is returned. On failure it returns 0 and keeps the warm start.
func (n *NMPC) Compute(s dynamo.StateVector) float64 {
	objective := func(u, grad []float64) float64 {
		return n.Cost(u, s, grad)
	}

	res, err := optim.Minimize(objective, n.warm, n.lower, n.upper, n.settings)
	n.last = res
	if err != nil || !res.Success() {
		n.failures++
		n.logger.Debug("nmpc solve failed, applying zero control",
			zap.Stringer("status", res.Status),
			zap.Int("iterations", res.Iterations),
			zap.Error(err),
		)
		return 0
	}

	u0 := res.X[0]
	copy(n.warm, res.X[1:])
	n.warm[len(n.warm)-1] = 0
	return u0
}

// Cost evaluates the horizon cost of u from s. When grad is non-nil it also
// receives ∂cost/∂u, computed by a backward sweep through the rollout.
func (n *NMPC) Cost(u []float64, s dynamo.StateVector, grad []float64) float64 {
	c := n.phys
	dt := c.Dt
	ipRatio := s.Ip / c.IpNominal
	g2 := c.GammaZ * c.GammaZ
	h := len(u)
	n.ensureScratch(h)

	zs, vs := n.zs, n.vs
	zs[0], vs[0] = s.Z, s.VZ

	cost := 0.0
	for k := 0; k < h; k++ {
		f := physics.MagneticForceZ(c, zs[k], s.Ip) + physics.EddyForceZ(c, zs[k])
		vs[k+1] = vs[k] + dt*(f+c.BControlZ*u[k])/c.MassZ
		zs[k+1] = zs[k] + dt*vs[k+1]
		cost += n.stageCost(zs[k+1], u[k])
	}

	if grad == nil {
		return cost
	}

	gz, gv := 0.0, 0.0
	for k := h - 1; k >= 0; k-- {
		gz += n.stageCostDz(zs[k+1])
		gvt := gv + dt*gz
		grad[k] = 2*n.cfg.WeightU*u[k] + gvt*dt*c.BControlZ/c.MassZ
		dF := g2*ipRatio + physics.EddyForceZDerivative(c, zs[k])
		gz += gvt * dt / c.MassZ * dF
		gv = gvt
	}
	return cost
}

func (n *NMPC) ensureScratch(h int) {
	if len(n.zs) != h+1 {
		n.zs = make([]float64, h+1)
		n.vs = make([]float64, h+1)
	}
}

func (n *NMPC) stageCost(z, u float64) float64 {
	cost := n.cfg.WeightZ*z*z + n.cfg.WeightU*u*u
	if excess := math.Abs(z) - n.phys.VDEThresholdZ; excess > 0 {
		cost += n.cfg.BoundPenalty * excess * excess
	}
	return cost
}

func (n *NMPC) stageCostDz(z float64) float64 {
	d := 2 * n.cfg.WeightZ * z
	if excess := math.Abs(z) - n.phys.VDEThresholdZ; excess > 0 {
		d += 2 * n.cfg.BoundPenalty * excess * math.Copysign(1, z)
	}
	return d
}

// WarmStart returns a copy of the stored guess.
func (n *NMPC) WarmStart() []float64 {
	out := make([]float64, len(n.warm))
	copy(out, n.warm)
	return out
}

// SetWarmStart replaces the stored guess. Entries are clipped to [−1, 1].
func (n *NMPC) SetWarmStart(u []float64) error {
	if len(u) != len(n.warm) {
		return fmt.Errorf("%w: warm start has %d entries, horizon is %d", dynamo.ErrDimensionMismatch, len(u), len(n.warm))
	}
	for i, v := range u {
		n.warm[i] = math.Max(-1, math.Min(1, v))
	}
	return nil
}

// LastResult is the optimizer outcome of the most recent Compute.
func (n *NMPC) LastResult() optim.Result { return n.last }

// Failures counts Compute calls that fell back to zero control.
func (n *NMPC) Failures() int { return n.failures }
