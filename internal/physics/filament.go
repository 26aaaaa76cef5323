package physics

import (
	"math"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/dynamo"
)

// Filament is the rigid plasma filament model. State layout follows
// dynamo.StateVector; controls are (u_z, u_r), both normalized.
type Filament struct {
	cfg config.PhysicalConfig
}

func NewFilament(cfg config.PhysicalConfig) *Filament {
	return &Filament{cfg: cfg}
}

func (f *Filament) StateDim() int {
	return dynamo.StateDim
}

func (f *Filament) ControlDim() int {
	return 2
}

// MagneticForceZ is the destabilizing vertical force. It scales with the
// plasma current so it vanishes as the current quenches.
func MagneticForceZ(cfg config.PhysicalConfig, z, ip float64) float64 {
	return cfg.GammaZ * cfg.GammaZ * z * (ip / cfg.IpNominal)
}

// EddyForceZ is the saturating passive restoring force from wall currents.
func EddyForceZ(cfg config.PhysicalConfig, z float64) float64 {
	return -cfg.KEddyZ * z * math.Exp(-math.Abs(z)/cfg.LambdaEddy)
}

// EddyForceZDerivative is d(EddyForceZ)/dz.
func EddyForceZDerivative(cfg config.PhysicalConfig, z float64) float64 {
	a := math.Abs(z) / cfg.LambdaEddy
	return -cfg.KEddyZ * math.Exp(-a) * (1 - a)
}

func (f *Filament) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	c := f.cfg
	z, vz, ip, r, vr := x[dynamo.IdxZ], x[dynamo.IdxVZ], x[dynamo.IdxIp], x[dynamo.IdxR], x[dynamo.IdxVR]

	uz, ur := 0.0, 0.0
	if len(u) > 0 {
		uz = u[0]
	}
	if len(u) > 1 {
		ur = u[1]
	}

	fz := MagneticForceZ(c, z, ip) + EddyForceZ(c, z)
	if c.Dimension == config.Dim2D {
		fz -= c.KCoupling * c.GammaR * c.GammaR * r * z
	}
	accZ := (fz + c.BControlZ*uz) / c.MassZ

	accR := 0.0
	if c.Dimension == config.Dim2D {
		fr := c.GammaR*c.GammaR*r - c.KEddyR*r*math.Exp(-math.Abs(r)/c.LambdaEddy)
		accR = (fr + c.BControlR*ur) / c.MassR
	}

	dIp := 0.0
	if math.Abs(z) > c.ZCQTrigger {
		dIp = -c.IpCQRate
	}

	dx := make(dynamo.State, dynamo.StateDim)
	dx[dynamo.IdxZ] = vz
	dx[dynamo.IdxVZ] = accZ
	dx[dynamo.IdxIp] = dIp
	// 1D mode holds r and v_r at their initial values.
	if c.Dimension == config.Dim2D {
		dx[dynamo.IdxR] = vr
	}
	dx[dynamo.IdxVR] = accR
	return dx
}
