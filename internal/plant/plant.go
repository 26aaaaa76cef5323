package plant

import (
	"math"
	"math/rand"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/dynamo"
	"github.com/san-kum/vdesim/internal/integrators"
	"github.com/san-kum/vdesim/internal/physics"
)

// Initial perturbation applied by Reset.
const (
	InitialZ = 0.02
	InitialR = 0.01
)

// CQFraction is the share of nominal current below which the plasma counts
// as quenched.
const CQFraction = 0.1

// Plant advances the filament model with RK4 and reports terminal events.
// It owns its state and random source; a Plant is not safe for concurrent use.
type Plant struct {
	cfg   config.PhysicalConfig
	model *physics.Filament
	integ *integrators.RK4
	rng   *rand.Rand

	state dynamo.StateVector
	time  float64
	steps int
}

// New validates cfg and builds a plant drawing all noise from rng. A nil rng
// is seeded with config.DefaultSeed.
func New(cfg config.PhysicalConfig, rng *rand.Rand) (*Plant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(config.DefaultSeed))
	}
	p := &Plant{
		cfg:   cfg,
		model: physics.NewFilament(cfg),
		integ: integrators.NewRK4(),
		rng:   rng,
	}
	p.Reset()
	return p, nil
}

// Reset puts the plasma at the perturbed starting point with nominal current
// and clears the clock.
func (p *Plant) Reset() dynamo.StateVector {
	p.time = 0
	p.steps = 0
	p.state = dynamo.StateVector{Z: InitialZ, Ip: p.cfg.IpNominal, R: InitialR}
	return p.state
}

// SetState overrides the current state without touching the clock.
func (p *Plant) SetState(s dynamo.StateVector) {
	p.state = s
}

func (p *Plant) State() dynamo.StateVector { return p.state }
func (p *Plant) Time() float64             { return p.time }
func (p *Plant) Steps() int                { return p.steps }
func (p *Plant) Config() config.PhysicalConfig {
	return p.cfg
}

// Step integrates one dt with normalized commands (uz, ur) held constant,
// injects process noise into v_z and classifies the new state.
func (p *Plant) Step(uz, ur float64) (dynamo.StateVector, bool, dynamo.Status) {
	dt := p.cfg.Dt
	next := p.integ.Step(p.model, p.state.State(), dynamo.Control{uz, ur}, p.time, dt)

	// Noise std scales with 1/sqrt(dt) so its per-unit-time variance does
	// not depend on the step size.
	sigma := p.cfg.NoiseLevel / math.Sqrt(dt)
	noise := p.rng.NormFloat64() * sigma / p.cfg.MassZ
	next[dynamo.IdxVZ] += noise * dt

	p.state = dynamo.FromState(next)
	p.time += dt
	p.steps++

	status := p.classify(p.state)
	return p.state, status.Terminal(), status
}

// classify checks terminal conditions in priority order: non-finite, VDE, CQ.
func (p *Plant) classify(s dynamo.StateVector) dynamo.Status {
	switch {
	case !s.IsFinite():
		return dynamo.StatusNumerical
	case math.Abs(s.Z) > p.cfg.VDEThresholdZ:
		return dynamo.StatusVDE
	case s.Ip < CQFraction*p.cfg.IpNominal:
		return dynamo.StatusCQ
	default:
		return dynamo.StatusRunning
	}
}
