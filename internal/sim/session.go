package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/control"
	"github.com/san-kum/vdesim/internal/dynamo"
	"github.com/san-kum/vdesim/internal/metrics"
	"github.com/san-kum/vdesim/internal/plant"
)

// ErrSessionDone is returned by Step after the plant reached a terminal
// status.
var ErrSessionDone = errors.New("sim: session already terminated")

// Session is one closed-loop run advanced a step at a time. It owns a fresh
// plant and controller and is not safe for concurrent use.
type Session struct {
	kind    control.Kind
	phys    config.PhysicalConfig
	seed    int64
	plant   *plant.Plant
	ctrl    dynamo.Controller
	metrics metrics.Set
	logger  *zap.Logger

	history    History
	status     dynamo.Status
	lastFinite dynamo.StateVector
}

// NewSession validates phys, seeds a new plant with seed, resets it and
// builds the controller. Unsupported controller kinds fail here.
func NewSession(phys config.PhysicalConfig, cc config.ControllerConfig, kind control.Kind, seed int64, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !kind.Supported() {
		return nil, unsupported(kind)
	}

	p, err := plant.New(phys, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	ctrl, err := control.New(kind, phys, cc, logger)
	if err != nil {
		return nil, err
	}

	s := &Session{
		kind:    kind,
		phys:    phys,
		seed:    seed,
		plant:   p,
		ctrl:    ctrl,
		metrics: metrics.Standard(phys.VDEThresholdZ),
		logger:  logger,
		history: newHistory(0),
		status:  dynamo.StatusRunning,
	}
	s.lastFinite = p.Reset()
	return s, nil
}

func unsupported(kind control.Kind) error {
	return fmt.Errorf("%w: %s", control.ErrUnsupportedController, kind)
}

// Step computes the command from the current state, normalizes it, advances
// the plant and records the sample.
func (s *Session) Step() (Sample, error) {
	if s.status.Terminal() {
		return Sample{}, ErrSessionDone
	}

	state := s.plant.State()
	u := s.normalize(s.ctrl.Compute(state))

	next, done, status := s.plant.Step(u, 0)
	t := s.plant.Time()

	s.history.append(t, next.Z, u)
	s.metrics.Observe(next, u, t)
	s.status = status
	if next.IsFinite() {
		s.lastFinite = next
	}

	return Sample{
		Step:   s.plant.Steps(),
		Time:   t,
		State:  next,
		U:      u,
		Status: status,
		Done:   done,
	}, nil
}

// normalize maps the controller output to [−1, 1]. LQR output is divided by
// the vertical control gain first. Non-finite commands become zero.
func (s *Session) normalize(u float64) float64 {
	if !s.kind.Normalized() {
		if s.phys.BControlZ == 0 {
			return 0
		}
		u /= s.phys.BControlZ
	}
	if math.IsNaN(u) {
		return 0
	}
	return math.Max(-1, math.Min(1, u))
}

func (s *Session) Kind() control.Kind        { return s.kind }
func (s *Session) State() dynamo.StateVector { return s.plant.State() }
func (s *Session) Status() dynamo.Status     { return s.status }
func (s *Session) Done() bool                { return s.status.Terminal() }
func (s *Session) Time() float64             { return s.plant.Time() }
func (s *Session) Steps() int                { return s.plant.Steps() }
func (s *Session) History() History          { return s.history }

// Err describes a numerical failure: a *dynamo.StepError wrapping
// dynamo.ErrInvalidState and holding the last finite state. It is nil for
// every other status.
func (s *Session) Err() error {
	if s.status != dynamo.StatusNumerical {
		return nil
	}
	return &dynamo.StepError{
		Step:    s.plant.Steps(),
		Time:    s.plant.Time(),
		State:   s.lastFinite,
		Wrapped: dynamo.ErrInvalidState,
	}
}

func (s *Session) Config() config.PhysicalConfig {
	return s.phys
}

// Metrics summarizes the session so far. A session that has not terminated
// reports StatusSuccess. After a numerical failure the final state is the
// last finite one.
func (s *Session) Metrics() Metrics {
	status := s.status
	if !status.Terminal() {
		status = dynamo.StatusSuccess
	}
	final := s.plant.State()
	if !final.IsFinite() {
		final = s.lastFinite
	}

	vals := s.metrics.Values()
	m := Metrics{
		Controller: s.kind,
		Status:     status,
		Seed:       s.seed,
		Duration:   s.plant.Time(),
		Steps:      s.plant.Steps(),
		MaxZ:       vals[metrics.NamePeakZ],
		MeanU:      vals[metrics.NameMeanU],
		Violations: int(vals[metrics.NameViolations]),
		FinalState: final,
	}
	switch c := s.ctrl.(type) {
	case *control.NMPC:
		m.SolverFailures = c.Failures()
	case *control.LQR:
		m.LQRFallback = c.Fallback()
	}
	return m
}
