package sim

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/control"
)

// Simulator runs closed-loop experiments against one physical configuration.
// Every Run builds its own plant and controller, so a Simulator may be used
// from several goroutines at once.
type Simulator struct {
	phys        config.PhysicalConfig
	controllers config.ControllerConfig
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Simulator)

func WithControllerConfig(cc config.ControllerConfig) Option {
	return func(s *Simulator) { s.controllers = cc }
}

// WithLogger sets the parent logger. Each run logs through a child carrying
// its trace id and controller.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// New validates phys up front so no state is ever produced from an invalid
// configuration.
func New(phys config.PhysicalConfig, opts ...Option) (*Simulator, error) {
	if err := phys.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		phys:        phys,
		controllers: config.DefaultControllers(),
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.controllers.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulator) Config() config.PhysicalConfig { return s.phys }

func (s *Simulator) Controllers() config.ControllerConfig { return s.controllers }

// Run simulates floor(duration/dt) steps with the given controller, stopping
// early when the plant terminates. Unsupported controllers and non-positive
// durations fail before the plant is built. ctx is checked between steps.
func (s *Simulator) Run(ctx context.Context, kind control.Kind, duration float64, seed int64) (*Result, error) {
	if !kind.Supported() {
		return nil, unsupported(kind)
	}
	if duration <= 0 {
		return nil, &config.ConfigurationError{Field: "duration", Value: duration, Reason: "must be > 0"}
	}

	start := time.Now()
	traceID := uuid.New().String()[:8]
	logger := s.logger.With(zap.String("trace_id", traceID), zap.Stringer("controller", kind))

	sess, err := NewSession(s.phys, s.controllers, kind, seed, logger)
	if err != nil {
		return nil, err
	}

	steps := s.phys.Steps(duration)
	sess.history = newHistory(steps)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		sample, err := sess.Step()
		if err != nil {
			return nil, err
		}
		if sample.Done {
			if err := sess.Err(); err != nil {
				logger.Warn("integration produced a non-finite state", zap.Error(err))
			}
			logger.Debug("plant terminated",
				zap.Stringer("status", sample.Status),
				zap.Int("step", sample.Step),
				zap.Float64("time", sample.Time),
				zap.Float64("z", sample.State.Z),
			)
			break
		}
	}

	m := sess.Metrics()
	m.Timestamp = s.now()
	m.TraceID = traceID
	m.ComputeMillis = float64(time.Since(start).Microseconds()) / 1000

	logger.Info("run complete",
		zap.Stringer("status", m.Status),
		zap.Int("steps", m.Steps),
		zap.Float64("max_z_mm", m.MaxZ*1000),
		zap.Float64("mean_u", m.MeanU),
		zap.Int("violations", m.Violations),
		zap.Float64("compute_ms", m.ComputeMillis),
	)

	return &Result{Metrics: m, History: sess.History()}, nil
}
