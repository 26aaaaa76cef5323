package sim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/vdesim/internal/control"
	"github.com/san-kum/vdesim/internal/optim"
)

// FailurePenalty is added to the tuning objective of a run that ended in a
// terminal plant status.
const FailurePenalty = 1e3

// TuneConfig is a grid over the LQR weights q_z and r, each point scored by
// one simulation.
type TuneConfig struct {
	QZ       []float64
	R        []float64
	Duration float64
	Seed     int64
}

type TuneResult struct {
	QZ        float64       `json:"q_z"`
	R         float64       `json:"r"`
	Objective float64       `json:"objective"`
	Points    []optim.Point `json:"-"`
}

// Objective scores a run for tuning: peak |z| in metres, plus
// FailurePenalty when the plant terminated.
func Objective(m Metrics) float64 {
	v := m.MaxZ
	if m.Status.Terminal() {
		v += FailurePenalty
	}
	return v
}

// TuneLQR grid-searches the LQR weights and returns the best point.
func (s *Simulator) TuneLQR(ctx context.Context, cfg TuneConfig) (TuneResult, error) {
	gs, err := optim.NewGridSearch([]string{"q_z", "r"}, [][]float64{cfg.QZ, cfg.R})
	if err != nil {
		return TuneResult{}, err
	}

	eval := func(ctx context.Context, p map[string]float64) (float64, error) {
		cc := s.controllers
		cc.LQR.QZ = p["q_z"]
		cc.LQR.R = p["r"]
		if err := cc.Validate(); err != nil {
			return 0, err
		}

		child := *s
		child.controllers = cc
		child.logger = s.logger.With(zap.Float64("q_z", cc.LQR.QZ), zap.Float64("r", cc.LQR.R))
		res, err := child.Run(ctx, control.KindLQR, cfg.Duration, cfg.Seed)
		if err != nil {
			return 0, err
		}
		return Objective(res.Metrics), nil
	}

	best, val, points, err := gs.Search(ctx, eval)
	if err != nil {
		return TuneResult{Points: points}, fmt.Errorf("tune lqr: %w", err)
	}

	s.logger.Info("lqr tuning complete",
		zap.Int("points", len(points)),
		zap.Float64("q_z", best["q_z"]),
		zap.Float64("r", best["r"]),
		zap.Float64("objective", val),
	)
	return TuneResult{QZ: best["q_z"], R: best["r"], Objective: val, Points: points}, nil
}
