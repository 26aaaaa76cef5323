package sim

import (
	"context"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/vdesim/internal/control"
	"github.com/san-kum/vdesim/internal/dynamo"
)

// SweepConfig is a Monte Carlo study: one controller over many seeds.
type SweepConfig struct {
	Kind     control.Kind
	Duration float64
	Seeds    []int64
	// Workers bounds concurrent runs; zero means GOMAXPROCS.
	Workers int
}

type SweepSummary struct {
	Runs          int                   `json:"runs"`
	StatusCounts  map[dynamo.Status]int `json:"status_counts"`
	SuccessRate   float64               `json:"success_rate"`
	MeanPeakZ     float64               `json:"mean_max_z"`
	MaxPeakZ      float64               `json:"max_max_z"`
	MeanEffort    float64               `json:"mean_u"`
	MeanComputeMs float64               `json:"mean_compute_time_ms"`
}

// SeedRange returns n consecutive seeds starting at start.
func SeedRange(start int64, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = start + int64(i)
	}
	return seeds
}

// Sweep runs every seed in parallel, each run fully isolated. Results keep
// the order of cfg.Seeds. The first run error cancels the rest.
func (s *Simulator) Sweep(ctx context.Context, cfg SweepConfig) ([]*Result, SweepSummary, error) {
	if !cfg.Kind.Supported() {
		return nil, SweepSummary{}, unsupported(cfg.Kind)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*Result, len(cfg.Seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, seed := range cfg.Seeds {
		i, seed := i, seed
		g.Go(func() error {
			res, err := s.Run(gctx, cfg.Kind, cfg.Duration, seed)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, SweepSummary{}, err
	}

	summary := Summarize(results)
	s.logger.Info("sweep complete",
		zap.Stringer("controller", cfg.Kind),
		zap.Int("runs", summary.Runs),
		zap.Float64("success_rate", summary.SuccessRate),
		zap.Float64("mean_max_z_mm", summary.MeanPeakZ*1000),
	)
	return results, summary, nil
}

// Summarize aggregates run metrics. Nil results are skipped.
func Summarize(results []*Result) SweepSummary {
	sum := SweepSummary{StatusCounts: make(map[dynamo.Status]int)}
	var peak, effort, compute float64
	for _, r := range results {
		if r == nil {
			continue
		}
		m := r.Metrics
		sum.Runs++
		sum.StatusCounts[m.Status]++
		peak += m.MaxZ
		effort += m.MeanU
		compute += m.ComputeMillis
		sum.MaxPeakZ = math.Max(sum.MaxPeakZ, m.MaxZ)
	}
	if sum.Runs == 0 {
		return sum
	}
	n := float64(sum.Runs)
	sum.SuccessRate = float64(sum.StatusCounts[dynamo.StatusSuccess]) / n
	sum.MeanPeakZ = peak / n
	sum.MeanEffort = effort / n
	sum.MeanComputeMs = compute / n
	return sum
}
