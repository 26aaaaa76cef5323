package sim

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/control"
	"github.com/san-kum/vdesim/internal/dynamo"
)

func newSim(t *testing.T, phys config.PhysicalConfig, opts ...Option) *Simulator {
	t.Helper()
	s, err := New(phys, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	for _, dt := range []float64{0, -0.001} {
		phys := config.DefaultPhysical()
		phys.Dt = dt

		s, err := New(phys)
		if s != nil {
			t.Errorf("dt=%g: expected no simulator", dt)
		}
		var cerr *config.ConfigurationError
		if !errors.As(err, &cerr) || cerr.Field != "dt" {
			t.Errorf("dt=%g: expected ConfigurationError on dt, got %v", dt, err)
		}
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	s := newSim(t, config.DefaultPhysical())

	_, err := s.Run(context.Background(), control.KindPID, 0.1, 1)
	if !errors.Is(err, control.ErrUnsupportedController) {
		t.Errorf("PID: expected ErrUnsupportedController, got %v", err)
	}

	_, err = s.Run(context.Background(), control.KindLQR, 0, 1)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("zero duration: expected ErrInvalidConfig, got %v", err)
	}
}

func TestRunDeterministic(t *testing.T) {
	s := newSim(t, config.DefaultPhysical())
	ignore := cmpopts.IgnoreFields(Metrics{}, "Timestamp", "TraceID", "ComputeMillis")

	for _, kind := range []control.Kind{control.KindLQR, control.KindNMPC} {
		a, err := s.Run(context.Background(), kind, 0.02, 42)
		if err != nil {
			t.Fatal(err)
		}
		b, err := s.Run(context.Background(), kind, 0.02, 42)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(a.History, b.History); diff != "" {
			t.Errorf("%v history differs (-a +b):\n%s", kind, diff)
		}
		if diff := cmp.Diff(a.Metrics, b.Metrics, ignore); diff != "" {
			t.Errorf("%v metrics differ (-a +b):\n%s", kind, diff)
		}

		c, err := s.Run(context.Background(), kind, 0.02, 43)
		if err != nil {
			t.Fatal(err)
		}
		if cmp.Equal(a.History, c.History) {
			t.Errorf("%v: different seeds gave identical histories", kind)
		}
	}
}

func TestRunMetricsMatchHistory(t *testing.T) {
	phys := config.DefaultPhysical()
	s := newSim(t, phys)

	res, err := s.Run(context.Background(), control.KindLQR, 0.05, 7)
	if err != nil {
		t.Fatal(err)
	}
	m, h := res.Metrics, res.History

	if h.Len() != m.Steps || len(h.Z) != m.Steps || len(h.U) != m.Steps {
		t.Fatalf("history lengths %d/%d/%d, steps %d", len(h.Time), len(h.Z), len(h.U), m.Steps)
	}
	if m.Steps != phys.Steps(0.05) {
		t.Errorf("steps = %d, want %d", m.Steps, phys.Steps(0.05))
	}

	peak, effort := 0.0, 0.0
	for i := range h.Z {
		peak = math.Max(peak, math.Abs(h.Z[i]))
		effort += math.Abs(h.U[i])
		if h.U[i] < -1 || h.U[i] > 1 {
			t.Fatalf("u[%d] = %g outside [-1, 1]", i, h.U[i])
		}
	}
	effort /= float64(len(h.U))

	if m.MaxZ != peak {
		t.Errorf("MaxZ = %g, history peak %g", m.MaxZ, peak)
	}
	if math.Abs(m.MeanU-effort) > 1e-12 {
		t.Errorf("MeanU = %g, history mean %g", m.MeanU, effort)
	}
	if m.Status != dynamo.StatusSuccess {
		t.Errorf("status = %v, want SUCCESS", m.Status)
	}
	if m.FinalState.Z != h.Z[len(h.Z)-1] {
		t.Errorf("final z %g, last history z %g", m.FinalState.Z, h.Z[len(h.Z)-1])
	}
	if !strings.HasPrefix(m.RunID(), "lqr_") || len(m.TraceID) != 8 {
		t.Errorf("run id %q, trace id %q", m.RunID(), m.TraceID)
	}
	if m.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestRunShorterThanOneStep(t *testing.T) {
	phys := config.DefaultPhysical()
	s := newSim(t, phys)

	res, err := s.Run(context.Background(), control.KindNone, phys.Dt/2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.History.Len() != 0 || res.Metrics.Steps != 0 {
		t.Errorf("expected empty run, got %d steps", res.Metrics.Steps)
	}
	if res.Metrics.Status != dynamo.StatusSuccess || res.Metrics.MaxZ != 0 || res.Metrics.MeanU != 0 {
		t.Errorf("unexpected metrics %+v", res.Metrics)
	}
}

func TestRunCancelled(t *testing.T) {
	s := newSim(t, config.DefaultPhysical())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Run(ctx, control.KindNone, 0.1, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunLQRFallbackReported(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	phys := config.DefaultPhysical()
	phys.GammaZ = 0
	phys.BControlZ = 0
	s := newSim(t, phys, WithLogger(zap.New(core)))

	res, err := s.Run(context.Background(), control.KindLQR, 0.01, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Metrics.LQRFallback {
		t.Error("LQRFallback not reported")
	}
	for i, u := range res.History.U {
		if u != 0 {
			t.Fatalf("u[%d] = %g with zero gain", i, u)
		}
	}

	warnings := logs.FilterMessageSnippet("zero gain").All()
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
	if _, ok := warnings[0].ContextMap()["trace_id"]; !ok {
		t.Error("warning lacks trace_id")
	}
}

func TestRunLogsSummary(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := newSim(t, config.DefaultPhysical(), WithLogger(zap.New(core)))

	res, err := s.Run(context.Background(), control.KindNone, 0.01, 1)
	if err != nil {
		t.Fatal(err)
	}

	entries := logs.FilterMessage("run complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected one summary line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["trace_id"] != res.Metrics.TraceID {
		t.Errorf("trace_id = %v, want %s", fields["trace_id"], res.Metrics.TraceID)
	}
	if fields["status"] != "SUCCESS" {
		t.Errorf("status = %v", fields["status"])
	}
}

func TestSweep(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSim(t, config.DefaultPhysical())
	seeds := SeedRange(100, 6)

	results, summary, err := s.Sweep(context.Background(), SweepConfig{
		Kind:     control.KindLQR,
		Duration: 0.02,
		Seeds:    seeds,
		Workers:  3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(seeds) {
		t.Fatalf("got %d results, want %d", len(results), len(seeds))
	}
	for i, r := range results {
		if r.Metrics.Seed != seeds[i] {
			t.Errorf("result %d has seed %d, want %d", i, r.Metrics.Seed, seeds[i])
		}
	}

	if summary.Runs != 6 || summary.StatusCounts[dynamo.StatusSuccess] != 6 || summary.SuccessRate != 1 {
		t.Errorf("summary = %+v", summary)
	}

	serial, err := s.Run(context.Background(), control.KindLQR, 0.02, seeds[2])
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(serial.History, results[2].History); diff != "" {
		t.Errorf("parallel run differs from serial run:\n%s", diff)
	}
}

func TestSweepUnsupported(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSim(t, config.DefaultPhysical())
	_, _, err := s.Sweep(context.Background(), SweepConfig{Kind: control.KindPID, Duration: 0.01, Seeds: SeedRange(1, 3)})
	if !errors.Is(err, control.ErrUnsupportedController) {
		t.Errorf("expected ErrUnsupportedController, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	if empty.Runs != 0 || empty.SuccessRate != 0 {
		t.Errorf("empty summary = %+v", empty)
	}

	results := []*Result{
		{Metrics: Metrics{Status: dynamo.StatusSuccess, MaxZ: 0.1, MeanU: 0.2}},
		nil,
		{Metrics: Metrics{Status: dynamo.StatusVDE, MaxZ: 1.3, MeanU: 0.4}},
	}
	got := Summarize(results)
	want := SweepSummary{
		Runs:         2,
		StatusCounts: map[dynamo.Status]int{dynamo.StatusSuccess: 1, dynamo.StatusVDE: 1},
		SuccessRate:  0.5,
		MeanPeakZ:    0.7,
		MaxPeakZ:     1.3,
		MeanEffort:   0.3,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestTuneLQR(t *testing.T) {
	s := newSim(t, config.DefaultPhysical())
	res, err := s.TuneLQR(context.Background(), TuneConfig{
		QZ:       []float64{100, 1000},
		R:        []float64{0.1, 1},
		Duration: 0.02,
		Seed:     3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Points) != 4 {
		t.Errorf("evaluated %d points, want 4", len(res.Points))
	}
	if res.Objective >= FailurePenalty {
		t.Errorf("best objective %g includes a failure", res.Objective)
	}
	for _, p := range res.Points {
		if p.Value < res.Objective {
			t.Errorf("point %v beats reported best %g", p.Params, res.Objective)
		}
	}
}

func TestObjective(t *testing.T) {
	if got := Objective(Metrics{Status: dynamo.StatusSuccess, MaxZ: 0.02}); got != 0.02 {
		t.Errorf("success objective = %g", got)
	}
	if got := Objective(Metrics{Status: dynamo.StatusVDE, MaxZ: 1.1}); got != 1.1+FailurePenalty {
		t.Errorf("vde objective = %g", got)
	}
}
