package storage

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/control"
	"github.com/san-kum/vdesim/internal/dynamo"
	"github.com/san-kum/vdesim/internal/sim"
)

func sampleResult(trace string, ts time.Time, status dynamo.Status) *sim.Result {
	return &sim.Result{
		Metrics: sim.Metrics{
			Timestamp:     ts,
			TraceID:       trace,
			Controller:    control.KindNMPC,
			Status:        status,
			Seed:          7,
			Duration:      0.003,
			Steps:         3,
			ComputeMillis: 1.25,
			MaxZ:          0.0213,
			MeanU:         0.4,
			FinalState:    dynamo.StateVector{Z: 0.01, VZ: -0.2, Ip: 1, R: 0.01},
		},
		History: sim.History{
			Time: []float64{0.001, 0.002, 0.003},
			Z:    []float64{0.0201, 0.0213, 1.0 / 3.0},
			U:    []float64{-1, 0.25, 0},
		},
	}
}

func backends(t *testing.T) map[string]Store {
	dir := t.TempDir()
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "runs")),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "db", "runs.db")),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatalf("Init: %v", err)
			}
			defer store.Close()

			res := sampleResult("1a2b3c4d", ts, dynamo.StatusSuccess)
			meta := NewRunMetadata("default", config.DefaultPhysical(), res)
			if meta.ID != "nmpc_1a2b3c4d" {
				t.Fatalf("ID = %q", meta.ID)
			}
			if err := store.Save(ctx, meta, res.History); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := store.Load(ctx, meta.ID)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(meta, got); diff != "" {
				t.Errorf("metadata mismatch (-want +got):\n%s", diff)
			}

			hist, err := store.LoadHistory(ctx, meta.ID)
			if err != nil {
				t.Fatalf("LoadHistory: %v", err)
			}
			if diff := cmp.Diff(res.History, hist); diff != "" {
				t.Errorf("history mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreListOrdersByTimestamp(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			empty, err := store.List(ctx)
			if err != nil || len(empty) != 0 {
				t.Fatalf("List on empty store = %v, %v", empty, err)
			}

			for i, trace := range []string{"cccc0000", "aaaa0000", "bbbb0000"} {
				ts := base.Add(time.Duration(2-i) * time.Minute)
				res := sampleResult(trace, ts, dynamo.StatusVDE)
				if err := store.Save(ctx, NewRunMetadata("", config.DefaultPhysical(), res), res.History); err != nil {
					t.Fatal(err)
				}
			}

			runs, err := store.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			want := []string{"nmpc_bbbb0000", "nmpc_aaaa0000", "nmpc_cccc0000"}
			if diff := cmp.Diff(want, ids); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			res := sampleResult("deadbeef", ts, dynamo.StatusSuccess)
			meta := NewRunMetadata("", config.DefaultPhysical(), res)
			if err := store.Save(ctx, meta, res.History); err != nil {
				t.Fatal(err)
			}
			meta.Metrics.Status = dynamo.StatusCQ
			if err := store.Save(ctx, meta, res.History); err != nil {
				t.Fatal(err)
			}

			runs, err := store.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != 1 || runs[0].Metrics.Status != dynamo.StatusCQ {
				t.Errorf("runs after overwrite = %+v", runs)
			}
		})
	}
}

func TestStoreMissingRun(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			if _, err := store.Load(ctx, "lqr_00000000"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("Load error = %v, want ErrRunNotFound", err)
			}
			if _, err := store.LoadHistory(ctx, "lqr_00000000"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("LoadHistory error = %v, want ErrRunNotFound", err)
			}
		})
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if _, err := s.List(context.Background()); err == nil {
		t.Error("List before Init succeeded")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close before Init: %v", err)
	}
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	if s, err := NewStore(config.StorageConfig{Backend: "file", Dir: dir}); err != nil {
		t.Error(err)
	} else if _, ok := s.(*FileStore); !ok {
		t.Errorf("file backend = %T", s)
	}
	if s, err := NewStore(config.StorageConfig{Backend: "sqlite", Dir: dir}); err != nil {
		t.Error(err)
	} else if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("sqlite backend = %T", s)
	}
	if _, err := NewStore(config.StorageConfig{Backend: "redis"}); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestHistoryCSVNonFinite(t *testing.T) {
	h := sim.History{
		Time: []float64{0.001, 0.002},
		Z:    []float64{0.5, math.NaN()},
		U:    []float64{1, 0},
	}
	var buf bytes.Buffer
	if err := WriteHistoryCSV(&buf, h); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("time,z,u_z\n")) {
		t.Errorf("header = %q", buf.String())
	}

	got, err := ReadHistoryCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(h, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestReadHistoryCSVErrors(t *testing.T) {
	tests := map[string]string{
		"empty":     "",
		"bad float": "time,z,u_z\n0.001,abc,0\n",
		"short row": "time,z,u_z\n0.001,0\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadHistoryCSV(bytes.NewBufferString(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
