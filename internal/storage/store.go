package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/sim"
)

var ErrRunNotFound = errors.New("storage: run not found")

// RunMetadata is everything about a stored run except its history.
type RunMetadata struct {
	ID      string                `json:"id"`
	Preset  string                `json:"preset,omitempty"`
	Physics config.PhysicalConfig `json:"physics"`
	Metrics sim.Metrics           `json:"metrics"`
}

func NewRunMetadata(preset string, phys config.PhysicalConfig, res *sim.Result) RunMetadata {
	return RunMetadata{
		ID:      res.Metrics.RunID(),
		Preset:  preset,
		Physics: phys,
		Metrics: res.Metrics,
	}
}

// Store persists finished runs.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, meta RunMetadata, history sim.History) error
	// List returns all runs, oldest first.
	List(ctx context.Context) ([]RunMetadata, error)
	Load(ctx context.Context, id string) (RunMetadata, error)
	LoadHistory(ctx context.Context, id string) (sim.History, error)
	Close() error
}

// NewStore builds the backend named in cfg. The SQLite database lives in
// cfg.Dir as runs.db.
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir), nil
	case "sqlite":
		return NewSQLiteStore(filepath.Join(cfg.Dir, "runs.db")), nil
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q (want file or sqlite)", cfg.Backend)
	}
}

func sortRuns(runs []RunMetadata) {
	sort.SliceStable(runs, func(i, j int) bool {
		ti, tj := runs[i].Metrics.Timestamp, runs[j].Metrics.Timestamp
		if ti.Equal(tj) {
			return runs[i].ID < runs[j].ID
		}
		return ti.Before(tj)
	})
}
