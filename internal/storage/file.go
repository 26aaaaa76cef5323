package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/vdesim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	historyFile  = "history.csv"
)

// FileStore keeps one directory per run holding metadata.json and
// history.csv.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Init(ctx context.Context) error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Save(ctx context.Context, meta RunMetadata, history sim.History) error {
	if meta.ID == "" {
		return errors.New("storage: run id is required")
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("storage: encode metadata %s: %w", meta.ID, err)
	}

	csvFile, err := os.Create(filepath.Join(runDir, historyFile))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	return WriteHistoryCSV(csvFile, history)
}

func (s *FileStore) List(ctx context.Context) ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(ctx, entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *FileStore) Load(ctx context.Context, runID string) (RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return RunMetadata{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return RunMetadata{}, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return RunMetadata{}, fmt.Errorf("storage: decode metadata %s: %w", runID, err)
	}
	return meta, nil
}

func (s *FileStore) LoadHistory(ctx context.Context, runID string) (sim.History, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, historyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return sim.History{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return sim.History{}, err
	}
	defer file.Close()

	return ReadHistoryCSV(file)
}
