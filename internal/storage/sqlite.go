package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/vdesim/internal/sim"
)

// SQLiteStore keeps runs in a single SQLite database. Metadata is stored as
// JSON and history as CSV so non-finite samples survive the round trip.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("storage: sqlite path is required")
	}
	if s.db != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, meta RunMetadata, history sim.History) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if meta.ID == "" {
		return errors.New("storage: run id is required")
	}

	metaPayload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("storage: encode metadata %s: %w", meta.ID, err)
	}
	var histPayload bytes.Buffer
	if err := WriteHistoryCSV(&histPayload, history); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, controller, status, metadata, history)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			controller = excluded.controller,
			status = excluded.status,
			metadata = excluded.metadata,
			history = excluded.history
	`, meta.ID,
		meta.Metrics.Timestamp.UTC().Format(time.RFC3339Nano),
		meta.Metrics.Controller.String(),
		meta.Metrics.Status.String(),
		metaPayload,
		histPayload.Bytes(),
	)
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]RunMetadata, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, metadata FROM runs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var meta RunMetadata
		if err := json.Unmarshal(payload, &meta); err != nil {
			return nil, fmt.Errorf("storage: decode metadata %s: %w", id, err)
		}
		runs = append(runs, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortRuns(runs)
	return runs, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (RunMetadata, error) {
	payload, err := s.column(ctx, "metadata", id)
	if err != nil {
		return RunMetadata{}, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return RunMetadata{}, fmt.Errorf("storage: decode metadata %s: %w", id, err)
	}
	return meta, nil
}

func (s *SQLiteStore) LoadHistory(ctx context.Context, id string) (sim.History, error) {
	payload, err := s.column(ctx, "history", id)
	if err != nil {
		return sim.History{}, err
	}
	return ReadHistoryCSV(bytes.NewReader(payload))
}

// column reads one payload column; name is never user input.
func (s *SQLiteStore) column(ctx context.Context, name, id string) ([]byte, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT `+name+` FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	return payload, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("storage: store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			controller TEXT NOT NULL,
			status TEXT NOT NULL,
			metadata BLOB NOT NULL,
			history BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
	`)
	return err
}
