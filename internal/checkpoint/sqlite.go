// Package checkpoint persists named tensors, such as optimizer state dicts,
// in a SQLite database.
package checkpoint

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/born-ml/rmsprop/internal/tensor"
)

// ErrNotFound is returned by Load when a run has no checkpoint.
var ErrNotFound = errors.New("checkpoint not found")

// SQLiteStore keeps the latest checkpoint of each run.
//
// Saving a run replaces its previous checkpoint in a single transaction.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a store backed by the database file at path.
// Call Init before use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the schema. Calling it again is a no-op.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("checkpoint: sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrap(err, "checkpoint: open")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "checkpoint: ping")
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "checkpoint: create tables")
	}

	s.db = db
	return nil
}

// Save stores tensors as the checkpoint of runID at step, replacing any
// previous one. The tensors stay owned by the caller.
func (s *SQLiteStore) Save(ctx context.Context, runID string, step int, tensors map[string]*tensor.RawTensor) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		rec, err := EncodeTensor(name, tensors[name])
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "checkpoint: begin")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, step, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			step = excluded.step,
			saved_at = excluded.saved_at
	`, runID, step, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrapf(err, "checkpoint: save run %s", runID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tensors WHERE run_id = ?`, runID); err != nil {
		return errors.Wrapf(err, "checkpoint: clear run %s", runID)
	}

	for _, rec := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tensors (run_id, name, dtype, shape, checksum, payload)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, rec.Name, rec.DType, rec.Shape, rec.Checksum, rec.Payload)
		if err != nil {
			return errors.Wrapf(err, "checkpoint: save tensor %s", rec.Name)
		}
	}

	return errors.Wrap(tx.Commit(), "checkpoint: commit")
}

// Load returns the step and tensors of the latest checkpoint of runID,
// allocated with alloc. The caller owns the returned tensors.
func (s *SQLiteStore) Load(ctx context.Context, runID string, alloc tensor.Allocator) (int, map[string]*tensor.RawTensor, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, nil, err
	}

	var step int
	err = db.QueryRowContext(ctx, `SELECT step FROM runs WHERE run_id = ?`, runID).Scan(&step)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, errors.Wrapf(ErrNotFound, "run %s", runID)
		}
		return 0, nil, errors.Wrapf(err, "checkpoint: load run %s", runID)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT name, dtype, shape, checksum, payload
		FROM tensors WHERE run_id = ? ORDER BY name
	`, runID)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "checkpoint: load tensors of %s", runID)
	}
	defer rows.Close()

	tensors := make(map[string]*tensor.RawTensor)
	fail := func(err error) (int, map[string]*tensor.RawTensor, error) {
		for _, t := range tensors {
			t.Release()
		}
		return 0, nil, err
	}

	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.DType, &rec.Shape, &rec.Checksum, &rec.Payload); err != nil {
			return fail(errors.Wrap(err, "checkpoint: scan tensor"))
		}
		t, err := DecodeTensor(alloc, rec)
		if err != nil {
			return fail(errors.Wrapf(err, "checkpoint: run %s", runID))
		}
		tensors[rec.Name] = t
	}
	if err := rows.Err(); err != nil {
		return fail(errors.Wrap(err, "checkpoint: read tensors"))
	}
	return step, tensors, nil
}

// Runs lists the run ids that have a checkpoint.
func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY run_id`)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: list runs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "checkpoint: scan run")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "checkpoint: list runs")
}

// Close closes the database. It is safe to call on an uninitialized store.
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
		return nil, errors.New("checkpoint: store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			step INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS tensors (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			name TEXT NOT NULL,
			dtype TEXT NOT NULL,
			shape TEXT NOT NULL,
			checksum BLOB NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, name)
		);
	`)
	return err
}
