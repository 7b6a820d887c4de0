package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S] and Cache[S].
//
// It keeps workflow steps and the per-caller state cache in a single-file
// database. Designed for development and single-process deployments with
// zero setup; use MySQLStore when multiple processes share state.
//
// WAL mode is enabled so readers do not block the writer.
//
// Schema:
//   - workflow_steps: step-by-step execution history
//   - state_cache: TTL-bounded per-caller state snapshots
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store at path.
// Use ":memory:" for an in-memory database in tests.
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports a single writer; keep one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure SQLite: %w", err)
		}
	}

	s := &SQLiteStore[S]{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS workflow_steps (
	run_id     TEXT NOT NULL,
	step       INTEGER NOT NULL,
	stage      TEXT NOT NULL,
	state      TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (run_id, step)
);
CREATE TABLE IF NOT EXISTS state_cache (
	cache_key  TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	expires_at INTEGER
);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveStep persists one stage's state as JSON.
func (s *SQLiteStore[S]) SaveStep(ctx context.Context, runID string, step int, stage string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO workflow_steps (run_id, step, stage, state) VALUES (?, ?, ?, ?)`,
		runID, step, stage, string(data))
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// LoadLatest returns the highest-numbered step for a run.
func (s *SQLiteStore[S]) LoadLatest(ctx context.Context, runID string) (state S, step int, err error) {
	var zero S
	var data string

	row := s.db.QueryRowContext(ctx,
		`SELECT step, state FROM workflow_steps WHERE run_id = ? ORDER BY step DESC LIMIT 1`, runID)
	if err := row.Scan(&step, &data); err != nil {
		if err == sql.ErrNoRows {
			return zero, 0, ErrNotFound
		}
		return zero, 0, fmt.Errorf("failed to load latest step: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return zero, 0, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, step, nil
}

// Get retrieves a cached state, honoring expiry. Expired rows are treated
// as absent; they are lazily overwritten by the next Set.
func (s *SQLiteStore[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var zero S
	var data string
	var expires sql.NullInt64

	row := s.db.QueryRowContext(ctx,
		`SELECT state, expires_at FROM state_cache WHERE cache_key = ?`, key)
	if err := row.Scan(&data, &expires); err != nil {
		if err == sql.ErrNoRows {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("failed to read cache: %w", err)
	}

	if expires.Valid && time.Now().Unix() > expires.Int64 {
		return zero, false, nil
	}

	var state S
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cached state: %w", err)
	}
	return state, true, nil
}

// Set stores a state under key with TTL. Last write wins.
func (s *SQLiteStore[S]) Set(ctx context.Context, key string, state S, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	var expires interface{}
	if ttl > 0 {
		expires = time.Now().Add(ttl).Unix()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO state_cache (cache_key, state, expires_at) VALUES (?, ?, ?)`,
		key, string(data), expires)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore[S]) Close() error {
	return s.db.Close()
}
