package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL implementation of Store[S] and Cache[S] for
// deployments where multiple processes share workflow state.
//
// The DSN must include parseTime=true, e.g.:
//
//	user:pass@tcp(localhost:3306)/scanflow?parseTime=true
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQLStore[S any] struct {
	db *sql.DB
}

// NewMySQLStore connects to MySQL and creates the required tables.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore[S]{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore[S]) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workflow_steps (
			run_id     VARCHAR(191) NOT NULL,
			step       INT NOT NULL,
			stage      VARCHAR(191) NOT NULL,
			state      JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, step)
		)`,
		`CREATE TABLE IF NOT EXISTS state_cache (
			cache_key  VARCHAR(191) PRIMARY KEY,
			state      JSON NOT NULL,
			expires_at BIGINT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveStep persists one stage's state as JSON.
func (s *MySQLStore[S]) SaveStep(ctx context.Context, runID string, step int, stage string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflow_steps (run_id, step, stage, state) VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE stage = VALUES(stage), state = VALUES(state)`,
		runID, step, stage, string(data))
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// LoadLatest returns the highest-numbered step for a run.
func (s *MySQLStore[S]) LoadLatest(ctx context.Context, runID string) (state S, step int, err error) {
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

// Get retrieves a cached state, honoring expiry.
func (s *MySQLStore[S]) Get(ctx context.Context, key string) (S, bool, error) {
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
func (s *MySQLStore[S]) Set(ctx context.Context, key string, state S, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	var expires interface{}
	if ttl > 0 {
		expires = time.Now().Add(ttl).Unix()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO state_cache (cache_key, state, expires_at) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE state = VALUES(state), expires_at = VALUES(expires_at)`,
		key, string(data), expires)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *MySQLStore[S]) Close() error {
	return s.db.Close()
}
