// Package store provides persistence for workflow state.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run ID or cache key does not exist.
var ErrNotFound = errors.New("not found")

// Store persists per-stage workflow state during execution.
//
// Each step is identified by runID plus a sequential step number, enabling
// post-hoc inspection of a run and resumption from the latest state.
//
// Type parameter S is the state type to persist.
type Store[S any] interface {
	// SaveStep persists the state after one stage execution.
	SaveStep(ctx context.Context, runID string, step int, stage string, state S) error

	// LoadLatest retrieves the most recent state for a run. Returns
	// ErrNotFound if the run has no persisted steps.
	LoadLatest(ctx context.Context, runID string) (state S, step int, err error)
}

// Cache stores serialized workflow state by key with a TTL, so a caller can
// resume a conversation within the TTL window. Concurrent writers for the
// same key are not serialized: last write wins.
type Cache[S any] interface {
	// Get retrieves a cached state. The boolean is false when the key is
	// absent or its entry has expired.
	Get(ctx context.Context, key string) (S, bool, error)

	// Set stores the state under key for the given TTL. A non-positive TTL
	// stores the entry without expiry.
	Set(ctx context.Context, key string, state S, ttl time.Duration) error
}

// StepRecord represents a single execution step in a run's history. Used by
// Store implementations to track progression.
type StepRecord[S any] struct {
	// Step is the sequential step number (1-indexed).
	Step int

	// Stage identifies which role produced this state.
	Stage string

	// State is the workflow state after this step completed.
	State S
}
