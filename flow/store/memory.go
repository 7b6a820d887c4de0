package store

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory implementation of Store[S] and Cache[S].
//
// Designed for testing, development, and single-process deployments where
// persistence across restarts is not required. Thread-safe.
//
// For durable storage use SQLiteStore or MySQLStore.
type MemStore[S any] struct {
	mu      sync.RWMutex
	steps   map[string][]StepRecord[S]
	cache   map[string]cacheEntry[S]
	nowFunc func() time.Time
}

type cacheEntry[S any] struct {
	state   S
	expires time.Time // zero means no expiry
}

// NewMemStore creates a new in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		steps:   make(map[string][]StepRecord[S]),
		cache:   make(map[string]cacheEntry[S]),
		nowFunc: time.Now,
	}
}

// SaveStep appends a step record to the run's history.
func (m *MemStore[S]) SaveStep(_ context.Context, runID string, step int, stage string, state S) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps[runID] = append(m.steps[runID], StepRecord[S]{Step: step, Stage: stage, State: state})
	return nil
}

// LoadLatest returns the record with the highest step number for the run.
func (m *MemStore[S]) LoadLatest(_ context.Context, runID string) (state S, step int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.steps[runID]
	if !ok || len(records) == 0 {
		var zero S
		return zero, 0, ErrNotFound
	}

	latest := records[0]
	for _, r := range records[1:] {
		if r.Step > latest.Step {
			latest = r
		}
	}
	return latest.State, latest.Step, nil
}

// Get retrieves a cached state, honoring expiry.
func (m *MemStore[S]) Get(_ context.Context, key string) (S, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.cache[key]
	if !ok {
		var zero S
		return zero, false, nil
	}
	if !entry.expires.IsZero() && m.nowFunc().After(entry.expires) {
		var zero S
		return zero, false, nil
	}
	return entry.state, true, nil
}

// Set stores a state under key. Last write wins.
func (m *MemStore[S]) Set(_ context.Context, key string, state S, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := cacheEntry[S]{state: state}
	if ttl > 0 {
		entry.expires = m.nowFunc().Add(ttl)
	}
	m.cache[key] = entry
	return nil
}

// StepCount returns the number of persisted steps for a run.
func (m *MemStore[S]) StepCount(runID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.steps[runID])
}
