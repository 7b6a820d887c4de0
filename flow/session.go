package flow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/scanflow-go/flow/emit"
	"github.com/dshills/scanflow-go/flow/store"
)

// DefaultCacheTTL is how long a caller's state survives in the cache between
// runs when no TTL is configured.
const DefaultCacheTTL = 300 * time.Second

// CacheKey returns the cache key under which a caller's state is stored.
func CacheKey(callerID string) string {
	return callerID + "-agent-state"
}

// Session is the caller-facing entry point for triggering runs. It loads any
// cached state for the caller, seeds the run with the previous response and
// accumulated feedback, executes the pipeline, caches the final state, and
// assembles the report.
//
// The cache is best effort: lookup and write failures are logged through the
// emitter and never fail a run. Concurrent runs for the same caller are
// last-write-wins on the cached state.
type Session struct {
	engine  *Engine
	cache   store.Cache[State]
	emitter emit.Emitter
	metrics *Metrics
	ttl     time.Duration
}

// NewSession creates a Session over a built engine. The cache may be nil, in
// which case runs are stateless across invocations.
func NewSession(engine *Engine, cache store.Cache[State]) (*Session, error) {
	if engine == nil {
		return nil, &ConfigError{Message: "session requires an engine", Code: "MISSING_ENGINE"}
	}
	return &Session{engine: engine, cache: cache, ttl: DefaultCacheTTL}, nil
}

// SetTTL overrides the cache entry lifetime. Non-positive values restore the
// default.
func (s *Session) SetTTL(d time.Duration) {
	if d <= 0 {
		d = DefaultCacheTTL
	}
	s.ttl = d
}

// SetEmitter attaches an emitter for cache diagnostics.
func (s *Session) SetEmitter(e emit.Emitter) {
	s.emitter = e
}

// SetMetrics attaches a metrics collector for cache hit/miss counts.
func (s *Session) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Run triggers one pipeline run for the caller and returns the assembled
// report.
//
// callerID scopes the cached state; successive runs with the same callerID
// continue the conversation. feedback, when non-empty, is injected into the
// run and appended to the feedback history carried across runs.
//
// Errors: configuration faults surface as *ConfigError, context cancellation
// as the context error, and any other engine failure as bare ErrRunFailed.
// The underlying failure detail goes to the emitter, never to the caller.
func (s *Session) Run(ctx context.Context, callerID, task, feedback string) (Report, error) {
	initial := State{Task: task}

	key := CacheKey(callerID)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.emitCache("cache_error", key, err)
			s.countCache("miss")
		case ok:
			initial.PreviousResponse = cached.Response
			initial.FeedbackHistory = append(initial.FeedbackHistory, cached.FeedbackHistory...)
			s.countCache("hit")
		default:
			s.countCache("miss")
		}
	}

	if feedback != "" {
		initial.Feedback = feedback
		initial.FeedbackHistory = append(initial.FeedbackHistory, feedback)
	}

	runID := uuid.NewString()
	final, err := s.engine.Run(ctx, runID, initial)
	if err != nil {
		if IsConfigError(err) {
			return Report{}, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Report{}, err
		}
		if s.emitter != nil {
			s.emitter.Emit(emit.Event{
				RunID: runID,
				Msg:   "run_failed",
				Meta:  map[string]interface{}{"error": err.Error()},
			})
		}
		return Report{}, ErrRunFailed
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, final, s.ttl); err != nil {
			s.emitCache("cache_write_failed", key, err)
		}
	}

	return AssembleReport(final), nil
}

func (s *Session) emitCache(msg, key string, err error) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(emit.Event{
		Msg: msg,
		Meta: map[string]interface{}{
			"cache_key": key,
			"error":     err.Error(),
		},
	})
}

func (s *Session) countCache(result string) {
	if s.metrics != nil {
		s.metrics.IncCacheOp(result)
	}
}
