package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/scanflow-go/flow/emit"
	"github.com/dshills/scanflow-go/flow/store"
)

// DefaultStageTimeout bounds a single stage when Options.StageTimeout is
// unset.
const DefaultStageTimeout = 30 * time.Second

// Reducer merges a stage's partial delta into the prior state. Merge is the
// canonical reducer for pipeline runs.
type Reducer func(prev, delta State) State

// Options configures Engine execution behavior.
//
// Zero values are valid; StageTimeout falls back to DefaultStageTimeout.
type Options struct {
	// StageTimeout bounds each stage independently. A stage that exceeds
	// it is recorded as degraded and the run continues with the next role.
	StageTimeout time.Duration

	// MaxSteps limits the number of stages per run as a loop guard.
	// 0 disables the limit.
	MaxSteps int

	// Router supplies fallback routing when a stage times out and cannot
	// route itself. Nil means a timed-out stage ends the run (its degraded
	// entry is still recorded).
	Router Router
}

// Engine drives a single-threaded workflow run: it executes registered role
// nodes one at a time, merges their deltas via the reducer, persists state
// after every stage, and follows each node's routing decision until a
// terminal route or the End sentinel.
//
// One Engine serves many concurrent runs; per-run state lives entirely in
// Run's locals, so runs never share mutable data.
//
// Example:
//
//	eng := New(Merge, store.NewMemStore[State](), emit.NewLogEmitter(nil, false), Options{})
//	eng.Add(RoleExecutive, execWorker)
//	eng.StartAt(RoleExecutive)
//	final, err := eng.Run(ctx, "run-001", State{Task: "should we ship?"})
type Engine struct {
	mu sync.RWMutex

	reducer Reducer
	nodes   map[Role]Node
	entry   Role
	store   store.Store[State]
	emitter emit.Emitter
	metrics *Metrics
	opts    Options
}

// New creates an Engine. The emitter may be nil; the reducer and store are
// required by Run. Validation is deferred to Run so construction order stays
// flexible.
func New(reducer Reducer, st store.Store[State], emitter emit.Emitter, opts Options) *Engine {
	return &Engine{
		reducer: reducer,
		nodes:   make(map[Role]Node),
		store:   st,
		emitter: emitter,
		opts:    opts,
	}
}

// SetMetrics attaches a Prometheus collector. Nil disables recording.
func (e *Engine) SetMetrics(m *Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// Add registers a node under a role id. Role ids must be unique and may not
// be empty or the End sentinel.
func (e *Engine) Add(role Role, node Node) error {
	if role == "" {
		return &ConfigError{Message: "role id cannot be empty", Code: "EMPTY_ROLE"}
	}
	if role == End {
		return &ConfigError{Message: "role id is reserved: " + string(End), Code: "RESERVED_ROLE"}
	}
	if node == nil {
		return &ConfigError{Message: "node cannot be nil for role " + string(role), Code: "NIL_NODE"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[role]; exists {
		return &ConfigError{Message: "duplicate role: " + string(role), Code: "DUPLICATE_ROLE"}
	}
	e.nodes[role] = node
	return nil
}

// AddWorker registers a worker under its own role id.
func (e *Engine) AddWorker(w *Worker) error {
	if w == nil {
		return &ConfigError{Message: "worker cannot be nil", Code: "NIL_NODE"}
	}
	return e.Add(w.Role(), w)
}

// StartAt sets the entry role for Run. The role must already be registered.
func (e *Engine) StartAt(role Role) error {
	if role == "" {
		return &ConfigError{Message: "entry role cannot be empty", Code: "EMPTY_ROLE"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[role]; !exists {
		return &ConfigError{Message: "entry role not registered: " + string(role), Code: "UNKNOWN_ROLE"}
	}
	e.entry = role
	return nil
}

// Run executes the workflow for one run from the entry role to termination
// and returns the final state.
//
// Each stage runs under its own timeout. A stage that exceeds it is recorded
// as a degraded history entry and the run proceeds to the next role via the
// fallback router, so one slow stage never blocks the stages after it.
// Cancellation of ctx aborts the whole run with ctx.Err().
//
// Fail-safe termination: a route to End, to an unregistered role, or back to
// the current role ends the run normally with the state accumulated so far.
func (e *Engine) Run(ctx context.Context, runID string, initial State) (State, error) {
	var zero State

	if e.reducer == nil {
		return zero, &ConfigError{Message: "reducer is required", Code: "MISSING_REDUCER"}
	}
	if e.store == nil {
		return zero, &ConfigError{Message: "store is required", Code: "MISSING_STORE"}
	}

	e.mu.RLock()
	entry := e.entry
	e.mu.RUnlock()

	if entry == "" {
		return zero, &ConfigError{Message: "entry role not set (call StartAt before Run)", Code: "NO_ENTRY_ROLE"}
	}

	state := initial
	current := entry
	step := 0
	runStart := time.Now()

	for {
		step++

		if e.opts.MaxSteps > 0 && step > e.opts.MaxSteps {
			e.emitRun(runID, step, "run_failed", map[string]interface{}{"error": "max steps exceeded"})
			e.countRun("error")
			return zero, &ConfigError{Message: "run exceeded MaxSteps limit", Code: "MAX_STEPS_EXCEEDED"}
		}

		select {
		case <-ctx.Done():
			e.countRun("canceled")
			return zero, ctx.Err()
		default:
		}

		e.mu.RLock()
		node, exists := e.nodes[current]
		e.mu.RUnlock()

		if !exists {
			e.countRun("error")
			return zero, &ConfigError{Message: "role not registered: " + string(current), Code: "UNKNOWN_ROLE"}
		}

		stageStart := time.Now()
		result, err := e.runStage(ctx, current, node, state)
		if err != nil {
			e.countRun("canceled")
			return zero, err
		}
		if result.Err != nil {
			e.emitRun(runID, step, "run_failed", map[string]interface{}{"error": result.Err.Error()})
			e.countRun("error")
			return zero, result.Err
		}

		state = e.reducer(state, result.Delta)

		if err := e.store.SaveStep(ctx, runID, step, string(current), state); err != nil {
			e.countRun("error")
			return zero, fmt.Errorf("save step %d for run %s: %w", step, runID, err)
		}

		dur := time.Since(stageStart)
		status := "success"
		meta := map[string]interface{}{"duration_ms": dur.Milliseconds()}
		msg := "stage_end"
		if result.Degraded {
			status = "degraded"
			msg = "stage_degraded"
			meta["error"] = state.Response
			if e.metrics != nil {
				e.metrics.IncDegradedStage(string(current))
			}
		}
		if e.emitter != nil {
			e.emitter.Emit(emit.Event{
				RunID: runID,
				Step:  step,
				Stage: string(current),
				Msg:   msg,
				Meta:  meta,
			})
		}
		if e.metrics != nil {
			e.metrics.ObserveStageLatency(string(current), dur, status)
		}

		if result.Route.Terminal {
			break
		}
		next := result.Route.To
		if next == "" || next == End || next == current {
			break
		}
		e.mu.RLock()
		_, known := e.nodes[next]
		e.mu.RUnlock()
		if !known {
			// Unknown routes terminate rather than error so partial runs
			// still produce a usable report.
			break
		}
		current = next
	}

	e.emitRun(runID, step, "run_complete", map[string]interface{}{
		"duration_ms": time.Since(runStart).Milliseconds(),
	})
	e.countRun("success")
	return state, nil
}

// runStage executes one node under the stage timeout. Three outcomes:
// the node's own result, a synthesized degraded result on stage timeout,
// or ctx.Err() when the run-level context was canceled.
func (e *Engine) runStage(ctx context.Context, role Role, node Node, state State) (NodeResult, error) {
	timeout := e.opts.StageTimeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan NodeResult, 1)
	go func() {
		done <- node.Run(stageCtx, state)
	}()

	select {
	case result := <-done:
		return result, nil
	case <-stageCtx.Done():
		if ctx.Err() != nil {
			return NodeResult{}, ctx.Err()
		}
		// The node is hung past its deadline. Abandon it and synthesize
		// the same degraded entry a worker would have produced.
		return e.degradeStage(role, state), nil
	}
}

// degradeStage builds the result for a timed-out stage: an error-text history
// entry plus a route chosen by the fallback router, or End without one.
func (e *Engine) degradeStage(role Role, state State) NodeResult {
	text := fmt.Sprintf("Error in LLM response for %s: %v", role, context.DeadlineExceeded)
	delta := State{
		Response: text,
		History:  []Entry{{Role: role, Text: text}},
	}

	next := End
	if e.opts.Router != nil {
		next = e.opts.Router.Next(role, e.reducer(state, delta))
		if next == role {
			next = End
		}
	}
	delta.Stage = next
	return NodeResult{Delta: delta, Route: Goto(next), Degraded: true}
}

func (e *Engine) emitRun(runID string, step int, msg string, meta map[string]interface{}) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(emit.Event{RunID: runID, Step: step, Msg: msg, Meta: meta})
}

func (e *Engine) countRun(status string) {
	if e.metrics != nil {
		e.metrics.IncRun(status)
	}
}
