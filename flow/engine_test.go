package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/scanflow-go/flow/emit"
	"github.com/dshills/scanflow-go/flow/model"
	"github.com/dshills/scanflow-go/flow/store"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []emit.Event
}

func (c *captureEmitter) Emit(event emit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureEmitter) byMsg(msg string) []emit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []emit.Event
	for _, e := range c.events {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func TestEngine_Registration(t *testing.T) {
	eng := New(Merge, store.NewMemStore[State](), nil, Options{})
	node := NodeFunc(func(ctx context.Context, s State) NodeResult {
		return NodeResult{Route: Stop()}
	})

	t.Run("rejects empty role", func(t *testing.T) {
		err := eng.Add("", node)
		if code := configErrCode(t, err); code != "EMPTY_ROLE" {
			t.Errorf("expected EMPTY_ROLE, got %s", code)
		}
	})

	t.Run("rejects the terminal sentinel", func(t *testing.T) {
		err := eng.Add(End, node)
		if code := configErrCode(t, err); code != "RESERVED_ROLE" {
			t.Errorf("expected RESERVED_ROLE, got %s", code)
		}
	})

	t.Run("rejects nil node", func(t *testing.T) {
		err := eng.Add("a", nil)
		if code := configErrCode(t, err); code != "NIL_NODE" {
			t.Errorf("expected NIL_NODE, got %s", code)
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		if err := eng.Add("a", node); err != nil {
			t.Fatalf("first add failed: %v", err)
		}
		err := eng.Add("a", node)
		if code := configErrCode(t, err); code != "DUPLICATE_ROLE" {
			t.Errorf("expected DUPLICATE_ROLE, got %s", code)
		}
	})

	t.Run("entry must be registered", func(t *testing.T) {
		err := eng.StartAt("nonexistent")
		if code := configErrCode(t, err); code != "UNKNOWN_ROLE" {
			t.Errorf("expected UNKNOWN_ROLE, got %s", code)
		}
	})

	t.Run("run requires an entry role", func(t *testing.T) {
		fresh := New(Merge, store.NewMemStore[State](), nil, Options{})
		_, err := fresh.Run(context.Background(), "run-x", State{})
		if code := configErrCode(t, err); code != "NO_ENTRY_ROLE" {
			t.Errorf("expected NO_ENTRY_ROLE, got %s", code)
		}
	})
}

func TestEngine_LinearRun(t *testing.T) {
	reg, err := NewRegistry(DefaultRoles())
	if err != nil {
		t.Fatalf("registry build failed: %v", err)
	}

	t.Run("five stage chain produces five entries", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "ok"}}}
		st := store.NewMemStore[State]()
		emitter := &captureEmitter{}

		eng, err := BuildLinear(reg, mock, st, emitter, Options{MaxSteps: 20})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}

		final, err := eng.Run(context.Background(), "run-linear", State{Task: "decide"})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(final.History) != 5 {
			t.Fatalf("expected 5 history entries, got %d", len(final.History))
		}
		wantOrder := []Role{RoleExecutive, RoleEmotional, RoleReward, RoleConflict, RoleSocial}
		for i, want := range wantOrder {
			if final.History[i].Role != want {
				t.Errorf("entry %d: expected role %q, got %q", i, want, final.History[i].Role)
			}
		}

		if st.StepCount("run-linear") != 5 {
			t.Errorf("expected 5 persisted steps, got %d", st.StepCount("run-linear"))
		}
		if len(emitter.byMsg("stage_end")) != 5 {
			t.Errorf("expected 5 stage_end events, got %d", len(emitter.byMsg("stage_end")))
		}
		if len(emitter.byMsg("run_complete")) != 1 {
			t.Errorf("expected 1 run_complete event")
		}
	})

	t.Run("stage failure degrades and later stages still run", func(t *testing.T) {
		// Stage 1 uses calls 1-2; the third call is stage 2's completion.
		mock := &model.MockChatModel{
			Responses: []model.ChatOut{{Text: "ok"}},
			Err:       errors.New("boom"),
			ErrOnCall: 3,
		}
		st := store.NewMemStore[State]()

		eng, err := BuildLinear(reg, mock, st, nil, Options{MaxSteps: 20})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}

		final, err := eng.Run(context.Background(), "run-degraded", State{Task: "decide"})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(final.History) != 5 {
			t.Fatalf("expected 5 history entries, got %d", len(final.History))
		}
		if !strings.Contains(final.History[1].Text, "Error in LLM response for emotional") {
			t.Errorf("stage 2 entry not degraded: %q", final.History[1].Text)
		}
		for i := 2; i < 5; i++ {
			if strings.Contains(final.History[i].Text, "Error in") {
				t.Errorf("stage %d unexpectedly degraded: %q", i+1, final.History[i].Text)
			}
		}
	})
}

func TestEngine_HubRun(t *testing.T) {
	reg := testRegistry(t, "CENTRAL", "A", "B")
	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "ok"}}}
	st := store.NewMemStore[State]()

	eng, err := BuildHub(reg, "CENTRAL", mock, st, nil, Options{MaxSteps: 20})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	final, err := eng.Run(context.Background(), "run-hub", State{Task: "decide"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	wantOrder := []Role{"CENTRAL", "A", "CENTRAL", "B", "CENTRAL"}
	if len(final.History) != len(wantOrder) {
		t.Fatalf("expected %d history entries, got %d", len(wantOrder), len(final.History))
	}
	for i, want := range wantOrder {
		if final.History[i].Role != want {
			t.Errorf("entry %d: expected role %q, got %q", i, want, final.History[i].Role)
		}
	}

	t.Run("unknown hub role rejected", func(t *testing.T) {
		_, err := BuildHub(reg, "nonexistent", mock, st, nil, Options{})
		if code := configErrCode(t, err); code != "UNKNOWN_ROLE" {
			t.Errorf("expected UNKNOWN_ROLE, got %s", code)
		}
	})
}

func TestEngine_HubPartialDispatch(t *testing.T) {
	// Four spokes registered, but the hub only consults A and B before
	// ending. The unvisited spokes never run and have no report section.
	reg := testRegistry(t, "CENTRAL", "A", "B", "C", "D")
	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "ok"}}}
	st := store.NewMemStore[State]()

	router, err := NewHubRouter("CENTRAL", "A", "B", "C", "D")
	if err != nil {
		t.Fatalf("router build failed: %v", err)
	}

	eng := New(Merge, st, nil, Options{MaxSteps: 20, Router: router})
	for _, role := range reg.Roles() {
		cfg, _ := reg.Config(role)
		var selector NextSelector
		if role == Role("CENTRAL") {
			selector = DispatchSequence("A", "B")
		}
		w, err := NewWorker(cfg, mock, router, selector)
		if err != nil {
			t.Fatalf("worker build failed: %v", err)
		}
		if err := eng.AddWorker(w); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if err := eng.StartAt("CENTRAL"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	final, err := eng.Run(context.Background(), "run-hub-partial", State{Task: "decide"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(final.History) != 5 {
		t.Fatalf("expected 5 history entries, got %d", len(final.History))
	}

	report := AssembleReport(final)
	for _, role := range []Role{"CENTRAL", "A", "B"} {
		if _, ok := report.Section(role); !ok {
			t.Errorf("expected a section for %q", role)
		}
	}
	for _, role := range []Role{"C", "D"} {
		if _, ok := report.Section(role); ok {
			t.Errorf("unvisited spoke %q must have no section", role)
		}
	}
}

func TestEngine_StageTimeout(t *testing.T) {
	router, err := NewLinearRouter("a", "b", "c")
	if err != nil {
		t.Fatalf("router build failed: %v", err)
	}
	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "ok"}}}
	cfgFor := func(role Role) RoleConfig {
		return RoleConfig{Role: role, Analyzers: []AnalyzerID{AnalyzerGeneral}}
	}

	st := store.NewMemStore[State]()
	emitter := &captureEmitter{}
	eng := New(Merge, st, emitter, Options{
		StageTimeout: 30 * time.Millisecond,
		MaxSteps:     10,
		Router:       router,
	})

	wa, _ := NewWorker(cfgFor("a"), mock, router, nil)
	wc, _ := NewWorker(cfgFor("c"), mock, router, nil)
	if err := eng.AddWorker(wa); err != nil {
		t.Fatalf("add a: %v", err)
	}
	// Stage b hangs well past its deadline and ignores cancellation.
	hung := NodeFunc(func(ctx context.Context, s State) NodeResult {
		time.Sleep(500 * time.Millisecond)
		return NodeResult{Route: Stop()}
	})
	if err := eng.Add("b", hung); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := eng.AddWorker(wc); err != nil {
		t.Fatalf("add c: %v", err)
	}
	if err := eng.StartAt("a"); err != nil {
		t.Fatalf("start: %v", err)
	}

	final, err := eng.Run(context.Background(), "run-timeout", State{Task: "decide"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(final.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(final.History))
	}
	if !strings.Contains(final.History[1].Text, "Error in LLM response for b") {
		t.Errorf("timed-out stage not degraded: %q", final.History[1].Text)
	}
	if final.History[2].Role != "c" {
		t.Errorf("stage after timeout did not run: %+v", final.History[2])
	}
	if len(emitter.byMsg("stage_degraded")) != 1 {
		t.Errorf("expected 1 stage_degraded event, got %d", len(emitter.byMsg("stage_degraded")))
	}
}

func TestEngine_Limits(t *testing.T) {
	t.Run("context cancellation aborts the run", func(t *testing.T) {
		reg := testRegistry(t, "a", "b")
		mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "ok"}}}
		eng, err := BuildLinear(reg, mock, store.NewMemStore[State](), nil, Options{})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = eng.Run(ctx, "run-canceled", State{Task: "decide"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("max steps guards against loops", func(t *testing.T) {
		eng := New(Merge, store.NewMemStore[State](), nil, Options{MaxSteps: 3})
		// a and b ping-pong forever.
		eng.Add("a", NodeFunc(func(ctx context.Context, s State) NodeResult {
			return NodeResult{Route: Goto("b")}
		}))
		eng.Add("b", NodeFunc(func(ctx context.Context, s State) NodeResult {
			return NodeResult{Route: Goto("a")}
		}))
		eng.StartAt("a")

		_, err := eng.Run(context.Background(), "run-loop", State{})
		if code := configErrCode(t, err); code != "MAX_STEPS_EXCEEDED" {
			t.Errorf("expected MAX_STEPS_EXCEEDED, got %s", code)
		}
	})

	t.Run("node error aborts the run", func(t *testing.T) {
		eng := New(Merge, store.NewMemStore[State](), nil, Options{})
		boom := errors.New("unrecoverable")
		eng.Add("a", NodeFunc(func(ctx context.Context, s State) NodeResult {
			return NodeResult{Err: boom}
		}))
		eng.StartAt("a")

		_, err := eng.Run(context.Background(), "run-err", State{})
		if !errors.Is(err, boom) {
			t.Errorf("expected node error, got %v", err)
		}
	})

	t.Run("route to unregistered role ends the run", func(t *testing.T) {
		eng := New(Merge, store.NewMemStore[State](), nil, Options{})
		eng.Add("a", NodeFunc(func(ctx context.Context, s State) NodeResult {
			return NodeResult{
				Delta: State{History: []Entry{{Role: "a", Text: "done"}}},
				Route: Goto("ghost"),
			}
		}))
		eng.StartAt("a")

		final, err := eng.Run(context.Background(), "run-ghost", State{})
		if err != nil {
			t.Fatalf("expected clean termination, got %v", err)
		}
		if len(final.History) != 1 {
			t.Errorf("expected 1 history entry, got %d", len(final.History))
		}
	})
}
