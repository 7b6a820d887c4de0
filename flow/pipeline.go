package flow

import (
	"github.com/dshills/scanflow-go/flow/emit"
	"github.com/dshills/scanflow-go/flow/model"
	"github.com/dshills/scanflow-go/flow/store"
)

// BuildLinear assembles an Engine wired as a linear chain over the registry's
// roles in declaration order: each role hands off to the next, and the last
// role terminates the run.
func BuildLinear(reg *Registry, chat model.ChatModel, st store.Store[State], emitter emit.Emitter, opts Options) (*Engine, error) {
	router, err := NewLinearRouter(reg.Roles()...)
	if err != nil {
		return nil, err
	}
	if err := router.Validate(reg); err != nil {
		return nil, err
	}

	opts.Router = router
	eng := New(Merge, st, emitter, opts)

	for _, role := range reg.Roles() {
		cfg, _ := reg.Config(role)
		w, err := NewWorker(cfg, chat, router, nil)
		if err != nil {
			return nil, err
		}
		if err := eng.AddWorker(w); err != nil {
			return nil, err
		}
	}

	if err := eng.StartAt(router.Entry()); err != nil {
		return nil, err
	}
	return eng, nil
}

// BuildHub assembles an Engine wired hub-and-spoke: the hub role runs first,
// dispatches each remaining registry role in declaration order, collects
// every spoke's result, and runs once more to integrate before terminating.
func BuildHub(reg *Registry, hub Role, chat model.ChatModel, st store.Store[State], emitter emit.Emitter, opts Options) (*Engine, error) {
	if !reg.Has(hub) {
		return nil, &ConfigError{Message: "hub references unknown role: " + string(hub), Code: "UNKNOWN_ROLE"}
	}

	spokes := make([]Role, 0, len(reg.Roles())-1)
	for _, role := range reg.Roles() {
		if role != hub {
			spokes = append(spokes, role)
		}
	}

	router, err := NewHubRouter(hub, spokes...)
	if err != nil {
		return nil, err
	}
	if err := router.Validate(reg); err != nil {
		return nil, err
	}

	opts.Router = router
	eng := New(Merge, st, emitter, opts)

	for _, role := range reg.Roles() {
		cfg, _ := reg.Config(role)
		var selector NextSelector
		if role == hub {
			selector = DispatchSequence(spokes...)
		}
		w, err := NewWorker(cfg, chat, router, selector)
		if err != nil {
			return nil, err
		}
		if err := eng.AddWorker(w); err != nil {
			return nil, err
		}
	}

	if err := eng.StartAt(hub); err != nil {
		return nil, err
	}
	return eng, nil
}
