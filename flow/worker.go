package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/scanflow-go/flow/model"
)

// NextSelector chooses the dispatch target for a role after its stage
// completes. It is consulted by hub workers before routing: the returned
// role is stored in the state's Stage field, which the hub router reads.
// Returning End (or any non-spoke value) ends the run.
//
// Selectors must be stateless with respect to individual runs; derive any
// progression from the state itself so concurrent runs stay isolated.
type NextSelector func(role Role, state State) Role

// DispatchSequence returns a NextSelector that walks the given roles in
// order, one per completed stage of the attached role, then stops. It is
// the default hub behavior: consult each spoke once, then integrate and end.
func DispatchSequence(seq ...Role) NextSelector {
	return func(role Role, state State) Role {
		runs := 0
		for _, e := range state.History {
			if e.Role == role {
				runs++
			}
		}
		// runs includes the stage that just completed.
		if runs < 1 || runs > len(seq) {
			return End
		}
		return seq[runs-1]
	}
}

// Worker executes one cognitive role: it builds a prompt from the
// accumulated history and current input, invokes the chat model, passes the
// raw output through the role's analyzer, and produces the next state delta.
//
// Transient failures never escape a Worker. LLM errors degrade to
// "Error in LLM response for <role>: ..." and analyzer errors to
// "Error in tool execution for <role>: ...", embedded in the returned delta
// so the pipeline completes deterministically.
type Worker struct {
	cfg      RoleConfig
	chat     model.ChatModel
	router   Router
	selector NextSelector
}

// NewWorker builds a worker for the given role. The selector may be nil;
// a hub worker without one ends the run after its first integration pass.
func NewWorker(cfg RoleConfig, chat model.ChatModel, router Router, selector NextSelector) (*Worker, error) {
	if chat == nil {
		return nil, &ConfigError{Message: "worker requires a chat model", Code: "MISSING_MODEL"}
	}
	if router == nil {
		return nil, &ConfigError{Message: "worker requires a router", Code: "MISSING_ROUTER"}
	}
	return &Worker{cfg: cfg, chat: chat, router: router, selector: selector}, nil
}

// Role returns the worker's role id.
func (w *Worker) Role() Role {
	return w.cfg.Role
}

// Run implements Node. It performs one stage: prompt, LLM call, analyzer
// pass, history append, and route selection. The returned NodeResult never
// carries an error; failures are degraded into the delta text.
func (w *Worker) Run(ctx context.Context, state State) NodeResult {
	var result string
	var degraded bool
	raw, err := w.complete(ctx, state)
	if err != nil {
		// A failed model call skips the analyzer; the error text becomes the
		// stage output.
		result = fmt.Sprintf("Error in LLM response for %s: %v", w.cfg.Role, err)
		degraded = true
	} else {
		result, degraded = w.analyze(ctx, raw, state.History)
	}

	delta := State{
		Response: result,
		History:  []Entry{{Role: w.cfg.Role, Text: result}},
	}

	// Routing sees the post-stage state, with the dispatch value applied
	// when a selector is configured.
	routed := Merge(state, delta)
	if w.selector != nil {
		routed.Stage = w.selector(w.cfg.Role, routed)
	}
	next := w.router.Next(w.cfg.Role, routed)
	if next == w.cfg.Role {
		// Self-routes are a configuration bug; terminate rather than loop.
		next = End
	}

	delta.Stage = next
	return NodeResult{Delta: delta, Route: Goto(next), Degraded: degraded}
}

// complete invokes the chat model with the role's two-message prompt.
func (w *Worker) complete(ctx context.Context, state State) (string, error) {
	out, err := w.chat.Chat(ctx, model.Request{
		Model:       w.cfg.Model,
		MaxTokens:   w.cfg.MaxTokens,
		Temperature: w.cfg.Temperature,
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: w.cfg.Backstory + "\n" + w.cfg.Goal},
			{Role: model.RoleUser, Content: w.userPrompt(state)},
		},
	})
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// userPrompt embeds the rendered context, the current input, any feedback,
// and the role instruction.
func (w *Worker) userPrompt(state State) string {
	var sb strings.Builder

	sb.WriteString("Previous Analysis:\n")
	sb.WriteString(RenderContext(state.History))
	sb.WriteString("\n\nCurrent Topic: ")
	sb.WriteString(state.Input())
	sb.WriteString("\n\n")

	if state.PreviousResponse != "" {
		sb.WriteString("Previous Response: ")
		sb.WriteString(state.PreviousResponse)
		sb.WriteString("\n\n")
	}
	if state.Feedback != "" || len(state.FeedbackHistory) > 0 {
		sb.WriteString("User Feedback: ")
		if state.Feedback != "" {
			sb.WriteString(state.Feedback)
		} else {
			sb.WriteString("No feedback provided")
		}
		sb.WriteString("\n\nFeedback History:\n")
		for _, fb := range state.FeedbackHistory {
			sb.WriteString("- ")
			sb.WriteString(fb)
			sb.WriteString("\n")
		}
		sb.WriteString("\nConsider any feedback provided and adjust your approach accordingly.\n\n")
	}

	fmt.Fprintf(&sb, "Provide your analysis as %s, considering the previous analyses "+
		"and focusing on your specific role in the decision-making process.", w.cfg.Role)

	return sb.String()
}

// analyze runs the role's highest-priority analyzer over the raw output,
// degrading failures to an inline error string.
func (w *Worker) analyze(ctx context.Context, raw string, history []Entry) (string, bool) {
	if len(w.cfg.Analyzers) == 0 {
		return raw, false
	}
	result, err := runAnalyzer(ctx, w.chat, w.cfg.Analyzers[0], w.cfg, raw, history)
	if err != nil {
		return fmt.Sprintf("Error in tool execution for %s: %v", w.cfg.Role, err), true
	}
	return result, false
}
