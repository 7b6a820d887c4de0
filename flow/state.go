package flow

import "strings"

// Entry is one (role, output) pair in the run history.
type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// State is the record threaded through every stage of one run.
//
// States are passed by value between stages; each stage returns a partial
// delta that the engine merges with Merge. History and FeedbackHistory are
// append-only and never reordered. Task is set once at creation and never
// overwritten by a merge.
type State struct {
	// Task is the original topic or query.
	Task string `json:"task"`

	// Stage is the current or next role id, or End. It drives routing:
	// the hub router reads the dispatch value a worker stored here.
	Stage Role `json:"stage"`

	// Response is the most recent output produced by the last-run role.
	Response string `json:"response,omitempty"`

	// PreviousResponse is a snapshot of Response captured when the state
	// was cached, used to seed a resumed conversation.
	PreviousResponse string `json:"previousResponse,omitempty"`

	// Feedback is an optional user-supplied correction injected into
	// subsequent prompts.
	Feedback string `json:"feedback,omitempty"`

	// History is the ordered sequence of per-role outputs.
	History []Entry `json:"history,omitempty"`

	// FeedbackHistory accumulates all feedback supplied across resumes.
	FeedbackHistory []string `json:"feedbackHistory,omitempty"`
}

// Merge combines a stage's partial delta into the prior state and returns
// the result. Stage, Response, PreviousResponse, and Feedback replace when
// the delta sets them; History and FeedbackHistory append; Task is never
// touched. Merge is the engine's reducer.
func Merge(prev, delta State) State {
	if delta.Stage != "" {
		prev.Stage = delta.Stage
	}
	if delta.Response != "" {
		prev.Response = delta.Response
	}
	if delta.PreviousResponse != "" {
		prev.PreviousResponse = delta.PreviousResponse
	}
	if delta.Feedback != "" {
		prev.Feedback = delta.Feedback
	}
	if len(delta.History) > 0 {
		history := make([]Entry, 0, len(prev.History)+len(delta.History))
		history = append(history, prev.History...)
		history = append(history, delta.History...)
		prev.History = history
	}
	if len(delta.FeedbackHistory) > 0 {
		fb := make([]string, 0, len(prev.FeedbackHistory)+len(delta.FeedbackHistory))
		fb = append(fb, prev.FeedbackHistory...)
		fb = append(fb, delta.FeedbackHistory...)
		prev.FeedbackHistory = fb
	}
	return prev
}

// RenderContext renders the accumulated history as prompt context. Each
// entry contributes "<role>:\n<text>\n"; entries are joined with a blank
// line. An empty history renders as the empty string.
func RenderContext(history []Entry) string {
	if len(history) == 0 {
		return ""
	}
	parts := make([]string, 0, len(history))
	for _, e := range history {
		parts = append(parts, string(e.Role)+":\n"+e.Text+"\n")
	}
	return strings.Join(parts, "\n")
}

// Input returns the text the next stage should analyze: the last response
// if one exists, otherwise the original task.
func (s State) Input() string {
	if s.Response != "" {
		return s.Response
	}
	return s.Task
}
