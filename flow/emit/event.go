// Package emit provides observability events for workflow execution.
package emit

// Event represents an observability event emitted during a workflow run:
// stage start/completion, degraded stages, cache operations, and run-level
// outcomes.
type Event struct {
	// RunID identifies the workflow execution that emitted this event.
	RunID string

	// Step is the sequential stage number in the run (1-indexed). Zero for
	// run-level events.
	Step int

	// Stage identifies which role was executing. Empty for run-level
	// events.
	Stage string

	// Msg is a short machine-friendly description (e.g. "stage_end",
	// "stage_degraded", "run_failed").
	Msg string

	// Meta contains additional structured data. Common keys:
	//   - "duration_ms": stage duration in milliseconds
	//   - "error": degraded-stage error text
	//   - "cache_key": cache operation key
	Meta map[string]interface{}
}
