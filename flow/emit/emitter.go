package emit

// Emitter receives and processes observability events from workflow
// execution.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down workflow execution
//   - Thread-safe: may be called concurrently from independent runs
//   - Resilient: handle backend failures without crashing the workflow
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	// Emit must not panic; backend errors are handled internally.
	Emit(event Event)
}
