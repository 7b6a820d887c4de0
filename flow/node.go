package flow

import "context"

// Node is a processing unit in the workflow graph. It receives the current
// State, performs one stage of work, and returns a NodeResult.
//
// Workflow nodes must not let transient failures escape: an LLM or analyzer
// error is degraded into the returned delta's text so the pipeline keeps
// going. NodeResult.Err is reserved for unrecoverable conditions and aborts
// the run.
type Node interface {
	Run(ctx context.Context, state State) NodeResult
}

// NodeResult is the output of one stage execution.
type NodeResult struct {
	// Delta is the partial state update, merged into the run state with
	// Merge.
	Delta State

	// Route is the next hop decided by the node (usually via the Router).
	Route Next

	// Degraded marks a stage whose output is an inline error entry rather
	// than an analysis. The run continues; observers record it.
	Degraded bool

	// Err aborts the run. Stage-level failures never set this.
	Err error
}

// Next specifies where execution goes after a node completes: a single next
// role, or terminal.
type Next struct {
	To       Role
	Terminal bool
}

// Stop returns a Next that terminates the run.
func Stop() Next {
	return Next{Terminal: true}
}

// Goto returns a Next routing to the given role. Goto(End) terminates.
func Goto(role Role) Next {
	if role == "" || role == End {
		return Stop()
	}
	return Next{To: role}
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc func(ctx context.Context, state State) NodeResult

// Run implements Node.
func (f NodeFunc) Run(ctx context.Context, state State) NodeResult {
	return f(ctx, state)
}
