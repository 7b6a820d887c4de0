package flow

// Router decides the next role after a stage completes.
//
// Implementations must satisfy the routing closure property: Next always
// returns a registered role or End, never an unknown identifier. Unrecognized
// dispatch values default to End so a run can never loop over a role that
// does not exist. A role routing to itself is a configuration bug: Validate
// rejects it at build time, and Next degrades it to End at run time.
type Router interface {
	// Next returns the role to execute after current, or End to stop. The
	// state carries the dispatch value set by the current worker, which
	// hub-and-spoke routing consults.
	Next(current Role, state State) Role

	// Entry returns the role a fresh run starts at.
	Entry() Role

	// Validate checks the topology against the registry at build time.
	Validate(reg *Registry) error
}

// LinearRouter walks a fixed total order over roles. Reaching the last role
// transitions to End unconditionally.
type LinearRouter struct {
	order []Role
	next  map[Role]Role
}

// NewLinearRouter builds a linear-chain router over the given order.
// Duplicate roles (which would create a loop or a self-loop) are rejected.
func NewLinearRouter(order ...Role) (*LinearRouter, error) {
	if len(order) == 0 {
		return nil, &ConfigError{Message: "linear chain cannot be empty", Code: "EMPTY_CHAIN"}
	}

	next := make(map[Role]Role, len(order))
	seen := make(map[Role]bool, len(order))
	for i, role := range order {
		if role == "" || role == End {
			return nil, &ConfigError{Message: "linear chain cannot contain the terminal sentinel", Code: "RESERVED_ROLE"}
		}
		if seen[role] {
			return nil, &ConfigError{Message: "duplicate role in linear chain: " + string(role), Code: "DUPLICATE_ROLE"}
		}
		seen[role] = true
		if i == len(order)-1 {
			next[role] = End
		} else {
			next[role] = order[i+1]
		}
	}

	return &LinearRouter{order: append([]Role(nil), order...), next: next}, nil
}

// Next returns the successor of current in the chain. Unknown roles map to
// End (fail-safe termination).
func (r *LinearRouter) Next(current Role, _ State) Role {
	n, ok := r.next[current]
	if !ok || n == current {
		return End
	}
	return n
}

// Entry returns the first role in the chain.
func (r *LinearRouter) Entry() Role {
	return r.order[0]
}

// Validate checks that every chained role is registered.
func (r *LinearRouter) Validate(reg *Registry) error {
	for _, role := range r.order {
		if !reg.Has(role) {
			return &ConfigError{Message: "linear chain references unknown role: " + string(role), Code: "UNKNOWN_ROLE"}
		}
	}
	return nil
}

// HubRouter implements hub-and-spoke routing. The hub is both entry and
// return point: every spoke routes back to the hub, and the hub routes to
// the dispatch value carried in the state. A dispatch value that does not
// name a spoke (including the hub itself, End, or an unknown role) stops
// the run.
type HubRouter struct {
	hub    Role
	spokes map[Role]bool
	order  []Role
}

// NewHubRouter builds a hub-and-spoke router. The hub must not appear among
// its own spokes; that would be a self-loop.
func NewHubRouter(hub Role, spokes ...Role) (*HubRouter, error) {
	if hub == "" || hub == End {
		return nil, &ConfigError{Message: "hub role cannot be the terminal sentinel", Code: "RESERVED_ROLE"}
	}
	if len(spokes) == 0 {
		return nil, &ConfigError{Message: "hub requires at least one spoke", Code: "EMPTY_SPOKES"}
	}

	set := make(map[Role]bool, len(spokes))
	for _, s := range spokes {
		if s == hub {
			return nil, &ConfigError{Message: "hub cannot be its own spoke: " + string(hub), Code: "SELF_LOOP"}
		}
		if s == "" || s == End {
			return nil, &ConfigError{Message: "spoke role cannot be the terminal sentinel", Code: "RESERVED_ROLE"}
		}
		if set[s] {
			return nil, &ConfigError{Message: "duplicate spoke: " + string(s), Code: "DUPLICATE_ROLE"}
		}
		set[s] = true
	}

	return &HubRouter{hub: hub, spokes: set, order: append([]Role(nil), spokes...)}, nil
}

// Next routes spokes back to the hub, and the hub to the spoke named by the
// state's dispatch value. Anything else terminates.
func (r *HubRouter) Next(current Role, state State) Role {
	if current != r.hub {
		if r.spokes[current] {
			return r.hub
		}
		return End
	}
	if r.spokes[state.Stage] {
		return state.Stage
	}
	return End
}

// Entry returns the hub role.
func (r *HubRouter) Entry() Role {
	return r.hub
}

// Validate checks that the hub and every spoke are registered.
func (r *HubRouter) Validate(reg *Registry) error {
	if !reg.Has(r.hub) {
		return &ConfigError{Message: "hub references unknown role: " + string(r.hub), Code: "UNKNOWN_ROLE"}
	}
	for _, s := range r.order {
		if !reg.Has(s) {
			return &ConfigError{Message: "spoke references unknown role: " + string(s), Code: "UNKNOWN_ROLE"}
		}
	}
	return nil
}
