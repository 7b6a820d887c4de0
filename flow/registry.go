package flow

import "fmt"

// Registry maps role identifiers to their static configuration: backstory
// and goal text, model settings, and analyzer set.
//
// A Registry is built once at startup and never mutated afterwards, so it is
// safe to share across concurrent runs without locking.
type Registry struct {
	configs map[Role]RoleConfig
	order   []Role
}

// NewRegistry builds a Registry from the given role configurations.
//
// Validation is strict and happens here, not at run time:
//   - the role set must be non-empty
//   - role ids must be unique, non-empty, and not the terminal sentinel
//   - every role must carry AnalyzerGeneral
//   - at most one role-specific analyzer per role, and it must be known
//
// Any violation returns a *ConfigError and no Registry.
func NewRegistry(configs []RoleConfig) (*Registry, error) {
	if len(configs) == 0 {
		return nil, &ConfigError{Message: "role set cannot be empty", Code: "EMPTY_ROLE_SET"}
	}

	r := &Registry{
		configs: make(map[Role]RoleConfig, len(configs)),
		order:   make([]Role, 0, len(configs)),
	}

	for _, cfg := range configs {
		if cfg.Role == "" {
			return nil, &ConfigError{Message: "role id cannot be empty", Code: "EMPTY_ROLE"}
		}
		if cfg.Role == End {
			return nil, &ConfigError{Message: "role id cannot be the terminal sentinel", Code: "RESERVED_ROLE"}
		}
		if _, exists := r.configs[cfg.Role]; exists {
			return nil, &ConfigError{Message: "duplicate role: " + string(cfg.Role), Code: "DUPLICATE_ROLE"}
		}
		if err := validateAnalyzers(cfg); err != nil {
			return nil, err
		}
		r.configs[cfg.Role] = cfg
		r.order = append(r.order, cfg.Role)
	}

	return r, nil
}

func validateAnalyzers(cfg RoleConfig) error {
	general := false
	specific := 0
	for _, id := range cfg.Analyzers {
		if !KnownAnalyzer(id) {
			return &ConfigError{
				Message: fmt.Sprintf("role %s references unknown analyzer %q", cfg.Role, id),
				Code:    "UNKNOWN_ANALYZER",
			}
		}
		if id == AnalyzerGeneral {
			general = true
		} else {
			specific++
		}
	}
	if !general {
		return &ConfigError{
			Message: fmt.Sprintf("role %s is missing the general analyzer", cfg.Role),
			Code:    "MISSING_ANALYZER",
		}
	}
	if specific > 1 {
		return &ConfigError{
			Message: fmt.Sprintf("role %s has %d role-specific analyzers, at most one is allowed", cfg.Role, specific),
			Code:    "TOO_MANY_ANALYZERS",
		}
	}
	return nil
}

// Has reports whether the role is registered.
func (r *Registry) Has(role Role) bool {
	_, ok := r.configs[role]
	return ok
}

// Config returns the configuration for a role. The boolean is false for
// unknown roles.
func (r *Registry) Config(role Role) (RoleConfig, bool) {
	cfg, ok := r.configs[role]
	return cfg, ok
}

// Backstory returns the role's backstory text, or "" for unknown roles.
func (r *Registry) Backstory(role Role) string {
	return r.configs[role].Backstory
}

// Goal returns the role's goal text, or "" for unknown roles.
func (r *Registry) Goal(role Role) string {
	return r.configs[role].Goal
}

// Analyzers returns the role's analyzer ids in priority order.
func (r *Registry) Analyzers(role Role) []AnalyzerID {
	cfg, ok := r.configs[role]
	if !ok {
		return nil
	}
	out := make([]AnalyzerID, len(cfg.Analyzers))
	copy(out, cfg.Analyzers)
	return out
}

// Roles returns all registered roles in declaration order.
func (r *Registry) Roles() []Role {
	out := make([]Role, len(r.order))
	copy(out, r.order)
	return out
}
