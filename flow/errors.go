package flow

import "errors"

// ErrRunFailed is the generic run-level failure surfaced to callers when a
// workflow aborts for a reason other than misconfiguration. Internal detail
// is deliberately not attached; inspect emitted events for diagnostics.
var ErrRunFailed = errors.New("workflow run failed")

// ConfigError reports a workflow configuration fault: an unknown role, a
// malformed graph, a self-loop, or a missing engine dependency. These are
// fatal at build time; a run never starts with a ConfigError pending.
type ConfigError struct {
	Message string
	Code    string
}

func (e *ConfigError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
