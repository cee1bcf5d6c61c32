package flow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration matches (via errors.Is) every error caused by a malformed flow definition.
// Configuration errors are fatal and never routed through exception handlers.
var ErrConfiguration = errors.New("flow configuration error")

// ConfigurationError reports a malformed flow definition.
type ConfigurationError struct {
	FlowID string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("flow '%s': %s", e.FlowID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NoSuchStateError is returned when a state id cannot be resolved within a flow.
type NoSuchStateError struct {
	FlowID  string
	StateID string
}

func (e *NoSuchStateError) Error() string {
	return fmt.Sprintf("no state '%s' in flow '%s'", e.StateID, e.FlowID)
}

// NoMatchingTransitionError is returned when no transition of a state matches the signaled event.
// It is recoverable through exception handlers.
type NoMatchingTransitionError struct {
	FlowID   string
	StateID  string
	EventID  string
	Criteria []string // configured matching criteria, for diagnostics
}

func (e *NoMatchingTransitionError) Error() string {
	return fmt.Sprintf("no transition found on occurrence of event '%s' in state '%s' of flow '%s' -- valid transitional criteria are %v",
		e.EventID, e.StateID, e.FlowID, e.Criteria)
}

// NoMatchingActionResultError is returned when every action of an action state ran
// without producing an event any transition accepts.
type NoMatchingActionResultError struct {
	FlowID   string
	StateID  string
	EventIDs []string
}

func (e *NoMatchingActionResultError) Error() string {
	return fmt.Sprintf("action state '%s' of flow '%s' produced no result matching a transition (results: [%s])",
		e.StateID, e.FlowID, strings.Join(e.EventIDs, ", "))
}

func (e *NoMatchingActionResultError) Unwrap() error { return ErrConfiguration }

// ActionExecutionError wraps a failure raised by business action code.
type ActionExecutionError struct {
	FlowID  string
	StateID string // empty for flow start/end actions
	Action  string
	Err     error
}

func (e *ActionExecutionError) Error() string {
	where := "flow '" + e.FlowID + "'"
	if e.StateID != "" {
		where = fmt.Sprintf("state '%s' of %s", e.StateID, where)
	}
	return fmt.Sprintf("action %s failed in %s: %v", e.Action, where, e.Err)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }

// VetoError is returned when a listener refuses a session start or a state entry.
type VetoError struct {
	Point   string // "session-starting" or "state-entering"
	FlowID  string
	StateID string
	Err     error
}

func (e *VetoError) Error() string {
	if e.StateID != "" {
		return fmt.Sprintf("%s vetoed for state '%s' of flow '%s': %v", e.Point, e.StateID, e.FlowID, e.Err)
	}
	return fmt.Sprintf("%s vetoed for flow '%s': %v", e.Point, e.FlowID, e.Err)
}

func (e *VetoError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err may be offered to exception handlers:
// unmatched events and action failures are, configuration errors and vetoes are not.
func IsRecoverable(err error) bool {
	if err == nil || errors.Is(err, ErrConfiguration) {
		return false
	}
	var veto *VetoError
	if errors.As(err, &veto) {
		return false
	}
	var nt *NoMatchingTransitionError
	var ae *ActionExecutionError
	return errors.As(err, &nt) || errors.As(err, &ae)
}
