package agents

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why an agent invocation failed.
type FailureKind string

const (
	// FailureTimeout means the invocation exceeded its deadline.
	FailureTimeout FailureKind = "timeout"
	// FailureUnavailable means the backend could not be reached or refused
	// the request (connectivity, auth, overload).
	FailureUnavailable FailureKind = "unavailable"
	// FailureMalformed means the model responded but its output failed
	// structural validation. Retrying the identical window would likely
	// reproduce it, so the controller treats this as permanent.
	FailureMalformed FailureKind = "malformed"
)

// AgentError is the single error type crossing the invocation boundary.
// The cause is preserved for observability.
type AgentError struct {
	Agent Kind
	Fail  FailureKind
	Cause error
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	return fmt.Sprintf("%s agent %s: %v", e.Agent, e.Fail, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *AgentError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the controller may retry this failure.
// Malformed output is permanent for a given transcript window.
func (e *AgentError) Retryable() bool {
	return e.Fail != FailureMalformed
}

// classify wraps a backend error as an AgentError, mapping context
// expiry to timeout and everything else to unavailable.
func classify(agent Kind, err error) *AgentError {
	fail := FailureUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		fail = FailureTimeout
	}
	return &AgentError{Agent: agent, Fail: fail, Cause: err}
}

// malformed wraps a parse or validation failure.
func malformed(agent Kind, err error) *AgentError {
	return &AgentError{Agent: agent, Fail: FailureMalformed, Cause: err}
}

// AsAgentError extracts an *AgentError from err, or nil.
func AsAgentError(err error) *AgentError {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
