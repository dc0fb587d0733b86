// Package session implements Beacon's per-call orchestration: a state
// machine per active call that feeds utterances to the router agent,
// branches to triage or info analysis on the result, merges agent output
// into the call's incident record, and publishes updates. Sessions execute
// independently; within a session every state transition is sequential.
package session

import "time"

// State is the session controller's current phase.
type State string

const (
	// StateRinging means the session exists but no utterance has arrived.
	StateRinging State = "RINGING"
	// StateActive means utterances are accumulating.
	StateActive State = "ACTIVE"
	// StateClassified means a severity classification has landed and the
	// analysis branch is being selected.
	StateClassified State = "CLASSIFIED"
	// StateAnalyzing means a triage or info call is in flight.
	StateAnalyzing State = "ANALYZING"
	// StateComplete is terminal: the record has been flushed.
	StateComplete State = "COMPLETE"
	// StateFailed is terminal: the controller hit an unrecoverable internal
	// error. Upstream agent failures never land here; they degrade to
	// COMPLETE instead.
	StateFailed State = "FAILED"
)

// Valid returns true if the state is a known value.
func (s State) Valid() bool {
	switch s {
	case StateRinging, StateActive, StateClassified, StateAnalyzing, StateComplete, StateFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true for states with no outgoing transitions.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Config holds the controller's tunable policy knobs.
type Config struct {
	// MinClassifyTokens is the minimum caller token count before the first
	// classification is requested.
	MinClassifyTokens int
	// ReclassifyRunes is the minimum new caller text, in runes, beyond the
	// classified window that triggers a fresh classification.
	ReclassifyRunes int
	// ReorderWindow bounds how far ahead of the next expected sequence
	// number input is buffered before being dropped.
	ReorderWindow int
	// ClassifyTimeout bounds each router attempt.
	ClassifyTimeout time.Duration
	// AnalysisTimeout bounds each triage/info attempt.
	AnalysisTimeout time.Duration
	// MaxRetries bounds retries for retryable agent failures.
	MaxRetries int
	// RetryBackoff is the initial backoff between attempts, doubled each time.
	RetryBackoff time.Duration
	// InactivityTimeout is how long a session may sit idle before the store
	// evicts it.
	InactivityTimeout time.Duration
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		MinClassifyTokens: 3,
		ReclassifyRunes:   12,
		ReorderWindow:     32,
		ClassifyTimeout:   8 * time.Second,
		AnalysisTimeout:   25 * time.Second,
		MaxRetries:        2,
		RetryBackoff:      250 * time.Millisecond,
		InactivityTimeout: 5 * time.Minute,
	}
}
