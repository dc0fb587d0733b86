package models

import "time"

// Speaker identifies who produced an utterance.
type Speaker string

const (
	// SpeakerCaller is the person on the phone.
	SpeakerCaller Speaker = "caller"
	// SpeakerSystem is the automated responder.
	SpeakerSystem Speaker = "system"
)

// Valid returns true if the speaker is a known value.
func (s Speaker) Valid() bool {
	switch s {
	case SpeakerCaller, SpeakerSystem:
		return true
	default:
		return false
	}
}

// Utterance is a single transcribed turn within a call. Utterances are
// immutable once recorded and ordered by Seq within a session.
type Utterance struct {
	// Speaker identifies who spoke.
	Speaker Speaker `json:"speaker"`
	// Text is the transcribed speech.
	Text string `json:"text"`
	// Seq is the transport-assigned sequence number, strictly increasing
	// per call.
	Seq int64 `json:"seq"`
	// Timestamp is when the utterance was transcribed.
	Timestamp time.Time `json:"timestamp"`
}

// Severity is the coarse triage label assigned to a call.
type Severity string

const (
	// SeverityCritical means active threat to life requiring immediate
	// tactical response.
	SeverityCritical Severity = "CRITICAL_EMERGENCY"
	// SeverityStandard means police/fire/medical response without an
	// immediate life threat.
	SeverityStandard Severity = "STANDARD_ASSISTANCE"
	// SeverityNonEmergency means information requests and non-urgent issues.
	SeverityNonEmergency Severity = "NON_EMERGENCY"
)

// Valid returns true if the severity is a known value.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityStandard, SeverityNonEmergency:
		return true
	default:
		return false
	}
}

// Rank orders severities by conservatism. Higher is more severe. Unknown
// severities rank below every known value.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityStandard:
		return 2
	case SeverityNonEmergency:
		return 1
	default:
		return 0
	}
}

// MoreSevere returns the more conservative of two severities.
func MoreSevere(a, b Severity) Severity {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

// Classification is the router agent's severity verdict for a transcript
// window.
type Classification struct {
	// Severity is the assigned triage label.
	Severity Severity `json:"severity"`
	// Confidence is the router's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Reasoning is a brief explanation for the label.
	Reasoning string `json:"reasoning,omitempty"`
	// LatencyMS is how long the classification call took.
	LatencyMS int64 `json:"latency_ms"`
	// WindowEndSeq is the sequence number of the last utterance the router
	// saw. Used to decide whether new content warrants re-classification.
	WindowEndSeq int64 `json:"window_end_seq"`
}

// CallStatus describes the terminal disposition of an incident record.
type CallStatus string

const (
	// StatusActive means the call is still in progress.
	StatusActive CallStatus = "ACTIVE"
	// StatusComplete means the call finished with full analysis.
	StatusComplete CallStatus = "COMPLETE"
	// StatusDegraded means analysis failed after retries and a conservative
	// fallback was merged.
	StatusDegraded CallStatus = "DEGRADED"
	// StatusIncomplete means the call ended before classification landed.
	StatusIncomplete CallStatus = "INCOMPLETE"
)

// Valid returns true if the status is a known value.
func (s CallStatus) Valid() bool {
	switch s {
	case StatusActive, StatusComplete, StatusDegraded, StatusIncomplete:
		return true
	default:
		return false
	}
}
