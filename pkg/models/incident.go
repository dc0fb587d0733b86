package models

import "time"

// Emotion is the triage agent's estimate of the caller's emotional state.
type Emotion struct {
	// Label is the primary emotion: PANIC, FEAR, DISTRESS, ANGER, CALM, CONFUSED.
	Label string `json:"label"`
	// Intensity is LOW, MEDIUM, HIGH, or EXTREME.
	Intensity string `json:"intensity"`
	// Indicators lists phrases or patterns supporting the estimate.
	Indicators []string `json:"indicators,omitempty"`
	// Approach is the suggested communication approach.
	Approach string `json:"approach,omitempty"`
}

// GeocodeStatus tracks whether a location has been resolved by the external
// geocoding collaborator.
type GeocodeStatus string

const (
	// GeocodeNone means no location text has been captured.
	GeocodeNone GeocodeStatus = "none"
	// GeocodePending means raw text was captured but not yet resolved.
	GeocodePending GeocodeStatus = "pending"
	// GeocodeResolved means coordinates are populated.
	GeocodeResolved GeocodeStatus = "resolved"
)

// Location holds whatever location information has been extracted so far.
// Geocoding happens outside this process; Beacon only records the raw text
// and marks it pending.
type Location struct {
	// RawText is the location fragment as spoken by the caller.
	RawText string `json:"raw_text,omitempty"`
	// Address is a street address if one was identified.
	Address string `json:"address,omitempty"`
	// Landmark is a nearby landmark or description.
	Landmark string `json:"landmark,omitempty"`
	// Latitude and Longitude are set once geocoding resolves.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	// Geocode is the resolution state.
	Geocode GeocodeStatus `json:"geocode"`
}

// Dispatch is the triage agent's resource recommendation for a critical call.
type Dispatch struct {
	// Summary is a short tactical summary for dispatcher review.
	Summary string `json:"summary"`
	// Actions is a prioritized list of recommended actions.
	Actions []string `json:"actions,omitempty"`
	// KeyFacts lists critical facts extracted from the call.
	KeyFacts []string `json:"key_facts,omitempty"`
	// Resource flags.
	Police    bool `json:"police"`
	Ambulance bool `json:"ambulance"`
	Fire      bool `json:"fire"`
	SWAT      bool `json:"swat"`
	// AdditionalUnits is the number of extra units requested.
	AdditionalUnits int `json:"additional_units,omitempty"`
	// Priority is IMMEDIATE, URGENT, STANDARD, or LOW.
	Priority string `json:"priority,omitempty"`
}

// IncidentRecord is the accumulating, merge-updated record for one call.
// It is owned by the call's session controller; everyone else sees clones.
type IncidentRecord struct {
	// CallID is the transport-supplied call identifier.
	CallID string `json:"call_id"`
	// Severity is the active classification's label, or empty before the
	// first classification lands.
	Severity Severity `json:"severity,omitempty"`
	// Confidence is the active classification's confidence.
	Confidence float64 `json:"confidence,omitempty"`
	// CallType is the analysis agent's call categorization.
	CallType string `json:"call_type,omitempty"`
	// Summary is the analysis agent's description of the situation.
	Summary string `json:"summary,omitempty"`
	// Emotion is populated by the triage agent for critical calls.
	Emotion *Emotion `json:"emotion,omitempty"`
	// Location is populated when location text is extracted.
	Location *Location `json:"location,omitempty"`
	// Dispatch is populated by the triage agent for critical calls.
	Dispatch *Dispatch `json:"dispatch,omitempty"`
	// ResponderMessage is the latest advisory speech output for the caller.
	ResponderMessage string `json:"responder_message,omitempty"`
	// Transcript is the append-only, Seq-ordered utterance history.
	Transcript []Utterance `json:"transcript"`
	// Status is the record's disposition.
	Status CallStatus `json:"status"`
	// Degraded is true when any merge fell back to a conservative default.
	Degraded bool `json:"degraded,omitempty"`
	// Errors records upstream failure causes for observability. Raw errors
	// never reach the dashboard as faults; they ride here as annotations.
	Errors []string `json:"errors,omitempty"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy. All reads outside the owning session controller
// go through Clone so readers can never mutate controller state.
func (r *IncidentRecord) Clone() *IncidentRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Emotion != nil {
		e := *r.Emotion
		e.Indicators = append([]string(nil), r.Emotion.Indicators...)
		out.Emotion = &e
	}
	if r.Location != nil {
		l := *r.Location
		if r.Location.Latitude != nil {
			v := *r.Location.Latitude
			l.Latitude = &v
		}
		if r.Location.Longitude != nil {
			v := *r.Location.Longitude
			l.Longitude = &v
		}
		out.Location = &l
	}
	if r.Dispatch != nil {
		d := *r.Dispatch
		d.Actions = append([]string(nil), r.Dispatch.Actions...)
		d.KeyFacts = append([]string(nil), r.Dispatch.KeyFacts...)
		out.Dispatch = &d
	}
	out.Transcript = append([]Utterance(nil), r.Transcript...)
	out.Errors = append([]string(nil), r.Errors...)
	return &out
}

// LastSeq returns the sequence number of the newest transcript entry, or -1
// when the transcript is empty.
func (r *IncidentRecord) LastSeq() int64 {
	if len(r.Transcript) == 0 {
		return -1
	}
	return r.Transcript[len(r.Transcript)-1].Seq
}

// CallerText joins all caller utterance text up to and including seq.
// Pass a negative seq for the full transcript.
func (r *IncidentRecord) CallerText(seq int64) string {
	var b []byte
	for _, u := range r.Transcript {
		if seq >= 0 && u.Seq > seq {
			break
		}
		if u.Speaker != SpeakerCaller {
			continue
		}
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = append(b, u.Text...)
	}
	return string(b)
}
