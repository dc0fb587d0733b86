package models

import (
	"testing"
	"time"
)

func TestSeverityRankOrdering(t *testing.T) {
	if SeverityCritical.Rank() <= SeverityStandard.Rank() {
		t.Error("critical should rank above standard")
	}
	if SeverityStandard.Rank() <= SeverityNonEmergency.Rank() {
		t.Error("standard should rank above non-emergency")
	}
	if Severity("").Rank() >= SeverityNonEmergency.Rank() {
		t.Error("unknown severity should rank below every known value")
	}
}

func TestMoreSevere(t *testing.T) {
	tests := []struct {
		a, b, want Severity
	}{
		{SeverityCritical, SeverityNonEmergency, SeverityCritical},
		{SeverityNonEmergency, SeverityCritical, SeverityCritical},
		{SeverityStandard, SeverityStandard, SeverityStandard},
		{Severity(""), SeverityStandard, SeverityStandard},
	}
	for _, tt := range tests {
		if got := MoreSevere(tt.a, tt.b); got != tt.want {
			t.Errorf("MoreSevere(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSeverityValid(t *testing.T) {
	for _, s := range []Severity{SeverityCritical, SeverityStandard, SeverityNonEmergency} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Severity("URGENT").Valid() {
		t.Error("URGENT is not a defined severity")
	}
}

func TestIncidentRecordClone(t *testing.T) {
	lat := 39.1
	rec := &IncidentRecord{
		CallID:   "call-1",
		Severity: SeverityCritical,
		Emotion:  &Emotion{Label: "PANIC", Intensity: "HIGH", Indicators: []string{"screaming"}},
		Location: &Location{RawText: "West High School", Latitude: &lat, Geocode: GeocodePending},
		Dispatch: &Dispatch{Summary: "fire", Actions: []string{"send engine"}, Fire: true},
		Transcript: []Utterance{
			{Speaker: SpeakerCaller, Text: "there's a fire", Seq: 0, Timestamp: time.Now()},
		},
		Status: StatusActive,
		Errors: []string{"router retry"},
	}

	clone := rec.Clone()

	clone.Emotion.Label = "CALM"
	clone.Emotion.Indicators[0] = "changed"
	*clone.Location.Latitude = 0
	clone.Dispatch.Actions[0] = "changed"
	clone.Transcript[0].Text = "changed"
	clone.Errors[0] = "changed"

	if rec.Emotion.Label != "PANIC" || rec.Emotion.Indicators[0] != "screaming" {
		t.Error("clone shares emotion state with original")
	}
	if *rec.Location.Latitude != 39.1 {
		t.Error("clone shares location coordinates with original")
	}
	if rec.Dispatch.Actions[0] != "send engine" {
		t.Error("clone shares dispatch state with original")
	}
	if rec.Transcript[0].Text != "there's a fire" {
		t.Error("clone shares transcript with original")
	}
	if rec.Errors[0] != "router retry" {
		t.Error("clone shares errors with original")
	}
}

func TestCallerText(t *testing.T) {
	rec := &IncidentRecord{
		Transcript: []Utterance{
			{Speaker: SpeakerCaller, Text: "help", Seq: 0},
			{Speaker: SpeakerSystem, Text: "what's your emergency", Seq: 1},
			{Speaker: SpeakerCaller, Text: "fire on main street", Seq: 2},
		},
	}
	if got := rec.CallerText(-1); got != "help fire on main street" {
		t.Errorf("CallerText(-1) = %q", got)
	}
	if got := rec.CallerText(1); got != "help" {
		t.Errorf("CallerText(1) = %q", got)
	}
	if got := (&IncidentRecord{}).CallerText(-1); got != "" {
		t.Errorf("empty transcript CallerText = %q", got)
	}
}

func TestLastSeq(t *testing.T) {
	rec := &IncidentRecord{}
	if rec.LastSeq() != -1 {
		t.Error("empty transcript should report -1")
	}
	rec.Transcript = append(rec.Transcript, Utterance{Seq: 7})
	if rec.LastSeq() != 7 {
		t.Errorf("LastSeq = %d, want 7", rec.LastSeq())
	}
}
