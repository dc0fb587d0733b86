package console

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/beacon/pkg/models"
)

func TestQuitKeys(t *testing.T) {
	m := New(Options{BaseURL: "http://localhost:8080"})
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	}
	for _, key := range keys {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Errorf("key %q did not produce a command", key.String())
			continue
		}
		if msg := cmd(); msg != tea.Quit() {
			t.Errorf("key %q produced %v, want quit", key.String(), msg)
		}
	}
}

func TestViewWaitingState(t *testing.T) {
	m := New(Options{BaseURL: "http://localhost:8080"})
	if got := m.View(); !strings.Contains(got, "waiting for calls") {
		t.Errorf("empty view = %q", got)
	}
}

func TestViewRendersIncident(t *testing.T) {
	m := New(Options{BaseURL: "http://localhost:8080"})
	updated, cmd := m.Update(incidentMsg{rec: &models.IncidentRecord{
		CallID:     "call-1",
		Severity:   models.SeverityCritical,
		Confidence: 0.93,
		CallType:   "Active Shooter",
		Summary:    "armed person reported in a school",
		Status:     models.StatusActive,
		Dispatch:   &models.Dispatch{Police: true, SWAT: true, Priority: "IMMEDIATE"},
		Transcript: []models.Utterance{
			{Speaker: models.SpeakerCaller, Text: "he has a gun", Seq: 0},
		},
	}})
	if cmd == nil {
		t.Error("incident update did not schedule the next poll")
	}

	view := updated.View()
	for _, want := range []string{"call-1", "CRITICAL EMERGENCY", "Active Shooter", "SWAT", "he has a gun"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewShowsDegraded(t *testing.T) {
	m := New(Options{BaseURL: "http://localhost:8080"})
	updated, _ := m.Update(incidentMsg{rec: &models.IncidentRecord{
		CallID:   "call-2",
		Severity: models.SeverityCritical,
		Status:   models.StatusDegraded,
		Degraded: true,
	}})
	if view := updated.View(); !strings.Contains(view, "DEGRADED") {
		t.Errorf("view missing degraded marker:\n%s", view)
	}
}

func TestDispatchLine(t *testing.T) {
	got := dispatchLine(&models.Dispatch{
		Police:          true,
		Fire:            true,
		AdditionalUnits: 2,
		Priority:        "URGENT",
	})
	for _, want := range []string{"police", "fire", "+2 units", "URGENT"} {
		if !strings.Contains(got, want) {
			t.Errorf("dispatch line %q missing %q", got, want)
		}
	}
}
