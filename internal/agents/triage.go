package agents

import (
	"context"
	"fmt"
	"log"

	"github.com/ShayCichocki/beacon/internal/api"
	"github.com/ShayCichocki/beacon/internal/geo"
	"github.com/ShayCichocki/beacon/pkg/models"
)

// Triage is the deep-analysis agent for critical emergencies. It runs two
// model calls: a quick emotion estimate, then the full incident analysis.
// It is safe to invoke with a partial, still-growing transcript.
type Triage struct {
	backend Backend
	model   string
}

// NewTriage creates a Triage agent on the given backend and model.
func NewTriage(backend Backend, model string) *Triage {
	return &Triage{backend: backend, model: model}
}

type emotionOutput struct {
	PrimaryEmotion string   `json:"primary_emotion"`
	Intensity      string   `json:"intensity"`
	Indicators     []string `json:"indicators"`
	Approach       string   `json:"recommended_approach"`
}

type triageResources struct {
	Police          bool   `json:"police"`
	Ambulance       bool   `json:"ambulance"`
	Fire            bool   `json:"fire"`
	SWAT            bool   `json:"swat"`
	AdditionalUnits int    `json:"additional_units"`
	Priority        string `json:"priority"`
}

type triageOutput struct {
	IncidentType       string          `json:"incident_type"`
	ExecutiveSummary   string          `json:"executive_summary"`
	KeyFacts           []string        `json:"key_facts"`
	RecommendedActions []string        `json:"recommended_actions"`
	DispatcherMessage  string          `json:"dispatcher_message"`
	Resources          triageResources `json:"resources"`
	ConfidenceScore    float64         `json:"confidence_score"`
}

// Analyze produces the full incident structure for a critical call.
func (t *Triage) Analyze(ctx context.Context, req Request) (*Report, error) {
	window := formatWindow(req.Window)

	emotion, err := t.analyzeEmotion(ctx, window)
	if err != nil {
		return nil, err
	}

	raw, err := t.backend.Complete(ctx, api.CompleteRequest{
		Model:       t.model,
		System:      triageSystemPrompt,
		Prompt:      fmt.Sprintf(triageUserPrompt, window, emotion.Label),
		MaxTokens:   1500,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, classify(KindTriage, err)
	}

	jsonStr, err := extractJSON(raw)
	if err != nil {
		return nil, malformed(KindTriage, err)
	}
	var out triageOutput
	if err := decodeStrict(jsonStr, &out); err != nil {
		return nil, malformed(KindTriage, err)
	}
	if err := oneOf("incident_type", out.IncidentType,
		"ACTIVE_SHOOTER", "MEDICAL_CRITICAL", "FIRE_MAJOR", "VIOLENT_CRIME", "OTHER_CRITICAL"); err != nil {
		return nil, malformed(KindTriage, err)
	}
	if err := oneOf("priority", out.Resources.Priority, "IMMEDIATE", "URGENT", "STANDARD", "LOW"); err != nil {
		return nil, malformed(KindTriage, err)
	}
	if err := boundedUnit("confidence_score", out.ConfidenceScore); err != nil {
		return nil, malformed(KindTriage, err)
	}

	report := &Report{
		CallType:         out.IncidentType,
		Summary:          out.ExecutiveSummary,
		Emotion:          emotion,
		Location:         extractLocation(req.Window),
		ResponderMessage: out.DispatcherMessage,
		Confidence:       out.ConfidenceScore,
		Dispatch: &models.Dispatch{
			Summary:         out.ExecutiveSummary,
			Actions:         out.RecommendedActions,
			KeyFacts:        out.KeyFacts,
			Police:          out.Resources.Police,
			Ambulance:       out.Resources.Ambulance,
			Fire:            out.Resources.Fire,
			SWAT:            out.Resources.SWAT,
			AdditionalUnits: out.Resources.AdditionalUnits,
			Priority:        out.Resources.Priority,
		},
	}

	log.Printf("[triage] call %s analyzed: type=%s priority=%s confidence=%.2f",
		req.CallID, out.IncidentType, out.Resources.Priority, out.ConfidenceScore)
	return report, nil
}

// analyzeEmotion runs the quick emotion sub-call.
func (t *Triage) analyzeEmotion(ctx context.Context, window string) (*models.Emotion, error) {
	raw, err := t.backend.Complete(ctx, api.CompleteRequest{
		Model:       t.model,
		System:      emotionSystemPrompt,
		Prompt:      fmt.Sprintf(emotionUserPrompt, window),
		MaxTokens:   500,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, classify(KindTriage, err)
	}

	jsonStr, err := extractJSON(raw)
	if err != nil {
		return nil, malformed(KindTriage, err)
	}
	var out emotionOutput
	if err := decodeStrict(jsonStr, &out); err != nil {
		return nil, malformed(KindTriage, err)
	}
	if err := oneOf("primary_emotion", out.PrimaryEmotion,
		"PANIC", "FEAR", "DISTRESS", "ANGER", "CALM", "CONFUSED"); err != nil {
		return nil, malformed(KindTriage, err)
	}
	if err := oneOf("intensity", out.Intensity, "LOW", "MEDIUM", "HIGH", "EXTREME"); err != nil {
		return nil, malformed(KindTriage, err)
	}

	return &models.Emotion{
		Label:      out.PrimaryEmotion,
		Intensity:  out.Intensity,
		Indicators: out.Indicators,
		Approach:   out.Approach,
	}, nil
}

// extractLocation pulls location text from the caller's side of the window.
// Geocoding happens outside this process, so the result is marked pending.
func extractLocation(window []models.Utterance) *models.Location {
	var caller []string
	for _, u := range window {
		if u.Speaker == models.SpeakerCaller {
			caller = append(caller, u.Text)
		}
	}
	return geo.Extract(caller)
}
