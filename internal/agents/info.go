package agents

import (
	"context"
	"fmt"
	"log"

	"github.com/ShayCichocki/beacon/internal/api"
	"github.com/ShayCichocki/beacon/pkg/models"
)

// Info handles STANDARD_ASSISTANCE and NON_EMERGENCY calls with a single,
// cheaper model call. It emits descriptive fields only; no emotion estimate
// or dispatch block is required for non-critical calls.
type Info struct {
	backend Backend
	model   string
}

// NewInfo creates an Info agent on the given backend and model.
func NewInfo(backend Backend, model string) *Info {
	return &Info{backend: backend, model: model}
}

type infoOutput struct {
	CallType          string  `json:"call_type"`
	Summary           string  `json:"summary"`
	RecommendedAction string  `json:"recommended_action"`
	Response          string  `json:"response"`
	Address           string  `json:"address"`
	CallerEmotion     string  `json:"caller_emotion"`
	Confidence        float64 `json:"confidence"`
}

// Process produces the lighter incident structure for a non-critical call.
func (a *Info) Process(ctx context.Context, req Request) (*Report, error) {
	severity := models.SeverityStandard
	if req.Prior != nil {
		severity = req.Prior.Severity
	}

	raw, err := a.backend.Complete(ctx, api.CompleteRequest{
		Model:       a.model,
		System:      infoSystemPrompt,
		Prompt:      fmt.Sprintf(infoUserPrompt, severity, formatWindow(req.Window)),
		MaxTokens:   800,
		Temperature: 0.5,
	})
	if err != nil {
		return nil, classify(KindInfo, err)
	}

	jsonStr, err := extractJSON(raw)
	if err != nil {
		return nil, malformed(KindInfo, err)
	}
	var out infoOutput
	if err := decodeStrict(jsonStr, &out); err != nil {
		return nil, malformed(KindInfo, err)
	}
	if out.CallType == "" || out.Summary == "" {
		return nil, malformed(KindInfo, fmt.Errorf("missing call_type or summary"))
	}
	if err := boundedUnit("confidence", out.Confidence); err != nil {
		return nil, malformed(KindInfo, err)
	}

	report := &Report{
		CallType:         out.CallType,
		Summary:          out.Summary,
		ResponderMessage: out.Response,
		Confidence:       out.Confidence,
	}

	// Prefer the model's explicit address over heuristic extraction.
	if out.Address != "" {
		report.Location = &models.Location{
			RawText: out.Address,
			Address: out.Address,
			Geocode: models.GeocodePending,
		}
	} else {
		report.Location = extractLocation(req.Window)
	}

	log.Printf("[info] call %s processed: type=%q action=%q", req.CallID, out.CallType, out.RecommendedAction)
	return report, nil
}
