package agents

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ShayCichocki/beacon/internal/api"
	"github.com/ShayCichocki/beacon/pkg/models"
)

// Router is the fast severity classifier. It runs on the cheapest model and
// is the first agent to see every call.
type Router struct {
	backend Backend
	model   string
}

// NewRouter creates a Router on the given backend and model.
func NewRouter(backend Backend, model string) *Router {
	return &Router{backend: backend, model: model}
}

// routerOutput mirrors the JSON the router model is instructed to return.
type routerOutput struct {
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Classify assigns a severity to the transcript window. Identical windows
// produce identical prompts; the only nondeterminism left is the model's.
func (r *Router) Classify(ctx context.Context, req Request) (*models.Classification, error) {
	start := time.Now()

	raw, err := r.backend.Complete(ctx, api.CompleteRequest{
		Model:       r.model,
		System:      routerSystemPrompt,
		Prompt:      fmt.Sprintf(routerUserPrompt, formatWindow(req.Window)),
		MaxTokens:   300,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, classify(KindRouter, err)
	}

	jsonStr, err := extractJSON(raw)
	if err != nil {
		return nil, malformed(KindRouter, err)
	}

	var out routerOutput
	if err := decodeStrict(jsonStr, &out); err != nil {
		return nil, malformed(KindRouter, err)
	}
	if err := oneOf("severity", out.Severity,
		string(models.SeverityCritical), string(models.SeverityStandard), string(models.SeverityNonEmergency)); err != nil {
		return nil, malformed(KindRouter, err)
	}
	if err := boundedUnit("confidence", out.Confidence); err != nil {
		return nil, malformed(KindRouter, err)
	}

	c := &models.Classification{
		Severity:   models.Severity(out.Severity),
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
		LatencyMS:  time.Since(start).Milliseconds(),
	}
	if n := len(req.Window); n > 0 {
		c.WindowEndSeq = req.Window[n-1].Seq
	}

	log.Printf("[router] call %s classified %s (confidence %.2f, %dms)",
		req.CallID, c.Severity, c.Confidence, c.LatencyMS)
	return c, nil
}
