package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/beacon/internal/api"
	"github.com/ShayCichocki/beacon/pkg/models"
)

// fakeBackend returns scripted completions in order.
type fakeBackend struct {
	responses []string
	errs      []error
	requests  []api.CompleteRequest
}

func (b *fakeBackend) Complete(_ context.Context, req api.CompleteRequest) (string, error) {
	i := len(b.requests)
	b.requests = append(b.requests, req)
	if i < len(b.errs) && b.errs[i] != nil {
		return "", b.errs[i]
	}
	if i < len(b.responses) {
		return b.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func window(texts ...string) []models.Utterance {
	out := make([]models.Utterance, len(texts))
	for i, txt := range texts {
		out[i] = models.Utterance{Speaker: models.SpeakerCaller, Text: txt, Seq: int64(i)}
	}
	return out
}

func TestRouterClassify(t *testing.T) {
	backend := &fakeBackend{responses: []string{
		"```json\n{\"severity\": \"CRITICAL_EMERGENCY\", \"confidence\": 0.93, \"reasoning\": \"weapon mentioned\"}\n```",
	}}
	r := NewRouter(backend, "test-model")

	c, err := r.Classify(context.Background(), Request{
		CallID: "c1",
		Window: window("he has a gun", "please hurry"),
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c.Severity != models.SeverityCritical || c.Confidence != 0.93 {
		t.Errorf("classification = %+v", c)
	}
	if c.WindowEndSeq != 1 {
		t.Errorf("window end seq = %d", c.WindowEndSeq)
	}
	if backend.requests[0].Model != "test-model" {
		t.Errorf("model = %q", backend.requests[0].Model)
	}
}

func TestRouterClassifyMalformed(t *testing.T) {
	tests := []struct {
		name, response string
	}{
		{"no json", "I think this is an emergency."},
		{"bad severity", `{"severity": "VERY_BAD", "confidence": 0.9, "reasoning": "x"}`},
		{"confidence out of range", `{"severity": "NON_EMERGENCY", "confidence": 7, "reasoning": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&fakeBackend{responses: []string{tt.response}}, "m")
			_, err := r.Classify(context.Background(), Request{Window: window("help")})
			ae := AsAgentError(err)
			if ae == nil {
				t.Fatalf("err = %v, want AgentError", err)
			}
			if ae.Fail != FailureMalformed {
				t.Errorf("failure = %s, want malformed", ae.Fail)
			}
			if ae.Retryable() {
				t.Error("malformed output must not be retryable")
			}
		})
	}
}

func TestRouterClassifyBackendFailure(t *testing.T) {
	r := NewRouter(&fakeBackend{errs: []error{errors.New("connection refused")}}, "m")
	_, err := r.Classify(context.Background(), Request{Window: window("help")})
	ae := AsAgentError(err)
	if ae == nil {
		t.Fatalf("err = %v, want AgentError", err)
	}
	if ae.Fail != FailureUnavailable {
		t.Errorf("failure = %s, want unavailable", ae.Fail)
	}
	if !ae.Retryable() {
		t.Error("unavailability should be retryable")
	}
}

func TestRouterClassifyTimeout(t *testing.T) {
	r := NewRouter(&fakeBackend{errs: []error{context.DeadlineExceeded}}, "m")
	_, err := r.Classify(context.Background(), Request{Window: window("help")})
	ae := AsAgentError(err)
	if ae == nil || ae.Fail != FailureTimeout {
		t.Errorf("err = %v, want timeout AgentError", err)
	}
}

const emotionJSON = `{"primary_emotion": "PANIC", "intensity": "EXTREME", "indicators": ["screaming"], "recommended_approach": "short directive sentences"}`

const triageJSON = `{
	"incident_type": "ACTIVE_SHOOTER",
	"executive_summary": "armed subject inside a school",
	"key_facts": ["one armed subject", "second floor"],
	"recommended_actions": ["lock down", "stage EMS"],
	"dispatcher_message": "Stay hidden and keep quiet. Officers are on the way.",
	"resources": {"police": true, "ambulance": true, "fire": false, "swat": true, "additional_units": 4, "priority": "IMMEDIATE"},
	"confidence_score": 0.95
}`

func TestTriageAnalyze(t *testing.T) {
	backend := &fakeBackend{responses: []string{emotionJSON, triageJSON}}
	tr := NewTriage(backend, "m")

	report, err := tr.Analyze(context.Background(), Request{
		CallID: "c1",
		Window: window("there's a man with a gun at West High School", "we're on the second floor"),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(backend.requests) != 2 {
		t.Fatalf("backend calls = %d, want 2 (emotion then analysis)", len(backend.requests))
	}
	if report.CallType != "ACTIVE_SHOOTER" {
		t.Errorf("call type = %q", report.CallType)
	}
	if report.Emotion == nil || report.Emotion.Label != "PANIC" || report.Emotion.Intensity != "EXTREME" {
		t.Errorf("emotion = %+v", report.Emotion)
	}
	if report.Dispatch == nil || !report.Dispatch.SWAT || report.Dispatch.AdditionalUnits != 4 {
		t.Errorf("dispatch = %+v", report.Dispatch)
	}
	if report.Location == nil || report.Location.Landmark == "" {
		t.Errorf("location = %+v", report.Location)
	}
	if report.ResponderMessage == "" {
		t.Error("responder message empty")
	}
}

func TestTriageAnalyzeBadEmotion(t *testing.T) {
	backend := &fakeBackend{responses: []string{
		`{"primary_emotion": "BORED", "intensity": "LOW", "indicators": [], "recommended_approach": ""}`,
	}}
	tr := NewTriage(backend, "m")
	_, err := tr.Analyze(context.Background(), Request{Window: window("help")})
	ae := AsAgentError(err)
	if ae == nil || ae.Fail != FailureMalformed {
		t.Errorf("err = %v, want malformed AgentError", err)
	}
	if len(backend.requests) != 1 {
		t.Errorf("backend calls = %d, analysis should not run after a bad emotion", len(backend.requests))
	}
}

func TestInfoProcess(t *testing.T) {
	backend := &fakeBackend{responses: []string{
		`{"call_type": "Noise Complaint", "summary": "loud music next door", "recommended_action": "log and dispatch if repeated", "response": "An officer will check in when available.", "address": "12 Oak Avenue", "caller_emotion": "CALM", "confidence": 0.8}`,
	}}
	info := NewInfo(backend, "m")

	report, err := info.Process(context.Background(), Request{
		CallID: "c1",
		Window: window("my neighbors are blasting music"),
		Prior:  &models.Classification{Severity: models.SeverityNonEmergency},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.CallType != "Noise Complaint" {
		t.Errorf("call type = %q", report.CallType)
	}
	// The model's explicit address wins over heuristic extraction.
	if report.Location == nil || report.Location.Address != "12 Oak Avenue" {
		t.Errorf("location = %+v", report.Location)
	}
	if report.Emotion != nil {
		t.Error("info reports carry no emotion estimate")
	}
	if report.Dispatch != nil {
		t.Error("info reports carry no dispatch block")
	}
}

func TestInfoProcessMissingFields(t *testing.T) {
	backend := &fakeBackend{responses: []string{
		`{"call_type": "", "summary": "", "recommended_action": "", "response": "", "address": "", "caller_emotion": "", "confidence": 0.5}`,
	}}
	info := NewInfo(backend, "m")
	_, err := info.Process(context.Background(), Request{Window: window("hi")})
	ae := AsAgentError(err)
	if ae == nil || ae.Fail != FailureMalformed {
		t.Errorf("err = %v, want malformed AgentError", err)
	}
}

func TestSetInvokeDispatch(t *testing.T) {
	backend := &fakeBackend{responses: []string{
		`{"severity": "NON_EMERGENCY", "confidence": 0.8, "reasoning": "routine"}`,
		`{"call_type": "General Inquiry", "summary": "question about permits", "recommended_action": "", "response": "", "address": "", "caller_emotion": "", "confidence": 0.7}`,
	}}
	set := NewSet(backend, Models{Router: "r", Triage: "t", Info: "i"})

	res, err := set.Invoke(context.Background(), KindRouter, Request{Window: window("hello I have a question")})
	if err != nil {
		t.Fatalf("router invoke: %v", err)
	}
	if res.Classification == nil || res.Report != nil {
		t.Errorf("router result = %+v", res)
	}

	res, err = set.Invoke(context.Background(), KindInfo, Request{Window: window("hello")})
	if err != nil {
		t.Fatalf("info invoke: %v", err)
	}
	if res.Report == nil || res.Classification != nil {
		t.Errorf("info result = %+v", res)
	}

	if _, err := set.Invoke(context.Background(), Kind("mystery"), Request{}); err == nil {
		t.Error("unknown kind accepted")
	}
}
