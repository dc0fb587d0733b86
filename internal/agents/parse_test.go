package agents

import (
	"strings"
	"testing"
)

func TestExtractJSONFenced(t *testing.T) {
	raw := "Here is the classification:\n```json\n{\"severity\": \"NON_EMERGENCY\"}\n```\nDone."
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if got != `{"severity": "NON_EMERGENCY"}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONBareFence(t *testing.T) {
	raw := "```\n{\"a\": 1}\n```"
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if got != `{"a": 1}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONOutermostBraces(t *testing.T) {
	raw := `The result is {"severity": "CRITICAL_EMERGENCY", "nested": {"x": 1}} as requested`
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if !strings.HasPrefix(got, `{"severity"`) || !strings.HasSuffix(got, "}") {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONNone(t *testing.T) {
	if _, err := extractJSON("I cannot classify this call."); err == nil {
		t.Error("expected error for prose-only response")
	}
}

func TestDecodeStrictRejectsUnknownFields(t *testing.T) {
	var out routerOutput
	err := decodeStrict(`{"severity": "NON_EMERGENCY", "confidence": 0.9, "reasoning": "x", "extra": true}`, &out)
	if err == nil {
		t.Error("unknown field accepted")
	}
}

func TestOneOf(t *testing.T) {
	if err := oneOf("priority", "URGENT", "IMMEDIATE", "URGENT"); err != nil {
		t.Errorf("valid value rejected: %v", err)
	}
	if err := oneOf("priority", "WHENEVER", "IMMEDIATE", "URGENT"); err == nil {
		t.Error("invalid value accepted")
	}
}

func TestBoundedUnit(t *testing.T) {
	for _, v := range []float64{0, 0.5, 1} {
		if err := boundedUnit("confidence", v); err != nil {
			t.Errorf("boundedUnit(%v): %v", v, err)
		}
	}
	for _, v := range []float64{-0.1, 1.1, 42} {
		if err := boundedUnit("confidence", v); err == nil {
			t.Errorf("boundedUnit(%v) accepted", v)
		}
	}
}
