package agents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Models frequently wrap JSON in markdown fences despite instructions not to.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON pulls the JSON object out of a raw completion. It tries a
// fenced block first, then the outermost braces.
func extractJSON(raw string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object in response: %.120s", raw)
	}
	return raw[start : end+1], nil
}

// decodeStrict unmarshals extracted JSON into v, rejecting fields the schema
// does not define so drifted model output fails structurally instead of
// being silently dropped.
func decodeStrict(jsonStr string, v any) error {
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode agent output: %w", err)
	}
	return nil
}

// oneOf validates that value is one of the allowed strings.
func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("field %s has unexpected value %q", field, value)
}

// boundedUnit validates a confidence-style value in [0,1].
func boundedUnit(field string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("field %s out of range: %f", field, v)
	}
	return nil
}
