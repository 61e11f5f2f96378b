package pipeline

import (
	"encoding/json"
	"strings"
)

// decodeStepOutput parses a step's raw text as JSON into v. Models sometimes
// wrap the JSON in prose or code fences, so the outermost object is extracted
// first. Failures come back as a ParseError carrying the raw text.
func decodeStepOutput(action, raw string, v interface{}) error {
	if err := json.Unmarshal([]byte(extractJSON(raw)), v); err != nil {
		return &ParseError{Action: action, RawText: raw, Err: err}
	}
	return nil
}

// extractJSON attempts to extract a JSON object from a response that may
// contain extra text
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")

	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}
