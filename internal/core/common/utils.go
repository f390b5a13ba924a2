package common

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractJSONObject trims an LLM response down to its outermost JSON object,
// dropping markdown fences and surrounding prose.
func ExtractJSONObject(response string) (string, error) {
	start := strings.IndexByte(response, '{')
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response (missing '{')")
	}
	end := strings.LastIndexByte(response, '}')
	if end < start {
		// Truncated output; let the repair step try to close it.
		return response[start:], nil
	}
	return response[start : end+1], nil
}

// ParseJSON cleans and unmarshals a JSON string into a type T.
// It handles common LLM quirks like surrounding markdown or extra text, and
// repairs malformed JSON as a last resort.
func ParseJSON[T any](response string) (T, error) {
	var zero T
	raw, err := CleanJSON(response)
	if err != nil {
		return zero, err
	}

	var result T
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, raw)
	}
	return result, nil
}

// CleanJSON returns syntactically valid JSON for an LLM response, or an error.
func CleanJSON(response string) (string, error) {
	jsonStr, err := ExtractJSONObject(response)
	if err != nil {
		return "", err
	}
	if json.Valid([]byte(jsonStr)) {
		return jsonStr, nil
	}

	repaired, err := jsonrepair.JSONRepair(jsonStr)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	if !json.Valid([]byte(repaired)) {
		return "", fmt.Errorf("invalid JSON after repair: %s", repaired)
	}
	return repaired, nil
}
