// Package coaching holds helpers shared by the coaching operations for turning
// provider text into typed records.
package coaching

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/internal/models"
)

// StripFences removes markdown code fences the provider sometimes wraps JSON in.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// LooksLikeJSON reports whether s starts like a JSON object or array.
func LooksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// DecodeLines decodes either {"<key>": [...]} or a bare [...] of
// {timestamp, line} objects.
func DecodeLines(text, key string) ([]models.ScriptLine, error) {
	s := StripFences(text)
	if strings.HasPrefix(s, "[") {
		var lines []models.ScriptLine
		if err := json.Unmarshal([]byte(s), &lines); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedOutput, err)
		}
		return lines, nil
	}

	var container map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &container); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedOutput, err)
	}
	raw, ok := container[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", apperrors.ErrMalformedOutput, key)
	}
	var lines []models.ScriptLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", apperrors.ErrMalformedOutput, key, err)
	}
	return lines, nil
}

// FormatRange renders a "MM:SS-MM:SS" timestamp range.
func FormatRange(startSec, endSec int) string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", startSec/60, startSec%60, endSec/60, endSec%60)
}

// MarshalIndented is used to embed records in prompts.
func MarshalIndented(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
