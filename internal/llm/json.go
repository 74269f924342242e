package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no JSON object can be recovered from a model response.
var ErrNoJSON = errors.New("no JSON object found in response")

// ExtractJSON decodes the JSON object embedded in a raw model response into v.
// It tries the trimmed text first, then the span between the first '{' and
// the last '}', which handles markdown fences and surrounding chatter.
func ExtractJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return errors.Join(ErrNoJSON, err)
	}
	return nil
}

// Excerpt shortens a raw response for log messages.
func Excerpt(raw string, n int) string {
	r := []rune(raw)
	if len(r) <= n {
		return raw
	}
	return string(r[:n])
}
