package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports that an LLM response could not be decoded, even after
// lenient extraction. Callers must handle it with their documented fallback
// values; it is never propagated past a component boundary.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable llm response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DecodeJSON decodes an LLM text response into v. It first attempts a strict
// decode of the whole (trimmed) response; on failure it extracts the outermost
// JSON object or array by brace scanning and retries. If both attempts fail it
// returns a *ParseError.
func DecodeJSON(raw string, v any) error {
	trimmed := strings.TrimSpace(stripCodeFence(raw))

	strictErr := json.Unmarshal([]byte(trimmed), v)
	if strictErr == nil {
		return nil
	}

	if extracted, ok := extractJSON(trimmed); ok {
		if err := json.Unmarshal([]byte(extracted), v); err == nil {
			return nil
		}
	}

	return &ParseError{Raw: raw, Err: strictErr}
}

// extractJSON returns the substring from the first opening brace/bracket to
// the last matching closer. The earlier opener decides whether the payload is
// an object or an array, so an array of objects is not mistaken for an object.
// Bounded heuristic, not a JSON scanner: models usually wrap one payload in
// prose.
func extractJSON(s string) (string, bool) {
	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")

	opener, closer := "{", "}"
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		opener, closer = "[", "]"
	}

	start := strings.Index(s, opener)
	end := strings.LastIndex(s, closer)
	if start >= 0 && end > start {
		return s[start : end+1], true
	}
	return "", false
}

// stripCodeFence removes a ```json ... ``` wrapper if present.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
