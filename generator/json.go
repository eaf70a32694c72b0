package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// extractJSON pulls the first balanced JSON object out of a model response,
// tolerating code fences and surrounding prose.
func extractJSON(s string) string {
	s = stripFence(s)

	start := strings.Index(s, "{")
	if start == -1 {
		return s
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

func decodeJSON(raw string, out any) error {
	body := extractJSON(raw)
	if body == "" {
		return errors.New("empty model response")
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("parse model response: %w", err)
	}
	return nil
}

// stripFence unwraps a response that is entirely one fenced block. Fences
// inside the article are kept.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return t
	}
	nl := strings.IndexByte(t, '\n')
	if nl == -1 {
		return t
	}
	return strings.TrimSpace(t[nl+1 : len(t)-3])
}
