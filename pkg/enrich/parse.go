package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tagus/contactgraph/pkg/interfaces"
)

// parsePatch turns the oracle response into a profile patch. Strict-mode
// responses are parsed as-is; grounded-mode responses are best-effort JSON in
// free text, so code-fence markup is stripped and the first JSON object is
// located before parsing.
func parsePatch(response string, grounded bool) (*interfaces.ProfilePatch, error) {
	raw := response
	if grounded {
		raw = extractJSON(stripCodeFences(response))
		if raw == "" {
			return nil, fmt.Errorf("%w: no JSON object in response", ErrExtractionParse)
		}
	}

	var patch interfaces.ProfilePatch
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}
	return &patch, nil
}

// stripCodeFences removes a ```json ... ``` wrapper when present.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)

	start := strings.Index(trimmed, "```")
	if start == -1 {
		return trimmed
	}

	// Drop the opening fence line, including a language tag like ```json.
	rest := trimmed[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	}

	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// extractJSON returns the first brace-balanced JSON object in the text, or
// the empty string when there is none.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
