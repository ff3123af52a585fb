package vision

import (
	"encoding/json"
)

// extractJSONObject finds the first balanced {...} substring of text
// that parses as valid JSON and unmarshals it into v. Vision models
// routinely wrap their JSON in prose or markdown fences, so the
// extractor scans candidate objects left to right instead of trusting
// the whole body.
func extractJSONObject(text string, v any) bool {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end, ok := balancedObjectEnd(text, start)
		if !ok {
			// This opener never closes, but a nested object may still
			// balance on its own. Keep scanning past it.
			continue
		}
		candidate := text[start : end+1]
		if json.Unmarshal([]byte(candidate), v) == nil {
			return true
		}
		// Candidate was balanced but not valid JSON; resume the scan
		// after its opening brace.
	}
	return false
}

// balancedObjectEnd returns the index of the brace closing the object
// opened at start, tracking JSON string literals and escapes.
func balancedObjectEnd(text string, start int) (int, bool) {
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
				return i, true
			}
		}
	}

	return 0, false
}
