package extract

import (
	"encoding/json"
	"strings"
)

// repairJSONObject parses model output that is supposed to be a JSON object
// but may be wrapped in markdown fences or prose. Returns an empty map when
// nothing parseable is found.
func repairJSONObject(text string) map[string]interface{} {
	t := strings.TrimSpace(text)
	if t == "" {
		return map[string]interface{}{}
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(t), &out); err == nil {
		return out
	}

	if strings.HasPrefix(t, "```") {
		stripped := strings.Trim(t, "`")
		if strings.HasPrefix(strings.ToLower(stripped), "json") {
			stripped = strings.TrimSpace(stripped[4:])
		}
		if err := json.Unmarshal([]byte(stripped), &out); err == nil {
			return out
		}
	}

	if obj := firstJSONObject(t); obj != "" {
		if err := json.Unmarshal([]byte(obj), &out); err == nil {
			return out
		}
	}
	return map[string]interface{}{}
}

// firstJSONObject scans for the first balanced top-level object, honoring
// string escapes.
func firstJSONObject(input string) string {
	start := strings.Index(input, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
