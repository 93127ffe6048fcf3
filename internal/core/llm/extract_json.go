package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// ExtractJSON leniently decodes a JSON object from model output. It tries the whole
// text, then the span from the first '{' to the last '}', then the same span with
// trailing commas removed.
func ExtractJSON(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrParse
	}

	if obj, ok := decodeObject(text); ok {
		return obj, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start == -1 || end <= start {
		return nil, ErrParse
	}

	blob := text[start : end+1]

	for _, candidate := range []string{blob, trailingCommaRe.ReplaceAllString(blob, "$1")} {
		if obj, ok := decodeObject(candidate); ok {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("%w: %.80q", ErrParse, text)
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}

	return obj, true
}
