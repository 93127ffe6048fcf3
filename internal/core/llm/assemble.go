package llm

import (
	"fmt"
	"strings"

	"github.com/lueurxax/channel-enricher/internal/core/signals"
)

// assembleTags turns model text into a result. Unparseable text or an empty tag
// list falls back to the candidates and the heuristic scorer. The model code is
// merged with the heuristic code and model emoji are reconciled with heuristic emoji.
func assembleTags(content string, req TagRequest, meta Meta) TagResult {
	parsed, err := ExtractJSON(content)
	meta.Parsed = err == nil

	tags := uniqueStrings(stringList(parsed["tags"]))
	if len(tags) == 0 {
		tags = uniqueStrings(req.Candidates)
	}

	if req.MaxTags > 0 && len(tags) > req.MaxTags {
		tags = tags[:req.MaxTags]
	}

	codeRaw, _ := parsed["code"].(map[string]any)
	code := signals.MergeCode(signals.NormalizeCode(codeRaw), signals.FallbackCode(tags, req.Text))

	modelEmoji := signals.SanitizeEmoji(stringList(parsed["emoji"]))
	emoji := signals.ReconcileEmoji(modelEmoji, signals.FallbackEmoji(tags, code, req.Text))

	return TagResult{Tags: tags, Emoji: emoji, Code: code, Meta: meta}
}

// stringList accepts strings and numbers; anything else is skipped.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))

	for _, item := range items {
		switch x := item.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				out = append(out, s)
			}
		case float64:
			out = append(out, fmt.Sprint(x))
		}
	}

	return out
}
