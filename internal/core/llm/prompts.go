package llm

import (
	"fmt"
	"strings"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
	"github.com/lueurxax/channel-enricher/internal/core/signals"
)

// DefaultSystemPrompt instructs the model to answer with a single JSON object.
var DefaultSystemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	keys := make([]string, 0, len(domain.CodeKeys))
	for _, k := range domain.CodeKeys {
		keys = append(keys, fmt.Sprintf("%q:0.0", string(k)))
	}

	return strings.Join([]string{
		"Ты извлекаешь теги и короткие сигналы из текста.",
		`Верни ТОЛЬКО JSON вида: {"tags": ["..."], "emoji": ["..."], "code": {` + strings.Join(keys, ", ") + `}}.`,
		"Строго один JSON-объект без пояснений, без Markdown и без кода.",
		"Если нечего добавить, верни пустые массивы и нули.",
		"Теги на русском, без эмодзи и без #. Каждое слово с большой буквы.",
		"Аббревиатуры сохраняй (например, ЦБ, IMOEX2, USD/RUB).",
		"Если встречаются полные формы (например, Центральный банк), предпочитай сокращение (ЦБ).",
		"Теги должны быть короткими (1-3 слова) и в именительном падеже (Мосбиржа, Озон, Совкомбанк).",
		"Не добавляй фразы вроде 'Рост выручки Аэрофлота': выделяй сущность (Аэрофлот) и тему (Выручка).",
		"Избегай общих прилагательных и глаголов (Крупные, Частный, Замедлился).",
		"Не добавляй отдельные числа, цены, проценты или даты.",
		"Не используй латиницу, если есть русское написание.",
		"Эмодзи только из списка: " + strings.Join(signals.AllowedEmoji(), " ") + " (не больше 3).",
		"Старайся делать эмодзи-ребус в порядке: событие, направление, ресурс, страна.",
		"Коды: sentiment в диапазоне -1..1, остальные 0..1. usefulness = полезность, ad = вероятность рекламы.",
		"Не дублируй теги и не выдумывай.",
	}, " ")
}

// directTagPrompt is the user message of a synchronous chat request.
func directTagPrompt(req TagRequest) string {
	prompt := fmt.Sprintf("Выдели до %d тегов. Верни только JSON.\n\n%s", req.MaxTags, req.Text)

	if cands := uniqueStrings(req.Candidates); len(cands) > 0 {
		prompt = fmt.Sprintf("Возможные кандидаты (используй если релевантно): %s\n\n%s", strings.Join(cands, ", "), prompt)
	}

	return prompt
}

// queuedTagPrompt is the self-contained prompt submitted as a queued job.
func queuedTagPrompt(req TagRequest) string {
	parts := []string{
		"Верни ТОЛЬКО JSON формата:",
		`{"tags": ["..."], "emoji": ["..."], "code": {...}}`,
		fmt.Sprintf("Ограничения: tags <= %d; emoji <= 3.", req.MaxTags),
	}

	if cands := uniqueStrings(req.Candidates); len(cands) > 0 {
		parts = append(parts, "Кандидаты: "+strings.Join(cands, ", "))
	}

	parts = append(parts, "Текст:", req.Text)

	return strings.Join(parts, "\n\n")
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
