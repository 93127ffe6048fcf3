// Package signals derives the scalar signal code and the emoji summary of a post
// without a language model, and reconciles model output with those heuristics.
package signals

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
)

const (
	keywordHit       = 0.7
	strongHit        = 0.8
	adConfidence     = 0.85
	sentimentShift   = 0.4
	cryptoMarketHint = 0.6

	usefulnessBase    = 0.25
	usefulnessNovel   = 0.6
	usefulnessReport  = 0.5
	usefulnessChatter = 0.25
	usefulnessAd      = 0.15
	adUsefulnessCap   = 0.7
	urgentUsefulness  = 0.7
)

var (
	urgencyKeys     = []string{"срочно", "молния", "breaking", "важно", "urgent"}
	marketKeys      = []string{"рынок", "индекс", "акци", "котиров", "s&p", "nasdaq", "dow", "imoex", "ртс"}
	macroKeys       = []string{"инфляц", "ввп", "gdp", "безработ", "экономик", "макро"}
	geopoliticsKeys = []string{"санкц", "переговор", "конфликт", "обострен", "украин", "сша", "китай", "ес", "геополит"}
	commoditiesKeys = []string{"нефт", "газ", "brent", "urals", "золот", "серебр", "металл", "уголь", "руда", "commod"}
	fxKeys          = []string{"валют", "usd", "eur", "юань", "курс", "fx"}
	ratesKeys       = []string{"цб", "ставк", "ключев", "rates"}
	cryptoKeys      = []string{"btc", "eth", "биткоин", "крипт", "blockchain", "crypto"}
	growthKeys      = []string{"вырос", "рост", "прибав", "подорож", "увелич"}
	declineKeys     = []string{"упал", "сниз", "обвал", "подешев", "просел"}
	adKeys          = []string{
		"реклам", "промокод", "скидк", "купон", "подпис", "партнер", "спонсор", "купить",
		"заказать", "акция", "розыгрыш", "конкурс", "регистрац", "перейди", "ссылка",
	}
	noveltyKeys = []string{"впервые", "рекорд", "аномал", "необыч"}
	reportKeys  = []string{"отчет", "результат", "дивиден", "ipo", "ставк", "инфляц"}
	chatterKeys = []string{"подкаст", "стрим", "интервью"}
)

// NormalizeCode builds a full code vector from an arbitrary decoded JSON object.
// Missing or non-numeric values become zero and every value is clamped to its bounds.
func NormalizeCode(payload map[string]any) domain.CodeVector {
	code := domain.NewCodeVector()

	for _, key := range domain.CodeKeys {
		value, ok := toFloat(payload[string(key)])
		if !ok {
			continue
		}

		lo, hi := key.Bounds()
		code[key] = clamp(value, lo, hi)
	}

	return code
}

// MergeCode combines a model-produced vector with the heuristic one. Sentiment keeps
// whichever value has the larger magnitude; every other dimension takes the maximum.
func MergeCode(base, fallback domain.CodeVector) domain.CodeVector {
	merged := domain.NewCodeVector()
	for k, v := range base {
		merged[k] = v
	}

	for k, v := range fallback {
		if k == domain.CodeSentiment {
			if math.Abs(v) > math.Abs(merged[k]) {
				merged[k] = v
			}

			continue
		}

		merged[k] = math.Max(merged[k], v)
	}

	return merged
}

// FallbackCode scores a post by keyword families found in its tags and text.
func FallbackCode(tags []string, text string) domain.CodeVector {
	code := domain.NewCodeVector()
	s := newScanner(tags, text)

	if s.containsAny(urgencyKeys) {
		code[domain.CodeUrgency] = strongHit
	}

	if s.containsAny(marketKeys) {
		code[domain.CodeMarket] = keywordHit
	}

	if s.containsAny(macroKeys) {
		code[domain.CodeMacro] = keywordHit
	}

	if s.containsAny(geopoliticsKeys) {
		code[domain.CodeGeopolitics] = keywordHit
	}

	if s.containsAny(commoditiesKeys) {
		code[domain.CodeCommodities] = keywordHit
	}

	if s.containsAny(fxKeys) {
		code[domain.CodeFX] = keywordHit
	}

	if s.containsAny(ratesKeys) {
		code[domain.CodeRates] = strongHit
	}

	if s.containsAny(cryptoKeys) {
		code[domain.CodeCrypto] = strongHit
		code[domain.CodeMarket] = math.Max(code[domain.CodeMarket], cryptoMarketHint)
	}

	if s.containsAny(growthKeys) {
		code[domain.CodeSentiment] = sentimentShift
	}

	if s.containsAny(declineKeys) {
		code[domain.CodeSentiment] = -sentimentShift
	}

	if s.containsAny(adKeys) {
		code[domain.CodeAd] = adConfidence
	}

	code[domain.CodeUsefulness] = usefulness(s, code)

	return code
}

func usefulness(s scanner, code domain.CodeVector) float64 {
	value := usefulnessBase

	if code[domain.CodeUrgency] >= urgentUsefulness || s.containsAny(noveltyKeys) {
		value = math.Max(value, usefulnessNovel)
	}

	if s.containsAny(reportKeys) {
		value = math.Max(value, usefulnessReport)
	}

	if s.containsAny(chatterKeys) {
		value = math.Min(value, usefulnessChatter)
	}

	if code[domain.CodeAd] >= adUsefulnessCap {
		value = math.Min(value, usefulnessAd)
	}

	return value
}

// scanner holds the lowercased text and tag line searched by the heuristics.
type scanner struct {
	text string
	tags string
}

func newScanner(tags []string, text string) scanner {
	return scanner{
		text: strings.ToLower(text),
		tags: strings.ToLower(strings.Join(tags, " ")),
	}
}

func (s scanner) containsAny(keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s.text, k) || strings.Contains(s.tags, k) {
			return true
		}
	}

	return false
}

func toFloat(v any) (float64, bool) {
	var f float64

	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}

		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}

		f = parsed
	case bool:
		if n {
			f = 1
		}
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
