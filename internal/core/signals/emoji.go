package signals

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
)

// MaxEmoji caps every emoji sequence attached to an item.
const MaxEmoji = 10

const (
	variationSelector = "\uFE0F"
	shortKeyRunes     = 4
	wordChars         = `\p{L}\p{N}_`
	wordStart         = `(?:^|[^` + wordChars + `])`
	wordEnd           = `(?:$|[^` + wordChars + `])`

	directionMarketFloor = 0.6
	commodityFloor       = 0.7
	fxFloor              = 0.6
	ratesFloor           = 0.7
	geopoliticsFloor     = 0.6
	urgencyFloor         = 0.7
)

// safeEmoji are neutral markers a model may emit even when heuristics disagree.
var safeEmoji = setOf("📰", "⚠️", "😡", "😢", "😊", "🎉", "🧠")

var (
	allowedSet = setOf(allowedEmoji...)
	// canonicalEmoji resolves an emoji written without its variation selector.
	canonicalEmoji = buildCanonical(allowedEmoji)
	flagMatchers   = buildFlagMatchers()
)

// AllowedEmoji returns the emoji vocabulary in presentation order.
func AllowedEmoji() []string {
	out := make([]string, len(allowedEmoji))
	copy(out, allowedEmoji)

	return out
}

// IsAllowed reports whether e belongs to the vocabulary.
func IsAllowed(e string) bool {
	_, ok := allowedSet[e]
	return ok
}

// CanonicalEmoji maps e to its vocabulary spelling, tolerating a missing or
// superfluous variation selector.
func CanonicalEmoji(e string) (string, bool) {
	e = strings.TrimSpace(e)
	if e == "" {
		return "", false
	}

	if IsAllowed(e) {
		return e, true
	}

	c, ok := canonicalEmoji[strings.ReplaceAll(e, variationSelector, "")]

	return c, ok
}

// SanitizeEmoji keeps allow-listed emoji in order, without duplicates, capped at MaxEmoji.
func SanitizeEmoji(raw []string) []string {
	out := make([]string, 0, len(raw))

	for _, r := range raw {
		e, ok := CanonicalEmoji(r)
		if !ok || contains(out, e) {
			continue
		}

		out = append(out, e)
		if len(out) == MaxEmoji {
			break
		}
	}

	return out
}

// ReconcileEmoji merges model emoji with the heuristic set. Model emoji survive only
// when the heuristics also produced them or they are neutral markers; heuristic emoji
// are appended afterwards. Without model emoji the heuristic set is used as is.
func ReconcileEmoji(model, fallback []string) []string {
	if len(model) == 0 {
		return capEmoji(fallback)
	}

	fb := setOf(fallback...)
	out := make([]string, 0, MaxEmoji)

	for _, e := range model {
		_, inFallback := fb[e]
		_, safe := safeEmoji[e]

		if (inFallback || safe) && !contains(out, e) {
			out = append(out, e)
		}
	}

	for _, e := range fallback {
		if !contains(out, e) {
			out = append(out, e)
		}
	}

	return capEmoji(out)
}

// FallbackEmoji composes an emoji rebus (event, direction, resource, country, finance)
// from keyword matches. It always returns at least the news marker.
func FallbackEmoji(tags []string, code domain.CodeVector, text string) []string {
	m := newEmojiMatcher(tags, text)
	out := make([]string, 0, MaxEmoji)

	add := func(e string) {
		if IsAllowed(e) && !contains(out, e) {
			out = append(out, e)
		}
	}

	// incident
	if m.inText("танкер", "судно", "корабл", "порт", "мор") {
		add("🚢")
	}

	if m.inText("взрыв", "взорвал", "взрыво", "удар", "обстрел", "бомб", "взрывчат") {
		add("💣")
	} else if m.inText("авар", "катастроф", "пожар") {
		add("💥")
	}

	// direction
	switch {
	case m.inText("упал", "сниз", "паден", "обвал", "просел"):
		add("📉")
	case m.inText("вырос", "поднял", "увелич", "прибав", "раст"):
		add("📈")
	case code.Get(domain.CodeMarket) > directionMarketFloor:
		if code.Get(domain.CodeSentiment) >= 0 {
			add("📈")
		} else {
			add("📉")
		}
	}

	for _, rule := range resourceRules {
		if m.any(rule.keys...) {
			add(rule.emoji)
		}
	}

	if code.Get(domain.CodeCommodities) > commodityFloor && !contains(out, "🥇") && !contains(out, "🛢️") && !contains(out, "🪨") {
		add("🪙")
	}

	for _, rule := range gamingRules {
		if m.any(rule.keys...) {
			add(rule.emoji)
		}
	}

	if m.any("приз", "призов", "выиграл", "побед", "$", "миллион", "тыс") {
		add("💰")
	}

	for _, fm := range flagMatchers {
		if fm.re.MatchString(m.text) {
			add(fm.flag)
		}
	}

	if strings.Contains(m.tags, "/") || code.Get(domain.CodeFX) > fxFloor {
		add("💱")
	}

	if strings.Contains(m.tags, "банк") || strings.Contains(m.tags, "цб") || code.Get(domain.CodeRates) > ratesFloor {
		add("🏦")
	}

	if code.Get(domain.CodeGeopolitics) > geopoliticsFloor {
		add("🌍")
	}

	if code.Get(domain.CodeUrgency) > urgencyFloor {
		add("⚠️")
	}

	if len(out) == 0 {
		add(domain.ServiceEmoji)
	}

	return capEmoji(out)
}

type emojiRule struct {
	emoji string
	keys  []string
}

var resourceRules = []emojiRule{
	{"🥇", []string{"золот", "gold", "золото"}},
	{"🥈", []string{"серебр", "silver"}},
	{"🥉", []string{"медь", "copper", "bronze", "бронз"}},
	{"🪙", []string{"платин", "паллад"}},
	{"🛢️", []string{"нефт", "brent", "urals"}},
	{"⛽️", []string{"газ", "lng"}},
	{"🪨", []string{"уголь", "руда", "желез", "алюмин", "никел", "литий", "кобальт", "уран"}},
	{"🪵", []string{"лес", "древесин", "пиломат", "лесомат"}},
	{"🌾", []string{"зерн", "пшениц", "ячмен", "овес"}},
	{"🌽", []string{"кукуруз"}},
	{"🍬", []string{"сахар"}},
	{"🌱", []string{"удобр", "агро", "аграр", "посев"}},
	{"🐄", []string{"мясо", "говя", "скот", "молок"}},
	{"🐟", []string{"рыб", "seafood"}},
	{"⚡️", []string{"электроэнерг", "мощност", "энергосистем"}},
	{"✈️", []string{"авиа", "самолет", "аэропорт"}},
	{"🛰️", []string{"космос", "спутник", "space"}},
	{"🏠", []string{"недвиж", "ипотек", "строительств"}},
	{"☢️", []string{"ядер", "атом", "радиац"}},
	{"📊", []string{"рынок", "индекс", "котиров"}},
}

var gamingRules = []emojiRule{
	{"🎮", []string{"dota", "dota 2", "cs2", "cs:go", "counter-strike", "киберспорт", "esports", "гейм", "игр", "геймер"}},
	{"🏆", []string{"турнир", "чемпионат", "лига", "season", "финал", "playoff", "плей-офф"}},
	{"⚔️", []string{"матч", "серия", "против", "vs"}},
}

// emojiMatcher matches keys of up to four runes only at a word start;
// longer keys match anywhere.
type emojiMatcher struct {
	text string
	tags string
}

func newEmojiMatcher(tags []string, text string) emojiMatcher {
	return emojiMatcher{
		text: strings.ToLower(text),
		tags: strings.ToLower(strings.Join(tags, " ")),
	}
}

func (m emojiMatcher) inText(keys ...string) bool {
	for _, k := range keys {
		if matchKey(m.text, k) {
			return true
		}
	}

	return false
}

func (m emojiMatcher) any(keys ...string) bool {
	for _, k := range keys {
		if matchKey(m.text, k) || matchKey(m.tags, k) {
			return true
		}
	}

	return false
}

// matchKey matches long keys as substrings. A short key must start at a word
// boundary and, together with any word characters that follow it, end at one.
// For a key of non-word characters such as "$" both boundaries require a word
// character next to the key.
func matchKey(value, key string) bool {
	if utf8.RuneCountInString(key) > shortKeyRunes {
		return strings.Contains(value, key)
	}

	if key == "" {
		return false
	}

	first, _ := utf8.DecodeRuneInString(key)
	last, _ := utf8.DecodeLastRuneInString(key)

	for offset := 0; offset < len(value); {
		idx := strings.Index(value[offset:], key)
		if idx < 0 {
			return false
		}

		start := offset + idx
		end := start + len(key)

		if isWordRune(runeBefore(value, start)) != isWordRune(first) {
			if next := runeAt(value, end); isWordRune(next) || isWordRune(last) != isWordRune(next) {
				return true
			}
		}

		_, size := utf8.DecodeRuneInString(value[start:])
		offset = start + size
	}

	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// runeBefore returns the rune ending at byte i, or utf8.RuneError at the start.
func runeBefore(s string, i int) rune {
	if i == 0 {
		return utf8.RuneError
	}

	r, _ := utf8.DecodeLastRuneInString(s[:i])

	return r
}

// runeAt returns the rune starting at byte i, or utf8.RuneError at the end.
func runeAt(s string, i int) rune {
	if i >= len(s) {
		return utf8.RuneError
	}

	r, _ := utf8.DecodeRuneInString(s[i:])

	return r
}

type flagMatcher struct {
	flag string
	re   *regexp.Regexp
}

func buildFlagMatchers() []flagMatcher {
	out := make([]flagMatcher, 0, len(countryWords))

	for _, cw := range countryWords {
		alts := make([]string, 0, len(cw.words))

		for _, w := range cw.words {
			if stem, ok := strings.CutSuffix(w, "*"); ok {
				alts = append(alts, regexp.QuoteMeta(stem))
				continue
			}

			alts = append(alts, regexp.QuoteMeta(w)+wordEnd)
		}

		out = append(out, flagMatcher{
			flag: cw.flag,
			re:   regexp.MustCompile(wordStart + `(?:` + strings.Join(alts, "|") + `)`),
		})
	}

	return out
}

func buildCanonical(list []string) map[string]string {
	out := make(map[string]string, len(list))
	for _, e := range list {
		out[strings.ReplaceAll(e, variationSelector, "")] = e
	}

	return out
}

func capEmoji(list []string) []string {
	if len(list) > MaxEmoji {
		return list[:MaxEmoji]
	}

	return list
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}

	return false
}

func setOf(items ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}

	return set
}
