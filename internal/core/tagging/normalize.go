package tagging

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	minTagRunes          = 3
	genericPruneAbove    = 6
	genericPruneMinAfter = 3
	tagTrimCutset        = " \t\r\n\"'`()[]{}<>"
)

var (
	allowedTagRe     = regexp.MustCompile(`^[A-Za-zА-Яа-яЁё0-9 ./&()+-]+$`)
	digitRe          = regexp.MustCompile(`[0-9]`)
	identifierRe     = regexp.MustCompile(`^[A-ZА-ЯЁ0-9./&-]+$`)
	capsNumberRe     = regexp.MustCompile(`^[A-ZА-ЯЁ]{2,}\s?[0-9]+$`)
	numericRe        = regexp.MustCompile(`^[0-9]+([.,][0-9]+)?$`)
	latinRe          = regexp.MustCompile(`[A-Za-z]`)
	latinIdentRe     = regexp.MustCompile(`^[A-Z0-9./&-]+$`)
	cyrillicIdentRe  = regexp.MustCompile(`^[А-ЯЁ0-9./&-]+$`)
	dashReplacer     = strings.NewReplacer("‑", "-", "–", "-", "—", "-")
	descriptivePrefx = []string{
		"Рост",
		"Снижение",
		"Падение",
		"Увеличение",
		"Сокращение",
		"Уменьшение",
		"Повышение",
	}
)

var stopTags = setOf(
	"сфера", "сектор", "услуги", "покупки", "продукции", "активность",
	"крупные", "крупный", "крупная", "крупного", "крупной", "крупным",
	"частный", "частная", "частные", "частного", "частной", "частным",
	"деловая", "деловой", "деловые", "делового",
	"экономическая", "экономический", "экономические", "экономической", "экономического",
	"потребительская", "продовольственная", "логистические", "транспортные", "туристическая",
	"общественный", "общественная", "общественные", "будний день",
	"на", "в", "по", "к", "из", "за", "для", "о", "об", "обо", "у", "от", "до",
	"при", "про", "под", "над", "между", "без",
	"live", "stream", "started", "рост",
)

var genericTags = setOf(
	"рынок", "продукция", "погода", "интернет", "сад", "ремонт", "аккаунты",
	"поездки", "новости", "экспресс", "подкаст", "компания", "компании",
	"граждане", "бизнес", "операции", "платежи", "бюджет", "цена", "стрим",
	"старт", "вывод",
)

var adjectiveEndings = []string{
	"ая", "яя", "ое", "ее", "ый", "ий", "ые", "ие", "ой",
	"ого", "его", "ему", "ими", "ыми", "ым", "ую",
}

var verbEndings = []string{"лся", "лась", "лись", "лось", "ли", "ло", "ла"}

var adjectiveKeep = setOf("первичный", "вторичный", "валютные", "валютный")

type compoundMerge struct {
	left, right, combined string
}

var compoundMerges = []compoundMerge{
	{"Валютные", "Бумаги", "Валютные Бумаги"},
	{"Первичный", "Рынок", "Первичный Рынок"},
	{"Вторичный", "Рынок", "Вторичный Рынок"},
}

// Normalizer canonicalizes raw tags against an alias table.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	aliases    AliasMap
	lemmatizer Lemmatizer
}

// NewNormalizer creates a normalizer. A nil lemmatizer falls back to the identity reduction.
func NewNormalizer(aliases AliasMap, lemmatizer Lemmatizer) *Normalizer {
	if aliases == nil {
		aliases = BuildAliasMap("")
	}

	if lemmatizer == nil {
		lemmatizer = IdentityLemmatizer{}
	}

	return &Normalizer{aliases: aliases, lemmatizer: lemmatizer}
}

// NormalizeTag returns the canonical form of raw, or false when the token is rejected.
func (n *Normalizer) NormalizeTag(raw string) (string, bool) {
	tag := strings.TrimSpace(norm.NFC.String(raw))
	if tag == "" {
		return "", false
	}

	if utf8.RuneCountInString(tag) < minTagRunes && !isUpper(tag) {
		return "", false
	}

	tag = strings.TrimSpace(strings.TrimPrefix(tag, "#"))
	if tag == "" {
		return "", false
	}

	tag = dashReplacer.Replace(tag)
	tag = strings.Trim(tag, tagTrimCutset)
	tag = strings.Join(strings.Fields(tag), " ")

	tag, ok := dropDescriptivePrefix(tag)
	if !ok {
		return "", false
	}

	if !allowedTagRe.MatchString(tag) {
		return "", false
	}

	if canonical, found := n.aliases.Lookup(tag); found {
		return canonical, true
	}

	if digitRe.MatchString(tag) && !identifierRe.MatchString(tag) && !capsNumberRe.MatchString(tag) {
		return "", false
	}

	if numericRe.MatchString(tag) {
		return "", false
	}

	if latinRe.MatchString(tag) {
		if latinIdentRe.MatchString(tag) {
			return tag, true
		}

		return "", false
	}

	if cyrillicIdentRe.MatchString(tag) {
		return tag, true
	}

	tag = n.reduce(tag)

	if isStopTag(tag) {
		return "", false
	}

	return TitleCase(tag), true
}

// NormalizeTags normalizes every raw tag, deduplicates preserving first-seen order,
// merges known compound pairs and prunes overly generic tags from long lists.
func (n *Normalizer) NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	result := make([]string, 0, len(raw))

	for _, r := range raw {
		if r == "" {
			continue
		}

		tag, ok := n.NormalizeTag(r)
		if !ok {
			continue
		}

		if _, dup := seen[tag]; dup {
			continue
		}

		seen[tag] = struct{}{}
		result = append(result, tag)
	}

	return filterGeneric(mergeCompounds(result))
}

func (n *Normalizer) reduce(tag string) string {
	if !isSingleWord(tag) || !isCapitalized(tag) {
		return tag
	}

	lowered := strings.ToLower(tag)

	lemma := n.lemmatizer.Lemma(lowered)
	if lemma == "" || lemma == lowered {
		return tag
	}

	return TitleCase(lemma)
}

func dropDescriptivePrefix(tag string) (string, bool) {
	lowered := strings.ToLower(tag)

	for _, prefix := range descriptivePrefx {
		if !strings.HasPrefix(lowered, strings.ToLower(prefix)+" ") {
			continue
		}

		rest := strings.TrimSpace(string([]rune(tag)[utf8.RuneCountInString(prefix)+1:]))
		if rest == "" {
			return "", false
		}

		return TitleCase(rest), true
	}

	return tag, true
}

func mergeCompounds(tags []string) []string {
	present := make(map[string]bool, len(tags))
	for _, t := range tags {
		present[t] = true
	}

	for _, m := range compoundMerges {
		if present[m.left] && present[m.right] {
			delete(present, m.left)
			delete(present, m.right)
			present[m.combined] = true
		}
	}

	merged := make([]string, 0, len(present))
	emitted := make(map[string]bool, len(present))

	for _, t := range tags {
		if present[t] && !emitted[t] {
			merged = append(merged, t)
			emitted[t] = true
		}
	}

	for _, m := range compoundMerges {
		if present[m.combined] && !emitted[m.combined] {
			merged = append(merged, m.combined)
			emitted[m.combined] = true
		}
	}

	return merged
}

func filterGeneric(tags []string) []string {
	if len(tags) <= genericPruneAbove {
		return tags
	}

	filtered := make([]string, 0, len(tags))

	for _, t := range tags {
		if _, generic := genericTags[strings.ToLower(t)]; !generic {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) >= genericPruneMinAfter {
		return filtered
	}

	return tags
}

func isStopTag(tag string) bool {
	lowered := strings.ToLower(tag)

	if _, ok := stopTags[lowered]; ok {
		return true
	}

	if !isSingleWord(tag) {
		return false
	}

	if _, ok := adjectiveKeep[lowered]; ok {
		return false
	}

	if strings.HasSuffix(lowered, "ся") || hasAnySuffix(lowered, verbEndings) {
		return true
	}

	return hasAnySuffix(lowered, adjectiveEndings)
}

// TitleCase capitalizes every space- or hyphen-separated segment while leaving
// all-uppercase segments (acronyms) untouched.
func TitleCase(text string) string {
	words := strings.Split(text, " ")
	parts := make([]string, 0, len(words))

	for _, word := range words {
		if word == "" {
			continue
		}

		if isUpper(word) {
			parts = append(parts, word)
			continue
		}

		subs := strings.Split(word, "-")
		titled := make([]string, 0, len(subs))

		for _, sub := range subs {
			if sub == "" {
				continue
			}

			if isUpper(sub) {
				titled = append(titled, sub)
				continue
			}

			titled = append(titled, upperFirst(sub))
		}

		parts = append(parts, strings.Join(titled, "-"))
	}

	return strings.Join(parts, " ")
}

// upperFirst uppercases only the first rune of a segment. Letters after "/", "+"
// or "(" keep their case. Casers are stateful, so a fresh one is built per call.
func upperFirst(s string) string {
	_, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}

	return cases.Upper(language.Russian).String(s[:n]) + s[n:]
}

// isUpper reports whether s has at least one cased letter and no lowercase letters.
func isUpper(s string) bool {
	cased := false

	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}

		if unicode.IsUpper(r) {
			cased = true
		}
	}

	return cased
}

// isCapitalized reports whether s starts with an uppercase letter followed by a lowercase-only tail.
func isCapitalized(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(r) {
		return false
	}

	tail := s[size:]
	hasLower := false

	for _, c := range tail {
		if unicode.IsUpper(c) {
			return false
		}

		if unicode.IsLower(c) {
			hasLower = true
		}
	}

	return hasLower
}

func isSingleWord(tag string) bool {
	return !strings.ContainsAny(tag, " -")
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
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
