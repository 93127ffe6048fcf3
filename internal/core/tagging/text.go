package tagging

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	servicePostMaxRunes = 32
	headShare           = 0.7
	truncationMarker    = " ... "
)

var (
	hashtagRe      = regexp.MustCompile(`#([\p{L}\p{N}_\-]+)`)
	currencyPairRe = regexp.MustCompile(`[A-Z]{2,5}/[A-Z]{2,5}`)
	capsTokenRe    = regexp.MustCompile(`[A-Z0-9]{3,}`)
)

var servicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^live stream started$`),
	regexp.MustCompile(`стрим начался`),
	regexp.MustCompile(`прямая трансляция`),
	regexp.MustCompile(`эфир начался`),
	regexp.MustCompile(`подключайтесь к трансляции`),
	regexp.MustCompile(`прямой эфир`),
}

// IsServicePost reports whether a short post is a stream/broadcast announcement
// with no substantive content.
func IsServicePost(text string) bool {
	cleaned := strings.ToLower(collapseSpaces(text))
	if cleaned == "" || utf8.RuneCountInString(cleaned) > servicePostMaxRunes {
		return false
	}

	for _, re := range servicePatterns {
		if re.MatchString(cleaned) {
			return true
		}
	}

	return false
}

// ExtractCandidates collects hashtags, currency pairs and all-caps identifiers
// that are likely tags. Order of appearance is kept per family; duplicates are dropped.
func ExtractCandidates(text string) []string {
	if text == "" {
		return nil
	}

	var out []string

	seen := make(map[string]struct{})
	push := func(s string) {
		if s == "" {
			return
		}

		if _, ok := seen[s]; ok {
			return
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, m := range hashtagRe.FindAllStringSubmatch(text, -1) {
		push(m[1])
	}

	for _, m := range findWords(currencyPairRe, text) {
		push(m)
	}

	for _, m := range findWords(capsTokenRe, text) {
		push(m)
	}

	return out
}

// findWords returns the matches of re that are not glued to a letter, digit or
// underscore on either side. Cyrillic counts as a word character.
func findWords(re *regexp.Regexp, text string) []string {
	var out []string

	for offset := 0; offset < len(text); {
		loc := re.FindStringIndex(text[offset:])
		if loc == nil {
			break
		}

		start, end := offset+loc[0], offset+loc[1]

		if !isWordRune(lastRune(text[:start])) && !isWordRune(firstRune(text[end:])) {
			out = append(out, text[start:end])
			offset = end

			continue
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}

	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func firstRune(s string) rune {
	if s == "" {
		return utf8.RuneError
	}

	r, _ := utf8.DecodeRuneInString(s)

	return r
}

func lastRune(s string) rune {
	if s == "" {
		return utf8.RuneError
	}

	r, _ := utf8.DecodeLastRuneInString(s)

	return r
}

// PrepareText collapses whitespace and, when the text exceeds maxRunes, keeps
// the head and tail joined by an ellipsis marker. maxRunes <= 0 disables truncation.
func PrepareText(text string, maxRunes int) string {
	cleaned := collapseSpaces(text)
	if maxRunes <= 0 {
		return cleaned
	}

	runes := []rune(cleaned)
	if len(runes) <= maxRunes {
		return cleaned
	}

	head := int(float64(maxRunes) * headShare)
	tail := maxRunes - head

	return string(runes[:head]) + truncationMarker + string(runes[len(runes)-tail:])
}

// Truncate cuts text to at most maxRunes runes after collapsing whitespace.
func Truncate(text string, maxRunes int) string {
	cleaned := collapseSpaces(text)
	if maxRunes <= 0 {
		return cleaned
	}

	runes := []rune(cleaned)
	if len(runes) <= maxRunes {
		return cleaned
	}

	return string(runes[:maxRunes])
}

func collapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
