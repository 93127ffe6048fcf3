// Package tagging canonicalizes raw tag strings produced by the language model.
//
// The normalizer trims punctuation, strips descriptive prefixes, resolves aliases
// (including transliterated spellings), rejects noise tokens and title-cases the
// result. The alias table is built once at startup and is read-only afterwards.
package tagging

import (
	"strings"

	"gopkg.in/yaml.v3"
)

var defaultAliases = map[string]string{
	"цб":                      "ЦБ",
	"центральный банк":        "ЦБ",
	"central bank":            "ЦБ",
	"central bank of russia":  "ЦБ",
	"бпла":                    "БПЛА",
	"аси":                     "АСИ",
	"рф":                      "РФ",
	"урале":                   "Урал",
	"t-technologies":          "Т-Технологии",
	"t‑technologies":          "Т-Технологии",
	"alfa investments":        "Альфа-Инвестиции",
	"alfa-investments":        "Альфа-Инвестиции",
	"alpha investments":       "Альфа-Инвестиции",
	"alpha-investments":       "Альфа-Инвестиции",
	"alfa investment":         "Альфа-Инвестиции",
	"alpha investment":        "Альфа-Инвестиции",
	"альфа инвестиции":        "Альфа-Инвестиции",
	"альфаиндекс":             "Альфа-Индекс",
	"альфа индекс":            "Альфа-Индекс",
	"дом.рф":                  "ДОМ.РФ",
	"valutnye":                "Валютные",
	"valyutnye":               "Валютные",
	"что купить":              "Что Купить",
	"чтокупить":               "Что Купить",
	"сельгдар":                "Селигдар",
	"аэрофлота":               "Аэрофлот",
	"сербанк":                 "Сбербанк",
	"соединенные штаты":       "США",
	"соединённые штаты":       "США",
	"сша":                     "США",
	"рынк":                    "Рынок",
	"рынки":                   "Рынок",
	"цены":                    "Цены",
	"дефисит":                 "Дефицит",
	"geopolitica":             "Геополитика",
	"мосбиржи":                "Мосбиржа",
	"озона":                   "Озон",
	"совкомбанка":             "Совкомбанк",
	"полюса":                  "Полюс",
	"дзень":                   "Дзен",
	"драгметалы":              "Драгметаллы",
	"банк россии":             "ЦБ",
	"икс 5":                   "ИКС 5",
	"глоракс":                 "Глоракс",
	"мд медикал груп":         "МД Медикал Груп",
	"ипо":                     "IPO",
	"ipo":                     "IPO",
	"татнефти":                "Татнефть",
	"ростелекома":             "Ростелеком",
	"пика":                    "ПИК",
	"банка санкт-петербург":   "Банк Санкт-Петербург",
	"эн+ груп":                "ЭН+ Груп",
	"минцифра":                "Минцифры",
	"keystavka":               "Ключевая Ставка",
}

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "i", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sh", 'ы': "y",
	'э': "e", 'ю': "yu", 'я': "ya",
}

// FoldKey lowercases text and transliterates Cyrillic letters to Latin so that
// "Ключевая" and "klyuchevaya" share a lookup key.
func FoldKey(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder

	b.Grow(len(lowered))

	for _, r := range lowered {
		if lat, ok := cyrillicToLatin[r]; ok {
			b.WriteString(lat)
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

// AliasMap maps lowercase and transliteration-folded surface forms to canonical tags.
type AliasMap map[string]string

// Lookup resolves a tag by its lowercase form first, then by its folded form.
func (m AliasMap) Lookup(tag string) (string, bool) {
	if canonical, ok := m[strings.ToLower(tag)]; ok {
		return canonical, true
	}

	canonical, ok := m[FoldKey(tag)]

	return canonical, ok
}

func (m AliasMap) add(alias, canonical string) {
	alias = strings.TrimSpace(alias)
	canonical = strings.TrimSpace(canonical)

	if alias == "" || canonical == "" {
		return
	}

	m[strings.ToLower(alias)] = canonical
	m[FoldKey(alias)] = canonical
}

// BuildAliasMap merges the built-in alias table with an optional override payload.
//
// The payload may be JSON or YAML and take one of three shapes:
//
//	{"Canonical": ["alias one", "alias two"]}
//	{"alias": "Canonical"}
//	[{"alias": "...", "canonical": "..."}]
//
// A malformed payload is ignored and only the built-in table applies.
func BuildAliasMap(payload string) AliasMap {
	aliases := make(AliasMap, len(defaultAliases)*2)

	for alias, canonical := range defaultAliases {
		aliases.add(alias, canonical)
	}

	if strings.TrimSpace(payload) == "" {
		return aliases
	}

	var data interface{}
	if err := yaml.Unmarshal([]byte(payload), &data); err != nil {
		return aliases
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for key, value := range v {
			switch val := value.(type) {
			case []interface{}:
				for _, item := range val {
					if s, ok := item.(string); ok {
						aliases.add(s, key)
					}
				}
			case string:
				aliases.add(key, val)
			}
		}
	case []interface{}:
		for _, item := range v {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}

			alias, _ := entry["alias"].(string)
			canonical, _ := entry["canonical"].(string)
			aliases.add(alias, canonical)
		}
	}

	return aliases
}
