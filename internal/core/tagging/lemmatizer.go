package tagging

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lemmatizer reduces a lowercase word to its dictionary base form.
// Implementations return the input unchanged when they cannot reduce it.
type Lemmatizer interface {
	Lemma(word string) string
}

// IdentityLemmatizer is used when no morphological dictionary is configured.
type IdentityLemmatizer struct{}

// Lemma returns word unchanged.
func (IdentityLemmatizer) Lemma(word string) string {
	return word
}

// DictionaryLemmatizer resolves word forms through a static form-to-lemma table.
type DictionaryLemmatizer map[string]string

// NewDictionaryLemmatizer builds a lemmatizer from lemma -> forms lists.
func NewDictionaryLemmatizer(forms map[string][]string) DictionaryLemmatizer {
	d := make(DictionaryLemmatizer)

	for lemma, list := range forms {
		lemma = strings.ToLower(strings.TrimSpace(lemma))
		if lemma == "" {
			continue
		}

		for _, form := range list {
			d[strings.ToLower(strings.TrimSpace(form))] = lemma
		}
	}

	return d
}

// Lemma returns the base form recorded for word, or word when it is unknown.
func (d DictionaryLemmatizer) Lemma(word string) string {
	if lemma, ok := d[word]; ok {
		return lemma
	}

	return word
}

// ParseLemmas builds a lemmatizer from a JSON or YAML table of lemma -> forms:
//
//	нефть: [нефти, нефтью]
//
// An empty payload yields the identity reduction.
func ParseLemmas(payload string) (Lemmatizer, error) {
	if strings.TrimSpace(payload) == "" {
		return IdentityLemmatizer{}, nil
	}

	var forms map[string][]string
	if err := yaml.Unmarshal([]byte(payload), &forms); err != nil {
		return nil, fmt.Errorf("parse lemma table: %w", err)
	}

	return NewDictionaryLemmatizer(forms), nil
}
