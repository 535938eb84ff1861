package textprep

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/stoplist"
)

var snowballLanguages = map[string]string{
	"en": "english",
	"es": "spanish",
	"fr": "french",
	"ru": "russian",
	"sv": "swedish",
	"no": "norwegian",
	"hu": "hungarian",
}

// Tokenizer filters whitespace tokens: stopwords, length bounds, stemming.
type Tokenizer struct {
	stopwords *stoplist.Manager // nil disables stopword removal
	minLen    int
	maxLen    int
	stemLang  string // snowball language name, empty disables stemming
}

// NewTokenizer creates a tokenizer that keeps every token.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// SetStopwords enables stopword removal with the given list.
func (t *Tokenizer) SetStopwords(m *stoplist.Manager) {
	t.stopwords = m
}

// SetLengthBounds drops tokens shorter than min or longer than max runes.
// Zero disables a bound.
func (t *Tokenizer) SetLengthBounds(min, max int) {
	t.minLen = min
	t.maxLen = max
}

// SetStemming enables snowball stemming for an ISO 639-1 language code.
func (t *Tokenizer) SetStemming(lang string) error {
	name, ok := snowballLanguages[strings.ToLower(lang)]
	if !ok {
		return fmt.Errorf("no stemmer for language %q: %w", lang, internalerr.ErrInvalidInput)
	}
	t.stemLang = name
	return nil
}

// Tokenize splits text on whitespace and filters the tokens.
func (t *Tokenizer) Tokenize(text string) ([]string, error) {
	fields := strings.Fields(text)
	tokens := fields[:0]
	for _, f := range fields {
		word, err := t.processToken(f)
		if err != nil {
			return nil, err
		}
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens, nil
}

// processToken applies stopword filtering, length bounds and stemming.
func (t *Tokenizer) processToken(word string) (string, error) {
	if t.stopwords != nil && t.stopwords.IsStop(word) {
		return "", nil
	}

	n := utf8.RuneCountInString(word)
	if t.minLen > 0 && n < t.minLen {
		return "", nil
	}
	if t.maxLen > 0 && n > t.maxLen {
		return "", nil
	}

	if t.stemLang != "" {
		stemmed, err := snowball.Stem(word, t.stemLang, true)
		if err != nil {
			return "", fmt.Errorf("stem %q: %w", word, err)
		}
		word = stemmed
	}
	return word, nil
}

// filterByFrequency drops tokens whose corpus-wide count is below min or above
// max. Zero disables a bound.
func filterByFrequency(docs [][]string, min, max int) [][]string {
	if min <= 0 && max <= 0 {
		return docs
	}
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, tok := range doc {
			counts[tok]++
		}
	}
	out := make([][]string, len(docs))
	for i, doc := range docs {
		kept := make([]string, 0, len(doc))
		for _, tok := range doc {
			c := counts[tok]
			if min > 0 && c < min {
				continue
			}
			if max > 0 && c > max {
				continue
			}
			kept = append(kept, tok)
		}
		out[i] = kept
	}
	return out
}
