// Package textprep implements the preprocessor variants: a general one for
// space-delimited languages and one for Arabic script.
package textprep

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
)

// Text is the general preprocessor. A step runs only when its option is
// true or a non-zero parameter.
type Text struct {
	stopSource
	logger *zap.Logger
}

// NewText creates the general preprocessor.
func NewText(logger *zap.Logger) *Text {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Text{logger: logger}
}

// PreprocessBatch implements preprocess.Preprocessor.
func (p *Text) PreprocessBatch(ctx context.Context, texts []string, language string, options steps.Set) ([]string, error) {
	opts := options.Pending()
	tok, err := p.tokenizer(language, opts)
	if err != nil {
		return nil, err
	}

	docs := make([][]string, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err = p.normalize(text, opts)
		if err != nil {
			return nil, err
		}
		if docs[i], err = tok.Tokenize(text); err != nil {
			return nil, err
		}
	}

	minFreq, _ := opts.Number(steps.MinWordFreq)
	maxFreq, _ := opts.Number(steps.MaxWordFreq)
	docs = filterByFrequency(docs, int(minFreq), int(maxFreq))

	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = strings.Join(doc, " ")
	}
	return out, nil
}

func (p *Text) tokenizer(language string, opts steps.Set) (*Tokenizer, error) {
	tok := NewTokenizer()
	if opts.Flag(steps.RemoveStopwords, false) {
		base, err := p.base(language)
		if err != nil {
			return nil, err
		}
		if base.Len() == 0 {
			p.logger.Warn("no built-in stopwords for language", zap.String("language", language))
		}
		tok.SetStopwords(base.With(opts.List(steps.CustomStopwords)))
	}
	minLen, _ := opts.Number(steps.MinWordLength)
	maxLen, _ := opts.Number(steps.MaxWordLength)
	tok.SetLengthBounds(int(minLen), int(maxLen))
	if opts.Flag(steps.Stem, false) {
		if err := tok.SetStemming(language); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// normalize applies the character level steps in a fixed order.
func (p *Text) normalize(text string, opts steps.Set) (string, error) {
	if opts.Flag(steps.RemoveHTMLTags, false) {
		text = stripHTML(text)
	}
	if opts.Flag(steps.RemoveURLs, false) {
		text = removeURLs(text)
	}
	if opts.Flag(steps.Lowercase, false) {
		text = strings.ToLower(text)
	}
	if opts.Flag(steps.ExpandContractions, false) {
		text = expandContractions(text)
	}
	if opts.Flag(steps.RemoveAccents, false) {
		var err error
		if text, err = removeAccents(text); err != nil {
			return "", err
		}
	}
	if opts.Flag(steps.RemovePunctuation, false) {
		text = mapRunes(text, unicode.IsPunct, ' ')
	}
	if opts.Flag(steps.RemoveSpecialChars, false) {
		text = mapRunes(text, isSpecial, ' ')
	}
	if opts.Flag(steps.RemoveNumbers, false) {
		text = mapRunes(text, unicode.IsDigit, -1)
	}
	return text, nil
}
