package textprep

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/preprocess"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/stoplist"
)

// Variant names accepted by NewSelector.
const (
	VariantText   = "text"
	VariantArabic = "arabic"
)

// Selector dispatches a batch to the variant configured for its language.
type Selector struct {
	byLanguage map[string]preprocess.Preprocessor
	fallback   preprocess.Preprocessor
}

// NewSelector builds a selector from a language -> variant name mapping.
// Languages not in the mapping use defaultVariant.
func NewSelector(byLanguage map[string]string, defaultVariant string, logger *zap.Logger) (*Selector, error) {
	if defaultVariant == "" {
		defaultVariant = VariantText
	}
	fallback, err := newVariant(defaultVariant, logger)
	if err != nil {
		return nil, err
	}
	s := &Selector{byLanguage: make(map[string]preprocess.Preprocessor, len(byLanguage)), fallback: fallback}
	for lang, name := range byLanguage {
		v, err := newVariant(name, logger)
		if err != nil {
			return nil, fmt.Errorf("language %s: %w", lang, err)
		}
		s.byLanguage[strings.ToLower(lang)] = v
	}
	return s, nil
}

// DefaultSelector maps Arabic to the Arabic variant and everything else to Text.
func DefaultSelector(logger *zap.Logger) *Selector {
	s, _ := NewSelector(map[string]string{"ar": VariantArabic}, VariantText, logger)
	return s
}

// For returns the variant used for language.
func (s *Selector) For(language string) preprocess.Preprocessor {
	if p, ok := s.byLanguage[strings.ToLower(language)]; ok {
		return p
	}
	return s.fallback
}

// SetStoplist replaces the built-in stopword list of language in every variant.
func (s *Selector) SetStoplist(language string, m *stoplist.Manager) {
	type stoplistSetter interface {
		SetStoplist(string, *stoplist.Manager)
	}
	for _, v := range append(s.variants(), s.fallback) {
		if setter, ok := v.(stoplistSetter); ok {
			setter.SetStoplist(language, m)
		}
	}
}

func (s *Selector) variants() []preprocess.Preprocessor {
	out := make([]preprocess.Preprocessor, 0, len(s.byLanguage))
	for _, v := range s.byLanguage {
		out = append(out, v)
	}
	return out
}

// PreprocessBatch implements preprocess.Preprocessor.
func (s *Selector) PreprocessBatch(ctx context.Context, texts []string, language string, options steps.Set) ([]string, error) {
	return s.For(language).PreprocessBatch(ctx, texts, language, options)
}

func newVariant(name string, logger *zap.Logger) (preprocess.Preprocessor, error) {
	switch strings.ToLower(name) {
	case VariantText:
		return NewText(logger), nil
	case VariantArabic:
		return NewArabic(logger), nil
	default:
		return nil, fmt.Errorf("unknown preprocessor variant %q: %w", name, internalerr.ErrInvalidConfig)
	}
}
