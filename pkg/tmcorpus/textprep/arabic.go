package textprep

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/stoplist"
)

var arabicFolds = map[rune]rune{
	'أ': 'ا', 'إ': 'ا', 'آ': 'ا', 'ٱ': 'ا',
	'ى': 'ي', 'ئ': 'ي',
	'ؤ': 'و',
	'ة': 'ه',
}

// Arabic preprocesses Arabic-script text. Unlike Text, an option that was
// never mentioned defaults to on; only an explicit false skips a step.
type Arabic struct {
	stopSource
	logger *zap.Logger
}

// NewArabic creates the Arabic preprocessor.
func NewArabic(logger *zap.Logger) *Arabic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arabic{logger: logger}
}

// PreprocessBatch implements preprocess.Preprocessor.
func (p *Arabic) PreprocessBatch(ctx context.Context, texts []string, language string, options steps.Set) ([]string, error) {
	diacritics := options.Flag(steps.RemoveDiacritics, true)
	fold := options.Flag(steps.NormalizeArabic, true)
	punct := options.Flag(steps.RemovePunctuation, true)
	numbers := options.Flag(steps.RemoveNumbers, true)

	var stops *stoplist.Manager
	if options.Flag(steps.RemoveStopwords, true) {
		base, err := p.base("ar")
		if err != nil {
			return nil, err
		}
		terms := append(base.All(), options.List(steps.CustomStopwords)...)
		if fold {
			for i := range terms {
				terms[i] = foldArabic(terms[i])
			}
		}
		stops = stoplist.NewManager(terms)
	}

	var t transform.Transformer = transform.Nop
	if diacritics {
		t = transform.Chain(t, runes.Remove(runes.Predicate(isArabicDiacritic)))
	}
	if fold {
		t = transform.Chain(t, runes.Map(foldRune))
	}

	out := make([]string, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, _, err := transform.String(t, text)
		if err != nil {
			return nil, err
		}
		if punct {
			text = mapRunes(text, unicode.IsPunct, ' ')
		}
		if numbers {
			text = mapRunes(text, unicode.IsDigit, -1)
		}
		fields := strings.Fields(text)
		kept := fields[:0]
		for _, f := range fields {
			if stops != nil && stops.IsStop(f) {
				continue
			}
			kept = append(kept, f)
		}
		out[i] = strings.Join(kept, " ")
	}
	return out, nil
}

// isArabicDiacritic matches harakat, tanween, shadda, sukun, superscript alef
// and tatweel.
func isArabicDiacritic(r rune) bool {
	return (r >= 0x064B && r <= 0x0652) || r == 0x0670 || r == 0x0640
}

func foldRune(r rune) rune {
	if f, ok := arabicFolds[r]; ok {
		return f
	}
	return r
}

func foldArabic(s string) string {
	return strings.Map(foldRune, s)
}
