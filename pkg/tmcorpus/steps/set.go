// Package steps tracks which preprocessing steps have been applied to a corpus
// and decides which of a newly requested set still have to run.
package steps

import (
	"reflect"
	"sort"
	"strings"
)

// Well-known step names.
const (
	Lowercase          = "lowercase"
	RemoveStopwords    = "remove_stopwords"
	CustomStopwords    = "custom_stopwords"
	RemovePunctuation  = "remove_punctuation"
	RemoveNumbers      = "remove_numbers"
	RemoveURLs         = "remove_urls"
	RemoveHTMLTags     = "remove_html_tags"
	RemoveSpecialChars = "remove_special_chars"
	RemoveAccents      = "remove_accents"
	ExpandContractions = "expand_contractions"
	Stem               = "stem"
	MinWordLength      = "min_word_length"
	MaxWordLength      = "max_word_length"
	MinWordFreq        = "min_word_freq"
	MaxWordFreq        = "max_word_freq"
	RemoveDiacritics   = "remove_diacritics"
	NormalizeArabic    = "normalize_arabic"

	// Language is not a step. A session lifts it out of a request and uses it
	// to pick the preprocessor language.
	Language = "language"
)

// Set maps a step name to its value. A value is either a bool flag or a
// parameter: a number, a string or a list of strings.
type Set map[string]any

// Clone returns a deep copy with normalized values.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = Normalize(v)
	}
	return out
}

// Pending returns the entries that still describe work: true flags and
// non-empty parameters.
func (s Set) Pending() Set {
	out := make(Set)
	for k, v := range s {
		if !isEmpty(v) {
			out[k] = Normalize(v)
		}
	}
	return out
}

// IsNoop reports whether nothing in s requires work.
func (s Set) IsNoop() bool {
	for _, v := range s {
		if !isEmpty(v) {
			return false
		}
	}
	return true
}

// Names returns the step names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Flag returns the bool value of name, or def when the key is absent or not a bool.
func (s Set) Flag(name string, def bool) bool {
	v, ok := s[name]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// Number returns the numeric value of name. Zero and non-numeric values
// report ok=false.
func (s Set) Number(name string) (float64, bool) {
	f, ok := Normalize(s[name]).(float64)
	if !ok || f == 0 {
		return 0, false
	}
	return f, true
}

// List returns name as a string list.
func (s Set) List(name string) []string {
	return Terms(s[name])
}

// Normalize canonicalizes a step value so that values decoded from different
// encodings compare equal: every number becomes float64 and a list of strings
// becomes []string.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, string, float64:
		return x
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []string:
		return append([]string{}, x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			str, ok := item.(string)
			if !ok {
				generic := make([]any, len(x))
				for i := range x {
					generic[i] = Normalize(x[i])
				}
				return generic
			}
			out = append(out, str)
		}
		return out
	default:
		return v
	}
}

// Equal compares two step values structurally after normalization.
func Equal(a, b any) bool {
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// Terms converts a value to a deduplicated, sorted list of non-empty terms.
func Terms(v any) []string {
	var raw []string
	switch x := Normalize(v).(type) {
	case []string:
		raw = x
	case string:
		raw = []string{x}
	default:
		return []string{}
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, term := range raw {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

func isEmpty(v any) bool {
	switch x := Normalize(v).(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case float64:
		return x == 0
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	default:
		return false
	}
}
