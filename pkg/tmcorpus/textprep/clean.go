package textprep

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern         = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	contractionPattern = regexp.MustCompile(`(?i)\b[a-z]+'[a-z]+\b`)
	bracketReplacer    = strings.NewReplacer("\n", " ", "\r", " ", "\\", "", "{", "", "}", "", "[", "", "]", "", "-", "")
)

var contractions = map[string]string{
	"ain't": "is not", "aren't": "are not", "can't": "cannot", "couldn't": "could not",
	"didn't": "did not", "doesn't": "does not", "don't": "do not", "hadn't": "had not",
	"hasn't": "has not", "haven't": "have not", "he's": "he is", "i'd": "i would",
	"i'll": "i will", "i'm": "i am", "i've": "i have", "isn't": "is not", "it's": "it is",
	"let's": "let us", "she's": "she is", "shouldn't": "should not", "that's": "that is",
	"there's": "there is", "they're": "they are", "they've": "they have", "wasn't": "was not",
	"we're": "we are", "we've": "we have", "weren't": "were not", "what's": "what is",
	"won't": "will not", "wouldn't": "would not", "you'd": "you would", "you'll": "you will",
	"you're": "you are", "you've": "you have",
}

// Clean prepares raw document text before it enters a dataset: line breaks
// become spaces, backslashes, braces, brackets and hyphens are dropped, and
// invalid UTF-8 is replaced.
func Clean(text string) string {
	text = strings.ToValidUTF8(text, "�")
	return bracketReplacer.Replace(text)
}

// stripHTML returns the text content of an HTML fragment, skipping script
// and style bodies.
func stripHTML(text string) string {
	z := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func removeURLs(text string) string {
	return urlPattern.ReplaceAllString(text, " ")
}

func expandContractions(text string) string {
	return contractionPattern.ReplaceAllStringFunc(text, func(word string) string {
		if full, ok := contractions[strings.ToLower(word)]; ok {
			return full
		}
		return word
	})
}

func removeAccents(text string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	return out, err
}

func mapRunes(text string, drop func(rune) bool, repl rune) string {
	return strings.Map(func(r rune) rune {
		if drop(r) {
			return repl
		}
		return r
	}, text)
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsSpace(r) && !unicode.IsMark(r)
}
