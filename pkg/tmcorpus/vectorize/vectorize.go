// Package vectorize turns tokenized documents into bag-of-words and TF-IDF
// matrices.
package vectorize

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
)

var termPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Options bound the vocabulary a vectorizer keeps.
type Options struct {
	MinDF       int     // minimum number of documents a term must appear in
	MaxDF       float64 // maximum fraction of documents a term may appear in
	MaxFeatures int     // keep only the most frequent terms; 0 keeps all
}

func (o Options) withDefaults() Options {
	if o.MinDF <= 0 {
		o.MinDF = 1
	}
	if o.MaxDF <= 0 || o.MaxDF > 1 {
		o.MaxDF = 1
	}
	return o
}

// Matrix is a dense document-term matrix. Features are sorted.
type Matrix struct {
	Rows     [][]float64
	Features []string
}

// Column returns the index of a feature, or -1.
func (m Matrix) Column(feature string) int {
	i := sort.SearchStrings(m.Features, feature)
	if i < len(m.Features) && m.Features[i] == feature {
		return i
	}
	return -1
}

// Analyze extracts the lowercase terms a vectorizer counts from a document.
func Analyze(tokens []string) []string {
	return termPattern.FindAllString(strings.ToLower(strings.Join(tokens, " ")), -1)
}

// counts holds per-document term frequencies and corpus statistics.
type counts struct {
	docs []map[string]int
	df   map[string]int
	tf   map[string]int
}

func count(corpus [][]string) counts {
	c := counts{
		docs: make([]map[string]int, len(corpus)),
		df:   make(map[string]int),
		tf:   make(map[string]int),
	}
	for i, tokens := range corpus {
		row := make(map[string]int)
		for _, term := range Analyze(tokens) {
			row[term]++
			c.tf[term]++
		}
		for term := range row {
			c.df[term]++
		}
		c.docs[i] = row
	}
	return c
}

// vocabulary applies the document-frequency bounds and feature cap.
func (c counts) vocabulary(opts Options) ([]string, error) {
	n := len(c.docs)
	maxDocs := opts.MaxDF * float64(n)

	var terms []string
	for term, df := range c.df {
		if df < opts.MinDF || float64(df) > maxDocs {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty vocabulary after document frequency bounds: %w", internalerr.ErrInvalidInput)
	}

	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if c.tf[terms[i]] != c.tf[terms[j]] {
				return c.tf[terms[i]] > c.tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)
	return terms, nil
}

// CountVectorizer builds raw term-count matrices.
type CountVectorizer struct {
	Options Options
}

// FitTransform learns the vocabulary of corpus and returns its count matrix.
func (v CountVectorizer) FitTransform(corpus [][]string) (Matrix, error) {
	if len(corpus) == 0 {
		return Matrix{}, fmt.Errorf("empty corpus: %w", internalerr.ErrInvalidInput)
	}
	c := count(corpus)
	features, err := c.vocabulary(v.Options.withDefaults())
	if err != nil {
		return Matrix{}, err
	}
	return Matrix{Rows: c.dense(features), Features: features}, nil
}

func (c counts) dense(features []string) [][]float64 {
	rows := make([][]float64, len(c.docs))
	for i, doc := range c.docs {
		row := make([]float64, len(features))
		for j, term := range features {
			row[j] = float64(doc[term])
		}
		rows[i] = row
	}
	return rows
}

// TFIDFVectorizer weighs term counts by smoothed inverse document frequency
// and L2-normalizes each row:
//
//	idf(t) = ln((1 + n) / (1 + df(t))) + 1
type TFIDFVectorizer struct {
	Options Options
}

// FitTransform learns the vocabulary of corpus and returns its TF-IDF matrix.
func (v TFIDFVectorizer) FitTransform(corpus [][]string) (Matrix, error) {
	if len(corpus) == 0 {
		return Matrix{}, fmt.Errorf("empty corpus: %w", internalerr.ErrInvalidInput)
	}
	c := count(corpus)
	features, err := c.vocabulary(v.Options.withDefaults())
	if err != nil {
		return Matrix{}, err
	}

	n := float64(len(corpus))
	idf := make([]float64, len(features))
	for j, term := range features {
		idf[j] = math.Log((1+n)/(1+float64(c.df[term]))) + 1
	}

	rows := c.dense(features)
	for _, row := range rows {
		var norm float64
		for j := range row {
			row[j] *= idf[j]
			norm += row[j] * row[j]
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for j := range row {
			row[j] /= norm
		}
	}
	return Matrix{Rows: rows, Features: features}, nil
}
