// Package corpus holds the tabular document container shared by the dataset,
// the preprocessing session and the vectorizers.
package corpus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
)

// Record is one row of a table.
type Record struct {
	Text   string
	Tokens []string
	Label  string // empty when unlabeled
}

// Table is an ordered, columnar collection of documents. The text and token
// columns may each be absent (nil); labels always have one entry per row.
type Table struct {
	texts    []string
	tokens   [][]string
	labels   []string
	features map[string][][]float64
}

// NewTable builds a table from texts, deriving tokens by whitespace split.
// labels may be nil for an unlabeled corpus.
func NewTable(texts, labels []string) (*Table, error) {
	if labels == nil {
		labels = make([]string, len(texts))
	}
	t := &Table{
		texts:  append([]string{}, texts...),
		tokens: splitAll(texts),
		labels: append([]string{}, labels...),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromTokens builds a table that only carries tokens. The text column stays
// absent until ReplaceTexts sets it.
func FromTokens(tokens [][]string, labels []string) (*Table, error) {
	if labels == nil {
		labels = make([]string, len(tokens))
	}
	t := &Table{
		tokens: cloneTokens(tokens),
		labels: append([]string{}, labels...),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromRecords builds a table from records. Records without tokens get them
// from their text.
func FromRecords(records []Record) (*Table, error) {
	t := &Table{
		texts:  make([]string, len(records)),
		tokens: make([][]string, len(records)),
		labels: make([]string, len(records)),
	}
	for i, r := range records {
		t.texts[i] = r.Text
		t.labels[i] = r.Label
		if len(r.Tokens) == 0 {
			t.tokens[i] = strings.Fields(r.Text)
		} else {
			t.tokens[i] = append([]string{}, r.Tokens...)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.labels)
}

// HasText reports whether the text column is present.
func (t *Table) HasText() bool { return t.texts != nil }

// HasTokens reports whether the token column is present.
func (t *Table) HasTokens() bool { return t.tokens != nil }

// InputTexts returns the texts a preprocessor works on: the text column, or
// the tokens joined with a space when the text column is absent. The table is
// not modified. It reports false when neither column exists.
func (t *Table) InputTexts() ([]string, bool) {
	if t.texts != nil {
		return t.Texts(), true
	}
	if t.tokens == nil {
		return nil, false
	}
	texts := make([]string, len(t.tokens))
	for i, toks := range t.tokens {
		texts[i] = strings.Join(toks, " ")
	}
	return texts, true
}

// Texts returns a copy of the text column (nil when absent).
func (t *Table) Texts() []string {
	if t.texts == nil {
		return nil
	}
	return append([]string{}, t.texts...)
}

// Labels returns a copy of the label column.
func (t *Table) Labels() []string {
	return append([]string{}, t.labels...)
}

// Corpus returns one token list per record, in row order.
func (t *Table) Corpus() [][]string {
	if t.tokens == nil {
		return make([][]string, t.Len())
	}
	return cloneTokens(t.tokens)
}

// Vocabulary returns every distinct token of the table, sorted.
func (t *Table) Vocabulary() []string {
	set := make(map[string]struct{})
	for _, toks := range t.tokens {
		for _, tok := range toks {
			set[tok] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(set))
	for tok := range set {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)
	return vocab
}

// Record returns row i.
func (t *Table) Record(i int) (Record, error) {
	if i < 0 || i >= t.Len() {
		return Record{}, fmt.Errorf("record %d of %d: %w", i, t.Len(), internalerr.ErrInvalidInput)
	}
	r := Record{Label: t.labels[i]}
	if t.texts != nil {
		r.Text = t.texts[i]
	}
	if t.tokens != nil {
		r.Tokens = append([]string{}, t.tokens[i]...)
	}
	return r, nil
}

// Records returns all rows.
func (t *Table) Records() []Record {
	out := make([]Record, t.Len())
	for i := range out {
		out[i], _ = t.Record(i)
	}
	return out
}

// ReplaceTexts swaps the whole text column, recomputes every token list and
// drops the derived features. Nothing changes when the length does not match
// the table.
func (t *Table) ReplaceTexts(texts []string) error {
	if len(texts) != t.Len() {
		return &internalerr.ConsistencyError{
			Detail: fmt.Sprintf("replacement has %d texts for %d records", len(texts), t.Len()),
		}
	}
	t.texts = append([]string{}, texts...)
	t.tokens = splitAll(texts)
	t.features = nil
	return nil
}

// SetFeature stores a derived numeric representation, one row per record.
func (t *Table) SetFeature(name string, rows [][]float64) error {
	if len(rows) != t.Len() {
		return &internalerr.ConsistencyError{
			Detail: fmt.Sprintf("feature %s has %d rows for %d records", name, len(rows), t.Len()),
		}
	}
	if t.features == nil {
		t.features = make(map[string][][]float64)
	}
	t.features[name] = rows
	return nil
}

// Feature returns the rows stored under name.
func (t *Table) Feature(name string) ([][]float64, bool) {
	rows, ok := t.features[name]
	return rows, ok
}

// Subset returns a new table holding the given rows in the given order.
func (t *Table) Subset(indices []int) (*Table, error) {
	out := &Table{labels: make([]string, 0, len(indices))}
	if t.texts != nil {
		out.texts = make([]string, 0, len(indices))
	}
	if t.tokens != nil {
		out.tokens = make([][]string, 0, len(indices))
	}
	for _, idx := range indices {
		if idx < 0 || idx >= t.Len() {
			return nil, fmt.Errorf("subset index %d of %d: %w", idx, t.Len(), internalerr.ErrInvalidInput)
		}
		out.labels = append(out.labels, t.labels[idx])
		if t.texts != nil {
			out.texts = append(out.texts, t.texts[idx])
		}
		if t.tokens != nil {
			out.tokens = append(out.tokens, append([]string{}, t.tokens[idx]...))
		}
	}
	for name, rows := range t.features {
		sub := make([][]float64, len(indices))
		for i, idx := range indices {
			sub[i] = rows[idx]
		}
		if err := out.SetFeature(name, sub); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Validate checks that every column has one entry per record and that tokens
// match the whitespace split of their text.
func (t *Table) Validate() error {
	n := len(t.labels)
	if t.texts != nil && len(t.texts) != n {
		return &internalerr.ConsistencyError{Detail: fmt.Sprintf("%d texts, %d labels", len(t.texts), n)}
	}
	if t.tokens != nil && len(t.tokens) != n {
		return &internalerr.ConsistencyError{Detail: fmt.Sprintf("%d token lists, %d labels", len(t.tokens), n)}
	}
	for name, rows := range t.features {
		if len(rows) != n {
			return &internalerr.ConsistencyError{Detail: fmt.Sprintf("feature %s has %d rows, %d labels", name, len(rows), n)}
		}
	}
	if t.texts != nil && t.tokens != nil {
		for i := range t.texts {
			if !equalTokens(strings.Fields(t.texts[i]), t.tokens[i]) {
				return &internalerr.ConsistencyError{Detail: fmt.Sprintf("record %d: tokens diverge from text", i)}
			}
		}
	}
	return nil
}

func splitAll(texts []string) [][]string {
	if texts == nil {
		return nil
	}
	out := make([][]string, len(texts))
	for i, text := range texts {
		out[i] = strings.Fields(text)
	}
	return out
}

func cloneTokens(in [][]string) [][]string {
	if in == nil {
		return nil
	}
	out := make([][]string, len(in))
	for i, toks := range in {
		out[i] = append([]string{}, toks...)
	}
	return out
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
