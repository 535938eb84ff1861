package vectorize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
)

var corpus = [][]string{
	{"Cat", "sat", "mat"},
	{"cat", "cat", "dog"},
	{"dog", "ran", "a"},
}

func TestAnalyze(t *testing.T) {
	assert.Equal(t, []string{"cat", "sat", "dog_2", "42"}, Analyze([]string{"Cat", "sat!", "a", "dog_2", "42"}))
}

func TestCountVectorizer(t *testing.T) {
	m, err := CountVectorizer{}.FitTransform(corpus)
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "dog", "mat", "ran", "sat"}, m.Features)
	assert.Equal(t, [][]float64{
		{1, 0, 1, 0, 1},
		{2, 1, 0, 0, 0},
		{0, 1, 0, 1, 0},
	}, m.Rows)
	assert.Equal(t, 1, m.Column("dog"))
	assert.Equal(t, -1, m.Column("a"))
}

func TestCountVectorizerBounds(t *testing.T) {
	m, err := CountVectorizer{Options: Options{MinDF: 2}}.FitTransform(corpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, m.Features)

	m, err = CountVectorizer{Options: Options{MaxDF: 0.5}}.FitTransform(corpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"mat", "ran", "sat"}, m.Features)

	m, err = CountVectorizer{Options: Options{MaxFeatures: 2}}.FitTransform(corpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, m.Features)
}

func TestEmptyVocabulary(t *testing.T) {
	_, err := CountVectorizer{Options: Options{MinDF: 5}}.FitTransform(corpus)
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)

	_, err = TFIDFVectorizer{}.FitTransform(nil)
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestTFIDFVectorizer(t *testing.T) {
	m, err := TFIDFVectorizer{}.FitTransform(corpus)
	require.NoError(t, err)
	require.Len(t, m.Rows, 3)

	for _, row := range m.Rows {
		var norm float64
		for _, v := range row {
			norm += v * v
		}
		assert.InDelta(t, 1.0, norm, 1e-9)
	}

	// Row 0 holds cat (df 2) plus mat and sat (df 1); rarer terms weigh more.
	cat, mat, sat := m.Rows[0][m.Column("cat")], m.Rows[0][m.Column("mat")], m.Rows[0][m.Column("sat")]
	assert.Greater(t, mat, cat)
	assert.InDelta(t, mat, sat, 1e-12)

	idfCat := math.Log(4.0/3.0) + 1
	idfRare := math.Log(4.0/2.0) + 1
	assert.InDelta(t, idfCat/idfRare, cat/mat, 1e-9)
}
