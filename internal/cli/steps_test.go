package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
)

func TestParseSteps(t *testing.T) {
	got, err := parseSteps([]string{
		"lowercase",
		"remove_numbers=false",
		"min_word_length=1",
		"custom_stopwords=said, mr,said",
		"language=ar",
	})
	require.NoError(t, err)
	assert.Equal(t, steps.Set{
		steps.Lowercase:       true,
		steps.RemoveNumbers:   false,
		steps.MinWordLength:   float64(1),
		steps.CustomStopwords: []string{"mr", "said"},
		steps.Language:        "ar",
	}, got)

	_, err = parseSteps([]string{"=true"})
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)
}
