// Package storetest holds the behavior every store.Store implementation must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
)

// Run exercises st against the store.Store contract.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("docs round trip in order", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)

		_, found, err := st.LoadDocs(ctx, "bbc")
		require.NoError(t, err)
		require.False(t, found)

		docs := []store.Doc{
			{Text: "hello world", Tokens: []string{"hello", "world"}, Label: "greeting"},
			{Text: "foo bar", Tokens: []string{"foo", "bar"}},
		}
		require.NoError(t, st.SaveDocs(ctx, "bbc", docs))

		got, found, err := st.LoadDocs(ctx, "bbc")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, docs, got)
	})

	t.Run("saving docs replaces previous rows", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)

		require.NoError(t, st.SaveDocs(ctx, "ds", []store.Doc{{Text: "a", Tokens: []string{"a"}}, {Text: "b", Tokens: []string{"b"}}}))
		require.NoError(t, st.SaveDocs(ctx, "ds", []store.Doc{{Text: "c", Tokens: []string{"c"}}}))

		got, _, err := st.LoadDocs(ctx, "ds")
		require.NoError(t, err)
		assert.Equal(t, []store.Doc{{Text: "c", Tokens: []string{"c"}}}, got)
	})

	t.Run("empty dataset is found", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)

		require.NoError(t, st.SaveDocs(ctx, "empty", nil))
		got, found, err := st.LoadDocs(ctx, "empty")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, got)
	})

	t.Run("info round trip", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)

		_, found, err := st.LoadInfo(ctx, "bbc")
		require.NoError(t, err)
		require.False(t, found)

		updated := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
		info := store.Info{
			Name:     "bbc",
			Language: "en",
			PreprocessingSteps: map[string]any{
				steps.Lowercase:       true,
				steps.MinWordLength:   3,
				steps.CustomStopwords: []string{"foo", "bar"},
			},
			Revision:  "01J0000000000000000000000",
			UpdatedAt: updated,
		}
		require.NoError(t, st.SaveInfo(ctx, info))

		got, found, err := st.LoadInfo(ctx, "bbc")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "en", got.Language)
		assert.Equal(t, info.Revision, got.Revision)
		assert.True(t, updated.Equal(got.UpdatedAt))
		assert.Equal(t, steps.Set(info.PreprocessingSteps).Clone(), steps.Set(got.PreprocessingSteps).Clone())
	})

	t.Run("embeddings round trip", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)

		_, found, err := st.LoadEmbeddings(ctx, "bbc", "glove")
		require.NoError(t, err)
		require.False(t, found)

		vectors := map[string][]float32{"king": {0.5, -1.25}, "queen": {0.25, 3}}
		require.NoError(t, st.SaveEmbeddings(ctx, "bbc", "glove", vectors))

		got, found, err := st.LoadEmbeddings(ctx, "bbc", "glove")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, vectors, got)

		_, found, err = st.LoadEmbeddings(ctx, "bbc", "other-model")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("dataset saves docs and info together", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)

		docs := []store.Doc{{Text: "cat sat", Tokens: []string{"cat", "sat"}, Label: "pets"}}
		info := store.Info{Name: "bbc", Language: "en", PreprocessingSteps: map[string]any{"lowercase": true}, Revision: "r2"}
		require.NoError(t, st.SaveDataset(ctx, docs, info))

		gotDocs, found, err := st.LoadDocs(ctx, "bbc")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, docs, gotDocs)

		gotInfo, found, err := st.LoadInfo(ctx, "bbc")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "r2", gotInfo.Revision)
		assert.Equal(t, true, gotInfo.PreprocessingSteps["lowercase"])
	})

	t.Run("deleting embeddings drops every model of the dataset", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)

		vectors := map[string][]float32{"cat": {1, 2}}
		require.NoError(t, st.SaveEmbeddings(ctx, "bbc", "glove", vectors))
		require.NoError(t, st.SaveEmbeddings(ctx, "bbc", "minilm", vectors))
		require.NoError(t, st.SaveEmbeddings(ctx, "bbc_train", "glove", vectors))

		require.NoError(t, st.DeleteEmbeddings(ctx, "bbc"))

		for _, model := range []string{"glove", "minilm"} {
			_, found, err := st.LoadEmbeddings(ctx, "bbc", model)
			require.NoError(t, err)
			assert.False(t, found, model)
		}
		_, found, err := st.LoadEmbeddings(ctx, "bbc_train", "glove")
		require.NoError(t, err)
		assert.True(t, found)
	})
}
