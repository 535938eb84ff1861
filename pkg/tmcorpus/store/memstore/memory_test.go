package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestLoadedDocsAreCopies(t *testing.T) {
	ctx := context.Background()
	st := New()
	require.NoError(t, st.SaveDocs(ctx, "ds", []store.Doc{{Text: "a b", Tokens: []string{"a", "b"}}}))

	got, _, err := st.LoadDocs(ctx, "ds")
	require.NoError(t, err)
	got[0].Tokens[0] = "mutated"

	again, _, err := st.LoadDocs(ctx, "ds")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Tokens[0])
}
