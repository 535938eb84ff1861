package tmcorpus

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/config"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/embed"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/source"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store/memstore"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/vectorize"
)

type lowercaser struct {
	calls int
	last  steps.Set
	fail  error
}

func (l *lowercaser) PreprocessBatch(ctx context.Context, texts []string, language string, options steps.Set) ([]string, error) {
	l.calls++
	l.last = options
	if l.fail != nil {
		return nil, l.fail
	}
	out := make([]string, len(texts))
	for i, text := range texts {
		if options.Flag(steps.Lowercase, false) {
			text = strings.ToLower(text)
		}
		out[i] = text
	}
	return out, nil
}

type staticSource struct {
	raw *source.Raw
	err error
}

func (s staticSource) Load(ctx context.Context, name string) (*source.Raw, error) {
	return s.raw, s.err
}

func docs(texts ...string) []store.Doc {
	out := make([]store.Doc, len(texts))
	for i, text := range texts {
		out[i] = store.Doc{Text: text}
	}
	return out
}

func fetched(t *testing.T, opts Options, raw *source.Raw) *Dataset {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	d := New(opts)
	require.NoError(t, d.Fetch(context.Background(), "demo", staticSource{raw: raw}))
	return d
}

func TestPreprocessEndToEnd(t *testing.T) {
	p := &lowercaser{}
	d := fetched(t, Options{Preprocessor: p}, &source.Raw{Docs: docs("Hello World", "FOO bar")})
	ctx := context.Background()

	sess, err := d.Preprocess(ctx, Request{Steps: steps.Set{steps.Lowercase: true}})
	require.NoError(t, err)
	assert.True(t, sess.Executed)
	assert.Equal(t, []string{"hello world", "foo bar"}, d.Texts())
	assert.Equal(t, [][]string{{"hello", "world"}, {"foo", "bar"}}, d.Corpus())
	assert.Equal(t, steps.Set{steps.Lowercase: true}, d.Steps())

	sess, err = d.Preprocess(ctx, Request{Steps: steps.Set{steps.Lowercase: true}})
	require.NoError(t, err)
	assert.False(t, sess.Executed)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, []string{"hello world", "foo bar"}, d.Texts())
	assert.Equal(t, steps.Set{steps.Lowercase: true}, d.Steps())
}

func TestPreprocessFailureLeavesDatasetUnchanged(t *testing.T) {
	cause := errors.New("model crashed")
	d := fetched(t, Options{Preprocessor: &lowercaser{fail: cause}}, &source.Raw{Docs: docs("Hello World", "FOO bar")})

	_, err := d.Preprocess(context.Background(), Request{Steps: steps.Set{steps.Lowercase: true}})
	require.ErrorIs(t, err, internalerr.ErrPreprocessing)
	require.ErrorIs(t, err, cause)

	assert.Equal(t, []string{"Hello World", "FOO bar"}, d.Texts())
	assert.Equal(t, [][]string{{"Hello", "World"}, {"FOO", "bar"}}, d.Corpus())
	assert.Empty(t, d.Steps())
}

func TestPreprocessWithoutDataIsMissingInput(t *testing.T) {
	_, err := New(Options{Name: "empty"}).Preprocess(context.Background(), Request{Steps: steps.Set{steps.Lowercase: true}})

	var missing *internalerr.MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "empty", missing.Dataset)
}

func TestFetchSeedsAppliedSteps(t *testing.T) {
	p := &lowercaser{}
	d := fetched(t, Options{Preprocessor: p}, &source.Raw{
		Docs: docs("already lower"),
		Info: &store.Info{Name: "demo", Language: "de", PreprocessingSteps: map[string]any{"lowercase": true}},
	})

	assert.Equal(t, "de", d.Language())
	_, err := d.Preprocess(context.Background(), Request{Steps: steps.Set{steps.Lowercase: true}})
	require.NoError(t, err)
	assert.Zero(t, p.calls)
}

func TestFetchErrors(t *testing.T) {
	ctx := context.Background()
	d := New(Options{})

	err := d.Fetch(ctx, "demo", staticSource{err: &internalerr.NotFoundError{Name: "demo"}})
	require.ErrorIs(t, err, internalerr.ErrNotFound)

	err = d.Fetch(ctx, "demo", staticSource{raw: &source.Raw{}})
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestFetchRebuildsTextFromTokens(t *testing.T) {
	d := fetched(t, Options{Preprocessor: &lowercaser{}}, &source.Raw{Docs: []store.Doc{
		{Tokens: []string{"Hello", "World"}, Label: "greeting"},
	}})

	assert.Equal(t, []string{"Hello World"}, d.Texts())
	_, err := d.Preprocess(context.Background(), Request{Steps: steps.Set{steps.Lowercase: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"greeting"}, d.Labels())
	assert.Equal(t, [][]string{{"hello", "world"}}, d.Corpus())
}

func TestFetchMixedTextAndTokenDocs(t *testing.T) {
	d := fetched(t, Options{}, &source.Raw{Docs: []store.Doc{
		{Text: "hello world"},
		{Tokens: []string{"token", "only"}, Label: "t"},
	}})

	assert.Equal(t, []string{"hello world", "token only"}, d.Texts())
	assert.Equal(t, [][]string{{"hello", "world"}, {"token", "only"}}, d.Corpus())
	assert.Equal(t, []string{"", "t"}, d.Labels())
}

func TestFetchResetsLearnedLanguage(t *testing.T) {
	ctx := context.Background()
	d := fetched(t, Options{}, &source.Raw{
		Docs: docs("مرحبا"),
		Info: &store.Info{Name: "demo", Language: "ar"},
	})
	assert.Equal(t, "ar", d.Language())

	require.NoError(t, d.Fetch(ctx, "other", staticSource{raw: &source.Raw{
		Docs: docs("hello"),
		Info: &store.Info{Name: "other", Language: "fr"},
	}}))
	assert.Equal(t, "fr", d.Language())

	require.NoError(t, d.Fetch(ctx, "plain", staticSource{raw: &source.Raw{Docs: docs("hello")}}))
	assert.Equal(t, defaultLanguage, d.Language())

	pinned := fetched(t, Options{Language: "es"}, &source.Raw{
		Docs: docs("hola"),
		Info: &store.Info{Name: "demo", Language: "ar"},
	})
	assert.Equal(t, "es", pinned.Language())
}

func TestPreprocessModelTypeAndCustomStopwords(t *testing.T) {
	p := &lowercaser{}
	d := fetched(t, Options{
		Preprocessor: p,
		ModelSteps:   config.ModelSteps{"Custom": steps.Set{steps.Lowercase: true}},
	}, &source.Raw{Docs: docs("A B")})
	ctx := context.Background()

	_, err := d.Preprocess(ctx, Request{
		ModelType:       "Custom",
		Steps:           steps.Set{steps.RemoveNumbers: true},
		CustomStopwords: []string{"b", "a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, true, p.last[steps.Lowercase])
	assert.NotContains(t, p.last.Pending(), steps.RemoveNumbers)
	assert.Equal(t, true, p.last[steps.RemoveStopwords])
	assert.Equal(t, []string{"a", "b"}, p.last[steps.CustomStopwords])

	_, err = d.Preprocess(ctx, Request{ModelType: "Unknown"})
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestSaveAndReloadThroughCache(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	d := fetched(t, Options{Store: st, Preprocessor: &lowercaser{}}, &source.Raw{
		Docs: []store.Doc{{Text: "Hello World", Label: "x"}},
	})
	_, err := d.Preprocess(ctx, Request{Steps: steps.Set{steps.Lowercase: true}})
	require.NoError(t, err)
	require.NoError(t, d.Save(ctx))
	require.NotEmpty(t, d.Info().Revision)

	p := &lowercaser{}
	reloaded := New(Options{Preprocessor: p, Logger: zaptest.NewLogger(t)})
	unreachable := staticSource{err: errors.New("should be served from the cache")}
	require.NoError(t, reloaded.Fetch(ctx, "demo", source.Cached{Store: st, Next: unreachable}))

	assert.Equal(t, []string{"hello world"}, reloaded.Texts())
	assert.Equal(t, []string{"x"}, reloaded.Labels())
	assert.Equal(t, d.Info().Revision, reloaded.Info().Revision)

	_, err = reloaded.Preprocess(ctx, Request{Steps: steps.Set{steps.Lowercase: true}})
	require.NoError(t, err)
	assert.Zero(t, p.calls)
}

type failingInfoStore struct {
	*memstore.Store
}

func (f failingInfoStore) SaveDataset(ctx context.Context, docs []store.Doc, info store.Info) error {
	return errors.New("disk full")
}

func TestSaveFailureKeepsStoredDataset(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	require.NoError(t, mem.SaveDataset(ctx, docs("Hello World"), store.Info{Name: "demo", Language: "en", Revision: "r1"}))

	d := fetched(t, Options{Store: failingInfoStore{mem}, Preprocessor: &lowercaser{}}, &source.Raw{Docs: docs("Hello World")})
	_, err := d.Preprocess(ctx, Request{Steps: steps.Set{steps.Lowercase: true}})
	require.NoError(t, err)

	require.Error(t, d.Save(ctx))
	assert.Empty(t, d.Info().Revision)

	stored, _, err := mem.LoadDocs(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", stored[0].Text)
	info, _, err := mem.LoadInfo(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "r1", info.Revision)
}

func TestSaveWithoutStore(t *testing.T) {
	d := fetched(t, Options{}, &source.Raw{Docs: docs("a")})
	require.ErrorIs(t, d.Save(context.Background()), internalerr.ErrStoreUnavailable)
}

func TestCreateLoadSave(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d := New(Options{Preprocessor: &lowercaser{}, Logger: zaptest.NewLogger(t)})

	err := d.CreateLoadSave(ctx, []string{"Line One\nLine Two", "[Second] doc"}, []string{"a", "b"}, "custom", dir, steps.Set{steps.Lowercase: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"line one line two", "second doc"}, d.Texts())

	raw, err := source.Folder{Dir: dir}.Load(ctx, "custom")
	require.NoError(t, err)
	require.Len(t, raw.Docs, 2)
	assert.Equal(t, "second doc", raw.Docs[1].Text)
	assert.Equal(t, "b", raw.Docs[1].Label)
	assert.Equal(t, "custom", raw.Info.Name)
	assert.Equal(t, true, raw.Info.PreprocessingSteps[steps.Lowercase])

	err = d.CreateLoadSave(ctx, []string{"a"}, []string{"x", "y"}, "bad", dir, nil)
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestSplit(t *testing.T) {
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = strings.Repeat("w", i+1)
	}
	d := fetched(t, Options{}, &source.Raw{
		Docs: docs(texts...),
		Info: &store.Info{PreprocessingSteps: map[string]any{"lowercase": true}},
	})

	train, val, err := d.Split(0.8, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, val.Len())
	assert.ElementsMatch(t, d.Texts(), append(train.Texts(), val.Texts()...))
	assert.Equal(t, d.Steps(), train.Steps())
	assert.Equal(t, "demo_train", train.Name())

	again, _, err := d.Split(0.8, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train.Texts(), again.Texts())

	_, _, err = d.Split(0.7, 0.2, 1)
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)
	_, _, err = d.Split(-0.5, 1.5, 1)
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestVectorsFollowTexts(t *testing.T) {
	d := fetched(t, Options{Preprocessor: &lowercaser{}}, &source.Raw{Docs: docs("Cat sat", "cat dog")})

	bow, err := d.BOW(vectorize.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog", "sat"}, bow.Features)
	_, err = d.TFIDF(vectorize.Options{})
	require.NoError(t, err)

	item, err := d.Item(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0}, item.BOW)
	assert.Len(t, item.TFIDF, 3)
	assert.Equal(t, []string{"cat", "dog", "sat"}, d.Features(FeatureBOW))

	_, err = d.Preprocess(context.Background(), Request{Steps: steps.Set{steps.Lowercase: true}})
	require.NoError(t, err)
	item, err = d.Item(1)
	require.NoError(t, err)
	assert.Nil(t, item.BOW)
	assert.Nil(t, d.Features(FeatureTFIDF))

	_, err = d.Item(5)
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

type fakeEmbedder struct {
	calls int
	words [][]string
}

func (f *fakeEmbedder) EmbedWords(ctx context.Context, words []string) (map[string][]float32, error) {
	f.calls++
	f.words = append(f.words, append([]string(nil), words...))
	out := make(map[string][]float32, len(words))
	for _, w := range words {
		out[w] = []float32{float32(len(w))}
	}
	return out, nil
}

func TestWordEmbeddingsAreCached(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	d := fetched(t, Options{
		Store:     memstore.New(),
		Embedders: map[string]embed.WordEmbedder{embed.ModelGloVe: emb},
	}, &source.Raw{Docs: docs("cat sat", "cat")})

	has, err := d.HasWordEmbeddings(ctx, embed.ModelGloVe)
	require.NoError(t, err)
	assert.False(t, has)

	vectors, err := d.WordEmbeddings(ctx, embed.ModelGloVe, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"cat": {3}, "sat": {3}}, vectors)

	has, err = d.HasWordEmbeddings(ctx, embed.ModelGloVe)
	require.NoError(t, err)
	assert.True(t, has)

	again, err := d.WordEmbeddings(ctx, embed.ModelGloVe, nil)
	require.NoError(t, err)
	assert.Equal(t, vectors, again)
	assert.Equal(t, 1, emb.calls)
}

func TestWordEmbeddingsErrors(t *testing.T) {
	ctx := context.Background()
	d := fetched(t, Options{}, &source.Raw{Docs: docs("cat")})

	_, err := d.WordEmbeddings(ctx, "word2vec", nil)
	require.ErrorIs(t, err, internalerr.ErrInvalidInput)

	_, err = d.WordEmbeddings(ctx, embed.ModelMiniLM, nil)
	require.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestWordEmbeddingsFollowRequestedVocabulary(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	d := fetched(t, Options{
		Store:     memstore.New(),
		Embedders: map[string]embed.WordEmbedder{embed.ModelGloVe: emb},
	}, &source.Raw{Docs: docs("cat sat", "mat")})

	subset, err := d.WordEmbeddings(ctx, embed.ModelGloVe, []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"cat": {3}}, subset)

	full, err := d.WordEmbeddings(ctx, embed.ModelGloVe, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"cat": {3}, "mat": {3}, "sat": {3}}, full)
	assert.Equal(t, []string{"mat", "sat"}, emb.words[1])

	again, err := d.WordEmbeddings(ctx, embed.ModelGloVe, []string{"sat"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"sat": {3}}, again)
	assert.Equal(t, 2, emb.calls)
}

func TestWordEmbeddingsDroppedWhenTextsChange(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	emb := &fakeEmbedder{}
	d := fetched(t, Options{
		Store:        st,
		Preprocessor: &lowercaser{},
		Embedders:    map[string]embed.WordEmbedder{embed.ModelGloVe: emb},
	}, &source.Raw{Docs: docs("Cat Sat", "Cat")})

	_, err := d.WordEmbeddings(ctx, embed.ModelGloVe, nil)
	require.NoError(t, err)

	_, err = d.Preprocess(ctx, Request{Steps: steps.Set{steps.Lowercase: true}})
	require.NoError(t, err)
	has, err := d.HasWordEmbeddings(ctx, embed.ModelGloVe)
	require.NoError(t, err)
	assert.False(t, has)

	vectors, err := d.WordEmbeddings(ctx, embed.ModelGloVe, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"cat": {3}, "sat": {3}}, vectors)
	assert.Equal(t, d.Vocabulary(), keys(vectors))
}

func TestFetchKeepsEmbeddingsOfSameRevision(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	info := store.Info{Name: "demo", Language: "en", Revision: "r1"}
	require.NoError(t, st.SaveDataset(ctx, docs("cat"), info))
	require.NoError(t, st.SaveEmbeddings(ctx, "demo", embed.ModelGloVe, map[string][]float32{"cat": {3}}))

	d := New(Options{Store: st, Logger: zaptest.NewLogger(t)})
	require.NoError(t, d.Fetch(ctx, "demo", source.Cached{Store: st}))
	has, err := d.HasWordEmbeddings(ctx, embed.ModelGloVe)
	require.NoError(t, err)
	assert.True(t, has)

	newer := info
	newer.Revision = "r2"
	require.NoError(t, d.Fetch(ctx, "demo", staticSource{raw: &source.Raw{Docs: docs("dog"), Info: &newer}}))
	has, err = d.HasWordEmbeddings(ctx, embed.ModelGloVe)
	require.NoError(t, err)
	assert.False(t, has)
}

func keys(m map[string][]float32) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
