// Package tmcorpus loads topic-modeling datasets, preprocesses them with
// step tracking so already-applied steps are never repeated, and derives the
// representations topic models consume.
package tmcorpus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/config"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/corpus"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/embed"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/preprocess"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/source"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/textprep"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/vectorize"
)

// Feature names under which derived matrices are kept on the table.
const (
	FeatureBOW   = "bow"
	FeatureTFIDF = "tfidf"
)

const defaultLanguage = "en"

// Dataset is one corpus together with the record of preprocessing steps
// applied to it. A Dataset is not safe for concurrent use.
type Dataset struct {
	name     string
	language string // from Options; wins over the fetched record
	fetched  string // language of the fetched step record
	revision string
	updated  time.Time

	table    *corpus.Table
	registry *steps.Registry
	runner   *preprocess.Runner

	store        store.Store
	preprocessor preprocess.Preprocessor
	modelSteps   config.ModelSteps
	embedders    map[string]embed.WordEmbedder
	logger       *zap.Logger

	bowFeatures   []string
	tfidfFeatures []string
}

// Options configures a Dataset
type Options struct {
	Name     string
	Language string // defaults to the language of the fetched step record, then "en"

	Store        store.Store             // optional; required by Save and the embedding cache
	Preprocessor preprocess.Preprocessor // defaults to textprep.DefaultSelector
	ModelSteps   config.ModelSteps       // defaults to the built-in presets
	Embedders    map[string]embed.WordEmbedder
	Logger       *zap.Logger
}

// New creates an empty dataset. Load documents with Fetch or CreateLoadSave.
func New(opts Options) *Dataset {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := opts.Preprocessor
	if p == nil {
		p = textprep.DefaultSelector(logger)
	}
	d := &Dataset{
		name:         opts.Name,
		language:     opts.Language,
		store:        opts.Store,
		preprocessor: p,
		modelSteps:   opts.ModelSteps,
		embedders:    opts.Embedders,
		logger:       logger,
	}
	d.resetSteps(nil)
	return d
}

// Close releases the store, if any.
func (d *Dataset) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

func (d *Dataset) resetSteps(initial steps.Set) {
	d.registry = steps.NewRegistry(initial)
	d.runner = preprocess.NewRunner(d.registry, d.preprocessor, d.logger)
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Language returns the language passed to the preprocessor.
func (d *Dataset) Language() string {
	switch {
	case d.language != "":
		return d.language
	case d.fetched != "":
		return d.fetched
	}
	return defaultLanguage
}

// Fetch replaces the dataset contents with name loaded from src. The step
// registry is seeded from the step record shipped with the data, so steps the
// publisher already applied are not run again.
func (d *Dataset) Fetch(ctx context.Context, name string, src source.Source) error {
	raw, err := src.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	table, err := tableFromDocs(raw.Docs)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	if table.Len() == 0 {
		return fmt.Errorf("fetch %s: no documents: %w", name, internalerr.ErrInvalidInput)
	}

	var applied steps.Set
	d.fetched, d.revision, d.updated = "", "", time.Time{}
	if raw.Info != nil {
		applied = steps.Set(raw.Info.PreprocessingSteps)
		d.fetched = raw.Info.Language
		d.revision, d.updated = raw.Info.Revision, raw.Info.UpdatedAt
	}
	if err := d.dropStaleEmbeddings(ctx, name, d.revision); err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}

	d.name = name
	d.table = table
	d.bowFeatures, d.tfidfFeatures = nil, nil
	d.resetSteps(applied)

	d.logger.Info("fetched dataset",
		zap.String("dataset", name),
		zap.String("path", raw.Location),
		zap.Int("documents", table.Len()),
		zap.Strings("steps", d.registry.Get().Names()),
	)
	return nil
}

// tableFromDocs builds the table of a fetched dataset. A document without
// text gets it back by joining its tokens.
func tableFromDocs(docs []store.Doc) (*corpus.Table, error) {
	texts := make([]string, len(docs))
	labels := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
		if doc.Text == "" && len(doc.Tokens) > 0 {
			texts[i] = strings.Join(doc.Tokens, " ")
		}
		labels[i] = doc.Label
	}
	return corpus.NewTable(texts, labels)
}

// dropStaleEmbeddings clears the embedding cache of name unless the store
// already holds the same revision of the dataset.
func (d *Dataset) dropStaleEmbeddings(ctx context.Context, name, revision string) error {
	if d.store == nil {
		return nil
	}
	info, found, err := d.store.LoadInfo(ctx, name)
	if err != nil {
		return err
	}
	if found && revision != "" && info.Revision == revision {
		return nil
	}
	return d.store.DeleteEmbeddings(ctx, name)
}

// Request describes one Preprocess call. A ModelType replaces Steps with the
// preset of that model.
type Request struct {
	ModelType       string
	CustomStopwords []string
	Steps           steps.Set
}

// Preprocess applies the requested steps that have not been applied yet.
// Derived matrices are dropped when the texts change.
func (d *Dataset) Preprocess(ctx context.Context, req Request) (*preprocess.Session, error) {
	if d.table == nil {
		return nil, &internalerr.MissingInputError{Dataset: d.name}
	}

	requested := req.Steps.Clone()
	if req.ModelType != "" {
		presets, err := d.presets()
		if err != nil {
			return nil, err
		}
		if requested, err = presets.For(req.ModelType); err != nil {
			return nil, err
		}
	}
	if requested == nil {
		requested = steps.Set{}
	}
	if len(req.CustomStopwords) > 0 {
		requested[steps.CustomStopwords] = steps.Terms(req.CustomStopwords)
	}

	sess, err := d.runner.Run(ctx, d.table, requested, d.Language())
	if err != nil {
		var missing *internalerr.MissingInputError
		if errors.As(err, &missing) {
			missing.Dataset = d.name
		}
		return nil, err
	}
	if sess.Executed {
		d.bowFeatures, d.tfidfFeatures = nil, nil
		if d.store != nil {
			if err := d.store.DeleteEmbeddings(ctx, d.name); err != nil {
				d.logger.Warn("failed to drop cached embeddings", zap.String("dataset", d.name), zap.Error(err))
			}
		}
	}
	return sess, nil
}

func (d *Dataset) presets() (config.ModelSteps, error) {
	if d.modelSteps == nil {
		presets, err := config.LoadModelSteps("")
		if err != nil {
			return nil, err
		}
		d.modelSteps = presets
	}
	return d.modelSteps, nil
}

// CreateLoadSave builds the dataset from raw documents: each document is
// cleaned, the steps are applied, and the result is written to saveDir in
// the folder layout together with its step record. labels may be nil.
func (d *Dataset) CreateLoadSave(ctx context.Context, docs, labels []string, name, saveDir string, requested steps.Set) error {
	if labels != nil && len(labels) != len(docs) {
		return fmt.Errorf("%d labels for %d documents: %w", len(labels), len(docs), internalerr.ErrInvalidInput)
	}
	cleaned := make([]string, len(docs))
	for i, doc := range docs {
		cleaned[i] = textprep.Clean(doc)
	}
	table, err := corpus.NewTable(cleaned, labels)
	if err != nil {
		return err
	}

	d.name = name
	d.table = table
	d.fetched, d.revision = "", ""
	d.bowFeatures, d.tfidfFeatures = nil, nil
	d.resetSteps(nil)

	if _, err := d.Preprocess(ctx, Request{Steps: requested}); err != nil {
		return err
	}

	return d.Export(saveDir)
}

// Export writes the documents and the step record to dir in the folder
// layout Fetch reads with source.Folder.
func (d *Dataset) Export(dir string) error {
	if d.table == nil {
		return &internalerr.MissingInputError{Dataset: d.name}
	}
	info := d.Info()
	info.Revision = ulid.Make().String()
	info.UpdatedAt = time.Now().UTC()
	if err := source.WriteFolder(dir, d.name, d.docs(), info); err != nil {
		return err
	}
	d.revision, d.updated = info.Revision, info.UpdatedAt
	d.logger.Info("saved dataset", zap.String("dataset", d.name), zap.String("path", dir), zap.Int("documents", d.table.Len()))
	return nil
}

// Save writes the documents and the step record to the store under a new
// revision.
func (d *Dataset) Save(ctx context.Context) error {
	if d.store == nil {
		return fmt.Errorf("save %s: no store configured: %w", d.name, internalerr.ErrStoreUnavailable)
	}
	if d.table == nil {
		return &internalerr.MissingInputError{Dataset: d.name}
	}
	info := d.Info()
	info.Revision = ulid.Make().String()
	info.UpdatedAt = time.Now().UTC()

	if err := d.store.SaveDataset(ctx, d.docs(), info); err != nil {
		return fmt.Errorf("save %s: %w", d.name, err)
	}
	d.revision, d.updated = info.Revision, info.UpdatedAt
	d.logger.Info("stored dataset", zap.String("dataset", d.name), zap.String("revision", info.Revision))
	return nil
}

func (d *Dataset) docs() []store.Doc {
	records := d.table.Records()
	out := make([]store.Doc, len(records))
	for i, r := range records {
		out[i] = store.Doc{Text: r.Text, Tokens: r.Tokens, Label: r.Label}
	}
	return out
}

// Info returns the step record of the dataset.
func (d *Dataset) Info() store.Info {
	return store.Info{
		Name:               d.name,
		Language:           d.Language(),
		PreprocessingSteps: map[string]any(d.registry.Get()),
		Revision:           d.revision,
		UpdatedAt:          d.updated,
	}
}

// Steps returns the steps applied so far.
func (d *Dataset) Steps() steps.Set { return d.registry.Get() }

// Len returns the number of documents.
func (d *Dataset) Len() int {
	if d.table == nil {
		return 0
	}
	return d.table.Len()
}

// Item is one document with the representations computed so far.
type Item struct {
	Text   string
	Label  string
	Tokens []string
	BOW    []float64
	TFIDF  []float64
}

// Item returns document i.
func (d *Dataset) Item(i int) (Item, error) {
	if d.table == nil {
		return Item{}, &internalerr.MissingInputError{Dataset: d.name}
	}
	r, err := d.table.Record(i)
	if err != nil {
		return Item{}, err
	}
	item := Item{Text: r.Text, Label: r.Label, Tokens: r.Tokens}
	if rows, ok := d.table.Feature(FeatureBOW); ok {
		item.BOW = rows[i]
	}
	if rows, ok := d.table.Feature(FeatureTFIDF); ok {
		item.TFIDF = rows[i]
	}
	return item, nil
}

// Corpus returns the token lists of every document.
func (d *Dataset) Corpus() [][]string {
	if d.table == nil {
		return nil
	}
	return d.table.Corpus()
}

// Vocabulary returns every distinct token, sorted.
func (d *Dataset) Vocabulary() []string {
	if d.table == nil {
		return nil
	}
	return d.table.Vocabulary()
}

// Labels returns one label per document; "" marks an unlabeled document.
func (d *Dataset) Labels() []string {
	if d.table == nil {
		return nil
	}
	return d.table.Labels()
}

// Texts returns the document texts.
func (d *Dataset) Texts() []string {
	if d.table == nil {
		return nil
	}
	return d.table.Texts()
}

// Split shuffles the documents with seed and divides them into a train and
// a validation dataset. The ratios must be non-negative and sum to 1. Both
// parts inherit the applied steps.
func (d *Dataset) Split(trainRatio, valRatio float64, seed int64) (*Dataset, *Dataset, error) {
	if d.table == nil {
		return nil, nil, &internalerr.MissingInputError{Dataset: d.name}
	}
	if trainRatio < 0 || valRatio < 0 {
		return nil, nil, fmt.Errorf("split ratios must be non-negative: %w", internalerr.ErrInvalidInput)
	}
	if math.Abs(trainRatio+valRatio-1) > 1e-9 {
		return nil, nil, fmt.Errorf("split ratios must sum to 1, got %g: %w", trainRatio+valRatio, internalerr.ErrInvalidInput)
	}

	n := d.table.Len()
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	nTrain := int(trainRatio * float64(n))

	train, err := d.subset(d.name+"_train", indices[:nTrain])
	if err != nil {
		return nil, nil, err
	}
	val, err := d.subset(d.name+"_val", indices[nTrain:])
	if err != nil {
		return nil, nil, err
	}
	return train, val, nil
}

func (d *Dataset) subset(name string, indices []int) (*Dataset, error) {
	table, err := d.table.Subset(indices)
	if err != nil {
		return nil, err
	}
	child := &Dataset{
		name:          name,
		language:      d.language,
		fetched:       d.fetched,
		table:         table,
		store:         d.store,
		preprocessor:  d.preprocessor,
		modelSteps:    d.modelSteps,
		embedders:     d.embedders,
		logger:        d.logger,
		bowFeatures:   d.bowFeatures,
		tfidfFeatures: d.tfidfFeatures,
	}
	child.resetSteps(d.registry.Get())
	return child, nil
}

// BOW computes the bag-of-words matrix of the corpus and keeps it on the
// dataset until the texts change.
func (d *Dataset) BOW(opts vectorize.Options) (vectorize.Matrix, error) {
	if d.table == nil {
		return vectorize.Matrix{}, &internalerr.MissingInputError{Dataset: d.name}
	}
	m, err := vectorize.CountVectorizer{Options: opts}.FitTransform(d.table.Corpus())
	if err != nil {
		return vectorize.Matrix{}, err
	}
	if err := d.table.SetFeature(FeatureBOW, m.Rows); err != nil {
		return vectorize.Matrix{}, err
	}
	d.bowFeatures = m.Features
	return m, nil
}

// TFIDF computes the TF-IDF matrix of the corpus and keeps it on the dataset
// until the texts change.
func (d *Dataset) TFIDF(opts vectorize.Options) (vectorize.Matrix, error) {
	if d.table == nil {
		return vectorize.Matrix{}, &internalerr.MissingInputError{Dataset: d.name}
	}
	m, err := vectorize.TFIDFVectorizer{Options: opts}.FitTransform(d.table.Corpus())
	if err != nil {
		return vectorize.Matrix{}, err
	}
	if err := d.table.SetFeature(FeatureTFIDF, m.Rows); err != nil {
		return vectorize.Matrix{}, err
	}
	d.tfidfFeatures = m.Features
	return m, nil
}

// Features returns the feature names of a matrix computed by BOW or TFIDF.
func (d *Dataset) Features(matrix string) []string {
	switch matrix {
	case FeatureBOW:
		return slices.Clone(d.bowFeatures)
	case FeatureTFIDF:
		return slices.Clone(d.tfidfFeatures)
	}
	return nil
}

// HasWordEmbeddings reports whether embeddings for model are cached in the store.
func (d *Dataset) HasWordEmbeddings(ctx context.Context, model string) (bool, error) {
	if d.store == nil {
		return false, nil
	}
	_, found, err := d.store.LoadEmbeddings(ctx, d.name, model)
	return found, err
}

// WordEmbeddings returns vectors for vocab, or for the dataset vocabulary when
// vocab is nil. Words already cached in the store are served from it; the
// rest are embedded and added to the cache. Words the model does not know are
// left out of the result.
func (d *Dataset) WordEmbeddings(ctx context.Context, model string, vocab []string) (map[string][]float32, error) {
	if err := embed.CheckModel(model); err != nil {
		return nil, err
	}
	if vocab == nil {
		vocab = d.Vocabulary()
	}

	var cached map[string][]float32
	if d.store != nil {
		var err error
		if cached, _, err = d.store.LoadEmbeddings(ctx, d.name, model); err != nil {
			return nil, fmt.Errorf("load embeddings: %w", err)
		}
	}

	vectors := make(map[string][]float32, len(vocab))
	var missing []string
	for _, word := range vocab {
		if vec, ok := cached[word]; ok {
			vectors[word] = vec
		} else {
			missing = append(missing, word)
		}
	}
	if len(missing) == 0 {
		d.logger.Debug("using cached embeddings", zap.String("dataset", d.name), zap.String("model", model))
		return vectors, nil
	}

	embedder, ok := d.embedders[model]
	if !ok {
		return nil, fmt.Errorf("no embedder configured for model %s: %w", model, internalerr.ErrInvalidConfig)
	}
	fresh, err := embedder.EmbedWords(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("embed vocabulary with %s: %w", model, err)
	}
	d.logger.Info("embedded vocabulary",
		zap.String("dataset", d.name),
		zap.String("model", model),
		zap.Int("words", len(missing)),
		zap.Int("cached", len(vectors)),
		zap.Int("vectors", len(fresh)),
	)

	if cached == nil {
		cached = make(map[string][]float32, len(fresh))
	}
	for word, vec := range fresh {
		vectors[word] = vec
		cached[word] = vec
	}
	if d.store != nil {
		if err := d.store.SaveEmbeddings(ctx, d.name, model, cached); err != nil {
			return nil, fmt.Errorf("cache embeddings: %w", err)
		}
	}
	return vectors, nil
}
