// Package preprocess runs one preprocessing invocation against a corpus table:
// it reconciles the request with the steps already applied, delegates the
// remaining work to a Preprocessor and commits the outcome.
package preprocess

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/corpus"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
)

// Preprocessor normalizes a batch of documents. The output has the same
// length and order as texts; a failure fails the whole batch.
type Preprocessor interface {
	PreprocessBatch(ctx context.Context, texts []string, language string, options steps.Set) ([]string, error)
}

// Session describes one Run call. It is never persisted.
type Session struct {
	ID        string
	Language  string
	Requested steps.Set
	Previous  steps.Set
	Effective steps.Set
	Executed  bool
	Duration  time.Duration
}

// Runner applies preprocessing requests to the table of a single dataset.
type Runner struct {
	registry     *steps.Registry
	preprocessor Preprocessor
	logger       *zap.Logger
	entropy      *ulid.MonotonicEntropy
}

// NewRunner creates a runner bound to a dataset's registry.
func NewRunner(registry *steps.Registry, p Preprocessor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		registry:     registry,
		preprocessor: p,
		logger:       logger,
		entropy:      ulid.Monotonic(rand.Reader, 0),
	}
}

// Run applies requested to table. Steps already applied with the same value
// are skipped; when nothing is left the preprocessor is not called at all.
// On failure the table and the registry are left as they were.
func (r *Runner) Run(ctx context.Context, table *corpus.Table, requested steps.Set, language string) (*Session, error) {
	if table == nil {
		return nil, &internalerr.MissingInputError{}
	}
	texts, ok := table.InputTexts()
	if !ok {
		return nil, &internalerr.MissingInputError{}
	}

	requested = requested.Clone()
	if lang, ok := requested[steps.Language].(string); ok && lang != "" {
		language = lang
	}
	delete(requested, steps.Language)

	sess := &Session{
		ID:        ulid.MustNew(ulid.Timestamp(time.Now()), r.entropy).String(),
		Language:  language,
		Requested: requested,
		Previous:  r.registry.Get(),
	}
	sess.Effective = steps.Reconcile(sess.Previous, requested)

	log := r.logger.With(
		zap.String("session", sess.ID),
		zap.String("language", language),
		zap.Int("documents", table.Len()),
	)

	if sess.Effective.IsNoop() {
		log.Debug("all requested steps already applied", zap.Strings("steps", requested.Names()))
		r.registry.Merge(requested)
		return sess, nil
	}

	log.Info("preprocessing", zap.Any("steps", sess.Effective.Pending()))
	start := time.Now()

	out, err := r.preprocessor.PreprocessBatch(ctx, texts, language, sess.Effective)
	if err != nil {
		log.Error("preprocessing failed", zap.Error(err))
		return nil, &internalerr.PreprocessingError{Language: language, Cause: err}
	}
	if len(out) != len(texts) {
		return nil, &internalerr.ConsistencyError{
			Detail: fmt.Sprintf("preprocessor returned %d texts for %d documents", len(out), len(texts)),
		}
	}
	if err := table.ReplaceTexts(out); err != nil {
		return nil, err
	}

	r.registry.Merge(requested)
	sess.Executed = true
	sess.Duration = time.Since(start)
	log.Info("preprocessing completed", zap.Duration("took", sess.Duration))
	return sess, nil
}
