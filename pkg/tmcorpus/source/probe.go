package source

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
)

// Probe tries candidate directories in order and loads the dataset from the
// first one that exists.
type Probe struct {
	Candidates []string
	Open       func(dir string) Source
	Logger     *zap.Logger
}

// Load implements Source.
func (p Probe) Load(ctx context.Context, name string) (*Raw, error) {
	log := logger(p.Logger)
	for _, dir := range p.Candidates {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			log.Debug("dataset path not found", zap.String("path", dir))
			continue
		}
		log.Info("found dataset path", zap.String("path", dir))
		return p.Open(dir).Load(ctx, name)
	}
	return nil, &internalerr.NotFoundError{Name: name, Tried: p.Candidates}
}

// Cached serves datasets from a store and fills it from Next on a miss.
type Cached struct {
	Store  store.Store
	Next   Source
	Logger *zap.Logger
}

// Load implements Source.
func (c Cached) Load(ctx context.Context, name string) (*Raw, error) {
	log := logger(c.Logger)

	docs, found, err := c.Store.LoadDocs(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if found {
		raw := &Raw{Docs: docs, Location: "cache"}
		info, ok, err := c.Store.LoadInfo(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read cache: %w", err)
		}
		if ok {
			raw.Info = &info
		}
		log.Info("loaded dataset from cache", zap.String("dataset", name), zap.Int("documents", len(docs)))
		return raw, nil
	}

	raw, err := c.Next.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if raw.Info == nil {
		err = c.Store.SaveDocs(ctx, name, raw.Docs)
	} else {
		info := *raw.Info
		info.Name = name
		err = c.Store.SaveDataset(ctx, raw.Docs, info)
	}
	if err != nil {
		return nil, fmt.Errorf("write cache: %w", err)
	}
	log.Info("cached dataset", zap.String("dataset", name), zap.Int("documents", len(raw.Docs)))
	return raw, nil
}
