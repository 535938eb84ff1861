package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu         sync.RWMutex
	docs       map[string][]store.Doc
	infos      map[string]store.Info
	embeddings map[string]map[string][]float32
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		docs:       make(map[string][]store.Doc),
		infos:      make(map[string]store.Info),
		embeddings: make(map[string]map[string][]float32),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveDocs replaces the documents of a dataset.
func (s *Store) SaveDocs(ctx context.Context, dataset string, docs []store.Doc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[dataset] = copyDocs(docs)
	return nil
}

// LoadDocs returns the documents of a dataset.
func (s *Store) LoadDocs(ctx context.Context, dataset string) ([]store.Doc, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, ok := s.docs[dataset]
	if !ok {
		return nil, false, nil
	}
	return copyDocs(docs), true, nil
}

// SaveInfo replaces the step record of a dataset.
func (s *Store) SaveInfo(ctx context.Context, info store.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.infos[info.Name] = copyInfo(info)
	return nil
}

// SaveDataset replaces the documents and the step record of a dataset.
func (s *Store) SaveDataset(ctx context.Context, docs []store.Doc, info store.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[info.Name] = copyDocs(docs)
	s.infos[info.Name] = copyInfo(info)
	return nil
}

// LoadInfo returns the step record of a dataset.
func (s *Store) LoadInfo(ctx context.Context, dataset string) (store.Info, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.infos[dataset]
	if !ok {
		return store.Info{}, false, nil
	}
	return copyInfo(info), true, nil
}

// SaveEmbeddings replaces the cached vectors of a dataset/model pair.
func (s *Store) SaveEmbeddings(ctx context.Context, dataset, model string, vectors map[string][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.embeddings[embeddingKey(dataset, model)] = copyVectors(vectors)
	return nil
}

// LoadEmbeddings returns the cached vectors of a dataset/model pair.
func (s *Store) LoadEmbeddings(ctx context.Context, dataset, model string) (map[string][]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vectors, ok := s.embeddings[embeddingKey(dataset, model)]
	if !ok {
		return nil, false, nil
	}
	return copyVectors(vectors), true, nil
}

// DeleteEmbeddings drops every cached embedding set of a dataset.
func (s *Store) DeleteEmbeddings(ctx context.Context, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := dataset + "|"
	for key := range s.embeddings {
		if strings.HasPrefix(key, prefix) {
			delete(s.embeddings, key)
		}
	}
	return nil
}

func embeddingKey(dataset, model string) string {
	return dataset + "|" + model
}

func copyDocs(in []store.Doc) []store.Doc {
	out := make([]store.Doc, len(in))
	for i, d := range in {
		out[i] = store.Doc{
			Text:   d.Text,
			Tokens: append([]string(nil), d.Tokens...),
			Label:  d.Label,
		}
	}
	return out
}

func copyInfo(in store.Info) store.Info {
	out := in
	out.PreprocessingSteps = make(map[string]any, len(in.PreprocessingSteps))
	for k, v := range in.PreprocessingSteps {
		if list, ok := v.([]string); ok {
			v = append([]string{}, list...)
		}
		out.PreprocessingSteps[k] = v
	}
	return out
}

func copyVectors(in map[string][]float32) map[string][]float32 {
	out := make(map[string][]float32, len(in))
	for word, vec := range in {
		out[word] = append([]float32(nil), vec...)
	}
	return out
}
