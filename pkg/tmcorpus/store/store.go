package store

import (
	"context"
	"time"
)

// Store persists fetched datasets, their step records and cached embeddings
type Store interface {
	Close() error

	// Documents
	SaveDocs(ctx context.Context, dataset string, docs []Doc) error
	LoadDocs(ctx context.Context, dataset string) ([]Doc, bool, error)

	// Step records
	SaveInfo(ctx context.Context, info Info) error
	LoadInfo(ctx context.Context, dataset string) (Info, bool, error)

	// SaveDataset writes docs and the step record named by info.Name
	// together: either both are stored or neither is.
	SaveDataset(ctx context.Context, docs []Doc, info Info) error

	// Word embeddings, keyed by dataset and model name
	SaveEmbeddings(ctx context.Context, dataset, model string, vectors map[string][]float32) error
	LoadEmbeddings(ctx context.Context, dataset, model string) (map[string][]float32, bool, error)
	DeleteEmbeddings(ctx context.Context, dataset string) error
}

// Doc represents a stored document
type Doc struct {
	Text   string   `json:"text" yaml:"text"`
	Tokens []string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty"`
}

// Info is the persisted step record of a dataset.
type Info struct {
	Name               string         `json:"name" yaml:"name"`
	Language           string         `json:"language" yaml:"language"`
	PreprocessingSteps map[string]any `json:"preprocessing_steps" yaml:"preprocessing_steps"`
	Revision           string         `json:"revision,omitempty" yaml:"revision,omitempty"`
	UpdatedAt          time.Time      `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}
