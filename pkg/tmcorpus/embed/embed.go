// Package embed produces word vectors for a corpus vocabulary.
package embed

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cognicore/tmcorpus/internal/llm"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
)

// Supported embedding model names.
const (
	ModelGloVe   = "glove-wiki-gigaword-100"
	ModelMiniLM  = "paraphrase-MiniLM-L3-v2"
	DefaultModel = ModelGloVe
)

// Models lists the supported model names.
var Models = []string{ModelGloVe, ModelMiniLM}

// CheckModel reports ErrInvalidInput for unsupported model names.
func CheckModel(name string) error {
	for _, m := range Models {
		if m == name {
			return nil
		}
	}
	return fmt.Errorf("model %q not supported, use one of %s: %w", name, strings.Join(Models, ", "), internalerr.ErrInvalidInput)
}

// WordEmbedder maps words to vectors. Words the model does not know may be omitted.
type WordEmbedder interface {
	EmbedWords(ctx context.Context, words []string) (map[string][]float32, error)
}

// GloVe serves vectors from a GloVe text file (`word v1 v2 ...` per line).
// The file is read once, on first use.
type GloVe struct {
	Path string

	once    sync.Once
	vectors map[string][]float32
	err     error
}

// NewGloVe returns a GloVe embedder reading path lazily.
func NewGloVe(path string) *GloVe {
	return &GloVe{Path: path}
}

// EmbedWords implements WordEmbedder. Unknown words are omitted.
func (g *GloVe) EmbedWords(ctx context.Context, words []string) (map[string][]float32, error) {
	g.once.Do(func() { g.vectors, g.err = readGloVe(g.Path) })
	if g.err != nil {
		return nil, g.err
	}
	out := make(map[string][]float32, len(words))
	for _, w := range words {
		if v, ok := g.vectors[w]; ok {
			out[w] = v
		}
	}
	return out, nil
}

func readGloVe(path string) (map[string][]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open glove vectors: %w", err)
	}
	defer file.Close()

	vectors := make(map[string][]float32)
	dim := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if dim == 0 {
			dim = len(fields) - 1
		}
		if len(fields)-1 != dim {
			return nil, fmt.Errorf("%s:%d: expected %d dimensions, got %d: %w", path, line, dim, len(fields)-1, internalerr.ErrInvalidInput)
		}
		vec := make([]float32, dim)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			vec[i] = float32(v)
		}
		vectors[fields[0]] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read glove vectors: %w", err)
	}
	return vectors, nil
}

// Remote embeds words through an OpenAI-compatible embeddings endpoint,
// one vector per word.
type Remote struct {
	Client *llm.EmbeddingClient
}

// EmbedWords implements WordEmbedder.
func (r Remote) EmbedWords(ctx context.Context, words []string) (map[string][]float32, error) {
	vectors, err := r.Client.Embed(ctx, words)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(words) {
		return nil, fmt.Errorf("got %d vectors for %d words: %w", len(vectors), len(words), internalerr.ErrConsistency)
	}
	out := make(map[string][]float32, len(words))
	for i, w := range words {
		out[w] = vectors[i]
	}
	return out, nil
}
