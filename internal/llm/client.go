package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultBatchSize = 256

// EmbeddingClient calls an OpenAI-compatible embeddings endpoint.
type EmbeddingClient struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int

	HTTPClient *http.Client
}

// Embed returns one vector per input, in input order.
func (c *EmbeddingClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if c.BaseURL == "" || c.Model == "" {
		return nil, fmt.Errorf("llm: base URL and model required")
	}
	client := c.client()

	size := c.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	out := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))
		batch, err := c.send(ctx, client, inputs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *EmbeddingClient) send(ctx context.Context, client *openai.Client, batch []string) ([][]float32, error) {
	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: batch,
		Model: openai.EmbeddingModel(c.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("llm embeddings: %w", err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("llm embeddings: got %d vectors for %d inputs", len(resp.Data), len(batch))
	}
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

func (c *EmbeddingClient) client() *openai.Client {
	cfg := openai.DefaultConfig(c.APIKey)
	cfg.BaseURL = c.BaseURL
	cfg.HTTPClient = c.httpClient()
	return openai.NewClientWithConfig(cfg)
}

func (c *EmbeddingClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
