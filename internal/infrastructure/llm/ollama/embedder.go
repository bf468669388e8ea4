package ollama

import (
	"context"

	"github.com/nvoronin/libris/internal/core/domain"
)

// Embedder maps content strings to vectors through the shared client. The
// provenance block is recorded on every embedded record it produces.
type Embedder struct {
	client     *Client
	provenance domain.EmbeddingProvenance
}

func NewEmbedder(client *Client, size, maxInputLength int) *Embedder {
	return &Embedder{
		client: client,
		provenance: domain.EmbeddingProvenance{
			ModelID:        client.embedModel,
			Size:           size,
			MaxInputLength: maxInputLength,
		},
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.call(ctx, "embed", func(callCtx context.Context) error {
		return e.client.postJSON(callCtx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) Provenance() domain.EmbeddingProvenance {
	return e.provenance
}
