package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/core/ports"
)

// EmbeddingDispatcher embeds one homogeneous batch of content items and
// wraps each with its vector and model provenance. One model call per batch.
type EmbeddingDispatcher struct {
	embedder ports.Embedder
	logger   *slog.Logger
}

func NewEmbeddingDispatcher(embedder ports.Embedder, logger *slog.Logger) *EmbeddingDispatcher {
	return &EmbeddingDispatcher{embedder: embedder, logger: logger}
}

func (d *EmbeddingDispatcher) Dispatch(ctx context.Context, items []domain.Embeddable) ([]domain.Record, error) {
	if len(items) == 0 {
		return nil, nil
	}

	category := items[0].EmbedCategory()
	for _, item := range items[1:] {
		if item.EmbedCategory() != category {
			return nil, domain.WrapError(domain.ErrMixedCategories, "dispatch embedding", nil)
		}
	}
	switch category {
	case domain.CategoryBooks, domain.CategoryQueries:
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedCategory, "dispatch embedding", nil)
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.EmbedContent()
	}
	vectors, err := d.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch of %d: %w", len(items), err)
	}
	if len(vectors) != len(items) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d items", len(vectors), len(items))
	}

	provenance := d.embedder.Provenance()
	records := make([]domain.Record, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case domain.BookChunk:
			records[i] = domain.EmbeddedBookChunk{BookChunk: v, Vector: vectors[i], Provenance: provenance}
		case domain.Query:
			records[i] = domain.EmbeddedQuery{Query: v, Vector: vectors[i], Provenance: provenance}
		default:
			return nil, domain.WrapError(domain.ErrUnsupportedCategory, fmt.Sprintf("dispatch embedding: %T", item), nil)
		}
	}

	d.logger.Debug("batch embedded", "category", category, "num_items", len(items))
	return records, nil
}
