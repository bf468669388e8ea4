package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nvoronin/libris/internal/core/dispatch"
	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/observability/metrics"
)

// ProcessUsecase runs LLM enrichment over every section of every document
// and embeds the resulting chunks. Enrichment fans out across all sections
// at once; the LLM client's own permit pool is the concurrency bound.
// Embedding is sequential in fixed-size batches.
type ProcessUsecase struct {
	processing *dispatch.ProcessingDispatcher
	embedding  *dispatch.EmbeddingDispatcher
	metrics    *metrics.PipelineMetrics
	logger     *slog.Logger
	embedBatch int
}

func NewProcessUsecase(
	processing *dispatch.ProcessingDispatcher,
	embedding *dispatch.EmbeddingDispatcher,
	m *metrics.PipelineMetrics,
	logger *slog.Logger,
	embedBatch int,
) *ProcessUsecase {
	if embedBatch < 1 {
		embedBatch = 1
	}
	return &ProcessUsecase{
		processing: processing,
		embedding:  embedding,
		metrics:    m,
		logger:     logger,
		embedBatch: embedBatch,
	}
}

func (u *ProcessUsecase) Process(ctx context.Context, docs []StructuredDocument) ([]domain.Record, error) {
	books := u.extractBookMetadata(ctx, docs)
	chunks := u.enrichSections(ctx, docs, books)
	return u.embed(ctx, chunks)
}

// extractBookMetadata runs one metadata extraction per document,
// concurrently. A document whose extraction fails or yields no title is
// unidentifiable and is excluded from enrichment entirely.
func (u *ProcessUsecase) extractBookMetadata(ctx context.Context, docs []StructuredDocument) map[string]domain.BookMetadata {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		books = make(map[string]domain.BookMetadata, len(docs))
	)
	for _, sd := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			book, err := u.processing.ExtractDocumentMetadata(ctx, sd.Doc)
			if err != nil {
				u.logger.Warn("document metadata extraction failed, skipping document",
					"source", sd.Doc.SourceFilename, "error", err)
				return
			}
			if book.Title == "" {
				u.logger.Warn("document metadata has no title, skipping document",
					"source", sd.Doc.SourceFilename)
				return
			}
			mu.Lock()
			books[sd.Doc.ID.String()] = book
			mu.Unlock()
		}()
	}
	wg.Wait()
	return books
}

// enrichSections fans out across every section of every surviving document.
// A failed section is dropped; its siblings keep going.
func (u *ProcessUsecase) enrichSections(ctx context.Context, docs []StructuredDocument, books map[string]domain.BookMetadata) []domain.BookChunk {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		chunks []domain.BookChunk
	)
	for _, sd := range docs {
		book, ok := books[sd.Doc.ID.String()]
		if !ok {
			continue
		}
		for _, section := range sd.Sections {
			wg.Add(1)
			go func() {
				defer wg.Done()
				produced, err := u.processing.Process(ctx, section, book)
				if err != nil {
					u.logger.Warn("section processing failed, skipping section",
						"source", sd.Doc.SourceFilename,
						"section", section.SectionTitle(),
						"error", err)
					return
				}
				for _, chunk := range produced {
					u.metrics.ChunkProduced(serviceLabel, string(chunk.ChunkType))
				}
				mu.Lock()
				chunks = append(chunks, produced...)
				mu.Unlock()
			}()
		}
	}
	wg.Wait()
	return chunks
}

func (u *ProcessUsecase) embed(ctx context.Context, chunks []domain.BookChunk) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += u.embedBatch {
		end := min(start+u.embedBatch, len(chunks))
		batch := make([]domain.Embeddable, 0, end-start)
		for _, chunk := range chunks[start:end] {
			batch = append(batch, chunk)
		}
		embedded, err := u.embedding.Dispatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		records = append(records, embedded...)
	}
	return records, nil
}
