package dispatch

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/core/ports"
)

// metadataProbeRunes bounds how much of a document the metadata extraction
// prompt sees. Front matter carries title and authors; the rest is noise.
const metadataProbeRunes = 9000

// ProcessingHandler turns one section into enriched chunks and extracts
// document-level metadata.
type ProcessingHandler interface {
	Process(ctx context.Context, section domain.Section, book domain.BookMetadata) ([]domain.BookChunk, error)
	ExtractDocumentMetadata(ctx context.Context, doc domain.ParsedDocument) (domain.BookMetadata, error)
}

// ProcessingDispatcher routes sections to the processor registered for
// their category.
type ProcessingDispatcher struct {
	books  ProcessingHandler
	logger *slog.Logger
}

func NewProcessingDispatcher(books ProcessingHandler, logger *slog.Logger) *ProcessingDispatcher {
	return &ProcessingDispatcher{books: books, logger: logger}
}

func (d *ProcessingDispatcher) Process(ctx context.Context, section domain.Section, book domain.BookMetadata) ([]domain.BookChunk, error) {
	handler, err := d.handlerFor(section.SectionCategory())
	if err != nil {
		return nil, err
	}
	return handler.Process(ctx, section, book)
}

func (d *ProcessingDispatcher) ExtractDocumentMetadata(ctx context.Context, doc domain.ParsedDocument) (domain.BookMetadata, error) {
	handler, err := d.handlerFor(doc.Category)
	if err != nil {
		return domain.BookMetadata{}, err
	}
	return handler.ExtractDocumentMetadata(ctx, doc)
}

func (d *ProcessingDispatcher) handlerFor(category domain.Category) (ProcessingHandler, error) {
	switch category {
	case domain.CategoryBooks:
		return d.books, nil
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedCategory, "dispatch processing", nil)
	}
}

// BookChapterProcessor enriches a chapter into three chunk classes:
// raw text windows, summary nuggets, and one full-chapter summary. The
// three productions run concurrently; a failed LLM production logs and
// omits its class rather than failing the chapter.
type BookChapterProcessor struct {
	analyst  ports.BookAnalyst
	splitter ports.SectionSplitter
	logger   *slog.Logger
}

func NewBookChapterProcessor(analyst ports.BookAnalyst, splitter ports.SectionSplitter, logger *slog.Logger) *BookChapterProcessor {
	return &BookChapterProcessor{analyst: analyst, splitter: splitter, logger: logger}
}

func (p *BookChapterProcessor) ExtractDocumentMetadata(ctx context.Context, doc domain.ParsedDocument) (domain.BookMetadata, error) {
	probe := doc.ContentMD
	if runes := []rune(probe); len(runes) > metadataProbeRunes {
		probe = string(runes[:metadataProbeRunes])
	}
	return p.analyst.ExtractBookMetadata(ctx, probe)
}

func (p *BookChapterProcessor) Process(ctx context.Context, section domain.Section, book domain.BookMetadata) ([]domain.BookChunk, error) {
	chapter, ok := section.(domain.ChapterContent)
	if !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedCategory, "process section", nil)
	}

	var (
		wg       sync.WaitGroup
		rawTexts []rawTextPart
		nuggets  []string
		summary  string
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		rawTexts = p.splitRawText(chapter.Content)
	}()
	go func() {
		defer wg.Done()
		parts, err := p.analyst.SummarizeChapter(ctx, chapter)
		if err != nil {
			p.logger.Warn("nugget summarization failed",
				"chapter", chapter.Title, "error", err)
			return
		}
		nuggets = parts
	}()
	go func() {
		defer wg.Done()
		text, err := p.analyst.SummarizeChapterFull(ctx, chapter)
		if err != nil {
			p.logger.Warn("full summarization failed",
				"chapter", chapter.Title, "error", err)
			return
		}
		summary = text
	}()
	wg.Wait()

	chunks := make([]domain.BookChunk, 0, len(rawTexts)+len(nuggets)+1)
	for _, part := range rawTexts {
		chunks = append(chunks, newBookChunk(chapter, book, domain.ChunkTypeRawText, part.content, part.metadata))
	}
	for _, nugget := range nuggets {
		chunks = append(chunks, newBookChunk(chapter, book, domain.ChunkTypeSummaryNugget, nugget, nil))
	}
	if summary != "" {
		chunks = append(chunks, newBookChunk(chapter, book, domain.ChunkTypeSummaryParagraph, summary, nil))
	}
	return chunks, nil
}

type rawTextPart struct {
	content  string
	metadata map[string]string
}

// splitRawText splits a chapter by its headings first, then windows each
// heading block to the embedding-friendly size. Window chunks remember the
// heading they fall under.
func (p *BookChapterProcessor) splitRawText(content string) []rawTextPart {
	var parts []rawTextPart
	for _, block := range p.splitter.SplitByHeadings(content) {
		var meta map[string]string
		if block.Header != "" {
			meta = map[string]string{
				"header":       block.Header,
				"header_level": strconv.Itoa(block.Level),
			}
		}
		for _, window := range p.splitter.SplitByLength(block.Content) {
			parts = append(parts, rawTextPart{content: window, metadata: meta})
		}
	}
	return parts
}

func newBookChunk(chapter domain.ChapterContent, book domain.BookMetadata, chunkType domain.ChunkType, content string, extra map[string]string) domain.BookChunk {
	metadata := make(map[string]string, len(chapter.Metadata)+len(extra))
	for k, v := range chapter.Metadata {
		metadata[k] = v
	}
	for k, v := range extra {
		metadata[k] = v
	}

	var documentID uuid.UUID
	if raw, ok := chapter.Metadata[domain.MetaDocumentID]; ok {
		if parsed, err := uuid.Parse(raw); err == nil {
			documentID = parsed
		}
	}

	return domain.BookChunk{
		ID:           uuid.New(),
		Content:      content,
		DocumentID:   documentID,
		ParentID:     chapter.ID,
		ChunkType:    chunkType,
		BookTitle:    book.Title,
		Authors:      book.Authors,
		ChapterTitle: chapter.Title,
		Metadata:     metadata,
	}
}
