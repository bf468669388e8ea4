package dispatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/core/ports"
)

// ParsingHandler turns raw file bytes into a parsed document of its
// category.
type ParsingHandler interface {
	Parse(ctx context.Context, content []byte, filename string, metadata map[string]string) (domain.ParsedDocument, error)
}

// PDFBookHandler parses PDF books into markdown text.
type PDFBookHandler struct {
	extractor ports.TextExtractor
}

func NewPDFBookHandler(extractor ports.TextExtractor) *PDFBookHandler {
	return &PDFBookHandler{extractor: extractor}
}

func (h *PDFBookHandler) Parse(ctx context.Context, content []byte, filename string, metadata map[string]string) (domain.ParsedDocument, error) {
	md, err := h.extractor.ExtractMarkdown(ctx, content)
	if err != nil {
		return domain.ParsedDocument{}, err
	}
	return domain.ParsedDocument{
		ID:             uuid.New(),
		SourceFilename: filename,
		ContentMD:      md,
		Category:       domain.CategoryBooks,
		Metadata:       metadata,
	}, nil
}

// ParsingDispatcher routes raw bytes to the parsing handler registered for
// the file's category. New formats register here without touching the
// pipeline.
type ParsingDispatcher struct {
	books  ParsingHandler
	logger *slog.Logger
}

func NewParsingDispatcher(books ParsingHandler, logger *slog.Logger) *ParsingDispatcher {
	return &ParsingDispatcher{books: books, logger: logger}
}

func (d *ParsingDispatcher) Dispatch(ctx context.Context, raw domain.RawObject) (domain.ParsedDocument, error) {
	var category domain.Category
	switch ext := strings.ToLower(filepath.Ext(raw.Key)); ext {
	case ".pdf":
		category = domain.CategoryBooks
	default:
		return domain.ParsedDocument{}, domain.WrapError(domain.ErrUnsupportedFileType, "dispatch parsing", nil)
	}

	var handler ParsingHandler
	switch category {
	case domain.CategoryBooks:
		handler = d.books
	default:
		return domain.ParsedDocument{}, domain.WrapError(domain.ErrUnsupportedCategory, "dispatch parsing", nil)
	}

	doc, err := handler.Parse(ctx, raw.Content, raw.Key, raw.Metadata)
	if err != nil {
		return domain.ParsedDocument{}, err
	}

	d.logger.Info("document parsed",
		"category", category,
		"source", doc.SourceFilename,
		"content_len", len(doc.ContentMD),
	)
	return doc, nil
}
