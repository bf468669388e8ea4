package dispatch

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/core/ports"
)

// ChunkingHandler splits one parsed document into ordered structural
// sections.
type ChunkingHandler interface {
	Chunk(ctx context.Context, doc domain.ParsedDocument) ([]domain.Section, error)
}

// ChunkingDispatcher routes a parsed document to the chunker registered for
// its category.
type ChunkingDispatcher struct {
	books  ChunkingHandler
	logger *slog.Logger
}

func NewChunkingDispatcher(books ChunkingHandler, logger *slog.Logger) *ChunkingDispatcher {
	return &ChunkingDispatcher{books: books, logger: logger}
}

func (d *ChunkingDispatcher) Dispatch(ctx context.Context, doc domain.ParsedDocument) ([]domain.Section, error) {
	var handler ChunkingHandler
	switch doc.Category {
	case domain.CategoryBooks:
		handler = d.books
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedCategory, "dispatch chunking", nil)
	}

	sections, err := handler.Chunk(ctx, doc)
	if err != nil {
		return nil, err
	}

	d.logger.Info("document chunked into sections",
		"category", doc.Category,
		"source", doc.SourceFilename,
		"num_sections", len(sections),
	)
	return sections, nil
}

// BookChunkingHandler splits a book into chapters driven by its table of
// contents. Without a detectable ToC the whole book becomes one chapter;
// with a ToC the LLM turns the ToC text into a chapter list and each
// chapter's span is located by a two-level heading boundary scheme.
type BookChunkingHandler struct {
	analyst ports.BookAnalyst
	logger  *slog.Logger
}

func NewBookChunkingHandler(analyst ports.BookAnalyst, logger *slog.Logger) *BookChunkingHandler {
	return &BookChunkingHandler{analyst: analyst, logger: logger}
}

var (
	headingLine = regexp.MustCompile(`(?m)^(#{1,6})[ \t]*(.*)$`)
	tocMarker   = regexp.MustCompile(`(?i)^(?:table of contents|contents|toc)\b`)
)

type heading struct {
	start int
	level int
	text  string
}

func indexHeadings(text string) []heading {
	matches := headingLine.FindAllStringSubmatchIndex(text, -1)
	out := make([]heading, 0, len(matches))
	for _, m := range matches {
		out = append(out, heading{
			start: m[0],
			level: m[3] - m[2],
			text:  strings.TrimSpace(text[m[4]:m[5]]),
		})
	}
	return out
}

func (h *BookChunkingHandler) Chunk(ctx context.Context, doc domain.ParsedDocument) ([]domain.Section, error) {
	md := doc.ContentMD

	baseMetadata := make(map[string]string, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		baseMetadata[k] = v
	}
	baseMetadata[domain.MetaDocumentID] = doc.ID.String()

	headingIndex := indexHeadings(md)

	tocText, ok := findTOCBlock(md, headingIndex)
	if !ok {
		// No ToC: treat the whole book as one chapter.
		return []domain.Section{domain.ChapterContent{
			ID:            uuid.New(),
			Title:         "Full Document",
			ChapterNumber: "1",
			Content:       md,
			Metadata:      baseMetadata,
		}}, nil
	}

	chapters, err := h.analyst.ParseTableOfContents(ctx, tocText)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		// Producing nothing beats guessing at chapter boundaries.
		h.logger.Warn("toc yielded no chapters", "source", doc.SourceFilename)
		return nil, nil
	}

	var sections []domain.Section
	for i, chapter := range chapters {
		content, ok := chapterSpan(md, headingIndex, chapter, nextTitle(chapters, i))
		if !ok {
			// Boundary not found: the chapter is dropped, coverage degrades
			// instead of the run aborting.
			h.logger.Warn("chapter boundary not found",
				"source", doc.SourceFilename,
				"chapter", chapter.Title,
			)
			continue
		}
		number := chapter.Number
		if number == "" {
			number = domain.ChapterNumberFromIndex(i)
		}
		sections = append(sections, domain.ChapterContent{
			ID:            uuid.New(),
			Title:         chapter.Title,
			ChapterNumber: number,
			Content:       content,
			Metadata:      baseMetadata,
		})
	}
	return sections, nil
}

func nextTitle(chapters []domain.Chapter, i int) string {
	if i+1 < len(chapters) {
		return chapters[i+1].Title
	}
	return ""
}

// findTOCBlock captures the text from a level-1/2 ToC heading up to, but
// excluding, the next heading of the same level. A ToC heading with no
// closing heading is treated as no ToC at all.
func findTOCBlock(text string, headings []heading) (string, bool) {
	for i, h := range headings {
		if h.level > 2 || !tocMarker.MatchString(h.text) {
			continue
		}
		for _, next := range headings[i+1:] {
			if next.level == h.level {
				return strings.TrimSpace(text[h.start:next.start]), true
			}
		}
		return "", false
	}
	return "", false
}

// chapterSpan locates a chapter's content: from the heading that opens with
// the chapter title, up to the next-chapter heading at the same or a
// shallower level, or end of document for the last chapter. Matching is
// case-insensitive on heading text.
func chapterSpan(text string, headings []heading, chapter domain.Chapter, next string) (string, bool) {
	startIdx := -1
	var startLevel int
	for i, h := range headings {
		if h.level <= 4 && headingOpensWith(h.text, chapter.Title) {
			startIdx = i
			startLevel = h.level
			break
		}
	}
	if startIdx < 0 {
		return "", false
	}

	start := headings[startIdx].start
	if next == "" {
		return strings.TrimSpace(text[start:]), true
	}
	for _, h := range headings[startIdx+1:] {
		if h.level <= startLevel && headingOpensWith(h.text, next) {
			return strings.TrimSpace(text[start:h.start]), true
		}
	}
	return "", false
}

func headingOpensWith(headingText, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(headingText), strings.ToLower(title))
}
