package dispatch

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nvoronin/libris/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type analystFake struct {
	chapters    []domain.Chapter
	chaptersErr error
	tocSeen     string

	metadata    domain.BookMetadata
	metadataErr error

	nuggets    []string
	nuggetsErr error

	summary    string
	summaryErr error
}

func (f *analystFake) ParseTableOfContents(_ context.Context, tocText string) ([]domain.Chapter, error) {
	f.tocSeen = tocText
	if f.chaptersErr != nil {
		return nil, f.chaptersErr
	}
	return f.chapters, nil
}

func (f *analystFake) ExtractBookMetadata(context.Context, string) (domain.BookMetadata, error) {
	if f.metadataErr != nil {
		return domain.BookMetadata{}, f.metadataErr
	}
	return f.metadata, nil
}

func (f *analystFake) SummarizeChapter(context.Context, domain.ChapterContent) ([]string, error) {
	if f.nuggetsErr != nil {
		return nil, f.nuggetsErr
	}
	return f.nuggets, nil
}

func (f *analystFake) SummarizeChapterFull(context.Context, domain.ChapterContent) (string, error) {
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return f.summary, nil
}

func bookDoc(content string) domain.ParsedDocument {
	return domain.ParsedDocument{
		ID:             uuid.New(),
		SourceFilename: "books/structures.pdf",
		ContentMD:      content,
		Category:       domain.CategoryBooks,
		Metadata: map[string]string{
			domain.MetaSourceFile:  "books/structures.pdf",
			domain.MetaFingerprint: "abc123",
		},
	}
}

func TestBookChunkingWithoutTOCFallsBackToSingleChapter(t *testing.T) {
	doc := bookDoc("# Introduction\n\nSome text without any table of contents.\n")
	handler := NewBookChunkingHandler(&analystFake{}, testLogger())

	sections, err := handler.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}

	chapter := sections[0].(domain.ChapterContent)
	if chapter.Title != "Full Document" {
		t.Errorf("unexpected title %q", chapter.Title)
	}
	if chapter.ChapterNumber != "1" {
		t.Errorf("unexpected chapter number %q", chapter.ChapterNumber)
	}
	if chapter.Content != doc.ContentMD {
		t.Errorf("fallback chapter must carry the whole document")
	}
	if chapter.Metadata[domain.MetaDocumentID] != doc.ID.String() {
		t.Errorf("section metadata missing document id")
	}
	if chapter.Metadata[domain.MetaFingerprint] != "abc123" {
		t.Errorf("section metadata must inherit document metadata")
	}
}

func TestBookChunkingTOCWithoutClosingHeadingFallsBack(t *testing.T) {
	doc := bookDoc("# Contents\n\n1. Only entry\n\nNo further level-one heading follows.\n")
	analyst := &analystFake{chapters: []domain.Chapter{{Title: "Only entry", Number: "1"}}}
	handler := NewBookChunkingHandler(analyst, testLogger())

	sections, err := handler.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected fallback section, got %d", len(sections))
	}
	if sections[0].SectionTitle() != "Full Document" {
		t.Errorf("expected fallback title, got %q", sections[0].SectionTitle())
	}
	if analyst.tocSeen != "" {
		t.Errorf("analyst must not be called without a closed toc block")
	}
}

func TestBookChunkingExtractsChapterBoundaries(t *testing.T) {
	md := strings.Join([]string{
		"# Contents",
		"",
		"1. Introduction",
		"2. Sorting Algorithms",
		"3. Conclusion",
		"",
		"# Introduction",
		"",
		"intro body",
		"",
		"## A subsection of the intro",
		"",
		"still intro",
		"",
		"# Sorting Algorithms",
		"",
		"sorting body",
		"",
		"# Conclusion",
		"",
		"closing body",
		"",
	}, "\n")
	doc := bookDoc(md)
	analyst := &analystFake{chapters: []domain.Chapter{
		{Title: "Introduction", Number: "1"},
		{Title: "Sorting Algorithms", Number: "2"},
		{Title: "Conclusion", Number: "3"},
	}}
	handler := NewBookChunkingHandler(analyst, testLogger())

	sections, err := handler.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if !strings.Contains(analyst.tocSeen, "2. Sorting Algorithms") {
		t.Errorf("toc block not passed to analyst: %q", analyst.tocSeen)
	}

	intro := sections[0].(domain.ChapterContent)
	if !strings.Contains(intro.Content, "still intro") {
		t.Errorf("subsection must stay inside its chapter: %q", intro.Content)
	}
	if strings.Contains(intro.Content, "sorting body") {
		t.Errorf("chapter content leaked past the next chapter heading")
	}

	sorting := sections[1].(domain.ChapterContent)
	if sorting.ChapterNumber != "2" {
		t.Errorf("unexpected chapter number %q", sorting.ChapterNumber)
	}
	if !strings.HasPrefix(sorting.Content, "# Sorting Algorithms") {
		t.Errorf("chapter content must start at its heading: %q", sorting.Content)
	}

	last := sections[2].(domain.ChapterContent)
	if !strings.Contains(last.Content, "closing body") {
		t.Errorf("last chapter must extend to end of document")
	}
}

func TestBookChunkingDropsChaptersWithoutHeadings(t *testing.T) {
	md := strings.Join([]string{
		"# Contents",
		"",
		"1. Real Chapter",
		"2. Phantom Chapter",
		"",
		"# Real Chapter",
		"",
		"real body",
		"",
	}, "\n")
	doc := bookDoc(md)
	analyst := &analystFake{chapters: []domain.Chapter{
		{Title: "Real Chapter", Number: "1"},
		{Title: "Phantom Chapter", Number: "2"},
	}}
	handler := NewBookChunkingHandler(analyst, testLogger())

	sections, err := handler.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the phantom heading also closes the real chapter's span, so without
	// it neither chapter can be located
	if len(sections) != 0 {
		t.Fatalf("expected both chapters to be dropped, got %d sections", len(sections))
	}
}

func TestBookChunkingDropsOnlyLeadingChapterWithoutHeading(t *testing.T) {
	md := strings.Join([]string{
		"# Contents",
		"",
		"1. Phantom Chapter",
		"2. Real Chapter",
		"",
		"# Real Chapter",
		"",
		"real body",
		"",
	}, "\n")
	doc := bookDoc(md)
	analyst := &analystFake{chapters: []domain.Chapter{
		{Title: "Phantom Chapter", Number: "1"},
		{Title: "Real Chapter", Number: "2"},
	}}
	handler := NewBookChunkingHandler(analyst, testLogger())

	sections, err := handler.Chunk(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected only the final chapter to survive, got %d sections", len(sections))
	}
	if sections[0].SectionTitle() != "Real Chapter" {
		t.Errorf("unexpected surviving chapter %q", sections[0].SectionTitle())
	}
}

func TestBookChunkingEmptyTOCYieldsNoSections(t *testing.T) {
	md := "# Contents\n\ngibberish the model could not parse\n\n# Body\n\ntext\n"
	handler := NewBookChunkingHandler(&analystFake{}, testLogger())

	sections, err := handler.Chunk(context.Background(), bookDoc(md))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 0 {
		t.Fatalf("expected no sections, got %d", len(sections))
	}
}

func TestChunkingDispatcherRejectsUnknownCategory(t *testing.T) {
	dispatcher := NewChunkingDispatcher(NewBookChunkingHandler(&analystFake{}, testLogger()), testLogger())

	doc := bookDoc("text")
	doc.Category = domain.CategoryPapers
	if _, err := dispatcher.Dispatch(context.Background(), doc); !domain.IsKind(err, domain.ErrUnsupportedCategory) {
		t.Fatalf("expected unsupported category error, got %v", err)
	}
}
