package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/core/ports"
)

type splitterFake struct {
	blocks  []ports.HeadingBlock
	windows int
}

func (f *splitterFake) SplitByHeadings(string) []ports.HeadingBlock { return f.blocks }

func (f *splitterFake) SplitByLength(text string) []string {
	if f.windows <= 1 {
		return []string{text}
	}
	out := make([]string, f.windows)
	for i := range out {
		out[i] = text
	}
	return out
}

func testChapter(docID uuid.UUID) domain.ChapterContent {
	return domain.ChapterContent{
		ID:            uuid.New(),
		Title:         "Sorting Algorithms",
		ChapterNumber: "2",
		Content:       "## Quicksort\n\npartition and recurse",
		Metadata: map[string]string{
			domain.MetaSourceFile: "books/structures.pdf",
			domain.MetaDocumentID: docID.String(),
		},
	}
}

func TestBookChapterProcessorProducesAllChunkClasses(t *testing.T) {
	analyst := &analystFake{
		nuggets: []string{"quicksort partitions in place", "average cost is n log n"},
		summary: "The chapter covers comparison sorts.",
	}
	splitter := &splitterFake{blocks: []ports.HeadingBlock{
		{Header: "Quicksort", Level: 2, Content: "## Quicksort\n\npartition and recurse"},
	}}
	processor := NewBookChapterProcessor(analyst, splitter, testLogger())

	docID := uuid.New()
	book := domain.BookMetadata{Title: "Structures", Authors: []string{"N. Wirth"}}
	chunks, err := processor.Process(context.Background(), testChapter(docID), book)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("expected 1 raw + 2 nuggets + 1 summary, got %d chunks", len(chunks))
	}

	raw := chunks[0]
	if raw.ChunkType != domain.ChunkTypeRawText {
		t.Errorf("first chunk must be raw text, got %s", raw.ChunkType)
	}
	if raw.Metadata["header"] != "Quicksort" || raw.Metadata["header_level"] != "2" {
		t.Errorf("raw chunk missing heading metadata: %v", raw.Metadata)
	}
	if raw.DocumentID != docID {
		t.Errorf("chunk must carry the document id")
	}

	for i, chunk := range chunks {
		if chunk.BookTitle != "Structures" || len(chunk.Authors) != 1 {
			t.Errorf("chunk %d missing book metadata", i)
		}
		if chunk.ChapterTitle != "Sorting Algorithms" {
			t.Errorf("chunk %d missing chapter title", i)
		}
		if chunk.Metadata[domain.MetaSourceFile] != "books/structures.pdf" {
			t.Errorf("chunk %d lost origin metadata", i)
		}
	}

	last := chunks[len(chunks)-1]
	if last.ChunkType != domain.ChunkTypeSummaryParagraph {
		t.Errorf("last chunk must be the full summary, got %s", last.ChunkType)
	}
	if chunks[1].ChunkType != domain.ChunkTypeSummaryNugget {
		t.Errorf("nuggets must follow raw text, got %s", chunks[1].ChunkType)
	}
}

func TestBookChapterProcessorToleratesLLMFailures(t *testing.T) {
	analyst := &analystFake{
		nuggetsErr: errors.New("model overloaded"),
		summaryErr: errors.New("model overloaded"),
	}
	splitter := &splitterFake{blocks: []ports.HeadingBlock{
		{Content: "plain text without headings"},
	}}
	processor := NewBookChapterProcessor(analyst, splitter, testLogger())

	chunks, err := processor.Process(context.Background(), testChapter(uuid.New()), domain.BookMetadata{Title: "Structures"})
	if err != nil {
		t.Fatalf("llm failure must not fail the chapter: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected raw text to survive alone, got %d chunks", len(chunks))
	}
	if chunks[0].ChunkType != domain.ChunkTypeRawText {
		t.Errorf("surviving chunk must be raw text")
	}
	if _, ok := chunks[0].Metadata["header"]; ok {
		t.Errorf("preamble block must not carry heading metadata")
	}
}

func TestBookChapterProcessorOmitsEmptySummary(t *testing.T) {
	analyst := &analystFake{nuggets: []string{"one nugget"}}
	processor := NewBookChapterProcessor(analyst, &splitterFake{}, testLogger())

	chunks, err := processor.Process(context.Background(), testChapter(uuid.New()), domain.BookMetadata{Title: "Structures"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, chunk := range chunks {
		if chunk.ChunkType == domain.ChunkTypeSummaryParagraph {
			t.Fatalf("empty summary must not become a chunk")
		}
	}
}

func TestProcessingDispatcherRejectsUnknownCategory(t *testing.T) {
	dispatcher := NewProcessingDispatcher(NewBookChapterProcessor(&analystFake{}, &splitterFake{}, testLogger()), testLogger())

	doc := bookDoc("text")
	doc.Category = domain.CategoryPrompt
	if _, err := dispatcher.ExtractDocumentMetadata(context.Background(), doc); !domain.IsKind(err, domain.ErrUnsupportedCategory) {
		t.Fatalf("expected unsupported category error, got %v", err)
	}
}
