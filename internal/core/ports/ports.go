package ports

import (
	"context"

	"github.com/nvoronin/libris/internal/core/domain"
)

// ObjectInfo describes a listed storage object before download.
type ObjectInfo struct {
	Key         string
	Fingerprint string
}

// ObjectStorage lists and downloads raw source documents.
type ObjectStorage interface {
	List(ctx context.Context) ([]ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// OriginFilter selects records by their source file and content fingerprint.
type OriginFilter struct {
	SourceFile  string
	Fingerprint string
}

// VectorStore persists records grouped by collection and answers the exact
// count query the dedup filter relies on. CountByOrigin fails when the
// collection does not exist yet; callers treat that as "nothing processed".
type VectorStore interface {
	CountByOrigin(ctx context.Context, collection string, filter OriginFilter) (int, error)
	Upsert(ctx context.Context, collection string, records []domain.Record) error
}

// TextExtractor turns raw file bytes into normalized markdown text.
type TextExtractor interface {
	ExtractMarkdown(ctx context.Context, content []byte) (string, error)
}

// BookAnalyst is the LLM capability the books pipeline needs. All methods
// tolerate empty or unparseable model output by returning empty results;
// only transport failures surface as errors.
type BookAnalyst interface {
	ParseTableOfContents(ctx context.Context, tocText string) ([]domain.Chapter, error)
	ExtractBookMetadata(ctx context.Context, snippet string) (domain.BookMetadata, error)
	SummarizeChapter(ctx context.Context, chapter domain.ChapterContent) ([]string, error)
	SummarizeChapterFull(ctx context.Context, chapter domain.ChapterContent) (string, error)
}

// Embedder maps content strings to vectors in one model call per batch.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Provenance() domain.EmbeddingProvenance
}

// HeadingBlock is a markdown slice opened by a heading; the heading line is
// retained as the block's leading text.
type HeadingBlock struct {
	Header  string
	Level   int
	Content string
}

// SectionSplitter performs the two splitting passes of section processing:
// structural (by heading) and bounded (by length with overlap).
type SectionSplitter interface {
	SplitByHeadings(text string) []HeadingBlock
	SplitByLength(text string) []string
}

// RunReporter persists pipeline run summaries.
type RunReporter interface {
	SaveReport(ctx context.Context, report *domain.RunReport) error
}

// RunQueue triggers pipeline runs from outside the process.
type RunQueue interface {
	PublishRunRequested(ctx context.Context) error
	SubscribeRunRequested(ctx context.Context, handler func(context.Context) error) error
}
