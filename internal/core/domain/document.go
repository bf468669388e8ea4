package domain

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
)

// Metadata keys shared across the pipeline.
const (
	MetaSourceFile  = "source_file"
	MetaFingerprint = "fingerprint"
	MetaDocumentID  = "document_id"
)

// RawObject is a storage object surviving the dedup filter, alive only for
// the duration of a run.
type RawObject struct {
	Key         string
	Fingerprint string
	Content     []byte
	Metadata    map[string]string
}

// ParsedDocument holds the normalized markdown text of one source file.
// Immutable after creation; the category is fixed by the parsing handler.
type ParsedDocument struct {
	ID             uuid.UUID
	SourceFilename string
	ContentMD      string
	Category       Category
	Metadata       map[string]string
}

// Section is a structural subdivision of a parsed document produced by a
// chunking handler. Concrete types carry category-specific fields.
type Section interface {
	SectionID() uuid.UUID
	SectionTitle() string
	SectionContent() string
	SectionCategory() Category
	SectionMetadata() map[string]string
}

// ChapterContent is the books-category Section: one chapter of a book.
// Metadata always carries the owning document id.
type ChapterContent struct {
	ID            uuid.UUID
	Title         string
	Content       string
	ChapterNumber string
	Metadata      map[string]string
}

func (c ChapterContent) SectionID() uuid.UUID               { return c.ID }
func (c ChapterContent) SectionTitle() string               { return c.Title }
func (c ChapterContent) SectionContent() string             { return c.Content }
func (c ChapterContent) SectionCategory() Category          { return CategoryBooks }
func (c ChapterContent) SectionMetadata() map[string]string { return c.Metadata }

// Chapter is one table-of-contents entry as returned by the LLM. The chapter
// number arrives as either an integer or a string, so it decodes both.
type Chapter struct {
	Title  string `json:"chapter_title"`
	Number string `json:"chapter_number"`
}

func (c *Chapter) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title  string          `json:"chapter_title"`
		Number json.RawMessage `json:"chapter_number"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Title = raw.Title
	if len(raw.Number) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(raw.Number, &asString); err == nil {
		c.Number = asString
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw.Number, &asNumber); err != nil {
		return err
	}
	c.Number = asNumber.String()
	return nil
}

// BookMetadata is extracted once per document and consumed by every section's
// processing step. A document without a title is unprocessable.
type BookMetadata struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	PublicationYear int      `json:"publication_year"`
}

// StoredChapter is the persistable parent projection of a ChapterContent.
// No embedding; written once, never mutated.
type StoredChapter struct {
	ID            uuid.UUID
	Title         string
	Content       string
	ChapterNumber string
	Metadata      map[string]string
}

const CollectionBookChapters = "book_chapters"

func (s StoredChapter) RecordID() uuid.UUID   { return s.ID }
func (s StoredChapter) Collection() string    { return CollectionBookChapters }
func (s StoredChapter) VectorIndexed() bool   { return false }
func (s StoredChapter) Embedding() []float32  { return nil }
func (s StoredChapter) Payload() map[string]any {
	return map[string]any{
		"title":          s.Title,
		"content":        s.Content,
		"chapter_number": s.ChapterNumber,
		"category":       string(CategoryBooks),
		"metadata":       metadataPayload(s.Metadata),
	}
}

func metadataPayload(metadata map[string]string) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

// ChapterNumberFromIndex renders a 1-based fallback chapter number.
func ChapterNumberFromIndex(i int) string {
	return strconv.Itoa(i + 1)
}
