package domain

import "github.com/google/uuid"

// ChunkType discriminates the final embeddable content units.
type ChunkType string

const (
	ChunkTypeRawText          ChunkType = "raw_text"
	ChunkTypeSummaryNugget    ChunkType = "summary_nugget"
	ChunkTypeSummaryParagraph ChunkType = "summary_paragraph"
)

// Embeddable is any content item the embedding dispatcher accepts. A batch
// must hold a single category.
type Embeddable interface {
	EmbedID() uuid.UUID
	EmbedContent() string
	EmbedCategory() Category
}

// BookChunk is a final embeddable unit derived from a book chapter. ParentID
// links back to the chapter for traceability; chunks are independently
// retrievable.
type BookChunk struct {
	ID           uuid.UUID
	Content      string
	DocumentID   uuid.UUID
	ParentID     uuid.UUID
	ChunkType    ChunkType
	BookTitle    string
	Authors      []string
	ChapterTitle string
	Metadata     map[string]string
}

func (c BookChunk) EmbedID() uuid.UUID      { return c.ID }
func (c BookChunk) EmbedContent() string    { return c.Content }
func (c BookChunk) EmbedCategory() Category { return CategoryBooks }

// EmbeddingProvenance records which model produced a vector.
type EmbeddingProvenance struct {
	ModelID        string
	Size           int
	MaxInputLength int
}

func (p EmbeddingProvenance) payload() map[string]any {
	return map[string]any{
		"embedding_model_id": p.ModelID,
		"embedding_size":     p.Size,
		"max_input_length":   p.MaxInputLength,
	}
}

// Record is anything the loader can persist into the vector store. The
// embedding is present only for vector-indexed collections.
type Record interface {
	RecordID() uuid.UUID
	Collection() string
	VectorIndexed() bool
	Embedding() []float32
	Payload() map[string]any
}

const CollectionBookChunks = "book_chunks"

// EmbeddedBookChunk is a BookChunk plus its vector, 1:1 and immutable.
type EmbeddedBookChunk struct {
	BookChunk
	Vector     []float32
	Provenance EmbeddingProvenance
}

func (c EmbeddedBookChunk) RecordID() uuid.UUID  { return c.ID }
func (c EmbeddedBookChunk) Collection() string   { return CollectionBookChunks }
func (c EmbeddedBookChunk) VectorIndexed() bool  { return true }
func (c EmbeddedBookChunk) Embedding() []float32 { return c.Vector }
func (c EmbeddedBookChunk) Payload() map[string]any {
	metadata := metadataPayload(c.Metadata)
	for k, v := range c.Provenance.payload() {
		metadata[k] = v
	}
	parentID := ""
	if c.ParentID != uuid.Nil {
		parentID = c.ParentID.String()
	}
	return map[string]any{
		"content":       c.Content,
		"document_id":   c.DocumentID.String(),
		"parent_id":     parentID,
		"chunk_type":    string(c.ChunkType),
		"book_title":    c.BookTitle,
		"authors":       c.Authors,
		"chapter_title": c.ChapterTitle,
		"category":      string(CategoryBooks),
		"metadata":      metadata,
	}
}

const CollectionQueries = "queries"

// Query is a retrieval-time input sharing the embeddable shape family.
type Query struct {
	ID       uuid.UUID
	Content  string
	Metadata map[string]string
}

func NewQuery(content string) Query {
	return Query{ID: uuid.New(), Content: content, Metadata: map[string]string{}}
}

func (q Query) EmbedID() uuid.UUID      { return q.ID }
func (q Query) EmbedContent() string    { return q.Content }
func (q Query) EmbedCategory() Category { return CategoryQueries }

// EmbeddedQuery is a Query plus its vector.
type EmbeddedQuery struct {
	Query
	Vector     []float32
	Provenance EmbeddingProvenance
}

func (q EmbeddedQuery) RecordID() uuid.UUID  { return q.ID }
func (q EmbeddedQuery) Collection() string   { return CollectionQueries }
func (q EmbeddedQuery) VectorIndexed() bool  { return false }
func (q EmbeddedQuery) Embedding() []float32 { return q.Vector }
func (q EmbeddedQuery) Payload() map[string]any {
	metadata := metadataPayload(q.Metadata)
	for k, v := range q.Provenance.payload() {
		metadata[k] = v
	}
	return map[string]any{
		"content":  q.Content,
		"category": string(CategoryQueries),
		"metadata": metadata,
	}
}
