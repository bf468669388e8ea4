package domain

import (
	"fmt"
	"strings"
)

// Category is a closed tag selecting the processing pipeline variant for a
// document, chunk or query.
type Category string

const (
	CategoryBooks   Category = "books"
	CategoryPapers  Category = "papers"
	CategoryQueries Category = "queries"
	CategoryPrompt  Category = "prompt"
)

// DataSource binds a category to its bucket prefix and its chunk collection
// in the vector store.
type DataSource struct {
	Category   Category `yaml:"category"`
	Prefix     string   `yaml:"prefix"`
	Collection string   `yaml:"collection"`
}

// SourceTable resolves object keys to categories and categories to
// collections. It is populated once at startup and read-only afterwards.
type SourceTable struct {
	sources []DataSource
}

func DefaultSourceTable() *SourceTable {
	return NewSourceTable([]DataSource{
		{Category: CategoryBooks, Prefix: "books", Collection: "book_chunks"},
		{Category: CategoryPapers, Prefix: "papers", Collection: "paper_chunks"},
	})
}

func NewSourceTable(sources []DataSource) *SourceTable {
	return &SourceTable{sources: sources}
}

// CategoryForKey maps an object key like "books/foo.pdf" to a category by its
// leading path segment.
func (t *SourceTable) CategoryForKey(objectKey string) (Category, error) {
	prefix, _, _ := strings.Cut(objectKey, "/")
	for _, src := range t.sources {
		if src.Prefix == prefix {
			return src.Category, nil
		}
	}
	return "", WrapError(ErrUnknownCategory, "resolve category", fmt.Errorf("prefix %q", prefix))
}

// CollectionFor is the reverse lookup from the same table.
func (t *SourceTable) CollectionFor(category Category) (string, error) {
	for _, src := range t.sources {
		if src.Category == category {
			return src.Collection, nil
		}
	}
	return "", WrapError(ErrUnknownCategory, "resolve collection", fmt.Errorf("category %q", category))
}
