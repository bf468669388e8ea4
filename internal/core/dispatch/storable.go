package dispatch

import (
	"fmt"

	"github.com/nvoronin/libris/internal/core/domain"
)

// StorableDocumentFactory maps a section to its persistable parent
// representation: a lossless projection without an embedding. Extending to a
// new section type means adding one case here, nothing else.
type StorableDocumentFactory struct{}

func NewStorableDocumentFactory() *StorableDocumentFactory {
	return &StorableDocumentFactory{}
}

func (f *StorableDocumentFactory) Create(section domain.Section) (domain.Record, error) {
	switch s := section.(type) {
	case domain.ChapterContent:
		return domain.StoredChapter{
			ID:            s.ID,
			Title:         s.Title,
			Content:       s.Content,
			ChapterNumber: s.ChapterNumber,
			Metadata:      s.Metadata,
		}, nil
	default:
		return nil, domain.WrapError(domain.ErrNoStorableMapping, "create storable document",
			fmt.Errorf("section type %T", section))
	}
}
