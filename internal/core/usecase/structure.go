package usecase

import (
	"context"
	"log/slog"

	"github.com/nvoronin/libris/internal/core/dispatch"
	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/observability/metrics"
)

// StructuredDocument is one parsed document with its ordered sections and
// the persistable parent record of each section.
type StructuredDocument struct {
	Doc      domain.ParsedDocument
	Sections []domain.Section
	Parents  []domain.Record
}

// StructureUsecase parses raw objects into documents and splits each into
// its structural sections. Objects the pipeline cannot handle are skipped
// with a warning; the run continues with the rest.
type StructureUsecase struct {
	parsing  *dispatch.ParsingDispatcher
	chunking *dispatch.ChunkingDispatcher
	factory  *dispatch.StorableDocumentFactory
	metrics  *metrics.PipelineMetrics
	logger   *slog.Logger
}

func NewStructureUsecase(
	parsing *dispatch.ParsingDispatcher,
	chunking *dispatch.ChunkingDispatcher,
	factory *dispatch.StorableDocumentFactory,
	m *metrics.PipelineMetrics,
	logger *slog.Logger,
) *StructureUsecase {
	return &StructureUsecase{
		parsing:  parsing,
		chunking: chunking,
		factory:  factory,
		metrics:  m,
		logger:   logger,
	}
}

func (u *StructureUsecase) Structure(ctx context.Context, objects []domain.RawObject) ([]StructuredDocument, error) {
	var out []StructuredDocument
	for _, obj := range objects {
		doc, err := u.parsing.Dispatch(ctx, obj)
		if err != nil {
			u.logger.Warn("object not parseable, skipping", "key", obj.Key, "error", err)
			u.metrics.ObjectSkipped(serviceLabel, "unparseable")
			continue
		}

		sections, err := u.chunking.Dispatch(ctx, doc)
		if err != nil {
			u.logger.Warn("document not chunkable, skipping", "key", obj.Key, "error", err)
			u.metrics.ObjectSkipped(serviceLabel, "unchunkable")
			continue
		}
		if len(sections) == 0 {
			u.logger.Warn("document produced no sections", "key", obj.Key)
			continue
		}

		parents := make([]domain.Record, 0, len(sections))
		storable := true
		for _, section := range sections {
			parent, err := u.factory.Create(section)
			if err != nil {
				u.logger.Warn("section not storable, skipping document", "key", obj.Key, "error", err)
				u.metrics.ObjectSkipped(serviceLabel, "unstorable")
				storable = false
				break
			}
			parents = append(parents, parent)
		}
		if !storable {
			continue
		}

		u.metrics.SectionsProduced(serviceLabel, string(doc.Category), len(sections))
		out = append(out, StructuredDocument{Doc: doc, Sections: sections, Parents: parents})
	}
	return out, nil
}
