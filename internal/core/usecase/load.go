package usecase

import (
	"context"
	"log/slog"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/core/ports"
	"github.com/nvoronin/libris/internal/observability/metrics"
)

// LoadUsecase writes records into the vector store, grouped by collection
// and batched. Load reports success only when every batch of every
// collection lands.
type LoadUsecase struct {
	vectors   ports.VectorStore
	metrics   *metrics.PipelineMetrics
	logger    *slog.Logger
	batchSize int
}

func NewLoadUsecase(vectors ports.VectorStore, m *metrics.PipelineMetrics, logger *slog.Logger, batchSize int) *LoadUsecase {
	if batchSize < 1 {
		batchSize = 1
	}
	return &LoadUsecase{vectors: vectors, metrics: m, logger: logger, batchSize: batchSize}
}

func (u *LoadUsecase) Load(ctx context.Context, records []domain.Record) bool {
	if len(records) == 0 {
		return true
	}

	byCollection := make(map[string][]domain.Record)
	var order []string
	for _, record := range records {
		collection := record.Collection()
		if _, ok := byCollection[collection]; !ok {
			order = append(order, collection)
		}
		byCollection[collection] = append(byCollection[collection], record)
	}

	ok := true
	for _, collection := range order {
		if !u.loadCollection(ctx, collection, byCollection[collection]) {
			ok = false
		}
	}
	return ok
}

func (u *LoadUsecase) loadCollection(ctx context.Context, collection string, records []domain.Record) bool {
	for start := 0; start < len(records); start += u.batchSize {
		end := min(start+u.batchSize, len(records))
		if err := u.vectors.Upsert(ctx, collection, records[start:end]); err != nil {
			u.logger.Error("batch upsert failed",
				"collection", collection,
				"batch_start", start,
				"batch_size", end-start,
				"error", err)
			u.metrics.LoadFailed(serviceLabel, collection)
			return false
		}
	}
	u.logger.Info("collection loaded", "collection", collection, "num_records", len(records))
	return true
}
