package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/core/ports"
	"github.com/nvoronin/libris/internal/observability/metrics"
)

// FetchUsecase lists the source bucket, filters out objects whose content is
// already ingested, and downloads the survivors concurrently. A single
// undownloadable object degrades the run instead of failing it.
type FetchUsecase struct {
	storage     ports.ObjectStorage
	vectors     ports.VectorStore
	table       *domain.SourceTable
	metrics     *metrics.PipelineMetrics
	logger      *slog.Logger
	concurrency int
}

func NewFetchUsecase(
	storage ports.ObjectStorage,
	vectors ports.VectorStore,
	table *domain.SourceTable,
	m *metrics.PipelineMetrics,
	logger *slog.Logger,
	concurrency int,
) *FetchUsecase {
	if concurrency < 1 {
		concurrency = 1
	}
	return &FetchUsecase{
		storage:     storage,
		vectors:     vectors,
		table:       table,
		metrics:     m,
		logger:      logger,
		concurrency: concurrency,
	}
}

func (u *FetchUsecase) Fetch(ctx context.Context) ([]domain.RawObject, error) {
	infos, err := u.storage.List(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "list source objects", err)
	}

	var pending []pendingObject
	for _, info := range infos {
		if strings.HasSuffix(info.Key, "/") {
			continue
		}

		category, err := u.table.CategoryForKey(info.Key)
		if err != nil {
			u.logger.Warn("object outside known prefixes, skipping", "key", info.Key)
			u.metrics.ObjectSkipped(serviceLabel, "unknown_category")
			continue
		}
		collection, err := u.table.CollectionFor(category)
		if err != nil {
			u.logger.Warn("category has no collection, skipping", "key", info.Key, "category", category)
			u.metrics.ObjectSkipped(serviceLabel, "unknown_category")
			continue
		}

		if u.alreadyIngested(ctx, collection, info) {
			u.logger.Info("object already ingested, skipping",
				"key", info.Key, "fingerprint", info.Fingerprint)
			u.metrics.ObjectSkipped(serviceLabel, "already_ingested")
			continue
		}

		pending = append(pending, pendingObject{info: info, category: category})
	}

	return u.download(ctx, pending), nil
}

type pendingObject struct {
	info     ports.ObjectInfo
	category domain.Category
}

// alreadyIngested asks the chunk collection for an exact count on the
// object's origin. Any store error counts as "not ingested": a missing
// collection on first run must not block the pipeline, and a transient
// failure at worst re-processes one object.
func (u *FetchUsecase) alreadyIngested(ctx context.Context, collection string, info ports.ObjectInfo) bool {
	count, err := u.vectors.CountByOrigin(ctx, collection, ports.OriginFilter{
		SourceFile:  info.Key,
		Fingerprint: info.Fingerprint,
	})
	if err != nil {
		u.logger.Warn("dedup count failed, treating object as new",
			"key", info.Key, "collection", collection, "error", err)
		return false
	}
	return count > 0
}

func (u *FetchUsecase) download(ctx context.Context, pending []pendingObject) []domain.RawObject {
	var (
		mu      sync.Mutex
		objects []domain.RawObject
	)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(u.concurrency)
	for _, p := range pending {
		group.Go(func() error {
			content, err := u.storage.Get(ctx, p.info.Key)
			if err != nil {
				u.logger.Warn("object download failed, skipping",
					"key", p.info.Key, "error", err)
				u.metrics.ObjectSkipped(serviceLabel, "download_failed")
				return nil
			}
			obj := domain.RawObject{
				Key:         p.info.Key,
				Fingerprint: p.info.Fingerprint,
				Content:     content,
				Metadata: map[string]string{
					domain.MetaSourceFile:  p.info.Key,
					domain.MetaFingerprint: p.info.Fingerprint,
				},
			}
			mu.Lock()
			objects = append(objects, obj)
			mu.Unlock()
			u.metrics.ObjectFetched(serviceLabel, string(p.category))
			return nil
		})
	}
	// Goroutines never return errors, failures are logged per object.
	_ = group.Wait()
	return objects
}
