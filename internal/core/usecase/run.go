package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/core/ports"
	"github.com/nvoronin/libris/internal/observability/metrics"
)

const serviceLabel = "ingest"

// RunUsecase drives one full pipeline run: fetch, structure, load the
// chapter parents, enrich and embed, load the chunks, then persist the run
// report. Partial document failures degrade coverage; a failed load marks
// the run as not succeeded.
type RunUsecase struct {
	fetch     *FetchUsecase
	structure *StructureUsecase
	process   *ProcessUsecase
	load      *LoadUsecase
	reporter  ports.RunReporter
	metrics   *metrics.PipelineMetrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewRunUsecase(
	fetch *FetchUsecase,
	structure *StructureUsecase,
	process *ProcessUsecase,
	load *LoadUsecase,
	reporter ports.RunReporter,
	m *metrics.PipelineMetrics,
	logger *slog.Logger,
) *RunUsecase {
	return &RunUsecase{
		fetch:     fetch,
		structure: structure,
		process:   process,
		load:      load,
		reporter:  reporter,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func (u *RunUsecase) Run(ctx context.Context) (*domain.RunReport, error) {
	u.metrics.StartRun()
	report := domain.NewRunReport(uuid.NewString(), u.now())
	u.logger.Info("pipeline run started", "run_id", report.ID)

	report, err := u.execute(ctx, report)

	report.FinishedAt = u.now()
	u.metrics.FinishRun(serviceLabel, report.FinishedAt.Sub(report.StartedAt), err == nil && report.Succeeded())
	u.saveReport(ctx, report)

	if err != nil {
		return report, err
	}
	u.logger.Info("pipeline run finished",
		"run_id", report.ID,
		"raw_objects", report.RawObjects,
		"parsed_documents", report.ParsedDocuments,
		"sections", report.Sections,
		"embedded_chunks", report.EmbeddedChunks,
		"succeeded", report.Succeeded(),
	)
	return report, nil
}

func (u *RunUsecase) execute(ctx context.Context, report *domain.RunReport) (*domain.RunReport, error) {
	objects, err := u.fetch.Fetch(ctx)
	if err != nil {
		return report, err
	}
	report.RawObjects = len(objects)
	if len(objects) == 0 {
		report.ParentsLoaded = true
		report.ChunksLoaded = true
		u.logger.Info("nothing new to ingest", "run_id", report.ID)
		return report, nil
	}

	docs, err := u.structure.Structure(ctx, objects)
	if err != nil {
		return report, err
	}
	report.ParsedDocuments = len(docs)

	var parents []domain.Record
	for _, sd := range docs {
		report.Sections += len(sd.Sections)
		parents = append(parents, sd.Parents...)
	}
	report.ParentsLoaded = u.load.Load(ctx, parents)

	records, err := u.process.Process(ctx, docs)
	if err != nil {
		return report, err
	}
	report.EmbeddedChunks = len(records)
	for _, record := range records {
		if chunk, ok := record.(domain.EmbeddedBookChunk); ok {
			report.CountChunk(domain.CategoryBooks, chunk.Authors)
		}
	}

	report.ChunksLoaded = u.load.Load(ctx, records)
	return report, nil
}

// saveReport persists the run summary. Persistence failure is never worth
// failing an otherwise successful ingestion over.
func (u *RunUsecase) saveReport(ctx context.Context, report *domain.RunReport) {
	if u.reporter == nil {
		return
	}
	if err := u.reporter.SaveReport(ctx, report); err != nil {
		u.logger.Error("run report not persisted", "run_id", report.ID, "error", err)
	}
}
