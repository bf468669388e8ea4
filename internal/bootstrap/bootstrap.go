package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvoronin/libris/internal/config"
	"github.com/nvoronin/libris/internal/core/dispatch"
	"github.com/nvoronin/libris/internal/core/usecase"
	"github.com/nvoronin/libris/internal/infrastructure/chunking"
	"github.com/nvoronin/libris/internal/infrastructure/extractor/pdfmd"
	"github.com/nvoronin/libris/internal/infrastructure/llm/ollama"
	"github.com/nvoronin/libris/internal/infrastructure/queue/nats"
	"github.com/nvoronin/libris/internal/infrastructure/repository/postgres"
	"github.com/nvoronin/libris/internal/infrastructure/storage/s3"
	"github.com/nvoronin/libris/internal/infrastructure/vector/qdrant"
	"github.com/nvoronin/libris/internal/observability/logging"
	"github.com/nvoronin/libris/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.PipelineMetrics

	Queue *nats.Queue
	RunUC *usecase.RunUsecase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	pipelineMetrics := metrics.NewPipelineMetrics(service)

	table, err := cfg.Sources()
	if err != nil {
		return nil, fmt.Errorf("load source table: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	reporter := postgres.NewRunRepository(db)
	if err := reporter.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := s3.New(ctx, s3.Config{
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Bucket:       cfg.S3Bucket,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Permits:           int64(cfg.LLMPermits),
		RequestsPerSecond: cfg.LLMRequestsPerSec,
	})
	analyst := ollama.NewAnalyst(ollamaClient, logger)
	embedder := ollama.NewEmbedder(ollamaClient, cfg.EmbeddingSize, cfg.EmbeddingMaxInputLen)

	vectorDB := qdrant.New(cfg.QdrantURL)
	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	parsing := dispatch.NewParsingDispatcher(dispatch.NewPDFBookHandler(pdfmd.New()), logger)
	chunkingDispatcher := dispatch.NewChunkingDispatcher(dispatch.NewBookChunkingHandler(analyst, logger), logger)
	processing := dispatch.NewProcessingDispatcher(dispatch.NewBookChapterProcessor(analyst, splitter, logger), logger)
	embedding := dispatch.NewEmbeddingDispatcher(embedder, logger)
	factory := dispatch.NewStorableDocumentFactory()

	fetchUC := usecase.NewFetchUsecase(storage, vectorDB, table, pipelineMetrics, logger, cfg.DownloadConcurrency)
	structureUC := usecase.NewStructureUsecase(parsing, chunkingDispatcher, factory, pipelineMetrics, logger)
	processUC := usecase.NewProcessUsecase(processing, embedding, pipelineMetrics, logger, cfg.EmbedBatchSize)
	loadUC := usecase.NewLoadUsecase(vectorDB, pipelineMetrics, logger, cfg.LoadBatchSize)
	runUC := usecase.NewRunUsecase(fetchUC, structureUC, processUC, loadUC, reporter, pipelineMetrics, logger)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: pipelineMetrics,
		Queue:   queue,
		RunUC:   runUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
