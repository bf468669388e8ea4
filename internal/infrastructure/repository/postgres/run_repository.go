package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nvoronin/libris/internal/core/domain"
)

// RunRepository persists pipeline run summaries for observability and
// post-hoc inspection. It never participates in dedup decisions; those live
// in the vector store.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS ingestion_runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	raw_objects INT NOT NULL,
	parsed_documents INT NOT NULL,
	sections INT NOT NULL,
	embedded_chunks INT NOT NULL,
	categories JSONB NOT NULL DEFAULT '{}'::jsonb,
	parents_loaded BOOLEAN NOT NULL,
	chunks_loaded BOOLEAN NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingestion_runs_started_at ON ingestion_runs(started_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) SaveReport(ctx context.Context, report *domain.RunReport) error {
	categories := make(map[string]any, len(report.ChunksByCategory))
	for category, breakdown := range report.ChunksByCategory {
		categories[string(category)] = map[string]any{
			"num_chunks": breakdown.NumChunks,
			"authors":    breakdown.Authors(),
		}
	}
	encoded, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("marshal category breakdown: %w", err)
	}

	const query = `
INSERT INTO ingestion_runs
	(id, started_at, finished_at, raw_objects, parsed_documents, sections, embedded_chunks, categories, parents_loaded, chunks_loaded)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	finished_at = EXCLUDED.finished_at,
	raw_objects = EXCLUDED.raw_objects,
	parsed_documents = EXCLUDED.parsed_documents,
	sections = EXCLUDED.sections,
	embedded_chunks = EXCLUDED.embedded_chunks,
	categories = EXCLUDED.categories,
	parents_loaded = EXCLUDED.parents_loaded,
	chunks_loaded = EXCLUDED.chunks_loaded
`
	_, err = r.db.ExecContext(ctx, query,
		report.ID,
		report.StartedAt,
		report.FinishedAt,
		report.RawObjects,
		report.ParsedDocuments,
		report.Sections,
		report.EmbeddedChunks,
		encoded,
		report.ParentsLoaded,
		report.ChunksLoaded,
	)
	if err != nil {
		return fmt.Errorf("insert run report: %w", err)
	}
	return nil
}
