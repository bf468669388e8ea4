package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nvoronin/libris/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*RunRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RunRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestEnsureSchemaRunsUnderAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ingestion_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRollsBackOnDDLFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ingestion_runs").
		WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	if err := repo.EnsureSchema(context.Background()); err == nil {
		t.Fatalf("expected ddl failure to propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveReportUpsertsRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	started := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	report := domain.NewRunReport("run-1", started)
	report.FinishedAt = started.Add(5 * time.Minute)
	report.RawObjects = 2
	report.ParsedDocuments = 2
	report.Sections = 5
	report.EmbeddedChunks = 40
	report.ParentsLoaded = true
	report.ChunksLoaded = true
	report.CountChunk(domain.CategoryBooks, []string{"A. Author"})

	mock.ExpectExec("INSERT INTO ingestion_runs").
		WithArgs(
			"run-1",
			report.StartedAt,
			report.FinishedAt,
			2, 2, 5, 40,
			sqlmock.AnyArg(),
			true, true,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveReport(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveReportPropagatesWriteFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO ingestion_runs").
		WillReturnError(errors.New("connection refused"))

	report := domain.NewRunReport("run-2", time.Now())
	if err := repo.SaveReport(context.Background(), report); err == nil {
		t.Fatalf("expected write failure to propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
