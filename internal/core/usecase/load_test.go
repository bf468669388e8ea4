package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/nvoronin/libris/internal/core/domain"
)

func storedChapter() domain.StoredChapter {
	return domain.StoredChapter{ID: uuid.New(), Title: "ch", Content: "body", ChapterNumber: "1"}
}

func embeddedChunk() domain.EmbeddedBookChunk {
	return domain.EmbeddedBookChunk{
		BookChunk: domain.BookChunk{ID: uuid.New(), Content: "text", ChunkType: domain.ChunkTypeRawText},
		Vector:    []float32{0.1, 0.2},
	}
}

func TestLoadGroupsByCollection(t *testing.T) {
	vectors := &vectorFake{}
	load := NewLoadUsecase(vectors, testMetrics(), testLogger(), 10)

	records := []domain.Record{storedChapter(), embeddedChunk(), storedChapter(), embeddedChunk()}
	if ok := load.Load(context.Background(), records); !ok {
		t.Fatalf("expected load to succeed")
	}

	if len(vectors.stored[domain.CollectionBookChapters]) != 2 {
		t.Errorf("expected 2 chapter parents, got %d", len(vectors.stored[domain.CollectionBookChapters]))
	}
	if len(vectors.stored[domain.CollectionBookChunks]) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(vectors.stored[domain.CollectionBookChunks]))
	}
}

func TestLoadBatchesWrites(t *testing.T) {
	vectors := &vectorFake{}
	load := NewLoadUsecase(vectors, testMetrics(), testLogger(), 2)

	records := []domain.Record{embeddedChunk(), embeddedChunk(), embeddedChunk(), embeddedChunk(), embeddedChunk()}
	if ok := load.Load(context.Background(), records); !ok {
		t.Fatalf("expected load to succeed")
	}

	if len(vectors.upserts) != 3 {
		t.Fatalf("expected 3 batches for 5 records at batch size 2, got %d", len(vectors.upserts))
	}
	if vectors.upserts[0].size != 2 || vectors.upserts[2].size != 1 {
		t.Errorf("unexpected batch sizes: %+v", vectors.upserts)
	}
}

func TestLoadFailureMarksRunNotLoaded(t *testing.T) {
	vectors := &vectorFake{failOn: domain.CollectionBookChunks}
	load := NewLoadUsecase(vectors, testMetrics(), testLogger(), 10)

	records := []domain.Record{storedChapter(), embeddedChunk()}
	if ok := load.Load(context.Background(), records); ok {
		t.Fatalf("expected load failure to be reported")
	}
	if len(vectors.stored[domain.CollectionBookChapters]) != 1 {
		t.Errorf("healthy collection must still be written")
	}
}

func TestLoadEmptyInputSucceeds(t *testing.T) {
	vectors := &vectorFake{}
	load := NewLoadUsecase(vectors, testMetrics(), testLogger(), 10)

	if ok := load.Load(context.Background(), nil); !ok {
		t.Fatalf("empty load must succeed")
	}
	if len(vectors.upserts) != 0 {
		t.Errorf("no writes expected")
	}
}
