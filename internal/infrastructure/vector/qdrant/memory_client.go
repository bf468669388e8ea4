package qdrant

import (
	"context"
	"fmt"
	"sync"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/core/ports"
)

// MemoryClient is an in-memory stand-in for the vector store, used in tests
// and local dry runs. It mimics the fail-on-absent-collection behavior of
// the count query.
type MemoryClient struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.Record
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		collections: make(map[string]map[string]domain.Record),
	}
}

func (m *MemoryClient) CountByOrigin(_ context.Context, collection string, filter ports.OriginFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.collections[collection]
	if !ok {
		return 0, fmt.Errorf("collection %q does not exist", collection)
	}

	count := 0
	for _, record := range records {
		metadata, ok := record.Payload()["metadata"].(map[string]any)
		if !ok {
			continue
		}
		if metadata[domain.MetaSourceFile] == filter.SourceFile &&
			metadata[domain.MetaFingerprint] == filter.Fingerprint {
			count++
		}
	}
	return count, nil
}

func (m *MemoryClient) Upsert(_ context.Context, collection string, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.collections[collection]
	if !ok {
		stored = make(map[string]domain.Record)
		m.collections[collection] = stored
	}
	for _, record := range records {
		stored[record.RecordID().String()] = record
	}
	return nil
}

// Len reports the number of records in a collection.
func (m *MemoryClient) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}
