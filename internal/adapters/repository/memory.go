package repository

import (
	"context"
	"sync"

	"github.com/okian/vigil/internal/domain/model"
)

// MemoryStore is the in-process Store used for local runs and tests.
// Partitioned by source file, keyed by record id within a partition.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]map[string]model.FlaggedRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: make(map[string]map[string]model.FlaggedRecord),
	}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, records []model.FlaggedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		partition, ok := s.partitions[rec.SourceFile]
		if !ok {
			partition = make(map[string]model.FlaggedRecord)
			s.partitions[rec.SourceFile] = partition
		}
		partition[rec.RecordID] = rec
	}
	return nil
}

// QueryBySource implements Store.
func (s *MemoryStore) QueryBySource(ctx context.Context, sourceFile string) ([]model.FlaggedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	partition := s.partitions[sourceFile]
	records := make([]model.FlaggedRecord, 0, len(partition))
	for _, rec := range partition {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	sortRecords(records)
	return records, nil
}

// Count returns the number of records held for a source file.
func (s *MemoryStore) Count(sourceFile string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partitions[sourceFile])
}
