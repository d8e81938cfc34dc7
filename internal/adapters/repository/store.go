// Package repository defines the flagged-record store contract and its
// in-memory and DynamoDB implementations.
package repository

import (
	"context"
	"sort"

	"github.com/okian/vigil/internal/domain/model"
)

// Store provides keyed access to flagged records. Records are addressed by
// (SourceFile, RecordID); Upsert is insert-or-replace, which is what makes
// re-ingestion of a file idempotent. Implementations must tolerate
// concurrent writers, including writers to the same source file.
type Store interface {
	// Upsert inserts or replaces every record in the batch.
	Upsert(ctx context.Context, records []model.FlaggedRecord) error

	// QueryBySource returns all records for one source file, ordered by
	// timestamp ascending with RecordID ascending breaking ties. A source
	// file with no records yields an empty slice, not an error.
	QueryBySource(ctx context.Context, sourceFile string) ([]model.FlaggedRecord, error)
}

// sortRecords applies the query ordering contract in place.
func sortRecords(records []model.FlaggedRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].RecordID < records[j].RecordID
	})
}
