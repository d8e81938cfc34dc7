// Package writer persists high-stress rows for a source file.
//
// Record ids are a pure function of (source file, row identity), so retried
// or repeated writes converge on the same stored set instead of duplicating.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Defaults. The batch size matches DynamoDB's batch-write item limit.
const (
	defaultBatchSize = 25
	defaultAttempts  = 3
	defaultBackoff   = 200 * time.Millisecond
)

// Writer filters scored rows to flagged ones and upserts them in batches.
type Writer struct {
	store     repository.Store
	batchSize int
	attempts  int
	backoff   time.Duration
	log       logger.Logger
}

// New builds a Writer over a record store.
func New(store repository.Store, opts ...Option) *Writer {
	w := &Writer{
		store:     store,
		batchSize: defaultBatchSize,
		attempts:  defaultAttempts,
		backoff:   defaultBackoff,
		log:       logger.Get().Named("writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Persist writes every high-stress row of one source file. It returns how
// many records were upserted. A batch that keeps failing after bounded
// retries surfaces ErrPersistence; batches already acknowledged stay
// written, and a retried run reuses the same record ids.
func (w *Writer) Persist(ctx context.Context, sourceFile string, rows []model.ScoredReading) (int, error) {
	flagged := make([]model.FlaggedRecord, 0, len(rows))
	for _, row := range rows {
		if !row.HighStress {
			continue
		}
		flagged = append(flagged, model.FlaggedRecord{
			RecordID:   model.RecordID(sourceFile, row.Identity),
			SourceFile: sourceFile,
			Identity:   row.Identity,
			Score:      row.Score,
			Timestamp:  row.Timestamp,
		})
	}
	if len(flagged) == 0 {
		return 0, nil
	}

	for start := 0; start < len(flagged); start += w.batchSize {
		end := start + w.batchSize
		if end > len(flagged) {
			end = len(flagged)
		}
		if err := w.upsertWithRetry(ctx, flagged[start:end]); err != nil {
			return start, err
		}
	}

	metrics.RecordRowsFlagged(len(flagged))
	return len(flagged), nil
}

func (w *Writer) upsertWithRetry(ctx context.Context, batch []model.FlaggedRecord) error {
	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		start := time.Now()
		lastErr = w.store.Upsert(ctx, batch)
		metrics.RecordPersistLatency(float64(time.Since(start).Microseconds()) / 1000.0)
		if lastErr == nil {
			return nil
		}

		w.log.Warn(ctx, "batch upsert failed",
			logger.Int("attempt", attempt),
			logger.Int("batch", len(batch)),
			logger.Error(lastErr),
		)
		if attempt == w.attempts {
			break
		}
		metrics.RecordPersistRetry()

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrPersistence, ctx.Err())
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w: after %d attempts: %v", ErrPersistence, w.attempts, lastErr)
}
