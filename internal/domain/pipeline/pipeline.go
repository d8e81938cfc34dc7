// Package pipeline orchestrates one source file end to end: load, extract,
// score, and persist, as a single state machine run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vigil/internal/adapters/blob"
	"github.com/okian/vigil/internal/domain/feature"
	"github.com/okian/vigil/internal/domain/loader"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/scoring"
	"github.com/okian/vigil/internal/domain/writer"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// State names the phases one file moves through. Failed is terminal and
// reachable from any state.
type State string

const (
	StateReceived   State = "received"
	StateLoading    State = "loading"
	StateExtracting State = "extracting"
	StateScoring    State = "scoring"
	StateWriting    State = "writing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Failure kinds attached to a Failed run. Used as the metric reason label.
const (
	FailSourceUnavailable = "source_unavailable"
	FailMalformedInput    = "malformed_input"
	FailInvalidRow        = "invalid_row"
	FailPersistence       = "persistence"
)

// Report summarizes one run.
type Report struct {
	RunID       string
	SourceFile  string
	State       State
	FailureKind string // set only when State is StateFailed
	RowsRead    int
	RowsSkipped int
	RowsFlagged int
	Err         error
}

// Option applies a configuration option to a Pipeline.
type Option func(*Pipeline)

// WithIdentityColumn names the column holding the per-row subject key.
func WithIdentityColumn(col string) Option {
	return func(p *Pipeline) { p.identityColumn = col }
}

// WithTimestampColumn names the column holding the source timestamp.
func WithTimestampColumn(col string) Option {
	return func(p *Pipeline) { p.timestampColumn = col }
}

// WithStrictRows makes one invalid row fail the whole file instead of
// being skipped. Both behaviors are defensible; skip-and-log is default.
func WithStrictRows(strict bool) Option {
	return func(p *Pipeline) { p.strictRows = strict }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock overrides the processing-time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline runs files through load -> extract -> score -> persist.
type Pipeline struct {
	opener blob.Opener
	schema feature.Schema
	scorer *scoring.Scorer
	writer *writer.Writer

	identityColumn  string
	timestampColumn string
	strictRows      bool

	log logger.Logger
	now func() time.Time
}

// Defaults match the layout of the bundled sensor dataset.
const (
	defaultIdentityColumn  = "user_id"
	defaultTimestampColumn = "timestamp"
)

// New builds a Pipeline. All collaborators are required.
func New(opener blob.Opener, schema feature.Schema, scorer *scoring.Scorer, w *writer.Writer, opts ...Option) *Pipeline {
	p := &Pipeline{
		opener:          opener,
		schema:          schema,
		scorer:          scorer,
		writer:          w,
		identityColumn:  defaultIdentityColumn,
		timestampColumn: defaultTimestampColumn,
		log:             logger.Get().Named("pipeline"),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes exactly one file to completion or failure. Scored rows are
// buffered for the whole file and handed to the writer in one go, so a
// failure before the writing phase leaves the store untouched.
func (p *Pipeline) Run(ctx context.Context, event model.IngestEvent) Report {
	report := Report{
		RunID:      uuid.NewString(),
		SourceFile: event.SourceFile,
		State:      StateReceived,
	}
	log := p.log
	start := time.Now()

	log.Info(ctx, "ingestion run started",
		logger.String("run_id", report.RunID),
		logger.String("bucket", event.SourceBucket),
		logger.String("source_file", event.SourceFile),
	)

	report.State = StateLoading
	stream, err := p.opener.Open(ctx, event.SourceBucket, event.SourceFile)
	if err != nil {
		return p.fail(ctx, report, FailSourceUnavailable, err)
	}
	defer stream.Close()

	rows, err := loader.New(stream)
	if err != nil {
		return p.fail(ctx, report, classifyLoaderError(err), err)
	}

	scored := make([]model.ScoredReading, 0, 64)
	for {
		report.State = StateExtracting
		reading, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return p.fail(ctx, report, classifyLoaderError(err), err)
		}
		report.RowsRead++

		vec, err := p.schema.Vector(reading)
		if err != nil {
			if p.strictRows {
				return p.fail(ctx, report, FailInvalidRow, err)
			}
			report.RowsSkipped++
			metrics.RecordRowSkipped()
			log.Warn(ctx, "skipping invalid row",
				logger.String("run_id", report.RunID),
				logger.Int("row", reading.Line),
				logger.Error(err),
			)
			continue
		}

		report.State = StateScoring
		result, err := p.scorer.Score(ctx, vec)
		if err != nil {
			// Fatal for the row only; the rest of the file continues.
			report.RowsSkipped++
			metrics.RecordRowSkipped()
			log.Error(ctx, "inference failed for row",
				logger.String("run_id", report.RunID),
				logger.Int("row", reading.Line),
				logger.Error(err),
			)
			continue
		}

		scored = append(scored, model.ScoredReading{
			Identity:   p.identity(reading),
			Score:      result.Score,
			HighStress: result.HighStress,
			Timestamp:  p.timestamp(reading),
		})
	}
	metrics.RecordRowsRead(report.RowsRead)

	report.State = StateWriting
	flagged, err := p.writer.Persist(ctx, event.SourceFile, scored)
	if err != nil {
		return p.fail(ctx, report, FailPersistence, err)
	}
	report.RowsFlagged = flagged

	report.State = StateCompleted
	metrics.RecordFileCompleted()
	log.Info(ctx, "ingestion run completed",
		logger.String("run_id", report.RunID),
		logger.String("source_file", event.SourceFile),
		logger.Int("rows_read", report.RowsRead),
		logger.Int("rows_skipped", report.RowsSkipped),
		logger.Int("rows_flagged", report.RowsFlagged),
		logger.Duration("elapsed", time.Since(start)),
	)
	return report
}

func (p *Pipeline) fail(ctx context.Context, report Report, kind string, err error) Report {
	report.State = StateFailed
	report.FailureKind = kind
	report.Err = fmt.Errorf("%s: %w", kind, err)
	metrics.RecordFileFailed(kind)
	p.log.Error(ctx, "ingestion run failed",
		logger.String("run_id", report.RunID),
		logger.String("source_file", report.SourceFile),
		logger.String("kind", kind),
		logger.Error(err),
	)
	return report
}

// identity returns the stable per-row key: the identity column when it has
// a value, otherwise the row's position in the file. Both are stable across
// re-ingestions of the same file.
func (p *Pipeline) identity(reading model.Reading) string {
	if v := reading.Values[p.identityColumn]; v != "" {
		return v
	}
	return fmt.Sprintf("row-%06d", reading.Line)
}

func (p *Pipeline) timestamp(reading model.Reading) time.Time {
	if ts, ok := model.ParseTimestamp(reading.Values[p.timestampColumn]); ok {
		return ts
	}
	return p.now().UTC()
}

// classifyLoaderError maps loader sentinels to failure kinds. A canceled
// context mid-read counts as the source going away.
func classifyLoaderError(err error) string {
	if errors.Is(err, loader.ErrMalformedInput) {
		return FailMalformedInput
	}
	return FailSourceUnavailable
}
