// Package service provides the core ingestion service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/okian/vigil/internal/adapters/blob"
	eventqueue "github.com/okian/vigil/internal/adapters/mq/queue"
	workerpool "github.com/okian/vigil/internal/adapters/mq/worker"
	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/internal/domain/feature"
	"github.com/okian/vigil/internal/domain/inflight"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/pipeline"
	"github.com/okian/vigil/internal/domain/scoring"
	"github.com/okian/vigil/internal/domain/writer"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Service owns the ingestion pipeline and answers alert queries.
type Service struct {
	mu  sync.RWMutex
	cfg *config.Config

	store     repository.Store
	opener    blob.Opener
	predictor scoring.Predictor
	queue     *eventqueue.InMemoryQueue
	guard     inflight.Guard
	pipe      *pipeline.Pipeline
	pool      *workerpool.Pool

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service. Options are mostly
// used by tests to inject fakes for the AWS-backed components.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore overrides the alert store selected by config.
func WithStore(store repository.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithOpener overrides the source file opener selected by config.
func WithOpener(opener blob.Opener) Option {
	return func(s *Service) { s.opener = opener }
}

// WithPredictor overrides the model backend selected by config.
func WithPredictor(p scoring.Predictor) Option {
	return func(s *Service) { s.predictor = p }
}

// New constructs a Service from config. Components are built on Start.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting ingestion service")

	if err := s.buildComponents(ctx); err != nil {
		return err
	}

	schema := feature.Schema{
		Numeric:     s.cfg.NumericFeatures,
		Categorical: s.cfg.CategoricalColumn,
		Categories:  s.cfg.Categories,
	}
	scorer := scoring.New(s.predictor, scoring.WithThreshold(s.cfg.Threshold))
	w := writer.New(s.store,
		writer.WithBatchSize(s.cfg.BatchSize),
		writer.WithAttempts(s.cfg.WriteAttempts),
		writer.WithBackoff(time.Duration(s.cfg.WriteBackoffMS)*time.Millisecond),
	)
	s.pipe = pipeline.New(s.opener, schema, scorer, w,
		pipeline.WithIdentityColumn(s.cfg.IdentityColumn),
		pipeline.WithTimestampColumn(s.cfg.TimestampColumn),
		pipeline.WithStrictRows(s.cfg.StrictRows),
	)

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.QueueSize))
	var guardOpts []inflight.Option
	if s.cfg.MaxInflight > 0 {
		guardOpts = append(guardOpts, inflight.WithLimit(s.cfg.MaxInflight))
	}
	s.guard = inflight.NewGuard(guardOpts...)

	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, s.pipe, s.guard)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ingestion service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queue_size", s.cfg.QueueSize),
		logger.String("model_backend", s.cfg.ModelBackend),
		logger.String("store_backend", s.cfg.StoreBackend),
	)
	return nil
}

// buildComponents fills in any store, opener or predictor not injected
// through options, following the configured backends.
func (s *Service) buildComponents(ctx context.Context) error {
	var sess *session.Session
	awsSession := func() (*session.Session, error) {
		if sess != nil {
			return sess, nil
		}
		var err error
		sess, err = session.NewSession(aws.NewConfig().WithRegion(s.cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("aws session: %w", err)
		}
		return sess, nil
	}

	if s.store == nil {
		switch s.cfg.StoreBackend {
		case config.StoreDyn:
			se, err := awsSession()
			if err != nil {
				return err
			}
			dynCfg := aws.NewConfig()
			if s.cfg.DynamoEndpoint != "" {
				dynCfg = dynCfg.WithEndpoint(s.cfg.DynamoEndpoint)
			}
			s.store = repository.NewDynamoStore(dynamodb.New(se, dynCfg), s.cfg.DynamoTable)
			s.logger.Info(ctx, "using dynamodb store", logger.String("table", s.cfg.DynamoTable))
		default:
			s.store = repository.NewMemoryStore()
			s.logger.Info(ctx, "using in-memory store")
		}
	}

	if s.opener == nil {
		switch s.cfg.SourceBackend {
		case config.SourceS3:
			se, err := awsSession()
			if err != nil {
				return err
			}
			s.opener = blob.NewS3Opener(s3.New(se))
			s.logger.Info(ctx, "reading sources from s3")
		default:
			s.opener = blob.NewFSOpener(s.cfg.SourceRoot)
			s.logger.Info(ctx, "reading sources from the filesystem",
				logger.String("root", s.cfg.SourceRoot))
		}
	}

	if s.predictor == nil {
		switch s.cfg.ModelBackend {
		case config.ModelONNX:
			var onnxOpts []scoring.ONNXOption
			if s.cfg.ONNXLibrary != "" {
				onnxOpts = append(onnxOpts, scoring.WithSharedLibrary(s.cfg.ONNXLibrary))
			}
			p, err := scoring.LoadONNX(s.cfg.ModelPath, onnxOpts...)
			if err != nil {
				return fmt.Errorf("load onnx model: %w", err)
			}
			s.predictor = p
		default:
			p, err := scoring.LoadTree(s.cfg.ModelPath)
			if err != nil {
				return fmt.Errorf("load tree model: %w", err)
			}
			s.predictor = p
		}
		s.logger.Info(ctx, "model loaded",
			logger.String("backend", s.cfg.ModelBackend),
			logger.String("path", s.cfg.ModelPath))
	}
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping ingestion service")

	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.pool != nil {
		if err := s.pool.Stop(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(err))
		}
	}
	if closer, ok := s.predictor.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "ingestion service stopped")
}

// Enqueue submits a file notification for asynchronous processing.
// Returns false when the queue is full.
func (s *Service) Enqueue(ctx context.Context, event model.IngestEvent) bool {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return false
	}

	ok := q.Enqueue(ctx, event)
	if ok {
		s.logger.Debug(ctx, "notification enqueued",
			logger.String("source_bucket", event.SourceBucket),
			logger.String("source_file", event.SourceFile),
		)
	}
	return ok
}

// Alerts returns the flagged records for a source file, ordered by
// timestamp then record id.
func (s *Service) Alerts(ctx context.Context, sourceFile string) ([]model.FlaggedRecord, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return nil, fmt.Errorf("service not started")
	}
	records, err := store.QueryBySource(ctx, sourceFile)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	return records, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"worker_count": s.cfg.WorkerCount,
		"queue_cap":    s.cfg.QueueSize,
	}
	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queue_size"] = queueLen
		stats["inflight_files"] = s.guard.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateInflightFiles(s.guard.Size())
	}
	return stats
}
