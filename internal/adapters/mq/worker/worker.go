// Package worker drains the ingest queue into pipeline runs.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/domain/inflight"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/pipeline"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Runner processes one file to completion or failure.
type Runner interface {
	Run(ctx context.Context, event model.IngestEvent) pipeline.Report
}

// Source is how workers receive events.
type Source interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Pool runs a fixed number of workers over one event source. Each file is
// processed by exactly one worker; the in-flight guard drops duplicate
// notifications for a file whose run has not finished yet.
type Pool struct {
	count  int
	source Source
	runner Runner
	guard  inflight.Guard
	log    logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool builds a worker pool.
func NewPool(count int, source Source, runner Runner, guard inflight.Guard, opts ...Option) *Pool {
	if count < 1 {
		count = 1
	}
	p := &Pool{
		count:  count,
		source: source,
		runner: runner,
		guard:  guard,
		log:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. They stop when the queue closes or the pool
// is stopped.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	metrics.UpdateWorkerCount(p.count)

	// One shared channel so each event reaches exactly one worker.
	events := p.source.Dequeue(ctx)
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.run(ctx, fmt.Sprintf("worker-%d", i), events)
	}
}

// Stop asks the workers to finish and waits for them, bounded by ctx.
func (p *Pool) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

func (p *Pool) run(ctx context.Context, name string, events <-chan queue.Event) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			p.process(ctx, name, event)
		}
	}
}

func (p *Pool) process(ctx context.Context, name string, event model.IngestEvent) {
	key := event.SourceBucket + "/" + event.SourceFile
	if !p.guard.Acquire(ctx, key) {
		p.log.Warn(ctx, "dropping duplicate in-flight notification",
			logger.String("worker", name),
			logger.String("source_file", event.SourceFile),
		)
		return
	}
	defer p.guard.Release(ctx, key)

	report := p.runner.Run(ctx, event)
	if report.State == pipeline.StateFailed {
		p.log.Warn(ctx, "run ended in failure",
			logger.String("worker", name),
			logger.String("source_file", event.SourceFile),
			logger.String("kind", report.FailureKind),
		)
	}
}
