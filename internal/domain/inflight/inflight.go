// Package inflight tracks source files currently being processed.
//
// The delivery layer is at-least-once, so the same notification can arrive
// twice while the first run is still going. The guard rejects the second
// copy; deliberate re-ingestion after the run finishes is always allowed,
// and the store's idempotent upserts make it safe.
package inflight

import (
	"context"
	"sync"

	"github.com/okian/vigil/pkg/metrics"
)

// Guard is the in-flight tracking surface.
type Guard interface {
	// Acquire marks key as in flight. Returns false if it already is, or
	// if the concurrency limit is reached.
	Acquire(ctx context.Context, key string) bool

	// Release clears key once its run completes or fails.
	Release(ctx context.Context, key string)

	// Size reports how many keys are currently held.
	Size() int
}

// Option applies a configuration option to the guard.
type Option func(*memoryGuard)

// WithLimit caps how many files may be in flight at once. Zero or negative
// means unlimited.
func WithLimit(n int) Option {
	return func(g *memoryGuard) { g.limit = n }
}

type memoryGuard struct {
	mu    sync.Mutex
	held  map[string]struct{}
	limit int
}

// NewGuard creates an in-memory guard.
func NewGuard(opts ...Option) Guard {
	g := &memoryGuard{held: make(map[string]struct{})}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *memoryGuard) Acquire(_ context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return false
	}
	if g.limit > 0 && len(g.held) >= g.limit {
		return false
	}
	g.held[key] = struct{}{}
	metrics.UpdateInflightFiles(len(g.held))
	return true
}

func (g *memoryGuard) Release(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	metrics.UpdateInflightFiles(len(g.held))
}

func (g *memoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}
