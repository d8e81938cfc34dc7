package writer

import (
	"time"

	"github.com/okian/vigil/pkg/logger"
)

// Option applies a configuration option to a Writer.
type Option func(*Writer)

// WithBatchSize bounds how many records go to the store per round trip.
func WithBatchSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithAttempts sets the maximum write attempts per batch.
func WithAttempts(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.attempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts. The delay grows
// linearly with the attempt number.
func WithBackoff(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.backoff = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}
