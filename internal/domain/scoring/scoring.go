// Package scoring runs the pre-loaded stress model over feature vectors and
// turns raw model output into a score plus a high-stress decision.
//
// The predictor is loaded once per process and never reloaded mid-run; all
// methods are safe for concurrent use by in-flight pipeline runs.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vigil/pkg/metrics"
)

// DefaultThreshold matches the threshold the bundled model was trained
// against. The decision rule is inclusive: score >= threshold is high-stress.
const DefaultThreshold = 42

// Predictor is an immutable, loaded inference model.
type Predictor interface {
	// Width reports the input vector length the model expects.
	Width() int

	// Predict returns the raw stress score for one vector.
	Predict(ctx context.Context, vec []float32) (float64, error)
}

// Result is the outcome of scoring one vector.
type Result struct {
	Score      float64
	HighStress bool
}

// Option applies a configuration option to a Scorer.
type Option func(*Scorer)

// WithThreshold overrides the high-stress threshold.
func WithThreshold(t float64) Option {
	return func(s *Scorer) { s.threshold = t }
}

// Scorer applies the fixed threshold to predictor output.
type Scorer struct {
	predictor Predictor
	threshold float64
}

// New builds a Scorer over an already-loaded predictor.
func New(p Predictor, opts ...Option) *Scorer {
	s := &Scorer{
		predictor: p,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the configured high-stress threshold.
func (s *Scorer) Threshold() float64 { return s.threshold }

// Score runs inference for one vector. The decision is a pure function of
// the vector and the threshold.
func (s *Scorer) Score(ctx context.Context, vec []float32) (Result, error) {
	if want := s.predictor.Width(); len(vec) != want {
		return Result{}, fmt.Errorf("%w: vector has %d values, model expects %d", ErrInference, len(vec), want)
	}

	start := time.Now()
	score, err := s.predictor.Predict(ctx, vec)
	metrics.RecordInferenceLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	return Result{
		Score:      score,
		HighStress: score >= s.threshold,
	}, nil
}
