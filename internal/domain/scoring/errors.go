package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	// ErrModelLoad means the model artifact could not be loaded or is invalid.
	ErrModelLoad = errors.New("model load failed")

	// ErrInference means the predictor rejected an input. With a validating
	// extractor upstream this is a defensive boundary, not an expected path.
	ErrInference = errors.New("inference failed")
)
