package writer

import "errors"

// ErrPersistence means the store stayed unreachable after bounded retries.
// The pipeline treats this as fatal for the run.
var ErrPersistence = errors.New("persistence failed")
