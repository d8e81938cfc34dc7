package repository

import "errors"

// ErrUnavailable means the backing store could not be reached or rejected
// the operation. Callers decide whether to retry.
var ErrUnavailable = errors.New("store unavailable")
