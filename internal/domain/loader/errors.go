package loader

import "errors"

// Sentinel kinds for loader errors.
var (
	// ErrSourceUnavailable means the source stream could not be opened or read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedInput means the file structure does not match the expected
	// delimited schema, e.g. a bad header or a row with the wrong column count.
	ErrMalformedInput = errors.New("malformed input")
)
