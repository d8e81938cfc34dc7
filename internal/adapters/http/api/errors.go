package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMissingParameter = errors.New("missing parameter")
	ErrBackpressure     = errors.New("backpressure")
)

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel and keeps the underlying cause in the message.
func WrapKind(op string, kind error, err error) error {
	return fmt.Errorf("%s: %w: %v", op, kind, err)
}

// Wrap annotates an error with the operation for 500-level responses.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
