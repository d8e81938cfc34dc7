package feature

import "errors"

// ErrInvalidRow means a row is missing required columns or holds values that
// cannot be coerced to the model's numeric input type. The wrapped message
// names the offending column(s).
var ErrInvalidRow = errors.New("invalid row")
