// Package loader streams delimited source files one row at a time.
//
// A Rows holds at most one record in memory; callers pull rows in file order
// with Next until io.EOF. Structural defects surface as ErrMalformedInput,
// stream failures as ErrSourceUnavailable.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/okian/vigil/internal/domain/model"
)

// Option applies a configuration option to a Rows.
type Option func(*Rows)

// WithComma sets the field delimiter. Default is ','.
func WithComma(c rune) Option {
	return func(r *Rows) {
		if c != 0 {
			r.comma = c
		}
	}
}

// Rows is a lazy reader over one delimited file.
type Rows struct {
	csv    *csv.Reader
	comma  rune
	header []string
	line   int
	empty  bool
}

// New prepares a row stream over r and reads the header line eagerly so that
// schema defects are reported before any row is consumed. A zero-byte stream
// is treated as a file with no rows, not as an error.
func New(r io.Reader, opts ...Option) (*Rows, error) {
	rows := &Rows{comma: ','}
	for _, opt := range opts {
		opt(rows)
	}

	cr := csv.NewReader(r)
	cr.Comma = rows.comma
	cr.ReuseRecord = false
	rows.csv = cr

	header, err := cr.Read()
	switch {
	case errors.Is(err, io.EOF):
		rows.empty = true
		return rows, nil
	case err != nil:
		return nil, fmt.Errorf("%w: reading header: %v", ErrMalformedInput, err)
	}

	seen := make(map[string]struct{}, len(header))
	for _, name := range header {
		if name == "" {
			return nil, fmt.Errorf("%w: empty column name in header", ErrMalformedInput)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q in header", ErrMalformedInput, name)
		}
		seen[name] = struct{}{}
	}
	rows.header = header
	// Enforce the header's column count on every subsequent record.
	cr.FieldsPerRecord = len(header)
	return rows, nil
}

// Header returns the column names in file order.
func (r *Rows) Header() []string { return r.header }

// Next returns the next row, or io.EOF when the file is exhausted.
func (r *Rows) Next() (model.Reading, error) {
	if r.empty {
		return model.Reading{}, io.EOF
	}

	record, err := r.csv.Read()
	switch {
	case errors.Is(err, io.EOF):
		return model.Reading{}, io.EOF
	case err != nil:
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
			return model.Reading{}, fmt.Errorf("%w: row %d has %s", ErrMalformedInput, parseErr.Line, "a column count mismatch")
		}
		if errors.As(err, &parseErr) {
			return model.Reading{}, fmt.Errorf("%w: row %d: %v", ErrMalformedInput, parseErr.Line, parseErr.Err)
		}
		return model.Reading{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	r.line++
	values := make(map[string]string, len(r.header))
	for i, name := range r.header {
		values[name] = record[i]
	}
	return model.Reading{Line: r.line, Values: values}, nil
}
