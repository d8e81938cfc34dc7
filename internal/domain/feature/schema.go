// Package feature maps raw rows to fixed-shape model input vectors.
//
// Extraction is pure: no I/O and no mutable state, so it can be tested
// independently of the model and the storage layer.
package feature

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/vigil/internal/domain/model"
)

// Schema describes the model's input layout: required numeric columns in
// input order, optionally followed by a one-hot expanded categorical column.
type Schema struct {
	// Numeric lists required columns coerced to float, in model input order.
	Numeric []string

	// Categorical names a column expanded to one indicator per category.
	// Empty means no categorical block.
	Categorical string

	// Categories are the known categorical values, in model input order.
	// A row whose value is unknown or absent gets an all-zero block, which
	// matches how the model was trained (reindex with zero fill).
	Categories []string
}

// DefaultSchema returns the layout the bundled stress model was trained on.
func DefaultSchema() Schema {
	return Schema{
		Numeric: []string{
			"temperature_celsius",
			"humidity_percent",
			"air_quality_index",
			"noise_level_db",
			"lighting_lux",
			"crowd_density",
			"sleep_hours",
			"mood_score",
		},
		Categorical: "location_id",
		Categories:  []string{"101", "102", "103", "104", "105"},
	}
}

// Width returns the vector length the schema produces.
func (s Schema) Width() int {
	return len(s.Numeric) + len(s.Categories)
}

// Columns returns the model input column names in vector order.
func (s Schema) Columns() []string {
	cols := make([]string, 0, s.Width())
	cols = append(cols, s.Numeric...)
	for _, c := range s.Categories {
		cols = append(cols, s.Categorical+"_"+c)
	}
	return cols
}

// Vector derives the feature vector for one row. Rows with missing required
// columns or non-coercible values are rejected with ErrInvalidRow; they are
// never silently zero-filled. Columns outside the schema are ignored.
func (s Schema) Vector(row model.Reading) ([]float32, error) {
	vec := make([]float32, 0, s.Width())
	var bad []string

	for _, name := range s.Numeric {
		raw, ok := row.Values[name]
		if !ok || strings.TrimSpace(raw) == "" {
			bad = append(bad, name)
			vec = append(vec, 0)
			continue
		}
		val, err := coerce(raw)
		if err != nil {
			bad = append(bad, name)
			vec = append(vec, 0)
			continue
		}
		vec = append(vec, float32(val))
	}

	if s.Categorical != "" {
		value := strings.TrimSpace(row.Values[s.Categorical])
		for _, c := range s.Categories {
			if value == c {
				vec = append(vec, 1)
			} else {
				vec = append(vec, 0)
			}
		}
	}

	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: column(s) %s", ErrInvalidRow, strings.Join(bad, ", "))
	}
	return vec, nil
}

// coerce parses a raw cell as a float. Boolean-like strings map to 1/0.
func coerce(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "true", "yes":
		return 1, nil
	case "false", "no":
		return 0, nil
	}
	val, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("not numeric: %q", raw)
	}
	return val, nil
}
