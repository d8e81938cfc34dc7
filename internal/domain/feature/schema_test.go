package feature_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/vigil/internal/domain/feature"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func row(values map[string]string) model.Reading {
	return model.Reading{Line: 1, Values: values}
}

func TestSchemaVector(t *testing.T) {
	Convey("Given a schema with numeric and categorical columns", t, func() {
		schema := feature.Schema{
			Numeric:     []string{"sleep_hours", "mood_score"},
			Categorical: "location_id",
			Categories:  []string{"101", "102"},
		}

		Convey("Width and column order are fixed by the schema", func() {
			So(schema.Width(), ShouldEqual, 4)
			So(schema.Columns(), ShouldResemble, []string{
				"sleep_hours", "mood_score", "location_id_101", "location_id_102",
			})
		})

		Convey("A valid row produces the vector in schema order", func() {
			vec, err := schema.Vector(row(map[string]string{
				"sleep_hours": "6.5",
				"mood_score":  "2.25",
				"location_id": "102",
			}))
			So(err, ShouldBeNil)
			So(vec, ShouldResemble, []float32{6.5, 2.25, 0, 1})
		})

		Convey("Unknown extra columns are ignored", func() {
			vec, err := schema.Vector(row(map[string]string{
				"sleep_hours": "8",
				"mood_score":  "3",
				"location_id": "101",
				"comment":     "fine",
			}))
			So(err, ShouldBeNil)
			So(vec, ShouldResemble, []float32{8, 3, 1, 0})
		})

		Convey("Boolean-like strings coerce to 1 and 0", func() {
			boolSchema := feature.Schema{Numeric: []string{"indoors", "weekend"}}
			vec, err := boolSchema.Vector(row(map[string]string{
				"indoors": "TRUE",
				"weekend": "no",
			}))
			So(err, ShouldBeNil)
			So(vec, ShouldResemble, []float32{1, 0})
		})

		Convey("A missing required column rejects the row and names it", func() {
			_, err := schema.Vector(row(map[string]string{
				"sleep_hours": "6.5",
				"location_id": "101",
			}))
			So(errors.Is(err, feature.ErrInvalidRow), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "mood_score")
		})

		Convey("An empty required value rejects the row", func() {
			_, err := schema.Vector(row(map[string]string{
				"sleep_hours": " ",
				"mood_score":  "3",
				"location_id": "101",
			}))
			So(errors.Is(err, feature.ErrInvalidRow), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "sleep_hours")
		})

		Convey("A non-coercible value rejects the row", func() {
			_, err := schema.Vector(row(map[string]string{
				"sleep_hours": "plenty",
				"mood_score":  "3",
				"location_id": "101",
			}))
			So(errors.Is(err, feature.ErrInvalidRow), ShouldBeTrue)
		})

		Convey("All offending columns are named together", func() {
			_, err := schema.Vector(row(map[string]string{
				"location_id": "101",
			}))
			So(errors.Is(err, feature.ErrInvalidRow), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "sleep_hours")
			So(err.Error(), ShouldContainSubstring, "mood_score")
		})

		Convey("An unknown categorical value yields an all-zero block", func() {
			vec, err := schema.Vector(row(map[string]string{
				"sleep_hours": "7",
				"mood_score":  "2",
				"location_id": "999",
			}))
			So(err, ShouldBeNil)
			So(vec[2:], ShouldResemble, []float32{0, 0})
		})
	})

	Convey("Given the default schema", t, func() {
		schema := feature.DefaultSchema()

		Convey("It matches the bundled model's training layout", func() {
			So(schema.Width(), ShouldEqual, 13)
			So(schema.Numeric[0], ShouldEqual, "temperature_celsius")
			So(strings.HasPrefix(schema.Columns()[8], "location_id_"), ShouldBeTrue)
		})
	})
}
