package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(source, identity string, score float64, ts time.Time) model.FlaggedRecord {
	return model.FlaggedRecord{
		RecordID:   model.RecordID(source, identity),
		SourceFile: source,
		Identity:   identity,
		Score:      score,
		Timestamp:  ts,
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given an empty store", t, func() {
		store := repository.NewMemoryStore()

		Convey("Querying an unknown source returns an empty slice, not nil", func() {
			records, err := store.QueryBySource(ctx, "missing.csv")
			So(err, ShouldBeNil)
			So(records, ShouldNotBeNil)
			So(records, ShouldBeEmpty)
		})

		Convey("When records are upserted", func() {
			So(store.Upsert(ctx, []model.FlaggedRecord{
				rec("a.csv", "u-2", 55, base.Add(time.Minute)),
				rec("a.csv", "u-1", 70, base),
				rec("b.csv", "u-1", 90, base),
			}), ShouldBeNil)

			Convey("Queries are scoped to one source file", func() {
				records, err := store.QueryBySource(ctx, "a.csv")
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 2)
				So(store.Count("b.csv"), ShouldEqual, 1)
			})

			Convey("Results are ordered by timestamp ascending", func() {
				records, err := store.QueryBySource(ctx, "a.csv")
				So(err, ShouldBeNil)
				So(records[0].Identity, ShouldEqual, "u-1")
				So(records[1].Identity, ShouldEqual, "u-2")
			})

			Convey("Re-upserting the same records does not duplicate", func() {
				So(store.Upsert(ctx, []model.FlaggedRecord{
					rec("a.csv", "u-1", 70, base),
				}), ShouldBeNil)
				So(store.Count("a.csv"), ShouldEqual, 2)
			})

			Convey("Upserting a corrected score replaces the stale value", func() {
				So(store.Upsert(ctx, []model.FlaggedRecord{
					rec("a.csv", "u-1", 82, base),
				}), ShouldBeNil)
				records, err := store.QueryBySource(ctx, "a.csv")
				So(err, ShouldBeNil)
				So(records[0].Score, ShouldEqual, 82)
				So(records, ShouldHaveLength, 2)
			})
		})

		Convey("Timestamp ties break on record id ascending", func() {
			a := rec("tie.csv", "zz", 50, base)
			b := rec("tie.csv", "aa", 60, base)
			So(store.Upsert(ctx, []model.FlaggedRecord{a, b}), ShouldBeNil)

			records, err := store.QueryBySource(ctx, "tie.csv")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
			So(records[0].RecordID, ShouldBeLessThan, records[1].RecordID)
		})
	})
}
