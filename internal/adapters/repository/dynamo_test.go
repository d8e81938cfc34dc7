package repository_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDynamo keeps items in memory keyed by PK then SK.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI

	items     map[string]map[string]map[string]*dynamodb.AttributeValue
	failures  int // BatchWriteItem calls to fail before succeeding
	unprocess int // rounds that echo every request back as unprocessed
	writes    int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]map[string]*dynamodb.AttributeValue)}
}

func (f *fakeDynamo) BatchWriteItemWithContext(_ aws.Context, input *dynamodb.BatchWriteItemInput, _ ...request.Option) (*dynamodb.BatchWriteItemOutput, error) {
	f.writes++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("provisioned throughput exceeded")
	}
	if f.unprocess > 0 {
		f.unprocess--
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: input.RequestItems}, nil
	}
	for _, requests := range input.RequestItems {
		for _, req := range requests {
			item := req.PutRequest.Item
			pk := aws.StringValue(item["PK"].S)
			sk := aws.StringValue(item["SK"].S)
			if f.items[pk] == nil {
				f.items[pk] = make(map[string]map[string]*dynamodb.AttributeValue)
			}
			f.items[pk][sk] = item
		}
	}
	return &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]*dynamodb.WriteRequest{}}, nil
}

func (f *fakeDynamo) QueryWithContext(_ aws.Context, input *dynamodb.QueryInput, _ ...request.Option) (*dynamodb.QueryOutput, error) {
	pk := aws.StringValue(input.ExpressionAttributeValues[":pk"].S)
	partition := f.items[pk]
	keys := make([]string, 0, len(partition))
	for sk := range partition {
		keys = append(keys, sk)
	}
	sort.Strings(keys)

	out := &dynamodb.QueryOutput{}
	for _, sk := range keys {
		out.Items = append(out.Items, partition[sk])
	}
	return out, nil
}

func TestDynamoStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	Convey("Given a DynamoDB-backed store", t, func() {
		db := newFakeDynamo()
		store := repository.NewDynamoStore(db, "VigilFlaggedRecords")

		Convey("Upserted records come back ordered by timestamp", func() {
			So(store.Upsert(ctx, []model.FlaggedRecord{
				rec("s.csv", "u-2", 61, base.Add(time.Hour)),
				rec("s.csv", "u-1", 75, base),
			}), ShouldBeNil)

			records, err := store.QueryBySource(ctx, "s.csv")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
			So(records[0].Identity, ShouldEqual, "u-1")
			So(records[0].Score, ShouldEqual, 75)
			So(records[1].Timestamp.After(records[0].Timestamp), ShouldBeTrue)
		})

		Convey("Re-upserting replaces rather than duplicates", func() {
			original := rec("s.csv", "u-1", 75, base)
			updated := original
			updated.Score = 80

			So(store.Upsert(ctx, []model.FlaggedRecord{original}), ShouldBeNil)
			So(store.Upsert(ctx, []model.FlaggedRecord{updated}), ShouldBeNil)

			records, err := store.QueryBySource(ctx, "s.csv")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
			So(records[0].Score, ShouldEqual, 80)
		})

		Convey("Unprocessed items are drained within one call", func() {
			db.unprocess = 1
			So(store.Upsert(ctx, []model.FlaggedRecord{rec("s.csv", "u-3", 66, base)}), ShouldBeNil)

			records, err := store.QueryBySource(ctx, "s.csv")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
		})

		Convey("A hard client failure surfaces ErrUnavailable", func() {
			db.failures = 1
			err := store.Upsert(ctx, []model.FlaggedRecord{rec("s.csv", "u-4", 50, base)})
			So(errors.Is(err, repository.ErrUnavailable), ShouldBeTrue)
		})

		Convey("Large batches are split below the BatchWriteItem limit", func() {
			records := make([]model.FlaggedRecord, 0, 60)
			for i := 0; i < 60; i++ {
				records = append(records, rec("big.csv", string(rune('a'+i%26))+string(rune('0'+i/26)), 50, base))
			}
			So(store.Upsert(ctx, records), ShouldBeNil)
			So(db.writes, ShouldEqual, 3)
		})
	})
}
