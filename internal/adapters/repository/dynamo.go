package repository

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"

	"github.com/okian/vigil/internal/domain/model"
)

// Key prefixes for the single-table layout.
const (
	partitionPrefix = "SOURCEFILE#"
	sortPrefix      = "RECORD#"
)

// maxBatchWrite is DynamoDB's BatchWriteItem item limit.
const maxBatchWrite = 25

// unprocessedAttempts bounds the drain loop for UnprocessedItems within one
// Upsert call; the Writer retries the whole batch above this with the same
// record ids, so giving up here never loses or duplicates rows.
const unprocessedAttempts = 3

// DynamoStore implements Store on one DynamoDB table with partition key PK
// and sort key SK. Upserts are plain PutItem writes, so concurrent writers
// to the same partition converge on the same record set.
type DynamoStore struct {
	db    dynamodbiface.DynamoDBAPI
	table string
}

// NewDynamoStore wraps an existing DynamoDB client.
func NewDynamoStore(db dynamodbiface.DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{db: db, table: table}
}

// dynamoItem is the stored shape of a flagged record.
type dynamoItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	RecordID   string  `dynamodbav:"RecordID"`
	SourceFile string  `dynamodbav:"SourceFile"`
	Identity   string  `dynamodbav:"Identity"`
	Score      float64 `dynamodbav:"StressScore"`
	Timestamp  string  `dynamodbav:"Timestamp"`
}

func toItem(rec model.FlaggedRecord) dynamoItem {
	return dynamoItem{
		PK:         partitionPrefix + rec.SourceFile,
		SK:         sortPrefix + rec.RecordID,
		RecordID:   rec.RecordID,
		SourceFile: rec.SourceFile,
		Identity:   rec.Identity,
		Score:      rec.Score,
		Timestamp:  rec.Timestamp.UTC().Format(time.RFC3339),
	}
}

func fromItem(item dynamoItem) (model.FlaggedRecord, error) {
	ts, err := time.Parse(time.RFC3339, item.Timestamp)
	if err != nil {
		return model.FlaggedRecord{}, errors.Wrapf(err, "parsing timestamp of record %s", item.RecordID)
	}
	return model.FlaggedRecord{
		RecordID:   item.RecordID,
		SourceFile: item.SourceFile,
		Identity:   item.Identity,
		Score:      item.Score,
		Timestamp:  ts,
	}, nil
}

// Upsert implements Store using BatchWriteItem in chunks of 25.
func (s *DynamoStore) Upsert(ctx context.Context, records []model.FlaggedRecord) error {
	for start := 0; start < len(records); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(records) {
			end = len(records)
		}
		if err := s.writeChunk(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *DynamoStore) writeChunk(ctx context.Context, records []model.FlaggedRecord) error {
	requests := make([]*dynamodb.WriteRequest, 0, len(records))
	for _, rec := range records {
		av, err := dynamodbattribute.MarshalMap(toItem(rec))
		if err != nil {
			return errors.Wrapf(err, "marshaling record %s", rec.RecordID)
		}
		requests = append(requests, &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: av},
		})
	}

	pending := map[string][]*dynamodb.WriteRequest{s.table: requests}
	for attempt := 0; len(pending[s.table]) > 0; attempt++ {
		if attempt >= unprocessedAttempts {
			return errors.Wrapf(ErrUnavailable, "%d items unprocessed after %d attempts", len(pending[s.table]), attempt)
		}
		out, err := s.db.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return errors.Wrap(ErrUnavailable, err.Error())
		}
		pending = out.UnprocessedItems
	}
	return nil
}

// QueryBySource implements Store, paging through the partition.
func (s *DynamoStore) QueryBySource(ctx context.Context, sourceFile string) ([]model.FlaggedRecord, error) {
	records := make([]model.FlaggedRecord, 0)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]*string{
			"#pk": aws.String("PK"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":pk": {S: aws.String(partitionPrefix + sourceFile)},
		},
	}

	for {
		out, err := s.db.QueryWithContext(ctx, input)
		if err != nil {
			return nil, errors.Wrap(ErrUnavailable, err.Error())
		}
		var items []dynamoItem
		if err := dynamodbattribute.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, errors.Wrap(err, "unmarshaling query page")
		}
		for _, item := range items {
			rec, err := fromItem(item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	sortRecords(records)
	return records, nil
}
