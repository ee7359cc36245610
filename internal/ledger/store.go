// Package ledger tracks which finding IDs have already been imported, so
// that re-deliveries become severity updates instead of duplicate imports.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Entry is one ledger row: created exactly once when a finding is first
// successfully imported, never mutated.
type Entry struct {
	ID        string `dynamodbav:"ID"`
	Timestamp string `dynamodbav:"TIMESTAMP"`
}

// Store is the DynamoDB-backed dedup ledger.
type Store struct {
	db    *dynamodb.Client
	table string
	now   func() time.Time
}

func NewStore(cfg aws.Config, table string) *Store {
	return &Store{
		db:    dynamodb.NewFromConfig(cfg),
		table: table,
		now:   time.Now,
	}
}

// Exists point-looks-up a finding ID. Never scans.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	out, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("ID = :id"),
		ProjectionExpression:   aws.String("ID"),
		Limit:                  aws.Int32(1),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return out.Count > 0, nil
}

// Put records an imported finding ID. The table's idempotent-put semantics
// make concurrent writers of the same ID converge on one entry.
func (s *Store) Put(ctx context.Context, id string) error {
	item, err := attributevalue.MarshalMap(Entry{
		ID:        id,
		Timestamp: strconv.FormatInt(s.now().UnixMilli(), 10),
	})
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put ledger entry: %w", err)
	}
	return nil
}
