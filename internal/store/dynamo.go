package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	awsx "github.com/imrishuroy/go-idempotent-todo/internal/aws"
)

// DynamoStore implements Store on a DynamoDB table.
type DynamoStore struct {
	client awsx.DynamoDBAPI
	table  string
	retry  RetryConfig
	logger *zap.Logger
}

func NewDynamoStore(client awsx.DynamoDBAPI, table string, retry RetryConfig, logger *zap.Logger) *DynamoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoStore{client: client, table: table, retry: retry, logger: logger}
}

func (s *DynamoStore) GetItem(ctx context.Context, key Key) (Item, error) {
	out, err := withRetry(ctx, s.retry, s.logger, "GetItem", func() (*dynamodb.GetItemOutput, error) {
		return s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(s.table),
			Key:            key.item(),
			ConsistentRead: aws.Bool(true),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s/%s: %w", key.PK, key.SK, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return out.Item, nil
}

func (s *DynamoStore) PutItem(ctx context.Context, item Item, cond Condition) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}
	if cond == IfNotExists {
		expr, err := expression.NewBuilder().
			WithCondition(expression.AttributeNotExists(expression.Name(AttrPK))).
			Build()
		if err != nil {
			return fmt.Errorf("build condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
	}

	_, err := withRetry(ctx, s.retry, s.logger, "PutItem", func() (*dynamodb.PutItemOutput, error) {
		return s.client.PutItem(ctx, input)
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrConditionFailed
		}
		key := KeyOf(item)
		return fmt.Errorf("put item %s/%s: %w", key.PK, key.SK, err)
	}
	return nil
}

func (s *DynamoStore) UpdateItem(ctx context.Context, key Key, set map[string]any, cond Condition) error {
	if len(set) == 0 {
		return nil
	}
	var update expression.UpdateBuilder
	for name, v := range set {
		update = update.Set(expression.Name(name), expression.Value(v))
	}
	builder := expression.NewBuilder().WithUpdate(update)
	if cond == IfExists {
		builder = builder.WithCondition(expression.AttributeExists(expression.Name(AttrPK)))
	}
	expr, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	_, err = withRetry(ctx, s.retry, s.logger, "UpdateItem", func() (*dynamodb.UpdateItemOutput, error) {
		return s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.table),
			Key:                       key.item(),
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("update item %s/%s: %w", key.PK, key.SK, err)
	}
	return nil
}

func (s *DynamoStore) DeleteItem(ctx context.Context, key Key) (bool, error) {
	out, err := withRetry(ctx, s.retry, s.logger, "DeleteItem", func() (*dynamodb.DeleteItemOutput, error) {
		return s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:    aws.String(s.table),
			Key:          key.item(),
			ReturnValues: types.ReturnValueAllOld,
		})
	})
	if err != nil {
		return false, fmt.Errorf("delete item %s/%s: %w", key.PK, key.SK, err)
	}
	return len(out.Attributes) > 0, nil
}

func (s *DynamoStore) Query(ctx context.Context, q Query) (Page, error) {
	pkAttr, skAttr := q.Index.KeyAttrs()

	keyCond := expression.Key(pkAttr).Equal(expression.Value(q.Partition))
	switch q.Predicate.op {
	case opBeginsWith:
		keyCond = keyCond.And(expression.Key(skAttr).BeginsWith(q.Predicate.value))
	case opEquals:
		keyCond = keyCond.And(expression.Key(skAttr).Equal(expression.Value(q.Predicate.value)))
	case opBetween:
		keyCond = keyCond.And(expression.Key(skAttr).Between(
			expression.Value(q.Predicate.value),
			expression.Value(q.Predicate.upper),
		))
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return Page{}, fmt.Errorf("build key condition: %w", err)
	}

	startKey, err := decodeCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         startKey,
	}
	if q.Index != BaseTable {
		input.IndexName = aws.String(string(q.Index))
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(q.Limit)
	}

	out, err := withRetry(ctx, s.retry, s.logger, "Query", func() (*dynamodb.QueryOutput, error) {
		return s.client.Query(ctx, input)
	})
	if err != nil {
		return Page{}, fmt.Errorf("query %s %s: %w", q.Index, q.Partition, err)
	}

	return Page{Items: out.Items, NextCursor: encodeCursor(out.LastEvaluatedKey)}, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}
