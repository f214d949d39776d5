package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
)

// fakeDynamo records inputs and returns queued errors before succeeding.
type fakeDynamo struct {
	errs []error

	gets    []*dynamodb.GetItemInput
	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	deletes []*dynamodb.DeleteItemInput
	queries []*dynamodb.QueryInput

	getItem   Item
	deleteOld Item
	queryOut  *dynamodb.QueryOutput
}

func (f *fakeDynamo) nextErr() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.gets = append(f.gets, in)
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: f.getItem}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	return &dynamodb.DeleteItemOutput{Attributes: f.deleteOld}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	if f.queryOut != nil {
		return f.queryOut, nil
	}
	return &dynamodb.QueryOutput{}, nil
}

func newTestStore(f *fakeDynamo) *DynamoStore {
	return NewDynamoStore(f, "todo-app-data", RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)
}

func TestDynamo_GetItem(t *testing.T) {
	f := &fakeDynamo{}
	st := newTestStore(f)

	_, err := st.GetItem(context.Background(), Key{PK: "USER#u1", SK: SortMetadata})
	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, f.gets, 1)
	assert.Equal(t, "todo-app-data", *f.gets[0].TableName)
	assert.True(t, *f.gets[0].ConsistentRead)
	assert.Equal(t, "USER#u1", StringAttr(f.gets[0].Key, AttrPK))

	f.getItem = Item{AttrPK: s("USER#u1"), AttrSK: s(SortMetadata)}
	got, err := st.GetItem(context.Background(), Key{PK: "USER#u1", SK: SortMetadata})
	require.NoError(t, err)
	assert.Equal(t, "USER#u1", StringAttr(got, AttrPK))
}

func TestDynamo_PutItemIfNotExists(t *testing.T) {
	f := &fakeDynamo{errs: []error{&types.ConditionalCheckFailedException{Message: aws.String("exists")}}}
	st := newTestStore(f)

	err := st.PutItem(context.Background(), taskItem("u1", "t1", "pending"), IfNotExists)
	assert.ErrorIs(t, err, ErrConditionFailed)

	// condition failures are never retried
	require.Len(t, f.puts, 1)
	require.NotNil(t, f.puts[0].ConditionExpression)
	assert.Contains(t, *f.puts[0].ConditionExpression, "attribute_not_exists")
	assert.Contains(t, f.puts[0].ExpressionAttributeNames, "#0")
}

func TestDynamo_PutItemUnconditional(t *testing.T) {
	f := &fakeDynamo{}
	st := newTestStore(f)

	require.NoError(t, st.PutItem(context.Background(), taskItem("u1", "t1", "pending"), Unconditional))
	require.Len(t, f.puts, 1)
	assert.Nil(t, f.puts[0].ConditionExpression)
}

func TestDynamo_RetriesThrottling(t *testing.T) {
	f := &fakeDynamo{errs: []error{
		&types.ProvisionedThroughputExceededException{Message: aws.String("slow down")},
		&types.RequestLimitExceeded{Message: aws.String("slow down")},
	}}
	st := newTestStore(f)

	require.NoError(t, st.PutItem(context.Background(), taskItem("u1", "t1", "pending"), Unconditional))
	assert.Len(t, f.puts, 3)
}

func TestDynamo_ExhaustedRetriesAreTransient(t *testing.T) {
	throttled := &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}
	f := &fakeDynamo{errs: []error{throttled, throttled, throttled, throttled}}
	st := newTestStore(f)

	_, err := st.GetItem(context.Background(), Key{PK: "USER#u1", SK: SortMetadata})
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
	assert.Len(t, f.gets, 3)
}

func TestDynamo_NonRetryableErrorFailsFast(t *testing.T) {
	f := &fakeDynamo{errs: []error{errors.New("access denied")}}
	st := newTestStore(f)

	_, err := st.DeleteItem(context.Background(), Key{PK: "TASK#u1", SK: "TASK#t1"})
	require.Error(t, err)
	assert.False(t, apperrors.IsTransient(err))
	assert.Len(t, f.deletes, 1)
}

func TestDynamo_UpdateItem(t *testing.T) {
	f := &fakeDynamo{}
	st := newTestStore(f)

	err := st.UpdateItem(context.Background(), Key{PK: "IDEMPOTENCY#r1", SK: SortMetadata}, map[string]any{
		"status":             "COMPLETED",
		"result_status_code": 201,
	}, Unconditional)
	require.NoError(t, err)
	require.Len(t, f.updates, 1)
	in := f.updates[0]
	assert.Contains(t, *in.UpdateExpression, "SET")
	assert.Nil(t, in.ConditionExpression)
	assert.Len(t, in.ExpressionAttributeNames, 2)
	assert.Len(t, in.ExpressionAttributeValues, 2)
}

func TestDynamo_UpdateItemIfExists(t *testing.T) {
	f := &fakeDynamo{errs: []error{&types.ConditionalCheckFailedException{Message: aws.String("missing")}}}
	st := newTestStore(f)

	err := st.UpdateItem(context.Background(), Key{PK: "IDEMPOTENCY#r1", SK: SortMetadata}, map[string]any{
		"status": "COMPLETED",
	}, IfExists)
	assert.ErrorIs(t, err, ErrConditionFailed)
	require.Len(t, f.updates, 1)
	in := f.updates[0]
	require.NotNil(t, in.ConditionExpression)
	assert.Contains(t, *in.ConditionExpression, "attribute_exists")
	assert.Contains(t, in.ExpressionAttributeNames, "#0")
}

func TestDynamo_DeleteItemReportsExistence(t *testing.T) {
	f := &fakeDynamo{deleteOld: Item{AttrPK: s("TASK#u1")}}
	st := newTestStore(f)

	existed, err := st.DeleteItem(context.Background(), Key{PK: "TASK#u1", SK: "TASK#t1"})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, types.ReturnValueAllOld, f.deletes[0].ReturnValues)

	f.deleteOld = nil
	existed, err = st.DeleteItem(context.Background(), Key{PK: "TASK#u1", SK: "TASK#t1"})
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestDynamo_QueryIndexAndCursor(t *testing.T) {
	last := Item{AttrPK: s("TASK#u1"), AttrSK: s("TASK#t2"), "GSI1PK": s("USER#u1"), "GSI1SK": s("STATUS#pending#t2")}
	f := &fakeDynamo{queryOut: &dynamodb.QueryOutput{
		Items:            []Item{taskItem("u1", "t1", "pending"), taskItem("u1", "t2", "pending")},
		LastEvaluatedKey: last,
	}}
	st := newTestStore(f)

	page, err := st.Query(context.Background(), Query{
		Partition: "USER#u1",
		Index:     GSI1,
		Predicate: BeginsWith("STATUS#pending#"),
		Limit:     2,
	})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	in := f.queries[0]
	assert.Equal(t, "GSI1", *in.IndexName)
	assert.Equal(t, int32(2), *in.Limit)
	assert.Contains(t, *in.KeyConditionExpression, "begins_with")
	assert.Nil(t, in.ExclusiveStartKey)

	f.queryOut = &dynamodb.QueryOutput{}
	page, err = st.Query(context.Background(), Query{Partition: "USER#u1", Index: GSI1, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, last, f.queries[1].ExclusiveStartKey)
	assert.Equal(t, "GSI1", *f.queries[1].IndexName)
}

func TestDynamo_QueryBaseTableBetween(t *testing.T) {
	f := &fakeDynamo{}
	st := newTestStore(f)

	_, err := st.Query(context.Background(), Query{Partition: "TASK#u1", Predicate: Between("TASK#a", "TASK#m")})
	require.NoError(t, err)
	in := f.queries[0]
	assert.Nil(t, in.IndexName)
	assert.Nil(t, in.Limit)
	assert.Contains(t, *in.KeyConditionExpression, "BETWEEN")
}
