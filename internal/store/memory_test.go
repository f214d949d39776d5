package store

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func taskItem(user, id, status string) Item {
	return Item{
		AttrPK:   s(PrefixTask + user),
		AttrSK:   s(PrefixTask + id),
		"GSI1PK": s(PrefixUser + user),
		"GSI1SK": s(PrefixStatus + status + "#" + id),
		"title":  s("task " + id),
	}
}

func TestMemory_ConditionalPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first := taskItem("u1", "t1", "pending")
	require.NoError(t, m.PutItem(ctx, first, IfNotExists))

	second := taskItem("u1", "t1", "pending")
	second["title"] = s("other")
	assert.ErrorIs(t, m.PutItem(ctx, second, IfNotExists), ErrConditionFailed)

	got, err := m.GetItem(ctx, Key{PK: "TASK#u1", SK: "TASK#t1"})
	require.NoError(t, err)
	assert.Equal(t, "task t1", StringAttr(got, "title"))

	require.NoError(t, m.PutItem(ctx, second, Unconditional))
	got, _ = m.GetItem(ctx, Key{PK: "TASK#u1", SK: "TASK#t1"})
	assert.Equal(t, "other", StringAttr(got, "title"))
}

func TestMemory_GetMissing(t *testing.T) {
	_, err := NewMemory().GetItem(context.Background(), Key{PK: "USER#x", SK: SortMetadata})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	key := Key{PK: "IDEMPOTENCY#r1", SK: SortMetadata}

	err := m.UpdateItem(ctx, key, map[string]any{"status": "COMPLETED"}, IfExists)
	assert.ErrorIs(t, err, ErrConditionFailed)
	_, err = m.GetItem(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.UpdateItem(ctx, key, map[string]any{"status": "COMPLETED", "result_status_code": 201}, Unconditional))
	require.NoError(t, m.UpdateItem(ctx, key, map[string]any{"updated_at": 5}, IfExists))
	got, err := m.GetItem(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", StringAttr(got, "status"))
	assert.Equal(t, &types.AttributeValueMemberN{Value: "201"}, got["result_status_code"])

	existed, err := m.DeleteItem(ctx, key)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = m.DeleteItem(ctx, key)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestMemory_QueryPredicatesAndIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.PutItem(ctx, taskItem("u1", "a", "pending"), IfNotExists))
	require.NoError(t, m.PutItem(ctx, taskItem("u1", "b", "completed"), IfNotExists))
	require.NoError(t, m.PutItem(ctx, taskItem("u1", "c", "pending"), IfNotExists))
	require.NoError(t, m.PutItem(ctx, taskItem("u2", "d", "pending"), IfNotExists))
	require.NoError(t, m.PutItem(ctx, Item{AttrPK: s("USER#u1"), AttrSK: s(SortMetadata)}, IfNotExists))

	page, err := m.Query(ctx, Query{Partition: "TASK#u1", Predicate: BeginsWith(PrefixTask)})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Empty(t, page.NextCursor)

	page, err = m.Query(ctx, Query{Partition: "USER#u1", Index: GSI1, Predicate: BeginsWith("STATUS#pending#")})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "TASK#a", StringAttr(page.Items[0], AttrSK))
	assert.Equal(t, "TASK#c", StringAttr(page.Items[1], AttrSK))

	page, err = m.Query(ctx, Query{Partition: "USER#u1", Index: GSI1, Predicate: Equals("STATUS#completed#b")})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	page, err = m.Query(ctx, Query{Partition: "USER#u1", Index: GSI1, Predicate: Between("STATUS#a", "STATUS#d")})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	// the user item lives in USER#u1 on the base table, not on GSI1
	page, err = m.Query(ctx, Query{Partition: "USER#u1", Index: GSI2})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestMemory_QueryPagination(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, m.PutItem(ctx, taskItem("u1", id, "pending"), IfNotExists))
	}

	var seen []string
	cursor := ""
	pages := 0
	for {
		page, err := m.Query(ctx, Query{Partition: "USER#u1", Index: GSI1, Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		pages++
		for _, it := range page.Items {
			seen = append(seen, StringAttr(it, AttrSK))
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"TASK#1", "TASK#2", "TASK#3", "TASK#4", "TASK#5"}, seen)
}

func TestMemory_InvalidCursor(t *testing.T) {
	_, err := NewMemory().Query(context.Background(), Query{Partition: "TASK#u1", Cursor: "%%%"})
	require.Error(t, err)
}

func TestEntityTypeOf(t *testing.T) {
	assert.Equal(t, EntityUser, EntityTypeOf("USER#u1"))
	assert.Equal(t, EntityTask, EntityTypeOf("TASK#u1"))
	assert.Equal(t, EntityIdempotency, EntityTypeOf("IDEMPOTENCY#u1:k"))
	assert.Equal(t, "", EntityTypeOf("ORDER#1"))
}
