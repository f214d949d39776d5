package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
	"github.com/imrishuroy/go-idempotent-todo/internal/store"
)

// Repository maps tasks onto the shared table and its four indexes. It
// only offers key-shaped reads: every listing is one partition query.
type Repository struct {
	store store.Store
}

func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// Get fetches one task. A missing task is a NotFound error.
func (r *Repository) Get(ctx context.Context, userID, taskID string) (*Task, error) {
	item, err := r.store.GetItem(ctx, taskKey(userID, taskID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	var it taskItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	t := it.toTask()
	return &t, nil
}

// Create writes a new task. An existing task with the same id is a
// Conflict and is left untouched.
func (r *Repository) Create(ctx context.Context, t Task) error {
	item, err := attributevalue.MarshalMap(toItem(t))
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	err = r.store.PutItem(ctx, item, store.IfNotExists)
	if errors.Is(err, store.ErrConditionFailed) {
		return apperrors.Conflict("task already exists")
	}
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update replaces the stored task with t. Last writer wins; merging is the
// caller's job.
func (r *Repository) Update(ctx context.Context, t Task) error {
	item, err := attributevalue.MarshalMap(toItem(t))
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := r.store.PutItem(ctx, item, store.Unconditional); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete removes a task and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, userID, taskID string) (bool, error) {
	existed, err := r.store.DeleteItem(ctx, taskKey(userID, taskID))
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return existed, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID, cursor string, limit int32) (Page, error) {
	return r.list(ctx, store.Query{
		Partition: store.PrefixTask + userID,
		Predicate: store.BeginsWith(store.PrefixTask),
		Limit:     limit,
		Cursor:    cursor,
	})
}

func (r *Repository) ListByStatus(ctx context.Context, userID, status, cursor string, limit int32) (Page, error) {
	return r.list(ctx, store.Query{
		Partition: indexPartition(userID),
		Index:     store.GSI1,
		Predicate: store.BeginsWith(statusPrefix(status)),
		Limit:     limit,
		Cursor:    cursor,
	})
}

// ListByDueDateRange returns tasks due between start and end inclusive.
// An empty bound leaves that side open.
func (r *Repository) ListByDueDateRange(ctx context.Context, userID, start, end, cursor string, limit int32) (Page, error) {
	lo := store.PrefixDueDate
	if start != "" {
		lo = dueDatePrefix(start)
	}
	hi := store.PrefixDueDate + dueDateMax
	if end != "" {
		hi = dueDatePrefix(end) + dueDateMax
	}
	return r.list(ctx, store.Query{
		Partition: indexPartition(userID),
		Index:     store.GSI2,
		Predicate: store.Between(lo, hi),
		Limit:     limit,
		Cursor:    cursor,
	})
}

func (r *Repository) ListByPriority(ctx context.Context, userID, priority, cursor string, limit int32) (Page, error) {
	return r.list(ctx, store.Query{
		Partition: indexPartition(userID),
		Index:     store.GSI3,
		Predicate: store.BeginsWith(priorityPrefix(priority)),
		Limit:     limit,
		Cursor:    cursor,
	})
}

func (r *Repository) ListByCategory(ctx context.Context, userID, category, cursor string, limit int32) (Page, error) {
	return r.list(ctx, store.Query{
		Partition: indexPartition(userID),
		Index:     store.GSI4,
		Predicate: store.BeginsWith(categoryPrefix(category)),
		Limit:     limit,
		Cursor:    cursor,
	})
}

func (r *Repository) list(ctx context.Context, q store.Query) (Page, error) {
	res, err := r.store.Query(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("list tasks: %w", err)
	}
	page := Page{Tasks: make([]Task, 0, len(res.Items)), NextCursor: res.NextCursor}
	for _, item := range res.Items {
		var it taskItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return Page{}, fmt.Errorf("unmarshal task: %w", err)
		}
		page.Tasks = append(page.Tasks, it.toTask())
	}
	return page, nil
}
