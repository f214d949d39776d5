package tasks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
	"github.com/imrishuroy/go-idempotent-todo/internal/idempotency"
	"github.com/imrishuroy/go-idempotent-todo/internal/validation"
)

// Operation names recorded on idempotency records.
const (
	OpCreateTask = "create_task"
	OpUpdateTask = "update_task"
)

const defaultPageSize int32 = 20

// Service applies task business rules. Creates and updates run inside the
// idempotency guard, validation included, so a replay of a rejected request
// is rejected the same way.
type Service struct {
	repo     *Repository
	guard    *idempotency.Guard
	validate *validatorv10.Validate
	logger   *zap.Logger
	nowFunc  func() time.Time
	newID    func() string
}

func NewService(repo *Repository, guard *idempotency.Guard, v *validatorv10.Validate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		guard:    guard,
		validate: v,
		logger:   logger,
		nowFunc:  time.Now,
		newID:    uuid.NewString,
	}
}

// DecodeTask reads the task out of a create or update response.
func DecodeTask(resp idempotency.Response) (Task, error) {
	var t Task
	if err := resp.Decode(&t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	return t, nil
}

// CreateTask creates a task for userID. With a non-empty idempotencyKey a
// repeated call returns the first call's response instead of a second task.
func (s *Service) CreateTask(ctx context.Context, userID string, in CreateInput, idempotencyKey string) (idempotency.Response, error) {
	req := idempotency.Request{UserID: userID, Key: idempotencyKey, Operation: OpCreateTask}

	return s.guard.Execute(ctx, req, func(ctx context.Context) (idempotency.Response, error) {
		if err := validation.Struct(s.validate, in); err != nil {
			return idempotency.Response{}, err
		}

		now := s.nowFunc().Unix()
		t := Task{
			TaskID:      s.newID(),
			UserID:      userID,
			Title:       in.Title,
			Description: in.Description,
			Status:      in.Status,
			Priority:    in.Priority,
			Category:    in.Category,
			DueDate:     in.DueDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if t.Status == "" {
			t.Status = StatusPending
		}
		if t.Priority == "" {
			t.Priority = PriorityMedium
		}

		if err := s.repo.Create(ctx, t); err != nil {
			return idempotency.Response{}, err
		}
		s.logger.Info("task created", zap.String("user_id", userID), zap.String("task_id", t.TaskID))

		return idempotency.NewResponse(http.StatusCreated, t, taskKey(userID, t.TaskID))
	})
}

// UpdateTask merges the provided fields into the stored task.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, in UpdateInput, idempotencyKey string) (idempotency.Response, error) {
	req := idempotency.Request{UserID: userID, Key: idempotencyKey, Operation: OpUpdateTask, Resource: taskID}

	return s.guard.Execute(ctx, req, func(ctx context.Context) (idempotency.Response, error) {
		if err := validation.Struct(s.validate, in); err != nil {
			return idempotency.Response{}, err
		}

		current, err := s.repo.Get(ctx, userID, taskID)
		if err != nil {
			return idempotency.Response{}, err
		}

		next, err := merge(*current, in, s.nowFunc().Unix())
		if err != nil {
			return idempotency.Response{}, err
		}

		if err := s.repo.Update(ctx, next); err != nil {
			return idempotency.Response{}, err
		}
		s.logger.Info("task updated",
			zap.String("user_id", userID),
			zap.String("task_id", taskID),
			zap.String("status", next.Status),
		)

		return idempotency.NewResponse(http.StatusOK, next, taskKey(userID, taskID))
	})
}

// merge applies in to t. completed_at is stamped on the transition to
// completed, kept while the task stays completed and cleared otherwise.
func merge(t Task, in UpdateInput, now int64) (Task, error) {
	wasCompleted := t.Status == StatusCompleted

	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.DueDate != nil {
		t.DueDate = *in.DueDate
	}
	if in.Status != nil {
		if wasCompleted && *in.Status != StatusCompleted {
			return Task{}, apperrors.Validationf("status", "a completed task cannot be moved to %s", *in.Status)
		}
		t.Status = *in.Status
	}

	switch {
	case t.Status != StatusCompleted:
		t.CompletedAt = nil
	case !wasCompleted || t.CompletedAt == nil:
		t.CompletedAt = &now
	}
	t.UpdatedAt = now
	return t, nil
}

// DeleteTask removes a task. Deleting a missing task is not an error; the
// returned flag tells the two cases apart.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, userID, taskID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("task deleted", zap.String("user_id", userID), zap.String("task_id", taskID))
	} else {
		s.logger.Info("task already absent on delete", zap.String("user_id", userID), zap.String("task_id", taskID))
	}
	return deleted, nil
}

// DeleteAllTasks removes every task of userID and returns how many existed.
func (s *Service) DeleteAllTasks(ctx context.Context, userID string) (int, error) {
	var deleted int
	for {
		// deletes shift the listing, so always read the first page
		page, err := s.repo.ListByUser(ctx, userID, "", 100)
		if err != nil {
			return deleted, err
		}
		if len(page.Tasks) == 0 {
			return deleted, nil
		}
		for _, t := range page.Tasks {
			ok, err := s.repo.Delete(ctx, userID, t.TaskID)
			if err != nil {
				return deleted, err
			}
			if ok {
				deleted++
			}
		}
	}
}

func (s *Service) GetTask(ctx context.Context, userID, taskID string) (*Task, error) {
	return s.repo.Get(ctx, userID, taskID)
}

// ListTasks returns one page of the user's tasks, using the index that
// matches the filter.
func (s *Service) ListTasks(ctx context.Context, userID string, f ListFilter) (Page, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	switch {
	case f.Status != "":
		return s.repo.ListByStatus(ctx, userID, f.Status, f.Cursor, limit)
	case f.Priority != "":
		return s.repo.ListByPriority(ctx, userID, f.Priority, f.Cursor, limit)
	case f.Category != "":
		return s.repo.ListByCategory(ctx, userID, f.Category, f.Cursor, limit)
	case f.DueFrom != "" || f.DueTo != "":
		return s.repo.ListByDueDateRange(ctx, userID, f.DueFrom, f.DueTo, f.Cursor, limit)
	default:
		return s.repo.ListByUser(ctx, userID, f.Cursor, limit)
	}
}
