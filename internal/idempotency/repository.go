package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/imrishuroy/go-idempotent-todo/internal/store"
)

// Repository persists idempotency records in the shared table.
type Repository struct {
	store     store.Store
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewRepository returns a Repository whose records expire ttlWindow after
// creation (e.g. 24*time.Hour).
func NewRepository(st store.Store, ttlWindow time.Duration) *Repository {
	return &Repository{
		store:     st,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

func recordKey(requestID string) store.Key {
	return store.Key{PK: store.PrefixIdempotency + requestID, SK: store.SortMetadata}
}

// Get retrieves a record by request id. If not found, returns (nil, nil).
func (r *Repository) Get(ctx context.Context, requestID string) (*IdempotencyRecord, error) {
	item, err := r.store.GetItem(ctx, recordKey(requestID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	var rec IdempotencyRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal idempotency record: %w", err)
	}
	return &rec, nil
}

// CreateIfAbsent writes an IN_PROGRESS placeholder if no record exists.
// Returns (created=true, nil) if this caller now owns the request id.
// Returns (created=false, nil) if the record already exists (caller should Get to inspect).
func (r *Repository) CreateIfAbsent(ctx context.Context, req Request) (bool, error) {
	now := r.nowFunc()
	requestID := req.RequestID()
	key := recordKey(requestID)
	rec := IdempotencyRecord{
		PK:         key.PK,
		SK:         key.SK,
		EntityType: store.EntityIdempotency,
		RequestID:  requestID,
		UserID:     req.UserID,
		Operation:  req.fingerprint(),
		Status:     StatusInProgress,
		CreatedAt:  now.Unix(),
		UpdatedAt:  now.Unix(),
		ExpiresAt:  now.Add(r.ttlWindow).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal idempotency record: %w", err)
	}

	err = r.store.PutItem(ctx, item, store.IfNotExists)
	if errors.Is(err, store.ErrConditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create idempotency record: %w", err)
	}
	return true, nil
}

// Finalize records the outcome of the operation and moves the record to
// COMPLETED. The snapshot is written once and never changed afterwards.
// The placeholder must still exist: a record that expired meanwhile is not
// recreated without its TTL.
func (r *Repository) Finalize(ctx context.Context, requestID string, out Outcome) error {
	set := map[string]any{
		"status":             StatusCompleted,
		"response_snapshot":  string(out.Body),
		"result_status_code": out.StatusCode,
		"updated_at":         r.nowFunc().Unix(),
	}
	if out.Target.PK != "" {
		set["target_pk"] = out.Target.PK
		set["target_sk"] = out.Target.SK
	}
	if err := r.store.UpdateItem(ctx, recordKey(requestID), set, store.IfExists); err != nil {
		return fmt.Errorf("finalize idempotency record: %w", err)
	}
	return nil
}
