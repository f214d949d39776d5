package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-idempotent-todo/internal/store"
)

func TestCreateIfAbsent_Get_Finalize(t *testing.T) {
	mem := store.NewMemory()
	r := NewRepository(mem, 24*time.Hour)
	r.nowFunc = func() time.Time { return time.Unix(1_700_000_000, 0) }

	ctx := context.Background()
	req := Request{UserID: "u1", Key: "key-1", Operation: "create_task"}
	requestID := req.RequestID()

	created, err := r.CreateIfAbsent(ctx, req)
	if err != nil {
		t.Fatalf("CreateIfAbsent error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	// second create should return created=false (exists)
	created2, err := r.CreateIfAbsent(ctx, req)
	if err != nil {
		t.Fatalf("second CreateIfAbsent error: %v", err)
	}
	if created2 {
		t.Fatalf("expected created=false on duplicate create")
	}

	rec, err := r.Get(ctx, requestID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected record, got nil")
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}
	if rec.UserID != "u1" || rec.Operation != "create_task" {
		t.Fatalf("unexpected owner %q / operation %q", rec.UserID, rec.Operation)
	}
	if rec.PK != "IDEMPOTENCY#2:u1:key-1" || rec.SK != "METADATA" {
		t.Fatalf("unexpected key %s/%s", rec.PK, rec.SK)
	}
	if rec.ExpiresAt != 1_700_000_000+24*3600 {
		t.Fatalf("expires_at = %d", rec.ExpiresAt)
	}

	err = r.Finalize(ctx, requestID, Outcome{
		StatusCode: 201,
		Body:       []byte(`{"task_id":"t1"}`),
		Target:     store.Key{PK: "TASK#u1", SK: "TASK#t1"},
	})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	// read the raw item to check attribute shapes
	item, err := mem.GetItem(ctx, store.Key{PK: "IDEMPOTENCY#2:u1:key-1", SK: "METADATA"})
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusCompleted {
		t.Fatalf("status not updated to COMPLETED, got %+v", item["status"])
	}
	if rs, ok := item["result_status_code"].(*types.AttributeValueMemberN); !ok || rs.Value != "201" {
		t.Fatalf("result_status_code not set: %+v", item["result_status_code"])
	}
	if et, ok := item["entity_type"].(*types.AttributeValueMemberS); !ok || et.Value != "IDEMPOTENCY" {
		t.Fatalf("entity_type not set: %+v", item["entity_type"])
	}

	rec, err = r.Get(ctx, requestID)
	if err != nil {
		t.Fatalf("Get after finalize: %v", err)
	}
	if rec.ResponseSnapshot != `{"task_id":"t1"}` || rec.TargetSK != "TASK#t1" {
		t.Fatalf("finalized record mismatch: %+v", rec)
	}
}

func TestGet_Missing(t *testing.T) {
	r := NewRepository(store.NewMemory(), time.Hour)

	rec, err := r.Get(context.Background(), "u1:nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestFinalize_MissingPlaceholder(t *testing.T) {
	mem := store.NewMemory()
	r := NewRepository(mem, time.Hour)
	ctx := context.Background()
	requestID := Request{UserID: "u1", Key: "gone"}.RequestID()

	err := r.Finalize(ctx, requestID, Outcome{StatusCode: 201, Body: []byte(`{}`)})
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}

	rec, err := r.Get(ctx, requestID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec != nil {
		t.Fatalf("finalize must not create a record, got %+v", rec)
	}
}
