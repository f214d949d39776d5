package idempotency

import (
	"encoding/json"
	"fmt"

	"github.com/imrishuroy/go-idempotent-todo/internal/store"
)

// Status values for idempotency records. A record with no row at all is
// the implicit ABSENT state.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// IdempotencyRecord is the shape persisted under IDEMPOTENCY#{request_id}.
type IdempotencyRecord struct {
	PK               string `dynamodbav:"PK"`
	SK               string `dynamodbav:"SK"`
	EntityType       string `dynamodbav:"entity_type"`
	RequestID        string `dynamodbav:"request_id"`
	UserID           string `dynamodbav:"user_id"`
	Operation        string `dynamodbav:"operation"`
	Status           string `dynamodbav:"status"`
	ResponseSnapshot string `dynamodbav:"response_snapshot,omitempty"`
	ResultStatusCode int    `dynamodbav:"result_status_code,omitempty"`
	TargetPK         string `dynamodbav:"target_pk,omitempty"` // traceability only
	TargetSK         string `dynamodbav:"target_sk,omitempty"`
	CreatedAt        int64  `dynamodbav:"created_at"`
	UpdatedAt        int64  `dynamodbav:"updated_at"`
	ExpiresAt        int64  `dynamodbav:"expires_at"` // TTL epoch seconds
}

// Outcome is what Finalize records for a request.
type Outcome struct {
	StatusCode int
	Body       []byte
	Target     store.Key
}

// Request identifies one guarded write. Key is the client-supplied
// idempotency key; an empty Key runs the operation unguarded.
type Request struct {
	UserID    string
	Key       string
	Operation string
	// Resource narrows Operation to one entity, e.g. the task being updated.
	Resource string
}

// RequestID scopes the client key to its user. The user id is length
// prefixed so no (user, key) pair can collide with another, whatever
// either contains.
func (r Request) RequestID() string {
	return fmt.Sprintf("%d:%s:%s", len(r.UserID), r.UserID, r.Key)
}

func (r Request) fingerprint() string {
	if r.Resource == "" {
		return r.Operation
	}
	return r.Operation + "#" + r.Resource
}

// Response is the result of a guarded operation: the status code and body a
// caller sees, replayed verbatim for duplicates.
type Response struct {
	StatusCode int
	Body       json.RawMessage
	Target     store.Key
	Replayed   bool
}

// NewResponse encodes v as the response body.
func NewResponse(status int, v any, target store.Key) (Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("encode response: %w", err)
	}
	return Response{StatusCode: status, Body: b, Target: target}, nil
}

// Decode unmarshals the body into v.
func (r Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}
