package idempotency

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
	"github.com/imrishuroy/go-idempotent-todo/internal/metrics"
)

// Operation is the write a Guard protects.
type Operation func(ctx context.Context) (Response, error)

// Guard gives a write at-most-once effect per idempotency key. The
// conditional create of the placeholder record is the only lock: whoever
// creates it runs the operation, everyone else replays or gets a conflict.
//
// A process that dies between the operation and Finalize leaves the record
// IN_PROGRESS until TTL removes it; retries meanwhile get a conflict.
type Guard struct {
	repo    *Repository
	metrics metrics.Recorder
	logger  *zap.Logger
}

func NewGuard(repo *Repository, recorder metrics.Recorder, logger *zap.Logger) *Guard {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{repo: repo, metrics: recorder, logger: logger}
}

// Execute runs op at most once for req. Duplicates of a completed request
// get the recorded response, or the recorded error, instead of a new run.
func (g *Guard) Execute(ctx context.Context, req Request, op Operation) (Response, error) {
	if req.Key == "" {
		return op(ctx)
	}

	requestID := req.RequestID()
	log := g.logger.With(zap.String("request_id", requestID), zap.String("operation", req.Operation))

	created, err := g.repo.CreateIfAbsent(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if !created {
		return g.replay(ctx, req, log)
	}
	log.Debug("idempotency placeholder created")

	resp, opErr := op(ctx)

	out := Outcome{StatusCode: resp.StatusCode, Body: resp.Body, Target: resp.Target}
	if opErr != nil {
		out = Outcome{StatusCode: apperrors.Status(opErr), Body: apperrors.Body(opErr)}
	}
	if err := g.repo.Finalize(ctx, requestID, out); err != nil {
		log.Error("failed to finalize idempotency record", zap.Error(err))
	}

	return resp, opErr
}

func (g *Guard) replay(ctx context.Context, req Request, log *zap.Logger) (Response, error) {
	rec, err := g.repo.Get(ctx, req.RequestID())
	if err != nil {
		return Response{}, err
	}

	dims := map[string]string{"Operation": req.Operation}
	switch {
	case rec == nil:
		// expired between the failed create and this read
		g.metrics.Count(ctx, metrics.IdempotentConflict, 1, dims)
		return Response{}, apperrors.Conflict("idempotency record changed concurrently, retry the request")
	case rec.UserID != req.UserID:
		log.Warn("idempotency record belongs to another user")
		g.metrics.Count(ctx, metrics.IdempotentConflict, 1, dims)
		return Response{}, apperrors.Conflict("idempotency key was already used for a different operation")
	case rec.Operation != req.fingerprint():
		log.Warn("idempotency key reused for a different operation", zap.String("recorded_operation", rec.Operation))
		g.metrics.Count(ctx, metrics.IdempotentConflict, 1, dims)
		return Response{}, apperrors.Conflict("idempotency key was already used for a different operation")
	case rec.Status != StatusCompleted:
		log.Info("concurrent duplicate rejected")
		g.metrics.Count(ctx, metrics.IdempotentConflict, 1, dims)
		return Response{}, apperrors.Conflict("a request with this idempotency key is still in progress")
	}

	log.Info("replaying recorded response", zap.Int("status", rec.ResultStatusCode))
	g.metrics.Count(ctx, metrics.IdempotentReplay, 1, dims)

	if rec.ResultStatusCode >= 400 {
		return Response{}, apperrors.FromSnapshot(rec.ResultStatusCode, []byte(rec.ResponseSnapshot))
	}
	resp := Response{
		StatusCode: rec.ResultStatusCode,
		Body:       json.RawMessage(rec.ResponseSnapshot),
		Replayed:   true,
	}
	resp.Target.PK, resp.Target.SK = rec.TargetPK, rec.TargetSK
	return resp, nil
}
