package store

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
)

// RetryConfig bounds the exponential backoff around every store call.
type RetryConfig struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 4, BaseDelay: 50 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// isRetryable reports whether err is a throughput or transport failure.
// Condition failures and validation errors never are.
func isRetryable(err error) bool {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ServiceUnavailable", "Throttling", "ThrottlingException", "RequestTimeout", "RequestLimitExceeded":
			return true
		}
		return false
	}

	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// withRetry runs fn with bounded exponential backoff. Retryable errors that
// outlast the attempt budget surface as apperrors.Transient.
func withRetry[T any](ctx context.Context, cfg RetryConfig, logger *zap.Logger, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BaseDelay
	b.Multiplier = 2
	if cfg.MaxDelay > 0 {
		b.MaxInterval = cfg.MaxDelay
	}

	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	out, err := backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !isRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("store call failed, retrying",
				zap.String("op", op),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil && isRetryable(err) {
		return out, apperrors.Transient("store unavailable", err)
	}
	return out, err
}
