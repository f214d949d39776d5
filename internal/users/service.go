package users

import (
	"context"
	"net/http"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
	"github.com/imrishuroy/go-idempotent-todo/internal/identity"
	"github.com/imrishuroy/go-idempotent-todo/internal/idempotency"
	"github.com/imrishuroy/go-idempotent-todo/internal/validation"
)

const OpUpdateProfile = "update_profile"

type Service struct {
	repo     *Repository
	guard    *idempotency.Guard
	validate *validatorv10.Validate
	logger   *zap.Logger
	nowFunc  func() time.Time
}

func NewService(repo *Repository, guard *idempotency.Guard, v *validatorv10.Validate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, guard: guard, validate: v, logger: logger, nowFunc: time.Now}
}

// EnsureUser returns the stored user for the claims, creating it on first
// contact. An existing profile is never overwritten from claims.
func (s *Service) EnsureUser(ctx context.Context, c identity.Claims) (*User, error) {
	u, err := s.repo.Get(ctx, c.SubjectID)
	if err == nil {
		return u, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	now := s.nowFunc().Unix()
	created := User{
		UserID:      c.SubjectID,
		Email:       c.Email,
		DisplayName: c.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, created); err != nil {
		return nil, err
	}
	s.logger.Info("user provisioned from claims", zap.String("user_id", created.UserID))
	return &created, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.repo.Get(ctx, userID)
}

// UpdateProfile changes the provided profile fields.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput, idempotencyKey string) (idempotency.Response, error) {
	req := idempotency.Request{UserID: userID, Key: idempotencyKey, Operation: OpUpdateProfile}

	return s.guard.Execute(ctx, req, func(ctx context.Context) (idempotency.Response, error) {
		if err := validation.Struct(s.validate, in); err != nil {
			return idempotency.Response{}, err
		}

		u, err := s.repo.Get(ctx, userID)
		if err != nil {
			return idempotency.Response{}, err
		}
		if in.Email != nil {
			u.Email = *in.Email
		}
		if in.DisplayName != nil {
			u.DisplayName = *in.DisplayName
		}
		u.UpdatedAt = s.nowFunc().Unix()

		if err := s.repo.Put(ctx, *u); err != nil {
			return idempotency.Response{}, err
		}
		return idempotency.NewResponse(http.StatusOK, u, userKey(userID))
	})
}

// DeleteUser removes the user item only; callers delete the user's tasks.
func (s *Service) DeleteUser(ctx context.Context, userID string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return false, err
	}
	s.logger.Info("user deleted", zap.String("user_id", userID), zap.Bool("existed", deleted))
	return deleted, nil
}
