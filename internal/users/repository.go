package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
	"github.com/imrishuroy/go-idempotent-todo/internal/store"
)

// Repository stores one item per user under USER#{user_id}/METADATA.
type Repository struct {
	store store.Store
}

func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

func userKey(userID string) store.Key {
	return store.Key{PK: store.PrefixUser + userID, SK: store.SortMetadata}
}

// Get fetches a user. A missing user is a NotFound error.
func (r *Repository) Get(ctx context.Context, userID string) (*User, error) {
	item, err := r.store.GetItem(ctx, userKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var it userItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &User{
		UserID:      it.UserID,
		Email:       it.Email,
		DisplayName: it.DisplayName,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}, nil
}

// Put writes the user unconditionally. Writing the same user twice leaves
// one item with the same content.
func (r *Repository) Put(ctx context.Context, u User) error {
	key := userKey(u.UserID)
	item, err := attributevalue.MarshalMap(userItem{
		PK:          key.PK,
		SK:          key.SK,
		EntityType:  store.EntityUser,
		UserID:      u.UserID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := r.store.PutItem(ctx, item, store.Unconditional); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// Delete removes a user and reports whether it existed. Tasks are not
// touched.
func (r *Repository) Delete(ctx context.Context, userID string) (bool, error) {
	existed, err := r.store.DeleteItem(ctx, userKey(userID))
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return existed, nil
}
