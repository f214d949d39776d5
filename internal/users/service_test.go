package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
	"github.com/imrishuroy/go-idempotent-todo/internal/identity"
	"github.com/imrishuroy/go-idempotent-todo/internal/idempotency"
	"github.com/imrishuroy/go-idempotent-todo/internal/store"
	"github.com/imrishuroy/go-idempotent-todo/internal/validation"
)

func newTestService(mem *store.Memory) *Service {
	guard := idempotency.NewGuard(idempotency.NewRepository(mem, time.Hour), nil, nil)
	svc := NewService(NewRepository(mem), guard, validation.New(), nil)
	svc.nowFunc = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return svc
}

func TestEnsureUser_CreatesOnceAndKeepsProfile(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := newTestService(mem)
	claims := identity.Claims{SubjectID: "u1", Email: "a@x.com", Name: "A"}

	first, err := svc.EnsureUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "u1", first.UserID)
	assert.Equal(t, "A", first.DisplayName)

	second, err := svc.EnsureUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	name := "Edited"
	_, err = svc.UpdateProfile(ctx, "u1", ProfileInput{DisplayName: &name}, "")
	require.NoError(t, err)

	// stale claims do not clobber the edited profile
	third, err := svc.EnsureUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "Edited", third.DisplayName)

	item, err := mem.GetItem(ctx, store.Key{PK: "USER#u1", SK: "METADATA"})
	require.NoError(t, err)
	assert.Equal(t, "USER", store.StringAttr(item, "entity_type"))
}

func TestUpdateProfile_GuardedAndValidated(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(store.NewMemory())
	_, err := svc.EnsureUser(ctx, identity.Claims{SubjectID: "u1", Email: "a@x.com", Name: "A"})
	require.NoError(t, err)

	bad := "nope"
	_, err = svc.UpdateProfile(ctx, "u1", ProfileInput{Email: &bad}, "")
	assert.True(t, apperrors.IsValidation(err))

	email := "new@x.com"
	first, err := svc.UpdateProfile(ctx, "u1", ProfileInput{Email: &email}, "p1")
	require.NoError(t, err)
	replay, err := svc.UpdateProfile(ctx, "u1", ProfileInput{Email: &email}, "p1")
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, string(first.Body), string(replay.Body))

	var u User
	require.NoError(t, replay.Decode(&u))
	assert.Equal(t, "new@x.com", u.Email)
}

func TestUpdateProfile_MissingUser(t *testing.T) {
	svc := newTestService(store.NewMemory())
	name := "x"
	_, err := svc.UpdateProfile(context.Background(), "ghost", ProfileInput{DisplayName: &name}, "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(store.NewMemory())
	_, err := svc.EnsureUser(ctx, identity.Claims{SubjectID: "u1", Email: "a@x.com", Name: "A"})
	require.NoError(t, err)

	deleted, err := svc.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.GetUser(ctx, "u1")
	assert.True(t, apperrors.IsNotFound(err))

	deleted, err = svc.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, deleted)
}
