package services

import (
	"context"
	"testing"

	"github.com/revocity/revocity/api/apperr"
	"github.com/revocity/revocity/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService_RegisterAssignsUserRoleOnce(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, zap.NewNop())
	ctx := context.Background()

	user, role, err := svc.Register(ctx, "u-1", RegisterInput{Email: " a@example.com ", DisplayName: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)
	require.NotNil(t, user.Email)
	assert.Equal(t, "a@example.com", *user.Email)

	require.NoError(t, store.SetRole(ctx, "u-1", models.RoleAdmin))

	_, role, err = svc.Register(ctx, "u-1", RegisterInput{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	_, _, err = svc.Register(ctx, "", RegisterInput{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUserService_Authorize(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, store.SetRole(ctx, "boss", models.RoleAdmin))
	require.NoError(t, store.SetRole(ctx, "citizen", models.RoleUser))

	assert.NoError(t, svc.Authorize(ctx, "boss", ActionRunEscalation))
	assert.ErrorIs(t, svc.Authorize(ctx, "citizen", ActionRunEscalation), apperr.ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "ghost", ActionUpdateComplaint), apperr.ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "", ActionUpdateComplaint), apperr.ErrUnauthorized)
}

func TestUserService_RoleManagement(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, store.SetRole(ctx, "boss", models.RoleAdmin))
	_, _, err := svc.Register(ctx, "u-1", RegisterInput{})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.AssignRole(ctx, "u-1", "u-1", models.RoleAdmin), apperr.ErrForbidden)
	assert.ErrorIs(t, svc.AssignRole(ctx, "boss", "u-1", models.Role("owner")), apperr.ErrValidation)
	assert.ErrorIs(t, svc.AssignRole(ctx, "boss", "boss", models.RoleUser), apperr.ErrBadRequest)

	require.NoError(t, svc.AssignRole(ctx, "boss", "u-1", models.RoleAdmin))
	role, err := svc.RoleOf(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	users, err := svc.ListUsers(ctx, "boss")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)

	assert.ErrorIs(t, svc.RemoveRole(ctx, "boss", "boss"), apperr.ErrBadRequest)
	require.NoError(t, svc.RemoveRole(ctx, "boss", "u-1"))
	assert.ErrorIs(t, svc.RemoveRole(ctx, "boss", "u-1"), apperr.ErrNotFound)

	role, err = svc.RoleOf(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.Role(""), role)
}
