package services

import (
	"context"
	"testing"

	"messaging-service/internal/models"
	apperrors "messaging-service/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, &models.RegisterRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.IsActive)

	resp, err := env.users.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithoutClaimsValidation()) // minted on the fixed test clock
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, models.RoleUser, claims["role"])
}

func TestCreateAdmin(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	admin, err := env.users.CreateAdmin(ctx, &models.RegisterRequest{
		Username: "root",
		Email:    "root@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	resp, err := env.users.Login(ctx, &models.LoginRequest{Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	req := &models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"}

	_, err := env.users.Register(ctx, req)
	require.NoError(t, err)

	req.Username = "alice2"
	_, err = env.users.Register(ctx, req)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestLogin_Rejections(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	user, err := env.users.Register(ctx, &models.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = env.users.Login(ctx, &models.LoginRequest{Email: "bob@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.users.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.users.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	_, err = env.users.Login(ctx, &models.LoginRequest{Email: "bob@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestActiveUserResolver(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	a := env.user(t, "a")
	b := env.user(t, "b")

	resp, err := env.users.SetActive(ctx, b, false)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	ok, err := env.users.IsActiveUser(ctx, a)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.users.IsActiveUser(ctx, b)
	require.NoError(t, err)
	assert.False(t, ok)

	set, err := env.users.AreActiveUsers(ctx, []string{a, b, "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{a: {}}, set)

	_, err = env.users.SetActive(ctx, "missing", true)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
