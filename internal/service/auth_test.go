package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/notify"
	"github.com/rongwang/buildtrue-server/internal/repository"
	"github.com/rongwang/buildtrue-server/internal/service"
	"github.com/rongwang/buildtrue-server/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret-key"), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestSignUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SignUp(ctx, models.SignUpRequest{Name: "Jane", Email: " Jane@Example.com ", Password: "pw", Phone: "1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, resp.User.Role)
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token)

	claims := parseClaims(t, resp.Token)
	assert.Equal(t, resp.User.ID, claims["sub"])
	assert.Equal(t, "Client", claims["role"])
	_, hasExp := claims["exp"]
	assert.False(t, hasExp, "tokens carry no expiry by default")

	_, err = f.svc.SignUp(ctx, models.SignUpRequest{Name: "Jane", Email: "jane@example.com", Password: "pw", Phone: "1"})
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = f.svc.SignUp(ctx, models.SignUpRequest{Email: "x@example.com", Password: "pw"})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestLoginRoleFromCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	client := f.signUpClient(t, "client@example.com")

	// a client promoted in storage still logs in as Client
	user, err := f.repo.GetUserByID(ctx, client.ID)
	require.NoError(t, err)
	user.Role = models.RoleAdmin
	require.NoError(t, f.repo.UpdateUser(ctx, user))

	resp, err := f.svc.Login(ctx, models.LoginRequest{Email: "client@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, resp.User.Role)
	assert.Equal(t, "Client", parseClaims(t, resp.Token)["role"])

	// the configured pair is Admin even when stored as Client
	admin, err := f.repo.GetUserByEmail(ctx, adminEmail)
	require.NoError(t, err)
	admin.Role = models.RoleClient
	require.NoError(t, f.repo.UpdateUser(ctx, admin))

	resp, err = f.svc.Login(ctx, models.LoginRequest{Email: "ADMIN123@gmail.com", Password: adminPassword})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Equal(t, "Admin", parseClaims(t, resp.Token)["role"])
}

func TestLoginRoleFromStorage(t *testing.T) {
	f := newFixture(t, func(o *service.Options) { o.RoleSource = service.RoleSourceStored })
	ctx := context.Background()

	client := f.signUpClient(t, "client@example.com")
	user, err := f.repo.GetUserByID(ctx, client.ID)
	require.NoError(t, err)
	user.Role = models.RoleAdmin
	require.NoError(t, f.repo.UpdateUser(ctx, user))

	resp, err := f.svc.Login(ctx, models.LoginRequest{Email: "client@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUpClient(t, "client@example.com")

	_, err := f.svc.Login(ctx, models.LoginRequest{Email: "client@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "secret-pass"})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestTokenExpiryWhenConfigured(t *testing.T) {
	f := newFixture(t, func(o *service.Options) { o.TokenTTL = 2 * time.Hour })

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Email: adminEmail, Password: adminPassword})
	require.NoError(t, err)

	exp, ok := parseClaims(t, resp.Token)["exp"].(float64)
	require.True(t, ok)
	assert.InDelta(t, time.Now().Add(2*time.Hour).Unix(), int64(exp), 5)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, created, err := f.svc.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, f.admin.ID, user.ID)

	// a drifted password and role are restored from configuration
	user.Role = models.RoleClient
	user.Password = "not-a-hash"
	require.NoError(t, f.repo.UpdateUser(ctx, user))

	_, created, err = f.svc.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := f.repo.GetUserByID(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stored.Role)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: adminEmail, Password: adminPassword})
	assert.NoError(t, err)
}

func TestNoAdminWithoutConfiguredPair(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := service.NewDefaultService(repo, nil, &notify.RecordingMailer{}, service.Options{
		JWTSecret: "test-secret-key",
		Logger:    utils.Discard(),
	})
	ctx := context.Background()

	user, created, err := svc.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.False(t, created)

	stored, err := repo.GetUserByEmail(ctx, adminEmail)
	require.NoError(t, err)
	assert.Nil(t, stored)

	// an account registered under the well-known address stays a client
	_, err = svc.SignUp(ctx, models.SignUpRequest{Name: "Squatter", Email: adminEmail, Password: adminPassword, Phone: "0400000000"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, models.LoginRequest{Email: adminEmail, Password: adminPassword})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, resp.User.Role)
	assert.Equal(t, string(models.RoleClient), parseClaims(t, resp.Token)["role"])
}
