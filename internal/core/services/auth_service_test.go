package services

import (
	"context"
	"testing"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func register(t *testing.T, f *fixture, username string) *AuthResponse {
	t.Helper()
	resp, err := f.svc.Auth.Register(context.Background(), &RegisterInput{
		Username: username,
		Email:    username + "@Example.com",
		Phone:    "0712345678",
		Password: "password123",
	})
	require.NoError(t, err)
	return resp
}

func TestAuthService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp := register(t, f, "alice")
	assert.Equal(t, "alice", resp.Member.Username)
	assert.Equal(t, "alice@example.com", resp.Member.Email)
	assert.Equal(t, domain.RoleMember, resp.Member.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := f.svc.Auth.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Member.ID, claims.MemberID)
	assert.Equal(t, "member", claims.Role)

	_, err = f.svc.Auth.Register(ctx, &RegisterInput{Username: "alice", Email: "other@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = f.svc.Auth.Register(ctx, &RegisterInput{Username: "alice2", Email: "ALICE@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = f.svc.Auth.Register(ctx, &RegisterInput{Username: "bob", Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Auth.Register(ctx, &RegisterInput{Username: "treasurer", Email: "t@example.com", Password: "Treasurer"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	register(t, f, "alice")

	resp, err := f.svc.Auth.Login(ctx, &LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Member.Username)

	_, err = f.svc.Auth.Login(ctx, &LoginInput{Username: "alice", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Auth.Login(ctx, &LoginInput{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_UpgradesHashCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "alice", domain.RoleMember)

	legacy, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost+1)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Member{}).Where("id = ?", alice.MemberID).Update("password", string(legacy)).Error)

	_, err = f.svc.Auth.Login(ctx, &LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	var stored models.Member
	require.NoError(t, f.db.First(&stored, alice.MemberID).Error)
	cost, err := bcrypt.Cost([]byte(stored.Password))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	_, err = f.svc.Auth.Login(ctx, &LoginInput{Username: "alice", Password: "password123"})
	assert.NoError(t, err, "upgraded hash still verifies")
}

func TestAuthService_RefreshRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := register(t, f, "alice")

	second, err := f.svc.Auth.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.Auth.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked, "refresh tokens are single use")

	require.NoError(t, f.svc.Auth.Logout(ctx, second.RefreshToken))
	_, err = f.svc.Auth.RefreshToken(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.svc.Auth.RefreshToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_LogoutAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := register(t, f, "alice")
	second, err := f.svc.Auth.Login(ctx, &LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Auth.LogoutAll(ctx, first.Member.ID))

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		_, err := f.svc.Auth.RefreshToken(ctx, token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	}

	n, err := f.svc.Auth.PurgeExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "revoked but unexpired tokens are kept")
}
