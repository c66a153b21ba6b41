package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-server/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(database))
	return database
}

func newTestTokens(t *testing.T) (*TokenManager, *Repository) {
	t.Helper()

	repo := NewRepository(newTestDB(t)).WithBcryptCost(4)
	tokens := NewTokenManager(repo, "access-secret", "refresh-secret")
	return tokens, repo
}

func createTestUser(t *testing.T, repo *Repository, email string) User {
	t.Helper()

	user, err := repo.CreateUser(context.Background(), email, "Password1", "Test User", RoleUser)
	require.NoError(t, err)
	return user
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")

	encoded, err := tokens.GenerateAccessToken(user)
	require.NoError(t, err)

	identity, err := tokens.VerifyAccessToken(encoded)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.ID)
	assert.Equal(t, user.Email, identity.Email)
	assert.Equal(t, RoleUser, identity.Role)
}

func TestAccessTokenExpired(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Email: user.Email,
		Role:  user.Role,
	}
	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = tokens.VerifyAccessToken(encoded)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")

	encoded, err := tokens.GenerateAccessToken(user)
	require.NoError(t, err)

	other := NewTokenManager(repo, "different-secret", "refresh-secret")
	_, err = other.VerifyAccessToken(encoded)
	assert.Error(t, err)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")

	// An access token is signed with the wrong secret and carries no
	// typ claim, so it must never pass refresh verification.
	encoded, err := tokens.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = tokens.VerifyRefreshToken(encoded)
	assert.Error(t, err)
}

func TestRefreshTokenTypeMarker(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")

	// Sign a token with the refresh secret but without typ=refresh.
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("refresh-secret"))
	require.NoError(t, err)

	_, err = tokens.VerifyRefreshToken(encoded)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRefreshTokenRecord(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")
	ctx := context.Background()

	encoded, err := tokens.GenerateRefreshToken(user)
	require.NoError(t, err)
	require.NoError(t, tokens.StoreRefreshToken(ctx, user.ID, encoded))

	record, err := tokens.ValidateRefreshToken(ctx, encoded)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, user.ID, record.UserID)

	// Unknown token has no record.
	record, err = tokens.ValidateRefreshToken(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, record)

	// Revocation defeats a signature-valid token.
	changed, err := tokens.RevokeRefreshToken(ctx, encoded)
	require.NoError(t, err)
	assert.True(t, changed)

	record, err = tokens.ValidateRefreshToken(ctx, encoded)
	require.NoError(t, err)
	assert.Nil(t, record)

	// Revoking again changes nothing but is not an error.
	changed, err = tokens.RevokeRefreshToken(ctx, encoded)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestCleanupDeletesOnlyExpired(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "expired-active", now.Add(-time.Hour)))
	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "expired-revoked", now.Add(-time.Hour)))
	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "live-active", now.Add(time.Hour)))
	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "live-revoked", now.Add(time.Hour)))

	_, err := repo.RevokeRefreshToken(ctx, "expired-revoked")
	require.NoError(t, err)
	_, err = repo.RevokeRefreshToken(ctx, "live-revoked")
	require.NoError(t, err)

	deleted, err := tokens.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	// Revoked-but-unexpired rows survive the sweep.
	record, err := repo.GetRefreshToken(ctx, "live-revoked")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Revoked)

	record, err = repo.GetRefreshToken(ctx, "expired-active")
	require.NoError(t, err)
	assert.Nil(t, record)
}
