package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// AccessClaims are carried by the short-lived stateless access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RefreshClaims are carried by the refresh token. The jti only guards
// against duplicate token strings; it is not checked against any blacklist —
// revocation is tracked in the refresh_tokens table instead.
type RefreshClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

// TokenManager mints and verifies both token kinds and owns the refresh
// token lifecycle (persist, validate, revoke, sweep). Access tokens are
// stateless; refresh tokens additionally have a database record so they can
// be revoked before their natural expiry.
type TokenManager struct {
	repo          *Repository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(repo *Repository, accessSecret, refreshSecret string) *TokenManager {
	return &TokenManager{
		repo:          repo,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
	}
}

func (m *TokenManager) WithTTLs(accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL > 0 {
		m.accessTTL = accessTTL
	}
	if refreshTTL > 0 {
		m.refreshTTL = refreshTTL
	}
	return m
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// GenerateAccessToken signs the user's identity with the access secret.
// No side effects.
func (m *TokenManager) GenerateAccessToken(user User) (string, error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
		Email: user.Email,
		Role:  user.Role,
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return encoded, nil
}

// GenerateRefreshToken signs a refresh token with the separate refresh
// secret. No side effects; the caller persists it with StoreRefreshToken.
func (m *TokenManager) GenerateRefreshToken(user User) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate refresh token id: %w", err)
	}

	now := time.Now().UTC()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
		TokenType: "refresh",
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return encoded, nil
}

// VerifyAccessToken checks signature and expiry only. jwt.ErrTokenExpired is
// preserved in the returned error chain so the middleware can distinguish an
// expired token from a malformed one.
func (m *TokenManager) VerifyAccessToken(tokenString string) (Identity, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	return Identity{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// VerifyRefreshToken checks signature, expiry and the refresh type marker.
// Stateless; the revocation record is checked separately by
// ValidateRefreshToken.
func (m *TokenManager) VerifyRefreshToken(tokenString string) (userID string, err error) {
	claims := &RefreshClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.refreshSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.TokenType != "refresh" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// StoreRefreshToken persists a freshly minted refresh token. The stored
// expiry is computed here, not read back from the JWT.
func (m *TokenManager) StoreRefreshToken(ctx context.Context, userID, token string) error {
	return m.repo.CreateRefreshToken(ctx, userID, token, time.Now().UTC().Add(m.refreshTTL))
}

// ValidateRefreshToken checks the server-side record: the row must exist,
// not be revoked, and not be past its expiry. Returns nil for any invalid
// token. This is deliberately independent of the signature check — a
// signature-valid token whose record was revoked must still fail.
func (m *TokenManager) ValidateRefreshToken(ctx context.Context, token string) (*RefreshTokenRecord, error) {
	record, err := m.repo.GetRefreshToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Revoked || !record.ExpiresAt.After(time.Now().UTC()) {
		return nil, nil
	}
	return record, nil
}

// RevokeRefreshToken marks the matching non-revoked row revoked and reports
// whether anything changed. Revoking an unknown or already-revoked token is
// not an error.
func (m *TokenManager) RevokeRefreshToken(ctx context.Context, token string) (bool, error) {
	return m.repo.RevokeRefreshToken(ctx, token)
}

// RevokeAllUserTokens revokes every active refresh token a user holds
// (logout everywhere).
func (m *TokenManager) RevokeAllUserTokens(ctx context.Context, userID string) (int64, error) {
	return m.repo.RevokeAllUserTokens(ctx, userID)
}

// CleanupExpiredTokens deletes rows past their expiry. Revoked-but-unexpired
// rows are kept; only the passage of time makes a row eligible.
func (m *TokenManager) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpiredRefreshTokens(ctx, time.Now().UTC())
}
