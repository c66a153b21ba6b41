package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// Service drives the auth lifecycle: registration, credential login, refresh
// and revocation. Token mechanics live in TokenManager; user rows in
// Repository.
type Service struct {
	repo   *Repository
	tokens *TokenManager
}

func NewService(repo *Repository, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

func (s *Service) Tokens() *TokenManager { return s.tokens }

// TokenPair bundles what login and registration hand back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Register creates the user, issues a token pair and records the login.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (User, TokenPair, error) {
	user, err := s.repo.CreateUser(ctx, email, password, displayName, RoleUser)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (User, TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, TokenPair{}, ErrInvalidCredentials
		}
		return User{}, TokenPair{}, err
	}

	if !s.repo.VerifyPassword(user, password) {
		return User{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	return user, pair, nil
}

func (s *Service) issue(ctx context.Context, user User) (TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(user)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.tokens.StoreRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return TokenPair{}, err
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh mints a new access token for a refresh token that passes BOTH the
// signature check and the server-side record check. A token that verifies
// cryptographically but was revoked (or never stored) fails; so does a
// record-valid string whose signature no longer verifies after a secret
// rotation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (User, string, error) {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return User{}, "", ErrInvalidRefreshToken
	}

	record, err := s.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return User{}, "", fmt.Errorf("validate refresh token: %w", err)
	}
	if record == nil {
		return User{}, "", ErrInvalidRefreshToken
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, "", ErrUserNotFound
		}
		return User{}, "", err
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return User{}, "", err
	}
	return user, accessToken, nil
}

// Logout revokes the presented refresh token. Idempotent: unknown or
// already-revoked tokens succeed silently.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, err := s.tokens.RevokeRefreshToken(ctx, refreshToken)
	return err
}

// LogoutAll revokes every active refresh token the user holds.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int64, error) {
	return s.tokens.RevokeAllUserTokens(ctx, userID)
}

// CurrentUser loads the full profile behind an authenticated identity.
func (s *Service) CurrentUser(ctx context.Context, userID string) (User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}
