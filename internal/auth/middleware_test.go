package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(sawIdentity *Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := FromContext(r.Context()); ok && sawIdentity != nil {
			*sawIdentity = identity
		}
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func TestMiddlewareMissingToken(t *testing.T) {
	tokens, _ := newTestTokens(t)
	handler := Middleware(tokens)(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REQUIRED", errorCode(t, rec))
}

func TestMiddlewareMalformedHeader(t *testing.T) {
	tokens, _ := newTestTokens(t)
	handler := Middleware(tokens)(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REQUIRED", errorCode(t, rec))
}

func TestMiddlewareInvalidToken(t *testing.T) {
	tokens, _ := newTestTokens(t)
	handler := Middleware(tokens)(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
}

func TestMiddlewareExpiredToken(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")
	handler := Middleware(tokens)(okHandler(nil))

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Email: user.Email,
		Role:  user.Role,
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", errorCode(t, rec))
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")

	var seen Identity
	handler := Middleware(tokens)(okHandler(&seen))

	token, err := tokens.GenerateAccessToken(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, seen.ID)
	assert.Equal(t, user.Email, seen.Email)
}

func TestOptionalMiddleware(t *testing.T) {
	tokens, repo := newTestTokens(t)
	user := createTestUser(t, repo, "alice@example.com")

	var seen Identity
	handler := OptionalMiddleware(tokens)(okHandler(&seen))

	// Without a token the request still goes through.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, seen.ID)

	// With a valid token the identity is attached.
	token, err := tokens.GenerateAccessToken(user)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, seen.ID)
}

func TestRequireRole(t *testing.T) {
	tokens, repo := newTestTokens(t)

	admin, err := repo.CreateUser(context.Background(), "admin@example.com", "Password1", "Admin", RoleAdmin)
	require.NoError(t, err)
	student := createTestUser(t, repo, "student@example.com")

	handler := Middleware(tokens)(RequireAdmin()(okHandler(nil)))

	// No identity at all: the auth middleware rejects first.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong role.
	studentToken, err := tokens.GenerateAccessToken(student)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	// Admin passes.
	adminToken, err := tokens.GenerateAccessToken(admin)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireInstructorAdmitsAdmin(t *testing.T) {
	tokens, repo := newTestTokens(t)

	admin, err := repo.CreateUser(context.Background(), "admin@example.com", "Password1", "Admin", RoleAdmin)
	require.NoError(t, err)
	instructor, err := repo.CreateUser(context.Background(), "teach@example.com", "Password1", "Teach", RoleInstructor)
	require.NoError(t, err)

	handler := Middleware(tokens)(RequireInstructor()(okHandler(nil)))

	for _, user := range []User{admin, instructor} {
		token, err := tokens.GenerateAccessToken(user)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
