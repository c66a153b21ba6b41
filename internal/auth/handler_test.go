package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(newTestService(t))
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler.Register, map[string]string{
		"email":       "alice@example.com",
		"password":    "Password1",
		"displayName": "Alice",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "User registered successfully", body["message"])
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, RoleUser, user["role"])

	// The password hash must never appear anywhere in the response.
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "$2a$")
}

func TestRegisterValidation(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"bad email", map[string]string{"email": "not-an-email", "password": "Password1", "displayName": "Alice"}, "email"},
		{"short password", map[string]string{"email": "a@b.co", "password": "Pw1", "displayName": "Alice"}, "password"},
		{"no uppercase", map[string]string{"email": "a@b.co", "password": "password1", "displayName": "Alice"}, "password"},
		{"no digit", map[string]string{"email": "a@b.co", "password": "Passwordx", "displayName": "Alice"}, "password"},
		{"short name", map[string]string{"email": "a@b.co", "password": "Password1", "displayName": "A"}, "displayName"},
		{"bad name chars", map[string]string{"email": "a@b.co", "password": "Password1", "displayName": "Alice <script>"}, "displayName"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, handler.Register, tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			body := decodeBody(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			fields, ok := body["fields"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, fields, tc.field)
		})
	}
}

func TestRegisterDuplicateEmailEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	payload := map[string]string{
		"email":       "alice@example.com",
		"password":    "Password1",
		"displayName": "Alice",
	}

	rec := postJSON(t, handler.Register, payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, handler.Register, payload)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_EXISTS", decodeBody(t, rec)["code"])
}

func TestLoginEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler.Register, map[string]string{
		"email":       "alice@example.com",
		"password":    "Password1",
		"displayName": "Alice",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, handler.Login, map[string]string{
		"email":    "alice@example.com",
		"password": "Password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])

	rec = postJSON(t, handler.Login, map[string]string{
		"email":    "alice@example.com",
		"password": "WrongPassword1",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH_FAILED", decodeBody(t, rec)["code"])
}

func TestRefreshEndpointFullCycle(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler.Register, map[string]string{
		"email":       "alice@example.com",
		"password":    "Password1",
		"displayName": "Alice",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	refreshToken := decodeBody(t, rec)["refreshToken"].(string)

	rec = postJSON(t, handler.Refresh, map[string]string{"refreshToken": refreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["accessToken"])

	rec = postJSON(t, handler.Logout, map[string]string{"refreshToken": refreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	// Replaying the revoked token must fail.
	rec = postJSON(t, handler.Refresh, map[string]string{"refreshToken": refreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", decodeBody(t, rec)["code"])
}

func TestRefreshEndpointRejectsGarbage(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler.Refresh, map[string]string{"refreshToken": "garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", decodeBody(t, rec)["code"])

	rec = postJSON(t, handler.Refresh, map[string]string{"refreshToken": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
