package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinBudget(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		ok, _ := limiter.Allow("10.0.0.1", now)
		assert.True(t, ok)
	}

	ok, retryAfter := limiter.Allow("10.0.0.1", now)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, retryAfter, time.Second)

	// Another IP has its own budget.
	ok, _ = limiter.Allow("10.0.0.2", now)
	assert.True(t, ok)
}

func TestAllowSlidesWindow(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	now := time.Now().UTC()

	ok, _ := limiter.Allow("10.0.0.1", now)
	require.True(t, ok)
	ok, _ = limiter.Allow("10.0.0.1", now.Add(time.Second))
	require.True(t, ok)
	ok, _ = limiter.Allow("10.0.0.1", now.Add(2*time.Second))
	require.False(t, ok)

	// Once the first hit falls out of the window, requests flow again.
	ok, _ = limiter.Allow("10.0.0.1", now.Add(time.Minute+time.Second))
	assert.True(t, ok)
}

func TestMiddlewareRejectsWithEnvelope(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	request := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	request.RemoteAddr = "192.0.2.1:5000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, request)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeRateLimitExceeded, body["code"])
}
