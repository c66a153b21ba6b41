package web

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
)

// Error codes shared across the API. Clients branch on these, not on the
// human-readable message.
const (
	CodeTokenRequired       = "TOKEN_REQUIRED"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeAuthFailed          = "AUTH_FAILED"
	CodeAuthRequired        = "AUTH_REQUIRED"
	CodeEmailExists         = "EMAIL_EXISTS"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeInternalError       = "INTERNAL_ERROR"
)

const maxJSONBodyBytes = 1 << 20

// JSON writes v as the response body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the standard error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, map[string]any{
		"error":      message,
		"code":       code,
		"statusCode": status,
	})
}

// ValidationError writes a 422 with a per-field message map.
func ValidationError(w http.ResponseWriter, fields map[string]string) {
	JSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":      "Validation failed",
		"code":       CodeValidationError,
		"statusCode": http.StatusUnprocessableEntity,
		"fields":     fields,
	})
}

// DecodeJSON reads a JSON request body into dst, capping the body size and
// rejecting unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// Pagination is the list-response envelope shared by paginated endpoints.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the page descriptor for a list response.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// PageParams reads page/limit query parameters with defaults and an upper
// bound on limit.
func PageParams(r *http.Request, defaultLimit int) (page, limit, offset int) {
	page = queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = queryInt(r, "limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
		if n > 1<<30 {
			return fallback
		}
	}
	return n
}

// ClientIP extracts the originating address, preferring the first
// X-Forwarded-For hop set by the reverse proxy.
func ClientIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
