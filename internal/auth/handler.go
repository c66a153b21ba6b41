package auth

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"portfolio-server/internal/web"
)

var (
	emailRegex       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	displayNameRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// userView is the wire shape of a user. password_hash never leaves the
// service.
type userView struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"displayName"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"emailVerified,omitempty"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

func publicUser(u User) userView {
	return userView{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: u.Role}
}

func profileUser(u User) userView {
	view := publicUser(u)
	view.EmailVerified = u.EmailVerified
	view.LastLogin = u.LastLogin
	created := u.CreatedAt
	view.CreatedAt = &created
	return view
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := web.DecodeJSON(w, r, &body); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	if fields := validateRegistration(body); len(fields) > 0 {
		web.ValidationError(w, fields)
		return
	}

	user, pair, err := h.service.Register(r.Context(), body.Email, body.Password, body.DisplayName)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			web.Error(w, http.StatusConflict, web.CodeEmailExists, "Email already exists")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to register")
		return
	}

	web.JSON(w, http.StatusCreated, map[string]any{
		"message":      "User registered successfully",
		"user":         publicUser(user),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := web.DecodeJSON(w, r, &body); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	fields := map[string]string{}
	if !emailRegex.MatchString(strings.TrimSpace(body.Email)) {
		fields["email"] = "Invalid email format"
	}
	if body.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		web.ValidationError(w, fields)
		return
	}

	user, pair, err := h.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			web.Error(w, http.StatusUnauthorized, web.CodeAuthFailed, "Invalid credentials")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to login")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"message":      "Login successful",
		"user":         publicUser(user),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := web.DecodeJSON(w, r, &body); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	body.RefreshToken = strings.TrimSpace(body.RefreshToken)
	if body.RefreshToken == "" {
		web.ValidationError(w, map[string]string{"refreshToken": "Refresh token is required"})
		return
	}

	user, accessToken, err := h.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRefreshToken):
			web.Error(w, http.StatusUnauthorized, web.CodeInvalidRefreshToken, "Refresh token is invalid, revoked, or expired")
		case errors.Is(err, ErrUserNotFound):
			web.Error(w, http.StatusNotFound, web.CodeUserNotFound, "User not found")
		default:
			sentry.CaptureException(err)
			web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to refresh token")
		}
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"accessToken": accessToken,
		"user":        publicUser(user),
	})
}

// Logout revokes the presented refresh token. Succeeds even when the token
// is absent or unknown, so clients can always clear their session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var body logoutRequest
	if err := web.DecodeJSON(w, r, &body); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	if err := h.service.Logout(r.Context(), strings.TrimSpace(body.RefreshToken)); err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to logout")
		return
	}

	web.JSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := FromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, web.CodeAuthRequired, "Authentication required")
		return
	}

	revoked, err := h.service.LogoutAll(r.Context(), identity.ID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to logout")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"message":       "Logged out everywhere",
		"revokedTokens": revoked,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := FromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, web.CodeAuthRequired, "Authentication required")
		return
	}

	user, err := h.service.CurrentUser(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			web.Error(w, http.StatusNotFound, web.CodeUserNotFound, "User not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load user")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{"user": profileUser(user)})
}

func validateRegistration(body registerRequest) map[string]string {
	fields := map[string]string{}

	email := strings.TrimSpace(body.Email)
	if !emailRegex.MatchString(email) {
		fields["email"] = "Invalid email format"
	}

	if len(body.Password) < 8 {
		fields["password"] = "Password must be at least 8 characters"
	} else if !passwordComplexity(body.Password) {
		fields["password"] = "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	}

	name := strings.TrimSpace(body.DisplayName)
	if len(name) < 2 || len(name) > 100 {
		fields["displayName"] = "Display name must be between 2 and 100 characters"
	} else if !displayNameRegex.MatchString(name) {
		fields["displayName"] = "Display name can only contain letters, numbers, spaces, hyphens, and underscores"
	}

	return fields
}

func passwordComplexity(password string) bool {
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}
