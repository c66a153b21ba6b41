package maintenance

import (
	"net/http"
	"strings"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/observability"
	"portfolio-server/internal/web"
)

// CleanupHandler purges expired refresh tokens. It is meant to be hit
// by a scheduler, authenticated with a shared secret rather than a
// user token.
type CleanupHandler struct {
	tokens     *auth.TokenManager
	logger     *observability.Logger
	cronSecret string
}

func NewCleanupHandler(tokens *auth.TokenManager, logger *observability.Logger, cronSecret string) *CleanupHandler {
	return &CleanupHandler{
		tokens:     tokens,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Without a configured secret the endpoint does not exist.
	if h.cronSecret == "" {
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "not found")
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		web.Error(w, http.StatusUnauthorized, web.CodeAuthRequired, "unauthorized")
		return
	}

	deleted, err := h.tokens.CleanupExpiredTokens(r.Context())
	if err != nil {
		h.logger.Error("token_cleanup_failed", map[string]any{"error": err.Error()})
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "cleanup failed")
		return
	}

	h.logger.Info("token_cleanup_completed", map[string]any{"deleted_refresh_tokens": deleted})

	web.JSON(w, http.StatusOK, map[string]any{
		"status":                 "ok",
		"deleted_refresh_tokens": deleted,
	})
}
