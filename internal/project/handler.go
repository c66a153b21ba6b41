package project

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"portfolio-server/internal/web"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := web.PageParams(r, 10)
	featured := r.URL.Query().Get("featured") == "true"

	projects, total, err := h.repo.List(r.Context(), featured, limit, offset)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to list projects")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"projects":   projects,
		"pagination": web.NewPagination(page, limit, total),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Project not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load project")
		return
	}

	web.JSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := web.DecodeJSON(w, r, &input); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	fields := map[string]string{}
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		fields["title"] = "Title is required"
	}
	if input.Description == nil || strings.TrimSpace(*input.Description) == "" {
		fields["description"] = "Description is required"
	}
	if len(fields) > 0 {
		web.ValidationError(w, fields)
		return
	}

	p, err := h.repo.Create(r.Context(), input)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to create project")
		return
	}

	web.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var input Input
	if err := web.DecodeJSON(w, r, &input); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	p, err := h.repo.Update(r.Context(), id, input)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Project not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to update project")
		return
	}

	web.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Project not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to delete project")
		return
	}

	web.JSON(w, http.StatusOK, map[string]string{"message": "Project deleted successfully"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "Project not found")
		return 0, false
	}
	return id, true
}
