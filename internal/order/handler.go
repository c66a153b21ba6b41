package order

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/web"
)

type Handler struct {
	service *Service
	repo    *Repository
}

func NewHandler(service *Service, repo *Repository) *Handler {
	return &Handler{service: service, repo: repo}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var input Input
	if err := web.DecodeJSON(w, r, &input); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	fields := map[string]string{}
	if len(input.Items) == 0 {
		fields["items"] = "Items array is required and cannot be empty"
	}
	if input.Subtotal <= 0 {
		fields["subtotal"] = "Valid subtotal is required"
	}
	if input.Total <= 0 {
		fields["total"] = "Valid total is required"
	}
	if len(fields) > 0 {
		web.ValidationError(w, fields)
		return
	}

	o, err := h.service.Create(r.Context(), identity.ID, input)
	if err != nil {
		var invalidErr *InvalidItemError
		var missingErr *ProductNotFoundError
		var stockErr *InsufficientStockError
		switch {
		case errors.As(err, &invalidErr):
			web.JSON(w, http.StatusBadRequest, map[string]any{
				"error":      "Invalid item in order",
				"code":       web.CodeValidationError,
				"statusCode": http.StatusBadRequest,
				"item":       invalidErr.Item,
			})
		case errors.As(err, &missingErr):
			web.JSON(w, http.StatusNotFound, map[string]any{
				"error":      "Product not found",
				"code":       web.CodeNotFound,
				"statusCode": http.StatusNotFound,
				"productId":  missingErr.ProductID,
			})
		case errors.As(err, &stockErr):
			web.JSON(w, http.StatusBadRequest, map[string]any{
				"error":      "Insufficient stock",
				"code":       web.CodeValidationError,
				"statusCode": http.StatusBadRequest,
				"productId":  stockErr.ProductID,
				"available":  stockErr.Available,
				"requested":  stockErr.Requested,
			})
		default:
			sentry.CaptureException(err)
			web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to create order")
		}
		return
	}

	web.JSON(w, http.StatusCreated, o)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	page, limit, offset := web.PageParams(r, 10)

	orders, total, err := h.repo.ListForUser(r.Context(), identity.ID, limit, offset)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to list orders")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"orders":     orders,
		"pagination": web.NewPagination(page, limit, total),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	o, err := h.repo.GetForUser(r.Context(), id, identity.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Order not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load order")
		return
	}

	web.JSON(w, http.StatusOK, o)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	if !ValidStatus(req.Status) {
		web.JSON(w, http.StatusBadRequest, map[string]any{
			"error":         "Invalid status",
			"code":          web.CodeValidationError,
			"statusCode":    http.StatusBadRequest,
			"validStatuses": []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled},
		})
		return
	}

	o, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Order not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to update order status")
		return
	}

	web.JSON(w, http.StatusOK, o)
}

// ListAll is the admin listing across all users.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := web.PageParams(r, 20)
	status := r.URL.Query().Get("status")

	orders, total, err := h.repo.ListAll(r.Context(), status, limit, offset)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to list orders")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"orders":     orders,
		"pagination": web.NewPagination(page, limit, total),
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "Order not found")
		return 0, false
	}
	return id, true
}
