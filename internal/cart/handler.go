package cart

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/web"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  *int  `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	c, err := h.service.Get(r.Context(), identity.ID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load cart")
		return
	}

	web.JSON(w, http.StatusOK, c)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var req addItemRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	fields := map[string]string{}
	if req.ProductID < 1 {
		fields["productId"] = "Product ID is required"
	}
	if quantity <= 0 {
		fields["quantity"] = "Quantity must be positive"
	}
	if len(fields) > 0 {
		web.ValidationError(w, fields)
		return
	}

	c, err := h.service.AddItem(r.Context(), identity.ID, req.ProductID, quantity)
	if err != nil {
		h.writeError(w, err, "failed to add item to cart")
		return
	}

	web.JSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	itemID := chi.URLParam(r, "itemId")

	var req updateItemRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	if req.Quantity <= 0 {
		web.ValidationError(w, map[string]string{"quantity": "Quantity must be positive"})
		return
	}

	c, err := h.service.UpdateItem(r.Context(), identity.ID, itemID, req.Quantity)
	if err != nil {
		h.writeError(w, err, "failed to update cart item")
		return
	}

	web.JSON(w, http.StatusOK, c)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	itemID := chi.URLParam(r, "itemId")

	c, err := h.service.RemoveItem(r.Context(), identity.ID, itemID)
	if err != nil {
		h.writeError(w, err, "failed to remove cart item")
		return
	}

	web.JSON(w, http.StatusOK, c)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	c, err := h.service.Clear(r.Context(), identity.ID)
	if err != nil {
		h.writeError(w, err, "failed to clear cart")
		return
	}

	web.JSON(w, http.StatusOK, c)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var stockErr *InsufficientStockError
	switch {
	case errors.Is(err, ErrCartNotFound):
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "Cart not found")
	case errors.Is(err, ErrItemNotFound):
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "Cart item not found")
	case errors.Is(err, ErrProductNotFound):
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "Product not found")
	case errors.As(err, &stockErr):
		body := map[string]any{
			"error":      "Insufficient stock",
			"code":       web.CodeValidationError,
			"statusCode": http.StatusBadRequest,
			"available":  stockErr.Available,
		}
		if stockErr.CurrentInCart > 0 {
			body["currentInCart"] = stockErr.CurrentInCart
		}
		web.JSON(w, http.StatusBadRequest, body)
	default:
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, fallback)
	}
}
