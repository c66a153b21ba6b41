package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/observability"
	"portfolio-server/internal/order"
	"portfolio-server/internal/web"
)

type Handler struct {
	paystack    *PaystackClient
	orders      *order.Repository
	logger      *observability.Logger
	frontendURL string
}

func NewHandler(paystack *PaystackClient, orders *order.Repository, logger *observability.Logger, frontendURL string) *Handler {
	return &Handler{paystack: paystack, orders: orders, logger: logger, frontendURL: frontendURL}
}

type initializeRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Email    string  `json:"email"`
	OrderID  int64   `json:"orderId"`
}

// Initialize starts a Paystack transaction, optionally linked to an
// existing order.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var req initializeRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	fields := map[string]string{}
	if req.Amount <= 0 {
		fields["amount"] = "Valid amount is required"
	}
	if req.Email == "" {
		fields["email"] = "Email is required"
	}
	if len(fields) > 0 {
		web.ValidationError(w, fields)
		return
	}

	metadata := map[string]any{
		"userId":  identity.ID,
		"orderId": "cart_checkout",
	}

	if req.OrderID > 0 {
		o, err := h.orders.GetForUser(r.Context(), req.OrderID, identity.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				web.Error(w, http.StatusNotFound, web.CodeNotFound, "Order not found")
				return
			}
			sentry.CaptureException(err)
			web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load order")
			return
		}
		if o.PaymentIntentID != "" {
			web.JSON(w, http.StatusBadRequest, map[string]any{
				"error":            "Order already has a payment reference",
				"code":             web.CodeValidationError,
				"statusCode":       http.StatusBadRequest,
				"paymentReference": o.PaymentIntentID,
			})
			return
		}
		metadata["orderId"] = req.OrderID
	}

	currency := "GHS"
	if req.Currency != "" {
		currency = strings.ToUpper(req.Currency)
	}

	tx, err := h.paystack.Initialize(r.Context(), InitializeRequest{
		Amount:      int64(req.Amount*100 + 0.5),
		Currency:    currency,
		Email:       req.Email,
		Metadata:    metadata,
		CallbackURL: h.frontendURL + "/payment/callback",
	})
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "Payment initialization failed")
		return
	}

	if req.OrderID > 0 {
		if err := h.orders.LinkPaymentIntent(r.Context(), req.OrderID, tx.Reference); err != nil {
			sentry.CaptureException(err)
			web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to link payment to order")
			return
		}
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"authorizationUrl": tx.AuthorizationURL,
		"accessCode":       tx.AccessCode,
		"reference":        tx.Reference,
	})
}

// Verify confirms a transaction with Paystack and moves the linked
// order from pending to processing.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reference string `json:"reference"`
	}
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}
	if req.Reference == "" {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "Payment reference is required")
		return
	}

	tx, err := h.paystack.Verify(r.Context(), req.Reference)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "Payment verification failed")
		return
	}

	if tx.Status != "success" {
		web.JSON(w, http.StatusBadRequest, map[string]any{
			"error":         "Payment verification failed",
			"code":          web.CodeValidationError,
			"statusCode":    http.StatusBadRequest,
			"paymentStatus": tx.Status,
		})
		return
	}

	o, err := h.orders.GetByPaymentIntent(r.Context(), req.Reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.JSON(w, http.StatusOK, map[string]any{
				"success":       true,
				"paymentStatus": tx.Status,
				"message":       "Payment verified but no associated order found",
			})
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load order")
		return
	}

	updated, err := h.orders.UpdateStatus(r.Context(), o.ID, order.StatusProcessing)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to update order")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"order":         updated,
		"paymentStatus": tx.Status,
		"amount":        float64(tx.Amount) / 100,
		"currency":      tx.Currency,
	})
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// Webhook handles Paystack event callbacks. The signature is an
// HMAC-SHA512 of the raw body under the secret key.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "failed to read body")
		return
	}

	if !validSignature(body, r.Header.Get("x-paystack-signature"), h.paystack.SecretKey()) {
		h.logger.Error("webhook signature verification failed", nil)
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "Webhook signature verification failed")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid webhook payload")
		return
	}

	switch event.Event {
	case "charge.success":
		h.logger.Info("payment succeeded", map[string]any{"reference": event.Data.Reference})
		o, err := h.orders.GetByPaymentIntent(r.Context(), event.Data.Reference)
		if err == nil && o.Status == order.StatusPending {
			if _, err := h.orders.UpdateStatus(r.Context(), o.ID, order.StatusProcessing); err != nil {
				sentry.CaptureException(err)
				web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "Webhook handler failed")
				return
			}
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			sentry.CaptureException(err)
			web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "Webhook handler failed")
			return
		}
	case "charge.failed":
		h.logger.Info("payment failed", map[string]any{"reference": event.Data.Reference})
		o, err := h.orders.GetByPaymentIntent(r.Context(), event.Data.Reference)
		if err == nil {
			if _, err := h.orders.UpdateStatus(r.Context(), o.ID, order.StatusCancelled); err != nil {
				sentry.CaptureException(err)
				web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "Webhook handler failed")
				return
			}
		} else if !errors.Is(err, sql.ErrNoRows) {
			sentry.CaptureException(err)
			web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "Webhook handler failed")
			return
		}
	default:
		h.logger.Debug("unhandled webhook event", map[string]any{"event": event.Event})
	}

	web.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

// TransactionStatus looks up a transaction by reference.
func (h *Handler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	tx, err := h.paystack.Verify(r.Context(), reference)
	if err != nil {
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "Transaction not found")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"reference": tx.Reference,
		"status":    tx.Status,
		"amount":    float64(tx.Amount) / 100,
		"currency":  tx.Currency,
		"metadata":  tx.Metadata,
		"paid_at":   tx.PaidAt,
	})
}

func validSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
