package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/db"
	"portfolio-server/internal/observability"
	"portfolio-server/internal/order"
	"portfolio-server/internal/product"
)

const testSecret = "sk_test_webhook"

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)

	assert.True(t, validSignature(body, sign(body), testSecret))
	assert.False(t, validSignature(body, sign(body), "other-secret"))
	assert.False(t, validSignature(body, "deadbeef", testSecret))
	assert.False(t, validSignature(body, "", testSecret))
}

type webhookFixture struct {
	handler *Handler
	orders  *order.Repository
	orderID int64
}

func newWebhookFixture(t *testing.T, reference string) webhookFixture {
	t.Helper()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database))

	ctx := context.Background()
	user, err := auth.NewRepository(database).WithBcryptCost(4).
		CreateUser(ctx, "buyer@example.com", "Password1", "Buyer", auth.RoleUser)
	require.NoError(t, err)

	title := "Print"
	price := 25.0
	stock := 5
	p, err := product.NewRepository(database).Create(ctx, product.Input{
		Title:       &title,
		Description: &title,
		Price:       &price,
		Stock:       &stock,
	})
	require.NoError(t, err)

	orders := order.NewRepository(database)
	o, err := orders.Create(ctx, user.ID, order.Input{
		Items:           []order.Item{{ProductID: p.ID, Quantity: 1, Price: 25}},
		Total:           25,
		PaymentIntentID: reference,
	})
	require.NoError(t, err)

	handler := NewHandler(NewPaystackClient(testSecret), orders, observability.NewLogger("test"), "http://localhost:5173")
	return webhookFixture{handler: handler, orders: orders, orderID: o.ID}
}

func postWebhook(t *testing.T, handler *Handler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(string(body)))
	if signature != "" {
		req.Header.Set("x-paystack-signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.Webhook(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t, "ref_sig")
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_sig"}}`)

	rec := postWebhook(t, f.handler, body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(t, f.handler, body, "not-a-signature")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	o, err := f.orders.Get(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
}

func TestWebhookChargeSuccess(t *testing.T) {
	f := newWebhookFixture(t, "ref_success")
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_success"}}`)

	rec := postWebhook(t, f.handler, body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response["received"])

	o, err := f.orders.Get(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, o.Status)

	// Replays find the order already out of pending and leave it alone.
	rec = postWebhook(t, f.handler, body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)
	o, err = f.orders.Get(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, o.Status)
}

func TestWebhookChargeFailed(t *testing.T) {
	f := newWebhookFixture(t, "ref_failed")
	body := []byte(`{"event":"charge.failed","data":{"reference":"ref_failed"}}`)

	rec := postWebhook(t, f.handler, body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)

	o, err := f.orders.Get(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
}

func TestWebhookUnknownReference(t *testing.T) {
	f := newWebhookFixture(t, "ref_known")
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_unknown"}}`)

	rec := postWebhook(t, f.handler, body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)

	o, err := f.orders.Get(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
}

func TestPaystackClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testSecret, r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/transaction/initialize":
			var req InitializeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(2500), req.Amount)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data": map[string]any{
					"authorization_url": "https://checkout.paystack.com/abc",
					"access_code":       "abc",
					"reference":         "ref_123",
				},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/transaction/verify/ref_123":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data": map[string]any{
					"reference": "ref_123",
					"status":    "success",
					"amount":    2500,
					"currency":  "GHS",
				},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Transaction not found"})
		}
	}))
	defer server.Close()

	client := NewPaystackClient(testSecret).WithBaseURL(server.URL)
	ctx := context.Background()

	tx, err := client.Initialize(ctx, InitializeRequest{Amount: 2500, Currency: "GHS", Email: "buyer@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ref_123", tx.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc", tx.AuthorizationURL)

	tx, err = client.Verify(ctx, "ref_123")
	require.NoError(t, err)
	assert.Equal(t, "success", tx.Status)
	assert.Equal(t, int64(2500), tx.Amount)

	_, err = client.Verify(ctx, "ref_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Transaction not found")
}
