package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const paystackBaseURL = "https://api.paystack.co"

// PaystackClient talks to the Paystack transaction API.
type PaystackClient struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewPaystackClient(secretKey string) *PaystackClient {
	return &PaystackClient{
		secretKey: secretKey,
		baseURL:   paystackBaseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at a different API host. Used in tests.
func (c *PaystackClient) WithBaseURL(baseURL string) *PaystackClient {
	c.baseURL = baseURL
	return c
}

// SecretKey exposes the key for webhook signature checks.
func (c *PaystackClient) SecretKey() string {
	return c.secretKey
}

type InitializeRequest struct {
	// Amount is in the currency's subunit (pesewas, kobo).
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Email       string         `json:"email"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
}

type Transaction struct {
	AuthorizationURL string         `json:"authorization_url"`
	AccessCode       string         `json:"access_code"`
	Reference        string         `json:"reference"`
	Status           string         `json:"status"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency"`
	Metadata         map[string]any `json:"metadata"`
	PaidAt           string         `json:"paid_at"`
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize starts a transaction and returns the checkout details.
func (c *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (Transaction, error) {
	return c.call(ctx, http.MethodPost, "/transaction/initialize", req)
}

// Verify fetches the final state of a transaction by reference.
func (c *PaystackClient) Verify(ctx context.Context, reference string) (Transaction, error) {
	return c.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
}

func (c *PaystackClient) call(ctx context.Context, method, path string, payload any) (Transaction, error) {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Transaction{}, fmt.Errorf("encode paystack request: %w", err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Transaction{}, fmt.Errorf("build paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("paystack request: %w", err)
	}
	defer res.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return Transaction{}, fmt.Errorf("decode paystack response: %w", err)
	}
	if !envelope.Status {
		return Transaction{}, fmt.Errorf("paystack error: %s", envelope.Message)
	}

	var tx Transaction
	if err := json.Unmarshal(envelope.Data, &tx); err != nil {
		return Transaction{}, fmt.Errorf("decode paystack transaction: %w", err)
	}
	return tx, nil
}
