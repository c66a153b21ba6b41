package order

import (
	"encoding/json"
	"time"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Item struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Title     string  `json:"title,omitempty"`
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []Item          `json:"items"`
	Subtotal        float64         `json:"subtotal"`
	Tax             float64         `json:"tax"`
	Shipping        float64         `json:"shipping"`
	Total           float64         `json:"total"`
	ShippingAddress json.RawMessage `json:"shipping_address,omitempty"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Input is a create-order payload.
type Input struct {
	Items           []Item          `json:"items"`
	Subtotal        float64         `json:"subtotal"`
	Tax             float64         `json:"tax"`
	Shipping        float64         `json:"shipping"`
	Total           float64         `json:"total"`
	ShippingAddress json.RawMessage `json:"shippingAddress"`
	PaymentIntentID string          `json:"paymentIntentId"`
}
