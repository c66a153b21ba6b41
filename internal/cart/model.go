package cart

import "time"

// Item is a line in a cart. Items live in a JSON column rather than
// their own table, so each gets a uuid to address it over HTTP.
type Item struct {
	ID        string  `json:"id"`
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Title     string  `json:"title"`
}

type Cart struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
