package product

import "time"

type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Images      []string  `json:"images"`
	Category    string    `json:"category,omitempty"`
	Stock       int       `json:"stock"`
	Featured    bool      `json:"featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input carries a create or partial-update payload. Nil fields are
// left untouched on update.
type Input struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Currency    *string  `json:"currency"`
	Images      []string `json:"images"`
	Category    *string  `json:"category"`
	Stock       *int     `json:"stock"`
	Featured    *bool    `json:"featured"`
}
