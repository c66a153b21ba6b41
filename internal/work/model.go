package work

import "time"

// Experience is a resume entry. The list is small, so it is served unpaged,
// ordered most-recent-first with display_order breaking ties.
type Experience struct {
	ID           int64     `json:"id"`
	Company      string    `json:"company"`
	Position     string    `json:"position"`
	Description  string    `json:"description"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date,omitempty"`
	Current      bool      `json:"current"`
	Technologies []string  `json:"technologies"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

type Input struct {
	Company      *string  `json:"company"`
	Position     *string  `json:"position"`
	Description  *string  `json:"description"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	Current      *bool    `json:"current"`
	Technologies []string `json:"technologies"`
	DisplayOrder *int     `json:"display_order"`
}
