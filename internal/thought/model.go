package thought

import "time"

// Thought is a blog post.
type Thought struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	Content   string    `json:"content"`
	Date      string    `json:"date"`
	Featured  bool      `json:"featured"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Input struct {
	Title    *string  `json:"title"`
	Snippet  *string  `json:"snippet"`
	Content  *string  `json:"content"`
	Date     *string  `json:"date"`
	Featured *bool    `json:"featured"`
	Tags     []string `json:"tags"`
}
