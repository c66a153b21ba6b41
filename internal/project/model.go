package project

import "time"

type Project struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	LongDescription string    `json:"long_description,omitempty"`
	Images          []string  `json:"images"`
	Technologies    []string  `json:"technologies"`
	GithubURL       string    `json:"github_url,omitempty"`
	LiveURL         string    `json:"live_url,omitempty"`
	Featured        bool      `json:"featured"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Input carries create/update payloads. Nil pointers mean "leave unchanged"
// on update and "use zero value" on create.
type Input struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	LongDescription *string  `json:"long_description"`
	Images          []string `json:"images"`
	Technologies    []string `json:"technologies"`
	GithubURL       *string  `json:"github_url"`
	LiveURL         *string  `json:"live_url"`
	Featured        *bool    `json:"featured"`
}
