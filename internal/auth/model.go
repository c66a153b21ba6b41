package auth

import "time"

// Roles recognized by the role gate. An unknown role in the database simply
// fails every gate.
const (
	RoleUser       = "user"
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

type User struct {
	ID            string
	Email         string
	PasswordHash  string
	DisplayName   string
	Role          string
	EmailVerified bool
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RefreshTokenRecord mirrors a refresh_tokens row. A record is usable iff
// Revoked is false and ExpiresAt is in the future.
type RefreshTokenRecord struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Identity is what the middleware attaches to the request context after a
// successful access-token check.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
