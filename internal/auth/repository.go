package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"portfolio-server/internal/db"
)

// ErrEmailExists reports a registration against an already-taken email.
var ErrEmailExists = errors.New("email already exists")

type Repository struct {
	db         *sql.DB
	bcryptCost int
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database, bcryptCost: 12}
}

func (r *Repository) WithBcryptCost(cost int) *Repository {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		r.bcryptCost = cost
	}
	return r
}

// CreateUser hashes the password and inserts the user. Email uniqueness is
// case-insensitive (NOCASE collation on the column).
func (r *Repository) CreateUser(ctx context.Context, email, password, displayName, role string) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := db.FormatTime(time.Now())
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id.String(), strings.ToLower(strings.TrimSpace(email)), string(hash), strings.TrimSpace(displayName), role, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrEmailExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return r.GetUserByID(ctx, id.String())
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, role, email_verified, last_login, created_at, updated_at
		FROM users
		WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email))))
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, role, email_verified, last_login, created_at, updated_at
		FROM users
		WHERE id = ?
	`, id))
}

func (r *Repository) scanUser(row *sql.Row) (User, error) {
	var user User
	var emailVerified int
	var lastLogin sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.Role, &emailVerified, &lastLogin, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user: %w", err)
	}

	user.EmailVerified = emailVerified == 1
	if user.LastLogin, err = db.ParseNullTime(lastLogin); err != nil {
		return User{}, fmt.Errorf("parse last_login: %w", err)
	}
	if user.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return User{}, fmt.Errorf("parse created_at: %w", err)
	}
	if user.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return User{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return user, nil
}

// VerifyPassword compares a candidate password against the stored hash.
func (r *Repository) VerifyPassword(user User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (r *Repository) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login = ? WHERE id = ?
	`, db.FormatTime(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}
	return nil
}

func (r *Repository) CreateRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate refresh token row id: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, id.String(), userID, token, db.FormatTime(expiresAt), db.FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks a token up by its exact string. nil, nil when no row
// matches.
func (r *Repository) GetRefreshToken(ctx context.Context, token string) (*RefreshTokenRecord, error) {
	var record RefreshTokenRecord
	var revoked int
	var expiresAt, createdAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token = ?
	`, token).Scan(&record.ID, &record.UserID, &record.Token, &expiresAt, &revoked, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query refresh token: %w", err)
	}

	record.Revoked = revoked == 1
	if record.ExpiresAt, err = db.ParseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if record.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &record, nil
}

func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1 WHERE token = ? AND revoked = 0
	`, token)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *Repository) RevokeAllUserTokens(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke-all rows affected: %w", err)
	}
	return affected, nil
}

// DeleteExpiredRefreshTokens sweeps rows whose expiry has passed. Revoked
// state does not matter; unexpired rows are never touched.
func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < ?
	`, db.FormatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup rows affected: %w", err)
	}
	return affected, nil
}

// ActiveUserTokens lists a user's usable refresh tokens, newest first.
func (r *Repository) ActiveUserTokens(ctx context.Context, userID string) ([]RefreshTokenRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, token, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE user_id = ? AND revoked = 0 AND expires_at > ?
		ORDER BY created_at DESC
	`, userID, db.FormatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("query active tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]RefreshTokenRecord, 0)
	for rows.Next() {
		var record RefreshTokenRecord
		var revoked int
		var expiresAt, createdAt string
		if err := rows.Scan(&record.ID, &record.UserID, &record.Token, &expiresAt, &revoked, &createdAt); err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		record.Revoked = revoked == 1
		if record.ExpiresAt, err = db.ParseTime(expiresAt); err != nil {
			return nil, fmt.Errorf("parse expires_at: %w", err)
		}
		if record.CreatedAt, err = db.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		tokens = append(tokens, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh tokens: %w", err)
	}
	return tokens, nil
}
