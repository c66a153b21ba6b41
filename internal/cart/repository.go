package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"portfolio-server/internal/db"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// GetOrCreate returns the user's cart, creating an empty one on first
// touch.
func (r *Repository) GetOrCreate(ctx context.Context, userID string) (Cart, error) {
	c, err := r.getByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Cart{}, err
	}

	now := db.FormatTime(time.Now())
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, items, created_at, updated_at)
		VALUES (?, '[]', ?, ?)
	`, userID, now, now)
	if err != nil {
		return Cart{}, fmt.Errorf("insert cart: %w", err)
	}

	return r.getByUser(ctx, userID)
}

// Get returns the user's cart without creating one.
func (r *Repository) Get(ctx context.Context, userID string) (Cart, error) {
	return r.getByUser(ctx, userID)
}

func (r *Repository) SaveItems(ctx context.Context, cartID int64, items []Item) error {
	encoded, err := db.EncodeJSON(items)
	if err != nil {
		return err
	}
	if encoded == nil {
		encoded = "[]"
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE carts SET items = ?, updated_at = ? WHERE id = ?
	`, encoded, db.FormatTime(time.Now()), cartID)
	if err != nil {
		return fmt.Errorf("update cart items: %w", err)
	}
	return nil
}

// ClearByUser empties the user's cart if one exists. Missing carts are
// not an error here.
func (r *Repository) ClearByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE carts SET items = '[]', updated_at = ? WHERE user_id = ?
	`, db.FormatTime(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *Repository) getByUser(ctx context.Context, userID string) (Cart, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, items, created_at, updated_at
		FROM carts
		WHERE user_id = ?
	`, userID)

	var c Cart
	var items sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.UserID, &items, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, err
		}
		return Cart{}, fmt.Errorf("query cart: %w", err)
	}

	c.Items = []Item{}
	if err := db.DecodeJSON(items, &c.Items); err != nil {
		return Cart{}, err
	}
	if c.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Cart{}, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return Cart{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return c, nil
}
