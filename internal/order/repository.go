package order

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

func (r *Repository) Create(ctx context.Context, userID string, input Input) (Order, error) {
	items, err := db.EncodeJSON(input.Items)
	if err != nil {
		return Order{}, err
	}
	address, err := db.EncodeJSON(input.ShippingAddress)
	if err != nil {
		return Order{}, err
	}

	now := db.FormatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (user_id, items, subtotal, tax, shipping, total, shipping_address, payment_intent_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, items, input.Subtotal, input.Tax, input.Shipping, input.Total,
		address, nullString(input.PaymentIntentID), StatusPending, now, now)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Order{}, fmt.Errorf("order last insert id: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	row := r.db.QueryRowContext(ctx, selectOrder+` WHERE id = ?`, id)
	return scanRow(row)
}

// GetForUser returns the order only when it belongs to userID.
func (r *Repository) GetForUser(ctx context.Context, id int64, userID string) (Order, error) {
	row := r.db.QueryRowContext(ctx, selectOrder+` WHERE id = ? AND user_id = ?`, id, userID)
	return scanRow(row)
}

func (r *Repository) GetByPaymentIntent(ctx context.Context, reference string) (Order, error) {
	row := r.db.QueryRowContext(ctx, selectOrder+` WHERE payment_intent_id = ?`, reference)
	return scanRow(row)
}

func (r *Repository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, selectOrder+`
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders, err := collect(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListAll is the admin view, optionally filtered by status.
func (r *Repository) ListAll(ctx context.Context, status string, limit, offset int) ([]Order, int, error) {
	where := ""
	args := []any{}
	if status != "" {
		where = " WHERE status = ?"
		args = append(args, status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, selectOrder+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders, err := collect(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string) (Order, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ? WHERE id = ?
	`, status, db.FormatTime(time.Now()), id)
	if err != nil {
		return Order{}, fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Order{}, fmt.Errorf("update status rows affected: %w", err)
	}
	if affected == 0 {
		return Order{}, sql.ErrNoRows
	}
	return r.Get(ctx, id)
}

// LinkPaymentIntent attaches a payment reference to an order.
func (r *Repository) LinkPaymentIntent(ctx context.Context, id int64, reference string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_intent_id = ?, updated_at = ? WHERE id = ?
	`, reference, db.FormatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("link payment intent: %w", err)
	}
	return nil
}

const selectOrder = `
	SELECT id, user_id, items, subtotal, tax, shipping, total, shipping_address, payment_intent_id, status, created_at, updated_at
	FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (Order, error) {
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("query order: %w", err)
	}
	return o, nil
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var items string
	var address, paymentIntent sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&o.ID, &o.UserID, &items, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &address, &paymentIntent, &o.Status, &createdAt, &updatedAt)
	if err != nil {
		return Order{}, err
	}

	o.Items = []Item{}
	if err := db.DecodeJSON(sql.NullString{String: items, Valid: true}, &o.Items); err != nil {
		return Order{}, err
	}
	if address.Valid {
		o.ShippingAddress = []byte(address.String)
	}
	o.PaymentIntentID = paymentIntent.String
	if o.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Order{}, fmt.Errorf("parse created_at: %w", err)
	}
	if o.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return Order{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return o, nil
}

func collect(rows *sql.Rows, capacity int) ([]Order, error) {
	orders := make([]Order, 0, capacity)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
