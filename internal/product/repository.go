package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio-server/internal/db"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// ListFilter narrows the catalog listing. Zero values mean no filter.
type ListFilter struct {
	FeaturedOnly bool
	Category     string
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int, error) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if filter.FeaturedOnly {
		conditions = append(conditions, "featured = 1")
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, price, currency, images, category, stock, featured, created_at, updated_at
		FROM products`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return products, total, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, price, currency, images, category, stock, featured, created_at, updated_at
		FROM products
		WHERE id = ?
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, err
		}
		return Product{}, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, input Input) (Product, error) {
	images, err := db.EncodeJSON(input.Images)
	if err != nil {
		return Product{}, err
	}

	currency := "USD"
	if input.Currency != nil && *input.Currency != "" {
		currency = *input.Currency
	}
	stock := 0
	if input.Stock != nil {
		stock = *input.Stock
	}

	now := db.FormatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (title, description, price, currency, images, category, stock, featured, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, deref(input.Title), deref(input.Description), derefFloat(input.Price), currency,
		images, deref(input.Category), stock, boolInt(input.Featured), now, now)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Product{}, fmt.Errorf("product last insert id: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int64, input Input) (Product, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}

	merged := existing
	if input.Title != nil {
		merged.Title = *input.Title
	}
	if input.Description != nil {
		merged.Description = *input.Description
	}
	if input.Price != nil {
		merged.Price = *input.Price
	}
	if input.Currency != nil {
		merged.Currency = *input.Currency
	}
	if input.Images != nil {
		merged.Images = input.Images
	}
	if input.Category != nil {
		merged.Category = *input.Category
	}
	if input.Stock != nil {
		merged.Stock = *input.Stock
	}
	if input.Featured != nil {
		merged.Featured = *input.Featured
	}

	images, err := db.EncodeJSON(merged.Images)
	if err != nil {
		return Product{}, err
	}

	featured := 0
	if merged.Featured {
		featured = 1
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE products SET
			title = ?, description = ?, price = ?, currency = ?, images = ?,
			category = ?, stock = ?, featured = ?, updated_at = ?
		WHERE id = ?
	`, merged.Title, merged.Description, merged.Price, merged.Currency, images,
		merged.Category, merged.Stock, featured, db.FormatTime(time.Now()), id)
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AdjustStock decrements stock by quantity, refusing to go negative.
// Returns false when the product is missing or understocked.
func (r *Repository) AdjustStock(ctx context.Context, id int64, quantity int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET stock = stock - ?, updated_at = ?
		WHERE id = ? AND stock >= ?
	`, quantity, db.FormatTime(time.Now()), id, quantity)
	if err != nil {
		return false, fmt.Errorf("adjust product stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adjust stock rows affected: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var images, category sql.NullString
	var featured int
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Currency, &images, &category, &p.Stock, &featured, &createdAt, &updatedAt)
	if err != nil {
		return Product{}, err
	}

	p.Category = category.String
	p.Featured = featured == 1
	p.Images = []string{}
	if err := db.DecodeJSON(images, &p.Images); err != nil {
		return Product{}, err
	}
	if p.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Product{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return Product{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func boolInt(b *bool) int {
	if b != nil && *b {
		return 1
	}
	return 0
}
