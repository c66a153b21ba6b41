package thought

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

// List orders by the post date, not the row creation time, so backdated
// posts land where the author put them.
func (r *Repository) List(ctx context.Context, featuredOnly bool, limit, offset int) ([]Thought, int, error) {
	where := ""
	if featuredOnly {
		where = " WHERE featured = 1"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thoughts`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count thoughts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, snippet, content, date, featured, tags, created_at, updated_at
		FROM thoughts`+where+`
		ORDER BY date DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query thoughts: %w", err)
	}
	defer rows.Close()

	thoughts := make([]Thought, 0)
	for rows.Next() {
		t, err := scanThought(rows)
		if err != nil {
			return nil, 0, err
		}
		thoughts = append(thoughts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate thoughts: %w", err)
	}

	return thoughts, total, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Thought, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, snippet, content, date, featured, tags, created_at, updated_at
		FROM thoughts
		WHERE id = ?
	`, id)
	t, err := scanThought(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Thought{}, err
		}
		return Thought{}, fmt.Errorf("query thought: %w", err)
	}
	return t, nil
}

func (r *Repository) Create(ctx context.Context, input Input) (Thought, error) {
	tags, err := db.EncodeJSON(input.Tags)
	if err != nil {
		return Thought{}, err
	}

	date := db.FormatTime(time.Now())
	if input.Date != nil && *input.Date != "" {
		date = *input.Date
	}

	now := db.FormatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO thoughts (title, snippet, content, date, featured, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, deref(input.Title), deref(input.Snippet), deref(input.Content), date, boolInt(input.Featured), tags, now, now)
	if err != nil {
		return Thought{}, fmt.Errorf("insert thought: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Thought{}, fmt.Errorf("thought last insert id: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int64, input Input) (Thought, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return Thought{}, err
	}

	merged := existing
	if input.Title != nil {
		merged.Title = *input.Title
	}
	if input.Snippet != nil {
		merged.Snippet = *input.Snippet
	}
	if input.Content != nil {
		merged.Content = *input.Content
	}
	if input.Date != nil {
		merged.Date = *input.Date
	}
	if input.Featured != nil {
		merged.Featured = *input.Featured
	}
	if input.Tags != nil {
		merged.Tags = input.Tags
	}

	tags, err := db.EncodeJSON(merged.Tags)
	if err != nil {
		return Thought{}, err
	}

	featured := 0
	if merged.Featured {
		featured = 1
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE thoughts SET
			title = ?, snippet = ?, content = ?, date = ?, featured = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, merged.Title, merged.Snippet, merged.Content, merged.Date, featured, tags, db.FormatTime(time.Now()), id)
	if err != nil {
		return Thought{}, fmt.Errorf("update thought: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM thoughts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete thought: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThought(row rowScanner) (Thought, error) {
	var t Thought
	var tags sql.NullString
	var featured int
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Title, &t.Snippet, &t.Content, &t.Date, &featured, &tags, &createdAt, &updatedAt)
	if err != nil {
		return Thought{}, err
	}

	t.Featured = featured == 1
	t.Tags = []string{}
	if err := db.DecodeJSON(tags, &t.Tags); err != nil {
		return Thought{}, err
	}
	if t.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Thought{}, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return Thought{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolInt(b *bool) int {
	if b != nil && *b {
		return 1
	}
	return 0
}
