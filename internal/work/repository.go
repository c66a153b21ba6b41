package work

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

func (r *Repository) List(ctx context.Context) ([]Experience, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company, position, description, start_date, end_date, current, technologies, display_order, created_at
		FROM work_experience
		ORDER BY start_date DESC, display_order ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query work experience: %w", err)
	}
	defer rows.Close()

	entries := make([]Experience, 0)
	for rows.Next() {
		e, err := scanExperience(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work experience: %w", err)
	}

	return entries, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Experience, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, company, position, description, start_date, end_date, current, technologies, display_order, created_at
		FROM work_experience
		WHERE id = ?
	`, id)
	e, err := scanExperience(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Experience{}, err
		}
		return Experience{}, fmt.Errorf("query work experience: %w", err)
	}
	return e, nil
}

func (r *Repository) Create(ctx context.Context, input Input) (Experience, error) {
	technologies, err := db.EncodeJSON(input.Technologies)
	if err != nil {
		return Experience{}, err
	}

	displayOrder := 0
	if input.DisplayOrder != nil {
		displayOrder = *input.DisplayOrder
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO work_experience (company, position, description, start_date, end_date, current, technologies, display_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, deref(input.Company), deref(input.Position), deref(input.Description), deref(input.StartDate),
		deref(input.EndDate), boolInt(input.Current), technologies, displayOrder, db.FormatTime(time.Now()))
	if err != nil {
		return Experience{}, fmt.Errorf("insert work experience: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Experience{}, fmt.Errorf("work experience last insert id: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int64, input Input) (Experience, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return Experience{}, err
	}

	merged := existing
	if input.Company != nil {
		merged.Company = *input.Company
	}
	if input.Position != nil {
		merged.Position = *input.Position
	}
	if input.Description != nil {
		merged.Description = *input.Description
	}
	if input.StartDate != nil {
		merged.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		merged.EndDate = *input.EndDate
	}
	if input.Current != nil {
		merged.Current = *input.Current
	}
	if input.Technologies != nil {
		merged.Technologies = input.Technologies
	}
	if input.DisplayOrder != nil {
		merged.DisplayOrder = *input.DisplayOrder
	}

	technologies, err := db.EncodeJSON(merged.Technologies)
	if err != nil {
		return Experience{}, err
	}

	current := 0
	if merged.Current {
		current = 1
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE work_experience SET
			company = ?, position = ?, description = ?, start_date = ?, end_date = ?,
			current = ?, technologies = ?, display_order = ?
		WHERE id = ?
	`, merged.Company, merged.Position, merged.Description, merged.StartDate, merged.EndDate,
		current, technologies, merged.DisplayOrder, id)
	if err != nil {
		return Experience{}, fmt.Errorf("update work experience: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM work_experience WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete work experience: %w", err)
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

func scanExperience(row rowScanner) (Experience, error) {
	var e Experience
	var endDate, technologies sql.NullString
	var current int
	var createdAt string

	err := row.Scan(&e.ID, &e.Company, &e.Position, &e.Description, &e.StartDate, &endDate, &current, &technologies, &e.DisplayOrder, &createdAt)
	if err != nil {
		return Experience{}, err
	}

	e.EndDate = endDate.String
	e.Current = current == 1
	e.Technologies = []string{}
	if err := db.DecodeJSON(technologies, &e.Technologies); err != nil {
		return Experience{}, err
	}
	if e.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Experience{}, fmt.Errorf("parse created_at: %w", err)
	}

	return e, nil
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
