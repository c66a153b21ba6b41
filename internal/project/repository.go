package project

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

// List returns a page of projects newest-first plus the unpaginated total.
func (r *Repository) List(ctx context.Context, featuredOnly bool, limit, offset int) ([]Project, int, error) {
	where := ""
	if featuredOnly {
		where = " WHERE featured = 1"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, long_description, images, technologies, github_url, live_url, featured, created_at, updated_at
		FROM projects`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, total, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, long_description, images, technologies, github_url, live_url, featured, created_at, updated_at
		FROM projects
		WHERE id = ?
	`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, err
		}
		return Project{}, fmt.Errorf("query project: %w", err)
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, input Input) (Project, error) {
	images, err := db.EncodeJSON(input.Images)
	if err != nil {
		return Project{}, err
	}
	technologies, err := db.EncodeJSON(input.Technologies)
	if err != nil {
		return Project{}, err
	}

	now := db.FormatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (title, description, long_description, images, technologies, github_url, live_url, featured, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, deref(input.Title), deref(input.Description), deref(input.LongDescription), images, technologies,
		deref(input.GithubURL), deref(input.LiveURL), boolInt(input.Featured), now, now)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Project{}, fmt.Errorf("project last insert id: %w", err)
	}
	return r.Get(ctx, id)
}

// Update applies only the fields present in input over the stored row.
func (r *Repository) Update(ctx context.Context, id int64, input Input) (Project, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}

	merged := existing
	if input.Title != nil {
		merged.Title = *input.Title
	}
	if input.Description != nil {
		merged.Description = *input.Description
	}
	if input.LongDescription != nil {
		merged.LongDescription = *input.LongDescription
	}
	if input.Images != nil {
		merged.Images = input.Images
	}
	if input.Technologies != nil {
		merged.Technologies = input.Technologies
	}
	if input.GithubURL != nil {
		merged.GithubURL = *input.GithubURL
	}
	if input.LiveURL != nil {
		merged.LiveURL = *input.LiveURL
	}
	if input.Featured != nil {
		merged.Featured = *input.Featured
	}

	images, err := db.EncodeJSON(merged.Images)
	if err != nil {
		return Project{}, err
	}
	technologies, err := db.EncodeJSON(merged.Technologies)
	if err != nil {
		return Project{}, err
	}

	featured := 0
	if merged.Featured {
		featured = 1
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE projects SET
			title = ?, description = ?, long_description = ?, images = ?, technologies = ?,
			github_url = ?, live_url = ?, featured = ?, updated_at = ?
		WHERE id = ?
	`, merged.Title, merged.Description, merged.LongDescription, images, technologies,
		merged.GithubURL, merged.LiveURL, featured, db.FormatTime(time.Now()), id)
	if err != nil {
		return Project{}, fmt.Errorf("update project: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
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

func scanProject(row rowScanner) (Project, error) {
	var p Project
	var longDescription, githubURL, liveURL sql.NullString
	var images, technologies sql.NullString
	var featured int
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Title, &p.Description, &longDescription, &images, &technologies, &githubURL, &liveURL, &featured, &createdAt, &updatedAt)
	if err != nil {
		return Project{}, err
	}

	p.LongDescription = longDescription.String
	p.GithubURL = githubURL.String
	p.LiveURL = liveURL.String
	p.Featured = featured == 1
	p.Images = []string{}
	p.Technologies = []string{}
	if err := db.DecodeJSON(images, &p.Images); err != nil {
		return Project{}, err
	}
	if err := db.DecodeJSON(technologies, &p.Technologies); err != nil {
		return Project{}, err
	}
	if p.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Project{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return Project{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return p, nil
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
