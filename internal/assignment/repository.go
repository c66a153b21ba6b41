package assignment

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

// Get returns the assignment with lesson and course context joined in.
func (r *Repository) Get(ctx context.Context, id int64) (Detail, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			a.id, a.lesson_id, a.title, a.description, a.due_date, a.required, a.created_at,
			l.title AS lesson_title, l.course_id,
			c.title AS course_title
		FROM assignments a
		JOIN lessons l ON a.lesson_id = l.id
		JOIN courses c ON l.course_id = c.id
		WHERE a.id = ?
	`, id)

	var d Detail
	var description, dueDate sql.NullString
	var required int
	var createdAt string
	err := row.Scan(&d.ID, &d.LessonID, &d.Title, &description, &dueDate, &required, &createdAt,
		&d.LessonTitle, &d.CourseID, &d.CourseTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Detail{}, err
		}
		return Detail{}, fmt.Errorf("query assignment: %w", err)
	}

	d.Description = description.String
	d.DueDate = dueDate.String
	d.Required = required == 1
	if d.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Detail{}, fmt.Errorf("parse created_at: %w", err)
	}

	return d, nil
}

const selectSubmission = `
	SELECT id, assignment_id, student_id, student_name, github_repo_url, live_preview_url, notes, is_public, submitted_at
	FROM submissions`

func (r *Repository) GetSubmission(ctx context.Context, id int64) (Submission, error) {
	row := r.db.QueryRowContext(ctx, selectSubmission+` WHERE id = ?`, id)
	s, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, err
		}
		return Submission{}, fmt.Errorf("query submission: %w", err)
	}
	return s, nil
}

// StudentSubmission returns nil when the student has not submitted.
func (r *Repository) StudentSubmission(ctx context.Context, assignmentID int64, studentID string) (*Submission, error) {
	row := r.db.QueryRowContext(ctx, selectSubmission+` WHERE assignment_id = ? AND student_id = ?`, assignmentID, studentID)
	s, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query submission: %w", err)
	}
	return &s, nil
}

func (r *Repository) CreateSubmission(ctx context.Context, assignmentID int64, studentID, studentName string, input SubmissionInput) (Submission, error) {
	isPublic := 1
	if input.IsPublic != nil && !*input.IsPublic {
		isPublic = 0
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (assignment_id, student_id, student_name, github_repo_url, live_preview_url, notes, is_public, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, assignmentID, studentID, studentName, nullString(input.GithubRepoURL), nullString(input.LivePreviewURL),
		nullString(input.Notes), isPublic, db.FormatTime(time.Now()))
	if err != nil {
		return Submission{}, fmt.Errorf("insert submission: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Submission{}, fmt.Errorf("submission last insert id: %w", err)
	}
	return r.GetSubmission(ctx, id)
}

func (r *Repository) UpdateSubmission(ctx context.Context, id int64, input SubmissionInput) (Submission, error) {
	existing, err := r.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}

	merged := existing
	if input.GithubRepoURL != nil {
		merged.GithubRepoURL = *input.GithubRepoURL
	}
	if input.LivePreviewURL != nil {
		merged.LivePreviewURL = *input.LivePreviewURL
	}
	if input.Notes != nil {
		merged.Notes = *input.Notes
	}
	if input.IsPublic != nil {
		merged.IsPublic = *input.IsPublic
	}

	isPublic := 0
	if merged.IsPublic {
		isPublic = 1
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE submissions SET github_repo_url = ?, live_preview_url = ?, notes = ?, is_public = ?
		WHERE id = ?
	`, emptyNull(merged.GithubRepoURL), emptyNull(merged.LivePreviewURL), emptyNull(merged.Notes), isPublic, id)
	if err != nil {
		return Submission{}, fmt.Errorf("update submission: %w", err)
	}

	return r.GetSubmission(ctx, id)
}

func (r *Repository) DeleteSubmission(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
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

// PublicSubmissions lists every public submission for the assignment,
// flagging the viewer's own row.
func (r *Repository) PublicSubmissions(ctx context.Context, assignmentID int64, viewerID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			s.id, s.assignment_id, s.student_id, s.student_name, s.github_repo_url, s.live_preview_url,
			s.notes, s.is_public, s.submitted_at,
			CASE WHEN s.student_id = ? THEN 1 ELSE 0 END AS is_mine
		FROM submissions s
		WHERE s.assignment_id = ? AND s.is_public = 1
		ORDER BY s.submitted_at DESC, s.id DESC
	`, viewerID, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]Submission, 0)
	for rows.Next() {
		var s Submission
		var githubURL, previewURL, notes sql.NullString
		var isPublic, isMine int
		var submittedAt string
		err := rows.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.StudentName, &githubURL, &previewURL,
			&notes, &isPublic, &submittedAt, &isMine)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.GithubRepoURL = githubURL.String
		s.LivePreviewURL = previewURL.String
		s.Notes = notes.String
		s.IsPublic = isPublic == 1
		s.IsMine = isMine == 1
		if s.SubmittedAt, err = db.ParseTime(submittedAt); err != nil {
			return nil, fmt.Errorf("parse submitted_at: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return submissions, nil
}

// MySubmissions lists the student's submissions across all courses with
// assignment and course context.
func (r *Repository) MySubmissions(ctx context.Context, studentID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			s.id, s.assignment_id, s.student_id, s.student_name, s.github_repo_url, s.live_preview_url,
			s.notes, s.is_public, s.submitted_at,
			a.title AS assignment_title, a.due_date,
			l.title AS lesson_title,
			c.id AS course_id, c.title AS course_title
		FROM submissions s
		JOIN assignments a ON s.assignment_id = a.id
		JOIN lessons l ON a.lesson_id = l.id
		JOIN courses c ON l.course_id = c.id
		WHERE s.student_id = ?
		ORDER BY s.submitted_at DESC, s.id DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]Submission, 0)
	for rows.Next() {
		var s Submission
		var githubURL, previewURL, notes, dueDate sql.NullString
		var isPublic int
		var submittedAt string
		err := rows.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.StudentName, &githubURL, &previewURL,
			&notes, &isPublic, &submittedAt,
			&s.AssignmentTitle, &dueDate, &s.LessonTitle, &s.CourseID, &s.CourseTitle)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.GithubRepoURL = githubURL.String
		s.LivePreviewURL = previewURL.String
		s.Notes = notes.String
		s.DueDate = dueDate.String
		s.IsPublic = isPublic == 1
		if s.SubmittedAt, err = db.ParseTime(submittedAt); err != nil {
			return nil, fmt.Errorf("parse submitted_at: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return submissions, nil
}

// SubmissionCourse resolves which course a submission belongs to.
func (r *Repository) SubmissionCourse(ctx context.Context, submissionID int64) (int64, error) {
	var courseID int64
	err := r.db.QueryRowContext(ctx, `
		SELECT l.course_id
		FROM submissions s
		JOIN assignments a ON s.assignment_id = a.id
		JOIN lessons l ON a.lesson_id = l.id
		WHERE s.id = ?
	`, submissionID).Scan(&courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("query submission course: %w", err)
	}
	return courseID, nil
}

func (r *Repository) CreateComment(ctx context.Context, submissionID int64, userID, userName, content string) (Comment, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO submission_comments (submission_id, user_id, user_name, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, submissionID, userID, userName, content, db.FormatTime(time.Now()))
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Comment{}, fmt.Errorf("comment last insert id: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, submission_id, user_id, user_name, content, created_at
		FROM submission_comments
		WHERE id = ?
	`, id)
	return scanComment(row)
}

func (r *Repository) Comments(ctx context.Context, submissionID int64) ([]Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, submission_id, user_id, user_name, content, created_at
		FROM submission_comments
		WHERE submission_id = ?
		ORDER BY created_at ASC, id ASC
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (Submission, error) {
	var s Submission
	var githubURL, previewURL, notes sql.NullString
	var isPublic int
	var submittedAt string

	err := row.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.StudentName, &githubURL, &previewURL, &notes, &isPublic, &submittedAt)
	if err != nil {
		return Submission{}, err
	}

	s.GithubRepoURL = githubURL.String
	s.LivePreviewURL = previewURL.String
	s.Notes = notes.String
	s.IsPublic = isPublic == 1
	if s.SubmittedAt, err = db.ParseTime(submittedAt); err != nil {
		return Submission{}, fmt.Errorf("parse submitted_at: %w", err)
	}

	return s, nil
}

func scanComment(row rowScanner) (Comment, error) {
	var c Comment
	var createdAt string
	err := row.Scan(&c.ID, &c.SubmissionID, &c.UserID, &c.UserName, &c.Content, &createdAt)
	if err != nil {
		return Comment{}, fmt.Errorf("scan comment: %w", err)
	}
	if c.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Comment{}, fmt.Errorf("parse created_at: %w", err)
	}
	return c, nil
}

func nullString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func emptyNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
