package course

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

const selectCourse = `
	SELECT
		c.id, c.title, c.description, c.instructor_id, c.created_at,
		u.display_name AS instructor_name,
		CASE WHEN e.id IS NOT NULL THEN 1 ELSE 0 END AS is_enrolled
	FROM courses c
	LEFT JOIN users u ON c.instructor_id = u.id
	LEFT JOIN enrollments e ON c.id = e.course_id AND e.user_id = ?`

// List returns every course annotated with the viewer's enrollment
// status.
func (r *Repository) List(ctx context.Context, viewerID string) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, selectCourse+`
		ORDER BY c.created_at DESC, c.id DESC
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	courses := make([]Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}

	return courses, nil
}

func (r *Repository) Get(ctx context.Context, id int64, viewerID string) (Course, error) {
	row := r.db.QueryRowContext(ctx, selectCourse+` WHERE c.id = ?`, viewerID, id)
	c, err := scanCourse(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, err
		}
		return Course{}, fmt.Errorf("query course: %w", err)
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, instructorID string, input Input) (Course, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO courses (title, description, instructor_id, created_at)
		VALUES (?, ?, ?, ?)
	`, deref(input.Title), deref(input.Description), instructorID, db.FormatTime(time.Now()))
	if err != nil {
		return Course{}, fmt.Errorf("insert course: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Course{}, fmt.Errorf("course last insert id: %w", err)
	}
	return r.Get(ctx, id, instructorID)
}

func (r *Repository) Update(ctx context.Context, id int64, viewerID string, input Input) (Course, error) {
	existing, err := r.Get(ctx, id, viewerID)
	if err != nil {
		return Course{}, err
	}

	merged := existing
	if input.Title != nil {
		merged.Title = *input.Title
	}
	if input.Description != nil {
		merged.Description = *input.Description
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE courses SET title = ?, description = ? WHERE id = ?
	`, merged.Title, merged.Description, id)
	if err != nil {
		return Course{}, fmt.Errorf("update course: %w", err)
	}

	return r.Get(ctx, id, viewerID)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
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

// Lessons returns the course's lessons in order, each with its
// assignments.
func (r *Repository) Lessons(ctx context.Context, courseID int64) ([]Lesson, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, course_id, title, content, video_url, order_index, created_at
		FROM lessons
		WHERE course_id = ?
		ORDER BY order_index ASC, id ASC
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	lessons := make([]Lesson, 0)
	for rows.Next() {
		var l Lesson
		var content, videoURL sql.NullString
		var createdAt string
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &content, &videoURL, &l.OrderIndex, &createdAt); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		l.Content = content.String
		l.VideoURL = videoURL.String
		if l.CreatedAt, err = db.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}

	for i := range lessons {
		assignments, err := r.lessonAssignments(ctx, lessons[i].ID)
		if err != nil {
			return nil, err
		}
		lessons[i].Assignments = assignments
	}

	return lessons, nil
}

func (r *Repository) GetLesson(ctx context.Context, id int64) (Lesson, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, course_id, title, content, video_url, order_index, created_at
		FROM lessons
		WHERE id = ?
	`, id)

	var l Lesson
	var content, videoURL sql.NullString
	var createdAt string
	err := row.Scan(&l.ID, &l.CourseID, &l.Title, &content, &videoURL, &l.OrderIndex, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lesson{}, err
		}
		return Lesson{}, fmt.Errorf("query lesson: %w", err)
	}
	l.Content = content.String
	l.VideoURL = videoURL.String
	if l.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Lesson{}, fmt.Errorf("parse created_at: %w", err)
	}
	return l, nil
}

func (r *Repository) CountLessons(ctx context.Context, courseID int64) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons WHERE course_id = ?`, courseID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return total, nil
}

func (r *Repository) lessonAssignments(ctx context.Context, lessonID int64) ([]Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lesson_id, title, description, due_date, required, created_at
		FROM assignments
		WHERE lesson_id = ?
		ORDER BY created_at ASC, id ASC
	`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]Assignment, 0)
	for rows.Next() {
		var a Assignment
		var description, dueDate sql.NullString
		var required int
		var createdAt string
		if err := rows.Scan(&a.ID, &a.LessonID, &a.Title, &description, &dueDate, &required, &createdAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.Description = description.String
		a.DueDate = dueDate.String
		a.Required = required == 1
		if a.CreatedAt, err = db.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	return assignments, nil
}

// Enroll records the user in the course. Returns false when already
// enrolled.
func (r *Repository) Enroll(ctx context.Context, userID string, courseID int64) (bool, error) {
	existing, err := r.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO enrollments (user_id, course_id, completed_lessons, enrolled_at)
		VALUES (?, ?, '[]', ?)
	`, userID, courseID, db.FormatTime(time.Now()))
	if err != nil {
		return false, fmt.Errorf("insert enrollment: %w", err)
	}
	return true, nil
}

// GetEnrollment returns nil when the user is not enrolled.
func (r *Repository) GetEnrollment(ctx context.Context, userID string, courseID int64) (*Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, course_id, completed_lessons, enrolled_at, last_accessed_at
		FROM enrollments
		WHERE user_id = ? AND course_id = ?
	`, userID, courseID)

	var e Enrollment
	var completed sql.NullString
	var enrolledAt string
	var lastAccessed sql.NullString
	err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &completed, &enrolledAt, &lastAccessed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query enrollment: %w", err)
	}

	e.CompletedLessons = []int64{}
	if err := db.DecodeJSON(completed, &e.CompletedLessons); err != nil {
		return nil, err
	}
	if e.EnrolledAt, err = db.ParseTime(enrolledAt); err != nil {
		return nil, fmt.Errorf("parse enrolled_at: %w", err)
	}
	if e.LastAccessedAt, err = db.ParseNullTime(lastAccessed); err != nil {
		return nil, fmt.Errorf("parse last_accessed_at: %w", err)
	}

	return &e, nil
}

// SaveCompletedLessons replaces the completion list and stamps the
// last access time.
func (r *Repository) SaveCompletedLessons(ctx context.Context, userID string, courseID int64, lessons []int64) error {
	encoded, err := db.EncodeJSON(lessons)
	if err != nil {
		return err
	}
	if encoded == nil {
		encoded = "[]"
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE enrollments SET completed_lessons = ?, last_accessed_at = ?
		WHERE user_id = ? AND course_id = ?
	`, encoded, db.FormatTime(time.Now()), userID, courseID)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (Course, error) {
	var c Course
	var instructorID, instructorName sql.NullString
	var enrolled int
	var createdAt string

	err := row.Scan(&c.ID, &c.Title, &c.Description, &instructorID, &createdAt, &instructorName, &enrolled)
	if err != nil {
		return Course{}, err
	}

	c.InstructorID = instructorID.String
	c.InstructorName = instructorName.String
	c.IsEnrolled = enrolled == 1
	if c.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Course{}, fmt.Errorf("parse created_at: %w", err)
	}

	return c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
