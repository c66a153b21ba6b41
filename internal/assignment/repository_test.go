package assignment

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/db"
)

type fixture struct {
	database     *sql.DB
	repo         *Repository
	student      auth.User
	classmate    auth.User
	assignmentID int64
	courseID     int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database))

	ctx := context.Background()
	users := auth.NewRepository(database).WithBcryptCost(4)
	student, err := users.CreateUser(ctx, "learn@example.com", "Password1", "Kofi Learns", auth.RoleUser)
	require.NoError(t, err)
	classmate, err := users.CreateUser(ctx, "peer@example.com", "Password1", "Ama Peers", auth.RoleUser)
	require.NoError(t, err)

	now := db.FormatTime(time.Now().UTC())
	res, err := database.ExecContext(ctx,
		`INSERT INTO courses (title, description, created_at) VALUES (?, ?, ?)`,
		"Intro to Weaving", "build things", now)
	require.NoError(t, err)
	courseID, err := res.LastInsertId()
	require.NoError(t, err)

	res, err = database.ExecContext(ctx,
		`INSERT INTO lessons (course_id, title, order_index, created_at) VALUES (?, ?, 1, ?)`,
		courseID, "Warp and weft", now)
	require.NoError(t, err)
	lessonID, err := res.LastInsertId()
	require.NoError(t, err)

	res, err = database.ExecContext(ctx,
		`INSERT INTO assignments (lesson_id, title, description, due_date, required, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
		lessonID, "Thread a loom", "Photograph your setup", "2026-10-01", now)
	require.NoError(t, err)
	assignmentID, err := res.LastInsertId()
	require.NoError(t, err)

	return fixture{
		database:     database,
		repo:         NewRepository(database),
		student:      student,
		classmate:    classmate,
		assignmentID: assignmentID,
		courseID:     courseID,
	}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestGetJoinsContext(t *testing.T) {
	f := newFixture(t)

	d, err := f.repo.Get(context.Background(), f.assignmentID)
	require.NoError(t, err)
	assert.Equal(t, "Thread a loom", d.Title)
	assert.Equal(t, "Warp and weft", d.LessonTitle)
	assert.Equal(t, f.courseID, d.CourseID)
	assert.Equal(t, "Intro to Weaving", d.CourseTitle)
	assert.True(t, d.Required)
	assert.Equal(t, "2026-10-01", d.DueDate)

	_, err = f.repo.Get(context.Background(), 9999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSubmissionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	existing, err := f.repo.StudentSubmission(ctx, f.assignmentID, f.student.ID)
	require.NoError(t, err)
	assert.Nil(t, existing)

	s, err := f.repo.CreateSubmission(ctx, f.assignmentID, f.student.ID, f.student.DisplayName, SubmissionInput{
		GithubRepoURL: strPtr("https://github.com/kofi/loom"),
		Notes:         strPtr("first attempt"),
	})
	require.NoError(t, err)
	assert.True(t, s.IsPublic)
	assert.Equal(t, "https://github.com/kofi/loom", s.GithubRepoURL)
	assert.Empty(t, s.LivePreviewURL)

	existing, err = f.repo.StudentSubmission(ctx, f.assignmentID, f.student.ID)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, s.ID, existing.ID)

	updated, err := f.repo.UpdateSubmission(ctx, s.ID, SubmissionInput{
		LivePreviewURL: strPtr("https://loom.example.com"),
		IsPublic:       boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/kofi/loom", updated.GithubRepoURL)
	assert.Equal(t, "https://loom.example.com", updated.LivePreviewURL)
	assert.Equal(t, "first attempt", updated.Notes)
	assert.False(t, updated.IsPublic)

	require.NoError(t, f.repo.DeleteSubmission(ctx, s.ID))
	assert.ErrorIs(t, f.repo.DeleteSubmission(ctx, s.ID), sql.ErrNoRows)
}

func TestDuplicateSubmissionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repo.CreateSubmission(ctx, f.assignmentID, f.student.ID, f.student.DisplayName, SubmissionInput{})
	require.NoError(t, err)
	_, err = f.repo.CreateSubmission(ctx, f.assignmentID, f.student.ID, f.student.DisplayName, SubmissionInput{})
	assert.Error(t, err)
}

func TestPublicSubmissionsHidesPrivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine, err := f.repo.CreateSubmission(ctx, f.assignmentID, f.student.ID, f.student.DisplayName, SubmissionInput{})
	require.NoError(t, err)
	_, err = f.repo.CreateSubmission(ctx, f.assignmentID, f.classmate.ID, f.classmate.DisplayName, SubmissionInput{
		IsPublic: boolPtr(false),
	})
	require.NoError(t, err)

	listed, err := f.repo.PublicSubmissions(ctx, f.assignmentID, f.student.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.ID, listed[0].ID)
	assert.True(t, listed[0].IsMine)

	listed, err = f.repo.PublicSubmissions(ctx, f.assignmentID, f.classmate.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.False(t, listed[0].IsMine)
}

func TestMySubmissionsCarriesCourseContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repo.CreateSubmission(ctx, f.assignmentID, f.student.ID, f.student.DisplayName, SubmissionInput{})
	require.NoError(t, err)

	mine, err := f.repo.MySubmissions(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Thread a loom", mine[0].AssignmentTitle)
	assert.Equal(t, "Warp and weft", mine[0].LessonTitle)
	assert.Equal(t, f.courseID, mine[0].CourseID)
	assert.Equal(t, "Intro to Weaving", mine[0].CourseTitle)

	none, err := f.repo.MySubmissions(ctx, f.classmate.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCommentsOnSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.repo.CreateSubmission(ctx, f.assignmentID, f.student.ID, f.student.DisplayName, SubmissionInput{})
	require.NoError(t, err)

	courseID, err := f.repo.SubmissionCourse(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, f.courseID, courseID)

	c, err := f.repo.CreateComment(ctx, s.ID, f.classmate.ID, f.classmate.DisplayName, "Nice threading")
	require.NoError(t, err)
	assert.Equal(t, "Nice threading", c.Content)

	comments, err := f.repo.Comments(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, f.classmate.ID, comments[0].UserID)
}
