package course

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/web"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	courses, err := h.repo.List(r.Context(), identity.ID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to list courses")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{"courses": courses})
}

// Get returns the full course detail. Content is gated on enrollment.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := h.repo.Get(r.Context(), id, identity.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Course not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load course")
		return
	}

	if !c.IsEnrolled {
		web.Error(w, http.StatusForbidden, web.CodeForbidden, "You must be enrolled in this course to view its content")
		return
	}

	lessons, err := h.repo.Lessons(r.Context(), id)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load lessons")
		return
	}

	enrollment, err := h.repo.GetEnrollment(r.Context(), identity.ID, id)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load enrollment")
		return
	}

	completed := []int64{}
	if enrollment != nil {
		completed = enrollment.CompletedLessons
	}

	web.JSON(w, http.StatusOK, Detail{
		Course:  c,
		Lessons: lessons,
		Progress: Progress{
			CourseID:             id,
			CompletedLessons:     completed,
			TotalLessons:         len(lessons),
			CompletionPercentage: percentage(len(completed), len(lessons)),
		},
	})
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.repo.Get(r.Context(), id, identity.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Course not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load course")
		return
	}

	created, err := h.repo.Enroll(r.Context(), identity.ID, id)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to enroll")
		return
	}
	if !created {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "Already enrolled in this course")
		return
	}

	web.JSON(w, http.StatusCreated, map[string]any{
		"message":   "Successfully enrolled in course",
		"course_id": id,
	})
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	enrollment, err := h.repo.GetEnrollment(r.Context(), identity.ID, id)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load enrollment")
		return
	}
	if enrollment == nil {
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "Not enrolled in this course")
		return
	}

	total, err := h.repo.CountLessons(r.Context(), id)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to count lessons")
		return
	}

	web.JSON(w, http.StatusOK, Progress{
		CourseID:             id,
		CompletedLessons:     enrollment.CompletedLessons,
		TotalLessons:         total,
		CompletionPercentage: percentage(len(enrollment.CompletedLessons), total),
		EnrolledAt:           &enrollment.EnrolledAt,
		LastAccessedAt:       enrollment.LastAccessedAt,
	})
}

// CompleteLesson marks a lesson done for the caller. Idempotent.
func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "Lesson not found")
		return
	}

	lesson, err := h.repo.GetLesson(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Lesson not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load lesson")
		return
	}

	enrollment, err := h.repo.GetEnrollment(r.Context(), identity.ID, lesson.CourseID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load enrollment")
		return
	}
	if enrollment == nil {
		web.Error(w, http.StatusForbidden, web.CodeForbidden, "Not enrolled in this course")
		return
	}

	completed := enrollment.CompletedLessons
	seen := false
	for _, lessonID := range completed {
		if lessonID == id {
			seen = true
			break
		}
	}
	if !seen {
		completed = append(completed, id)
		if err := h.repo.SaveCompletedLessons(r.Context(), identity.ID, lesson.CourseID, completed); err != nil {
			sentry.CaptureException(err)
			web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to update progress")
			return
		}
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"message":           "Lesson marked as complete",
		"lesson_id":         id,
		"completed_lessons": completed,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var input Input
	if err := web.DecodeJSON(w, r, &input); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	fields := map[string]string{}
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		fields["title"] = "Title is required"
	}
	if input.Description == nil || strings.TrimSpace(*input.Description) == "" {
		fields["description"] = "Description is required"
	}
	if len(fields) > 0 {
		web.ValidationError(w, fields)
		return
	}

	c, err := h.repo.Create(r.Context(), identity.ID, input)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to create course")
		return
	}

	web.JSON(w, http.StatusCreated, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var input Input
	if err := web.DecodeJSON(w, r, &input); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	existing, err := h.repo.Get(r.Context(), id, identity.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Course not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load course")
		return
	}

	if existing.InstructorID != identity.ID && identity.Role != auth.RoleAdmin {
		web.Error(w, http.StatusForbidden, web.CodeForbidden, "Not authorized to update this course")
		return
	}

	c, err := h.repo.Update(r.Context(), id, identity.ID, input)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to update course")
		return
	}

	web.JSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	existing, err := h.repo.Get(r.Context(), id, identity.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Course not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load course")
		return
	}

	if existing.InstructorID != identity.ID && identity.Role != auth.RoleAdmin {
		web.Error(w, http.StatusForbidden, web.CodeForbidden, "Not authorized to delete this course")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to delete course")
		return
	}

	web.JSON(w, http.StatusOK, map[string]string{"message": "Course deleted successfully"})
}

func percentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(completed)/float64(total)*100 + 0.5)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		web.Error(w, http.StatusNotFound, web.CodeNotFound, "Course not found")
		return 0, false
	}
	return id, true
}
