package assignment

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/course"
	"portfolio-server/internal/web"
)

type Handler struct {
	repo    *Repository
	courses *course.Repository
	users   *auth.Repository
}

func NewHandler(repo *Repository, courses *course.Repository, users *auth.Repository) *Handler {
	return &Handler{repo: repo, courses: courses, users: users}
}

// Get returns assignment detail with the caller's submission attached.
// Requires enrollment in the owning course.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r, "Assignment not found")
	if !ok {
		return
	}

	d, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Assignment not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load assignment")
		return
	}

	if !h.requireEnrollment(w, r, identity.ID, d.CourseID, "You must be enrolled in this course to view assignments") {
		return
	}

	submission, err := h.repo.StudentSubmission(r.Context(), id, identity.ID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load submission")
		return
	}
	d.MySubmission = submission

	web.JSON(w, http.StatusOK, d)
}

// Submit records the caller's submission. One per student per
// assignment; updates go through the submissions resource.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r, "Assignment not found")
	if !ok {
		return
	}

	var input SubmissionInput
	if err := web.DecodeJSON(w, r, &input); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	d, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Assignment not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load assignment")
		return
	}

	if !h.requireEnrollment(w, r, identity.ID, d.CourseID, "You must be enrolled in this course to submit assignments") {
		return
	}

	existing, err := h.repo.StudentSubmission(r.Context(), id, identity.ID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load submission")
		return
	}
	if existing != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "You have already submitted this assignment. Use PUT to update your submission.")
		return
	}

	if !validSubmissionURLs(w, input) {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), identity.ID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load user")
		return
	}

	s, err := h.repo.CreateSubmission(r.Context(), id, identity.ID, user.DisplayName, input)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to create submission")
		return
	}

	web.JSON(w, http.StatusCreated, map[string]any{
		"message":    "Assignment submitted successfully",
		"submission": s,
	})
}

func (h *Handler) UpdateSubmission(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r, "Submission not found")
	if !ok {
		return
	}

	var input SubmissionInput
	if err := web.DecodeJSON(w, r, &input); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	existing, err := h.repo.GetSubmission(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Submission not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load submission")
		return
	}

	if existing.StudentID != identity.ID {
		web.Error(w, http.StatusForbidden, web.CodeForbidden, "You can only update your own submissions")
		return
	}

	if !validSubmissionURLs(w, input) {
		return
	}

	s, err := h.repo.UpdateSubmission(r.Context(), id, input)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to update submission")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"message":    "Submission updated successfully",
		"submission": s,
	})
}

func (h *Handler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r, "Submission not found")
	if !ok {
		return
	}

	existing, err := h.repo.GetSubmission(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Submission not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load submission")
		return
	}

	if existing.StudentID != identity.ID {
		web.Error(w, http.StatusForbidden, web.CodeForbidden, "You can only delete your own submissions")
		return
	}

	if err := h.repo.DeleteSubmission(r.Context(), id); err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to delete submission")
		return
	}

	web.JSON(w, http.StatusOK, map[string]string{"message": "Submission deleted successfully"})
}

// Submissions lists the public submissions for an assignment.
func (h *Handler) Submissions(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r, "Assignment not found")
	if !ok {
		return
	}

	d, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Assignment not found")
			return
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load assignment")
		return
	}

	if !h.requireEnrollment(w, r, identity.ID, d.CourseID, "You must be enrolled in this course to view submissions") {
		return
	}

	submissions, err := h.repo.PublicSubmissions(r.Context(), id, identity.ID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to list submissions")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"assignment_id":    id,
		"assignment_title": d.Title,
		"submissions":      submissions,
	})
}

func (h *Handler) MySubmissions(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	submissions, err := h.repo.MySubmissions(r.Context(), identity.ID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to list submissions")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{"submissions": submissions})
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r, "Submission not found")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "invalid json body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "Comment content is required")
		return
	}

	if !h.commentAccess(w, r, identity.ID, id, "Cannot comment on private submissions", "You must be enrolled in this course to comment") {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), identity.ID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load user")
		return
	}

	c, err := h.repo.CreateComment(r.Context(), id, identity.ID, user.DisplayName, content)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to add comment")
		return
	}

	web.JSON(w, http.StatusCreated, map[string]any{
		"message": "Comment added successfully",
		"comment": c,
	})
}

func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id, ok := pathID(w, r, "Submission not found")
	if !ok {
		return
	}

	if !h.commentAccess(w, r, identity.ID, id, "Cannot view comments on private submissions", "You must be enrolled in this course to view comments") {
		return
	}

	comments, err := h.repo.Comments(r.Context(), id)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to list comments")
		return
	}

	web.JSON(w, http.StatusOK, map[string]any{
		"submission_id": id,
		"comments":      comments,
	})
}

// commentAccess enforces the privacy and enrollment rules shared by the
// comment endpoints. Writes the error response itself.
func (h *Handler) commentAccess(w http.ResponseWriter, r *http.Request, userID string, submissionID int64, privateMsg, enrollMsg string) bool {
	submission, err := h.repo.GetSubmission(r.Context(), submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			web.Error(w, http.StatusNotFound, web.CodeNotFound, "Submission not found")
			return false
		}
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load submission")
		return false
	}

	if !submission.IsPublic && submission.StudentID != userID {
		web.Error(w, http.StatusForbidden, web.CodeForbidden, privateMsg)
		return false
	}

	courseID, err := h.repo.SubmissionCourse(r.Context(), submissionID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load submission")
		return false
	}

	return h.requireEnrollment(w, r, userID, courseID, enrollMsg)
}

func (h *Handler) requireEnrollment(w http.ResponseWriter, r *http.Request, userID string, courseID int64, msg string) bool {
	enrollment, err := h.courses.GetEnrollment(r.Context(), userID, courseID)
	if err != nil {
		sentry.CaptureException(err)
		web.Error(w, http.StatusInternalServerError, web.CodeInternalError, "failed to load enrollment")
		return false
	}
	if enrollment == nil {
		web.Error(w, http.StatusForbidden, web.CodeForbidden, msg)
		return false
	}
	return true
}

func validSubmissionURLs(w http.ResponseWriter, input SubmissionInput) bool {
	if input.GithubRepoURL != nil && *input.GithubRepoURL != "" && !validURL(*input.GithubRepoURL) {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "Invalid GitHub repository URL")
		return false
	}
	if input.LivePreviewURL != nil && *input.LivePreviewURL != "" && !validURL(*input.LivePreviewURL) {
		web.Error(w, http.StatusBadRequest, web.CodeValidationError, "Invalid live preview URL")
		return false
	}
	return true
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func pathID(w http.ResponseWriter, r *http.Request, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		web.Error(w, http.StatusNotFound, web.CodeNotFound, notFound)
		return 0, false
	}
	return id, true
}
