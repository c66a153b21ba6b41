package assignment

import "time"

// Detail is an assignment joined with its lesson and course context.
type Detail struct {
	ID           int64       `json:"id"`
	LessonID     int64       `json:"lesson_id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	DueDate      string      `json:"due_date,omitempty"`
	Required     bool        `json:"required"`
	LessonTitle  string      `json:"lesson_title,omitempty"`
	CourseID     int64       `json:"course_id"`
	CourseTitle  string      `json:"course_title,omitempty"`
	MySubmission *Submission `json:"my_submission"`
	CreatedAt    time.Time   `json:"created_at"`
}

type Submission struct {
	ID             int64     `json:"id"`
	AssignmentID   int64     `json:"assignment_id"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name"`
	GithubRepoURL  string    `json:"github_repo_url,omitempty"`
	LivePreviewURL string    `json:"live_preview_url,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	IsPublic       bool      `json:"is_public"`
	IsMine         bool      `json:"is_mine,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`

	// Joined context, filled only by the my-submissions listing.
	AssignmentTitle string `json:"assignment_title,omitempty"`
	DueDate         string `json:"due_date,omitempty"`
	LessonTitle     string `json:"lesson_title,omitempty"`
	CourseID        int64  `json:"course_id,omitempty"`
	CourseTitle     string `json:"course_title,omitempty"`
}

// SubmissionInput carries a submit or partial-update payload.
type SubmissionInput struct {
	GithubRepoURL  *string `json:"github_repo_url"`
	LivePreviewURL *string `json:"live_preview_url"`
	Notes          *string `json:"notes"`
	IsPublic       *bool   `json:"is_public"`
}

type Comment struct {
	ID           int64     `json:"id"`
	SubmissionID int64     `json:"submission_id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}
