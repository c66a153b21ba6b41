package course

import "time"

type Course struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	InstructorID   string    `json:"instructor_id,omitempty"`
	InstructorName string    `json:"instructor_name,omitempty"`
	IsEnrolled     bool      `json:"is_enrolled"`
	CreatedAt      time.Time `json:"created_at"`
}

type Lesson struct {
	ID          int64        `json:"id"`
	CourseID    int64        `json:"course_id"`
	Title       string       `json:"title"`
	Content     string       `json:"content,omitempty"`
	VideoURL    string       `json:"video_url,omitempty"`
	OrderIndex  int          `json:"order_index"`
	Assignments []Assignment `json:"assignments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Assignment struct {
	ID          int64     `json:"id"`
	LessonID    int64     `json:"lesson_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	Required    bool      `json:"required"`
	CreatedAt   time.Time `json:"created_at"`
}

type Enrollment struct {
	ID               int64      `json:"id"`
	UserID           string     `json:"user_id"`
	CourseID         int64      `json:"course_id"`
	CompletedLessons []int64    `json:"completed_lessons"`
	EnrolledAt       time.Time  `json:"enrolled_at"`
	LastAccessedAt   *time.Time `json:"last_accessed_at,omitempty"`
}

// Progress summarizes how far a student is through a course.
type Progress struct {
	CourseID             int64      `json:"course_id"`
	CompletedLessons     []int64    `json:"completed_lessons"`
	TotalLessons         int        `json:"total_lessons"`
	CompletionPercentage int        `json:"completion_percentage"`
	EnrolledAt           *time.Time `json:"enrolled_at,omitempty"`
	LastAccessedAt       *time.Time `json:"last_accessed_at,omitempty"`
}

// Detail is the enrolled view of a course: lessons with their
// assignments plus the caller's progress.
type Detail struct {
	Course
	Lessons  []Lesson `json:"lessons"`
	Progress Progress `json:"progress"`
}

type Input struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}
