package dto

import "time"

// OptionCreateDTO is one choice of a multiple_choice question.
type OptionCreateDTO struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
	Position  int    `json:"position"`
}

// QuestionCreateDTO is used within QuizCreateDTO for admin quiz creation.
type QuestionCreateDTO struct {
	Type          string            `json:"type" binding:"required,oneof=multiple_choice true_false short_answer fill_blank essay"`
	Text          string            `json:"text" binding:"required"`
	Points        float64           `json:"points" binding:"gte=0"`
	Position      int               `json:"position"`
	CorrectAnswer *string           `json:"correct_answer,omitempty"`
	Options       []OptionCreateDTO `json:"options,omitempty" binding:"omitempty,dive"`
}

// QuizCreateDTO is for admins to create a quiz with all its questions.
type QuizCreateDTO struct {
	LessonID         *uint               `json:"lesson_id,omitempty"`
	Title            string              `json:"title" binding:"required"`
	Description      string              `json:"description,omitempty"`
	TimeLimitMinutes *int                `json:"time_limit_minutes,omitempty" binding:"omitempty,gt=0"`
	MaxAttempts      int                 `json:"max_attempts" binding:"required,min=1"`
	PassingScore     float64             `json:"passing_score" binding:"gte=0,lte=100"`
	AllowRetake      bool                `json:"allow_retake"`
	IsPublished      bool                `json:"is_published"`
	AvailableFrom    *time.Time          `json:"available_from,omitempty"`
	AvailableUntil   *time.Time          `json:"available_until,omitempty"`
	Questions        []QuestionCreateDTO `json:"questions" binding:"required,min=1,dive"`
}

// PublishStateDTO toggles a quiz's visibility to students.
type PublishStateDTO struct {
	IsPublished bool `json:"is_published"`
	IsActive    bool `json:"is_active"`
}

// OptionDTO is a student-safe option view: correctness flags are stripped.
type OptionDTO struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// QuestionDTO is a student-safe question view: no correct answers.
type QuestionDTO struct {
	ID       uint        `json:"id"`
	Type     string      `json:"type"`
	Text     string      `json:"text"`
	Points   float64     `json:"points"`
	Position int         `json:"position"`
	Options  []OptionDTO `json:"options,omitempty"`
}

// QuizSummaryDTO lists quizzes available to students.
type QuizSummaryDTO struct {
	ID               uint       `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	QuestionCount    int        `json:"question_count"`
	TimeLimitMinutes *int       `json:"time_limit_minutes,omitempty"`
	MaxAttempts      int        `json:"max_attempts"`
	PassingScore     float64    `json:"passing_score"`
	AllowRetake      bool       `json:"allow_retake"`
	AvailableFrom    *time.Time `json:"available_from,omitempty"`
	AvailableUntil   *time.Time `json:"available_until,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// QuizDetailDTO is the full student-facing quiz view.
type QuizDetailDTO struct {
	ID               uint          `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	TimeLimitMinutes *int          `json:"time_limit_minutes,omitempty"`
	MaxAttempts      int           `json:"max_attempts"`
	PassingScore     float64       `json:"passing_score"`
	AllowRetake      bool          `json:"allow_retake"`
	AvailableFrom    *time.Time    `json:"available_from,omitempty"`
	AvailableUntil   *time.Time    `json:"available_until,omitempty"`
	Questions        []QuestionDTO `json:"questions,omitempty"`
}

// ErrorResponse is the error envelope every handler returns.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
