package dto

import "time"

// AttemptDTO is returned when an attempt is started or inspected while open.
type AttemptDTO struct {
	ID               uint       `json:"id"`
	QuizID           uint       `json:"quiz_id"`
	AttemptNumber    int        `json:"attempt_number"`
	StartedAt        time.Time  `json:"started_at"`
	Deadline         *time.Time `json:"deadline,omitempty"` // absent for untimed quizzes
	TimeSpentSeconds int        `json:"time_spent_seconds"`
	IsCompleted      bool       `json:"is_completed"`
}

// RecordAnswerRequest upserts the answer for one question of an open attempt.
// Text carries free-form answers, Selected the chosen option texts for
// multiple_choice. TimeSpentSeconds is the delta since the last save; the
// server clamps accumulated time to the quiz's limit.
type RecordAnswerRequest struct {
	QuestionID       uint     `json:"question_id" binding:"required"`
	Text             string   `json:"text,omitempty"`
	Selected         []string `json:"selected,omitempty"`
	TimeSpentSeconds int      `json:"time_spent_seconds" binding:"gte=0"`
}

// ResponseDTO acknowledges a recorded answer.
type ResponseDTO struct {
	AttemptID        uint     `json:"attempt_id"`
	QuestionID       uint     `json:"question_id"`
	Text             string   `json:"text,omitempty"`
	Selected         []string `json:"selected,omitempty"`
	TimeSpentSeconds int      `json:"time_spent_seconds"`
}

// ResponseResultDTO is one graded answer inside an attempt result. IsCorrect
// is null for essays awaiting manual grading.
type ResponseResultDTO struct {
	QuestionID   uint     `json:"question_id"`
	QuestionText string   `json:"question_text"`
	Type         string   `json:"type"`
	Points       float64  `json:"points"`
	Text         string   `json:"text,omitempty"`
	Selected     []string `json:"selected,omitempty"`
	PointsEarned float64  `json:"points_earned"`
	IsCorrect    *bool    `json:"is_correct"`
}

// AttemptResultDTO is the full outcome of a completed attempt.
type AttemptResultDTO struct {
	ID               uint                `json:"id"`
	QuizID           uint                `json:"quiz_id"`
	QuizTitle        string              `json:"quiz_title"`
	AttemptNumber    int                 `json:"attempt_number"`
	StartedAt        time.Time           `json:"started_at"`
	SubmittedAt      *time.Time          `json:"submitted_at,omitempty"`
	TimeSpentSeconds int                 `json:"time_spent_seconds"`
	Score            float64             `json:"score"`
	MaxScore         float64             `json:"max_score"`
	Percentage       float64             `json:"percentage"`
	Passed           bool                `json:"passed"`
	AutoSubmitted    bool                `json:"auto_submitted"`
	Responses        []ResponseResultDTO `json:"responses,omitempty"`
}

// AttemptSummaryDTO lists a student's attempts for one quiz.
type AttemptSummaryDTO struct {
	ID            uint       `json:"id"`
	QuizID        uint       `json:"quiz_id"`
	StudentID     uint       `json:"student_id,omitempty"`
	AttemptNumber int        `json:"attempt_number"`
	StartedAt     time.Time  `json:"started_at"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	Score         float64    `json:"score"`
	MaxScore      float64    `json:"max_score"`
	Percentage    float64    `json:"percentage"`
	IsCompleted   bool       `json:"is_completed"`
	AutoSubmitted bool       `json:"auto_submitted"`
	Passed        bool       `json:"passed"`
}

// EssayGradeItem assigns points to one essay response during manual grading.
type EssayGradeItem struct {
	QuestionID uint    `json:"question_id" binding:"required"`
	Points     float64 `json:"points" binding:"gte=0"`
}

// EssayGradesRequest is the teacher's manual-grading payload for an attempt.
type EssayGradesRequest struct {
	Grades []EssayGradeItem `json:"grades" binding:"required,min=1,dive"`
}
