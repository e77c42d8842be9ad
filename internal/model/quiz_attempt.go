package model

import (
	"time"

	"gorm.io/gorm"
)

// QuizAttempt is one timed instance of a student taking a quiz. The
// (quiz_id, student_id, attempt_number) triple is unique; numbers form a
// gap-free sequence starting at 1. Once IsCompleted is set the row is
// immutable to every engine operation.
type QuizAttempt struct {
	ID            uint `gorm:"primarykey" json:"id"`
	QuizID        uint `json:"quiz_id" gorm:"not null;uniqueIndex:idx_quiz_student_attempt,priority:1"`
	Quiz          Quiz `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
	StudentID     uint `json:"student_id" gorm:"not null;uniqueIndex:idx_quiz_student_attempt,priority:2;index"`
	AttemptNumber int  `json:"attempt_number" gorm:"not null;uniqueIndex:idx_quiz_student_attempt,priority:3"`

	StartedAt        time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	TimeSpentSeconds int        `json:"time_spent_seconds" gorm:"not null;default:0"`

	Score         float64 `json:"score" gorm:"not null;default:0"`
	MaxScore      float64 `json:"max_score" gorm:"not null;default:0"`
	Percentage    float64 `json:"percentage" gorm:"not null;default:0"`
	IsCompleted   bool    `json:"is_completed" gorm:"not null;default:false;index"`
	AutoSubmitted bool    `json:"auto_submitted" gorm:"not null;default:false"`

	Responses []QuizResponse `json:"responses,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Deadline returns the instant the attempt must be auto-submitted, or false
// when the quiz carries no time limit.
func (a *QuizAttempt) Deadline(quiz *Quiz) (time.Time, bool) {
	limit, ok := quiz.TimeLimit()
	if !ok {
		return time.Time{}, false
	}
	return a.StartedAt.Add(limit), true
}

// Expired reports whether an open attempt has outlived its time limit.
func (a *QuizAttempt) Expired(quiz *Quiz, now time.Time) bool {
	if a.IsCompleted {
		return false
	}
	deadline, ok := a.Deadline(quiz)
	return ok && !now.Before(deadline)
}
