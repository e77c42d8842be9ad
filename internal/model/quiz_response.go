package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnswerPayload is the polymorphic submitted answer: free text for
// true_false/short_answer/fill_blank/essay, a selection of option texts for
// multiple_choice.
type AnswerPayload struct {
	Text     string   `json:"text,omitempty"`
	Selected []string `json:"selected,omitempty"`
}

// QuizResponse is a student's recorded answer to one question within an
// attempt, unique per (attempt_id, question_id). IsCorrect stays nil until
// grading, and permanently for essays.
type QuizResponse struct {
	ID         uint `gorm:"primarykey" json:"id"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question,priority:1"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question,priority:2"`

	Answer datatypes.JSON `json:"answer" gorm:"type:jsonb"`

	PointsEarned     float64 `json:"points_earned" gorm:"not null;default:0"`
	IsCorrect        *bool   `json:"is_correct,omitempty"`
	TimeSpentSeconds int     `json:"time_spent_seconds" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Payload decodes the stored answer. An empty or malformed payload decodes to
// the zero value, which grades as a non-matching answer.
func (r *QuizResponse) Payload() AnswerPayload {
	var p AnswerPayload
	if len(r.Answer) > 0 {
		_ = json.Unmarshal(r.Answer, &p)
	}
	return p
}
