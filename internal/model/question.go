package model

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionEssay          QuestionType = "essay"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer, QuestionFillBlank, QuestionEssay:
		return true
	}
	return false
}

// AutoGradable reports whether the grading engine can score this type
// without a teacher. Essays are graded manually.
func (t QuestionType) AutoGradable() bool {
	return t != QuestionEssay
}

type Question struct {
	ID       uint         `gorm:"primarykey" json:"id"`
	QuizID   uint         `json:"quiz_id" gorm:"not null;index"`
	Type     QuestionType `json:"type" gorm:"not null"`
	Text     string       `json:"text" gorm:"type:text;not null"`
	Points   float64      `json:"points" gorm:"not null;default:0"`
	Position int          `json:"position" gorm:"not null"`

	// Canonical answer for true_false, short_answer and fill_blank.
	// Nil for multiple_choice (options carry the key) and essay.
	CorrectAnswer *string `json:"correct_answer,omitempty"`

	Options []QuestionOption `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CorrectOptionTexts returns the option texts flagged correct, for exact-set
// comparison against a submitted selection.
func (q *Question) CorrectOptionTexts() []string {
	var texts []string
	for _, opt := range q.Options {
		if opt.IsCorrect {
			texts = append(texts, opt.Text)
		}
	}
	return texts
}

type QuestionOption struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`
	Position   int    `json:"position" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
