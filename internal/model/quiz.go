package model

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	LessonID    *uint  `json:"lesson_id,omitempty" gorm:"index"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description,omitempty"`

	TimeLimitMinutes *int    `json:"time_limit_minutes,omitempty"`
	MaxAttempts      int     `json:"max_attempts" gorm:"not null;default:1"`
	PassingScore     float64 `json:"passing_score" gorm:"not null;default:0"` // percent
	AllowRetake      bool    `json:"allow_retake" gorm:"not null;default:false"`

	IsPublished    bool       `json:"is_published" gorm:"not null;default:false"`
	IsActive       bool       `json:"is_active" gorm:"not null;default:true"`
	AvailableFrom  *time.Time `json:"available_from,omitempty"`
	AvailableUntil *time.Time `json:"available_until,omitempty"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TimeLimit returns the attempt duration, or false when the quiz is untimed.
func (q *Quiz) TimeLimit() (time.Duration, bool) {
	if q.TimeLimitMinutes == nil || *q.TimeLimitMinutes <= 0 {
		return 0, false
	}
	return time.Duration(*q.TimeLimitMinutes) * time.Minute, true
}

// TotalPoints sums the points of every question, answered or not.
func (q *Quiz) TotalPoints() float64 {
	var total float64
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}
