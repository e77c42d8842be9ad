package repository

import (
	"errors"

	"github.com/lumenlms/lumen/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponseRepository interface {
	// Upsert stores the answer for (attempt_id, question_id), overwriting a
	// previous answer for the same question and accumulating time spent.
	Upsert(response *model.QuizResponse) error
	FindByAttempt(attemptID uint) ([]model.QuizResponse, error)
	FindByAttemptAndQuestion(attemptID, questionID uint) (*model.QuizResponse, error)
}

type responseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Upsert(response *model.QuizResponse) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"answer":             response.Answer,
			"time_spent_seconds": gorm.Expr("quiz_responses.time_spent_seconds + ?", response.TimeSpentSeconds),
			"updated_at":         gorm.Expr("NOW()"),
		}),
	}).Create(response).Error
}

func (r *responseRepository) FindByAttempt(attemptID uint) ([]model.QuizResponse, error) {
	var responses []model.QuizResponse
	err := r.db.Where("attempt_id = ?", attemptID).Find(&responses).Error
	return responses, err
}

func (r *responseRepository) FindByAttemptAndQuestion(attemptID, questionID uint) (*model.QuizResponse, error) {
	var response model.QuizResponse
	err := r.db.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&response).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}
