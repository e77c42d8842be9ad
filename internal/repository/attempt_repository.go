package repository

import (
	"errors"
	"time"

	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sequencerRetries bounds how often a lost insert race is retried before the
// caller sees ConcurrentAttemptConflict.
const sequencerRetries = 3

type AttemptRepository interface {
	// CreateForStudent assigns the next attempt number for the (quiz, student)
	// pair and inserts the attempt. The unique index on
	// (quiz_id, student_id, attempt_number) backstops concurrent starts:
	// exactly one request wins a number, losers recompute and retry.
	CreateForStudent(quizID, studentID uint, startedAt time.Time) (*model.QuizAttempt, error)

	FindByID(id uint) (*model.QuizAttempt, error)
	FindByIDWithResponses(id uint) (*model.QuizAttempt, error)
	FindAllByQuizAndStudent(quizID, studentID uint) ([]model.QuizAttempt, error)
	FindAllByQuiz(quizID uint) ([]model.QuizAttempt, error)
	FindOpen(quizID, studentID uint) (*model.QuizAttempt, error)
	CountCompleted(quizID, studentID uint) (int64, error)

	// AccrueTime adds delta seconds to an open attempt, capped at limitSeconds
	// when the quiz is timed (limitSeconds <= 0 means uncapped).
	AccrueTime(attemptID uint, delta, limitSeconds int) error

	// Finalize writes graded responses and the attempt's terminal fields in one
	// transaction, guarded by a compare-and-set on is_completed. The losing
	// caller gets apperr.ErrAttemptAlreadyCompleted and must not double-score.
	Finalize(attempt *model.QuizAttempt, graded []model.QuizResponse) error

	// FindExpiredOpen returns open attempts of timed quizzes whose deadline
	// passed before now, for the auto-submit sweeper.
	FindExpiredOpen(now time.Time, limit int) ([]model.QuizAttempt, error)

	// ApplyManualGrades updates essay response grades and the attempt's score
	// fields transactionally. Used by the teacher grading path only.
	ApplyManualGrades(attempt *model.QuizAttempt, graded []model.QuizResponse) error
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) CreateForStudent(quizID, studentID uint, startedAt time.Time) (*model.QuizAttempt, error) {
	var lastErr error

	for i := 0; i < sequencerRetries; i++ {
		attempt := model.QuizAttempt{
			QuizID:    quizID,
			StudentID: studentID,
			StartedAt: startedAt,
		}

		err := r.db.Transaction(func(tx *gorm.DB) error {
			// Lock the latest attempt row instead of locking an aggregate:
			// Postgres rejects FOR UPDATE on aggregate queries. When no prior
			// row exists there is nothing to lock and two first starters can
			// both pick number 1; the unique index settles that race below.
			var last model.QuizAttempt
			err := tx.Select("attempt_number").
				Where("quiz_id = ? AND student_id = ?", quizID, studentID).
				Order("attempt_number DESC").
				Limit(1).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Take(&last).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			attempt.AttemptNumber = last.AttemptNumber + 1
			return tx.Create(&attempt).Error
		})
		if err == nil {
			return &attempt, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		lastErr = err
	}
	return nil, apperr.Wrap(apperr.CodeConcurrentConflict, "attempt number contention", lastErr)
}

func (r *attemptRepository) FindByID(id uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	if err := r.db.First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithResponses(id uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	if err := r.db.Preload("Responses").First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindAllByQuizAndStudent(quizID, studentID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.db.
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindAllByQuiz(quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.db.
		Where("quiz_id = ?", quizID).
		Order("student_id ASC, attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindOpen(quizID, studentID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.db.
		Where("quiz_id = ? AND student_id = ? AND is_completed = ?", quizID, studentID, false).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) CountCompleted(quizID, studentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ? AND is_completed = ?", quizID, studentID, true).
		Count(&count).Error
	return count, err
}

func (r *attemptRepository) AccrueTime(attemptID uint, delta, limitSeconds int) error {
	update := r.db.Model(&model.QuizAttempt{}).
		Where("id = ? AND is_completed = ?", attemptID, false)
	if limitSeconds > 0 {
		return update.Update("time_spent_seconds", gorm.Expr("LEAST(time_spent_seconds + ?, ?)", delta, limitSeconds)).Error
	}
	return update.Update("time_spent_seconds", gorm.Expr("time_spent_seconds + ?", delta)).Error
}

func (r *attemptRepository) Finalize(attempt *model.QuizAttempt, graded []model.QuizResponse) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.QuizAttempt{}).
			Where("id = ? AND is_completed = ?", attempt.ID, false).
			Updates(map[string]interface{}{
				"is_completed":       true,
				"auto_submitted":     attempt.AutoSubmitted,
				"submitted_at":       attempt.SubmittedAt,
				"time_spent_seconds": attempt.TimeSpentSeconds,
				"score":              attempt.Score,
				"max_score":          attempt.MaxScore,
				"percentage":         attempt.Percentage,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrAttemptAlreadyCompleted
		}
		for i := range graded {
			resp := &graded[i]
			err := tx.Model(&model.QuizResponse{}).
				Where("id = ?", resp.ID).
				Updates(map[string]interface{}{
					"points_earned": resp.PointsEarned,
					"is_correct":    resp.IsCorrect,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *attemptRepository) FindExpiredOpen(now time.Time, limit int) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.db.
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id").
		Where("quiz_attempts.is_completed = ?", false).
		Where("quizzes.time_limit_minutes IS NOT NULL AND quizzes.time_limit_minutes > 0").
		Where("quiz_attempts.started_at + quizzes.time_limit_minutes * INTERVAL '1 minute' <= ?", now).
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) ApplyManualGrades(attempt *model.QuizAttempt, graded []model.QuizResponse) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range graded {
			resp := &graded[i]
			err := tx.Model(&model.QuizResponse{}).
				Where("id = ?", resp.ID).
				Updates(map[string]interface{}{
					"points_earned": resp.PointsEarned,
					"is_correct":    resp.IsCorrect,
				}).Error
			if err != nil {
				return err
			}
		}
		return tx.Model(&model.QuizAttempt{}).
			Where("id = ? AND is_completed = ?", attempt.ID, true).
			Updates(map[string]interface{}{
				"score":      attempt.Score,
				"percentage": attempt.Percentage,
			}).Error
	})
}
