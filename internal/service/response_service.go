package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/dto"
	"github.com/lumenlms/lumen/internal/model"
	"github.com/lumenlms/lumen/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ResponseRecorder accepts and updates a student's answer for one question of
// an open attempt. Answers are stored ungraded; the grading engine scores
// everything at submission time.
type ResponseRecorder interface {
	RecordAnswer(attemptID, studentID uint, req dto.RecordAnswerRequest) (*dto.ResponseDTO, error)
}

type responseRecorder struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.AttemptRepository
	responseRepo repository.ResponseRepository
	now          func() time.Time
}

func NewResponseRecorder(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.AttemptRepository,
	responseRepo repository.ResponseRepository,
) ResponseRecorder {
	return &responseRecorder{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		responseRepo: responseRepo,
		now:          time.Now,
	}
}

func (r *responseRecorder) RecordAnswer(attemptID, studentID uint, req dto.RecordAnswerRequest) (*dto.ResponseDTO, error) {
	attempt, err := r.attemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrAttemptNotFound
		}
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("RecordAnswer: failed to load attempt")
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, apperr.ErrForbidden
	}
	if attempt.IsCompleted {
		return nil, apperr.ErrAttemptAlreadyCompleted
	}

	quiz, err := r.quizRepo.FindByIDWithQuestions(attempt.QuizID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", attempt.QuizID).Msg("RecordAnswer: failed to load quiz")
		return nil, err
	}

	if attempt.Expired(quiz, r.now()) {
		// Too late: the attempt belongs to the timer now. The sweeper (or the
		// next lifecycle call) finalizes it with whatever was recorded.
		return nil, apperr.ErrAttemptAlreadyCompleted
	}

	question := findQuestion(quiz, req.QuestionID)
	if question == nil {
		return nil, apperr.ErrQuestionNotFound
	}

	payload := model.AnswerPayload{Text: req.Text, Selected: req.Selected}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	response := &model.QuizResponse{
		AttemptID:        attempt.ID,
		QuestionID:       question.ID,
		Answer:           raw,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}
	if err := r.responseRepo.Upsert(response); err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Uint("questionID", question.ID).Msg("RecordAnswer: upsert failed")
		return nil, err
	}

	if req.TimeSpentSeconds > 0 {
		limitSeconds := 0
		if limit, ok := quiz.TimeLimit(); ok {
			limitSeconds = int(limit.Seconds())
		}
		if err := r.attemptRepo.AccrueTime(attempt.ID, req.TimeSpentSeconds, limitSeconds); err != nil {
			// Time accrual is advisory; the answer itself is saved.
			log.Warn().Err(err).Uint("attemptID", attempt.ID).Msg("RecordAnswer: failed to accrue time")
		}
	}

	return &dto.ResponseDTO{
		AttemptID:        attempt.ID,
		QuestionID:       question.ID,
		Text:             req.Text,
		Selected:         req.Selected,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}, nil
}

func findQuestion(quiz *model.Quiz, questionID uint) *model.Question {
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == questionID {
			return &quiz.Questions[i]
		}
	}
	return nil
}
