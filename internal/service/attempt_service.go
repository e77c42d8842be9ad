package service

import (
	"errors"
	"time"

	"github.com/jinzhu/copier"
	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/dto"
	"github.com/lumenlms/lumen/internal/model"
	"github.com/lumenlms/lumen/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AttemptService drives the attempt lifecycle: gate-checked start, submission
// and result retrieval. Expired timed attempts encountered on any path are
// finalized through the same one-shot contract the sweeper uses.
type AttemptService interface {
	StartAttempt(quizID, studentID uint) (*dto.AttemptDTO, error)
	SubmitAttempt(attemptID, studentID uint) (*dto.AttemptResultDTO, error)
	GetAttemptResult(attemptID, studentID uint) (*dto.AttemptResultDTO, error)
	GetMyAttempts(quizID, studentID uint) ([]dto.AttemptSummaryDTO, error)
}

type attemptService struct {
	quizRepo     repository.QuizRepository
	attemptRepo  repository.AttemptRepository
	responseRepo repository.ResponseRepository
	gate         AttemptGate
	grader       GradingEngine
	now          func() time.Time
}

func NewAttemptService(
	quizRepo repository.QuizRepository,
	attemptRepo repository.AttemptRepository,
	responseRepo repository.ResponseRepository,
	gate AttemptGate,
	grader GradingEngine,
) AttemptService {
	return &attemptService{
		quizRepo:     quizRepo,
		attemptRepo:  attemptRepo,
		responseRepo: responseRepo,
		gate:         gate,
		grader:       grader,
		now:          time.Now,
	}
}

func (s *attemptService) StartAttempt(quizID, studentID uint) (*dto.AttemptDTO, error) {
	quiz, err := s.quizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrQuizNotFound
		}
		log.Error().Err(err).Uint("quizID", quizID).Msg("StartAttempt: failed to load quiz")
		return nil, err
	}

	now := s.now()

	prior, err := s.attemptRepo.FindAllByQuizAndStudent(quizID, studentID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Uint("studentID", studentID).Msg("StartAttempt: failed to load prior attempts")
		return nil, err
	}

	// An open attempt whose deadline already passed does not block a new
	// start: finalize it first, then re-evaluate.
	for i := range prior {
		if prior[i].Expired(quiz, now) {
			if err := s.finalizeExpired(&prior[i], quiz); err != nil && !errors.Is(err, apperr.ErrAttemptAlreadyCompleted) {
				return nil, err
			}
			prior[i].IsCompleted = true
		}
	}

	decision := s.gate.Authorize(quiz, prior, now)
	if !decision.Allowed {
		log.Info().
			Uint("quizID", quizID).
			Uint("studentID", studentID).
			Str("reason", string(decision.Denied.Code)).
			Msg("StartAttempt: denied")
		return nil, decision.Denied
	}

	attempt, err := s.attemptRepo.CreateForStudent(quizID, studentID, now)
	if err != nil {
		log.Warn().Err(err).Uint("quizID", quizID).Uint("studentID", studentID).Msg("StartAttempt: create failed")
		return nil, err
	}

	log.Info().
		Uint("quizID", quizID).
		Uint("studentID", studentID).
		Int("attemptNumber", attempt.AttemptNumber).
		Msg("Attempt started")

	return s.toAttemptDTO(attempt, quiz), nil
}

func (s *attemptService) SubmitAttempt(attemptID, studentID uint) (*dto.AttemptResultDTO, error) {
	attempt, quiz, err := s.loadOwnedAttempt(attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted {
		return nil, apperr.ErrAttemptAlreadyCompleted
	}

	now := s.now()
	if attempt.Expired(quiz, now) {
		// The timer owns expired attempts. Finalize on its behalf, then reject
		// the late manual submit.
		if err := s.finalizeExpired(attempt, quiz); err != nil && !errors.Is(err, apperr.ErrAttemptAlreadyCompleted) {
			return nil, err
		}
		return nil, apperr.ErrAttemptAlreadyCompleted
	}

	responses, err := s.responseRepo.FindByAttempt(attempt.ID)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("SubmitAttempt: failed to load responses")
		return nil, err
	}

	finalized, err := s.grader.FinalizeAttempt(attempt, quiz, responses, now, false)
	if err != nil {
		return nil, err
	}
	return s.buildResult(finalized, quiz)
}

func (s *attemptService) GetAttemptResult(attemptID, studentID uint) (*dto.AttemptResultDTO, error) {
	attempt, quiz, err := s.loadOwnedAttempt(attemptID, studentID)
	if err != nil {
		return nil, err
	}

	if !attempt.IsCompleted {
		if !attempt.Expired(quiz, s.now()) {
			return nil, apperr.New(apperr.CodeAttemptNotFound, "attempt has no result yet")
		}
		if err := s.finalizeExpired(attempt, quiz); err != nil && !errors.Is(err, apperr.ErrAttemptAlreadyCompleted) {
			return nil, err
		}
		reloaded, err := s.attemptRepo.FindByID(attempt.ID)
		if err != nil {
			return nil, err
		}
		attempt = reloaded
	}

	return s.buildResult(attempt, quiz)
}

func (s *attemptService) GetMyAttempts(quizID, studentID uint) ([]dto.AttemptSummaryDTO, error) {
	quiz, err := s.quizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrQuizNotFound
		}
		return nil, err
	}

	attempts, err := s.attemptRepo.FindAllByQuizAndStudent(quizID, studentID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Uint("studentID", studentID).Msg("GetMyAttempts: repository failure")
		return nil, err
	}

	summaries := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for i := range attempts {
		var summary dto.AttemptSummaryDTO
		if err := copier.Copy(&summary, &attempts[i]); err != nil {
			log.Error().Err(err).Uint("attemptID", attempts[i].ID).Msg("GetMyAttempts: failed to copy attempt to summary")
			continue
		}
		summary.Passed = s.grader.IsPassed(&attempts[i], quiz)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// loadOwnedAttempt fetches the attempt, enforces ownership and loads its quiz
// with questions.
func (s *attemptService) loadOwnedAttempt(attemptID, studentID uint) (*model.QuizAttempt, *model.Quiz, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.ErrAttemptNotFound
		}
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Failed to load attempt")
		return nil, nil, err
	}
	if attempt.StudentID != studentID {
		return nil, nil, apperr.ErrForbidden
	}

	quiz, err := s.quizRepo.FindByIDWithQuestions(attempt.QuizID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", attempt.QuizID).Msg("Failed to load quiz for attempt")
		return nil, nil, err
	}
	return attempt, quiz, nil
}

// finalizeExpired closes an overdue attempt as auto-submitted at its deadline.
func (s *attemptService) finalizeExpired(attempt *model.QuizAttempt, quiz *model.Quiz) error {
	deadline, ok := attempt.Deadline(quiz)
	if !ok {
		return nil
	}
	responses, err := s.responseRepo.FindByAttempt(attempt.ID)
	if err != nil {
		return err
	}
	_, err = s.grader.FinalizeAttempt(attempt, quiz, responses, deadline, true)
	return err
}

func (s *attemptService) toAttemptDTO(attempt *model.QuizAttempt, quiz *model.Quiz) *dto.AttemptDTO {
	out := &dto.AttemptDTO{
		ID:               attempt.ID,
		QuizID:           attempt.QuizID,
		AttemptNumber:    attempt.AttemptNumber,
		StartedAt:        attempt.StartedAt,
		TimeSpentSeconds: attempt.TimeSpentSeconds,
		IsCompleted:      attempt.IsCompleted,
	}
	if deadline, ok := attempt.Deadline(quiz); ok {
		out.Deadline = &deadline
	}
	return out
}

func (s *attemptService) buildResult(attempt *model.QuizAttempt, quiz *model.Quiz) (*dto.AttemptResultDTO, error) {
	responses, err := s.responseRepo.FindByAttempt(attempt.ID)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to load responses for result")
		return nil, err
	}
	responseByQuestion := make(map[uint]*model.QuizResponse, len(responses))
	for i := range responses {
		responseByQuestion[responses[i].QuestionID] = &responses[i]
	}

	result := &dto.AttemptResultDTO{
		ID:               attempt.ID,
		QuizID:           attempt.QuizID,
		QuizTitle:        quiz.Title,
		AttemptNumber:    attempt.AttemptNumber,
		StartedAt:        attempt.StartedAt,
		SubmittedAt:      attempt.SubmittedAt,
		TimeSpentSeconds: attempt.TimeSpentSeconds,
		Score:            attempt.Score,
		MaxScore:         attempt.MaxScore,
		Percentage:       attempt.Percentage,
		Passed:           s.grader.IsPassed(attempt, quiz),
		AutoSubmitted:    attempt.AutoSubmitted,
	}

	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		item := dto.ResponseResultDTO{
			QuestionID:   question.ID,
			QuestionText: question.Text,
			Type:         string(question.Type),
			Points:       question.Points,
		}
		if resp, ok := responseByQuestion[question.ID]; ok {
			payload := resp.Payload()
			item.Text = payload.Text
			item.Selected = payload.Selected
			item.PointsEarned = resp.PointsEarned
			item.IsCorrect = resp.IsCorrect
		} else if question.Type.AutoGradable() {
			incorrect := false
			item.IsCorrect = &incorrect
		}
		result.Responses = append(result.Responses, item)
	}
	return result, nil
}
