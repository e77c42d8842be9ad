package service

import (
	"errors"
	"time"

	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/dto"
	"github.com/lumenlms/lumen/internal/model"
	"github.com/lumenlms/lumen/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// QuizService is the student-facing quiz catalog. Detail views never include
// answer keys.
type QuizService interface {
	GetAvailableQuizzes() ([]dto.QuizSummaryDTO, error)
	GetQuizDetails(quizID uint) (*dto.QuizDetailDTO, error)
}

type quizService struct {
	quizRepo     repository.QuizRepository
	availability AvailabilityPolicy
	now          func() time.Time
}

func NewQuizService(quizRepo repository.QuizRepository, availability AvailabilityPolicy) QuizService {
	return &quizService{quizRepo: quizRepo, availability: availability, now: time.Now}
}

func (s *quizService) GetAvailableQuizzes() ([]dto.QuizSummaryDTO, error) {
	quizzes, err := s.quizRepo.FindAllPublished()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list published quizzes")
		return nil, err
	}

	var dtos []dto.QuizSummaryDTO
	for _, q := range quizzes {
		dtos = append(dtos, dto.QuizSummaryDTO{
			ID:               q.Quiz.ID,
			Title:            q.Quiz.Title,
			Description:      q.Quiz.Description,
			QuestionCount:    q.QuestionCount,
			TimeLimitMinutes: q.Quiz.TimeLimitMinutes,
			MaxAttempts:      q.Quiz.MaxAttempts,
			PassingScore:     q.Quiz.PassingScore,
			AllowRetake:      q.Quiz.AllowRetake,
			AvailableFrom:    q.Quiz.AvailableFrom,
			AvailableUntil:   q.Quiz.AvailableUntil,
			CreatedAt:        q.Quiz.CreatedAt,
		})
	}
	return dtos, nil
}

func (s *quizService) GetQuizDetails(quizID uint) (*dto.QuizDetailDTO, error) {
	quiz, err := s.quizRepo.FindByIDWithQuestions(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrQuizNotFound
		}
		log.Error().Err(err).Uint("quizID", quizID).Msg("Failed to load quiz details")
		return nil, err
	}
	if !s.availability.IsAvailable(quiz, s.now()) {
		return nil, apperr.ErrNotAvailable
	}
	return sanitizeQuiz(quiz), nil
}

// sanitizeQuiz strips correct answers and option flags from the student view.
func sanitizeQuiz(quiz *model.Quiz) *dto.QuizDetailDTO {
	out := &dto.QuizDetailDTO{
		ID:               quiz.ID,
		Title:            quiz.Title,
		Description:      quiz.Description,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		MaxAttempts:      quiz.MaxAttempts,
		PassingScore:     quiz.PassingScore,
		AllowRetake:      quiz.AllowRetake,
		AvailableFrom:    quiz.AvailableFrom,
		AvailableUntil:   quiz.AvailableUntil,
	}
	for _, q := range quiz.Questions {
		qDTO := dto.QuestionDTO{
			ID:       q.ID,
			Type:     string(q.Type),
			Text:     q.Text,
			Points:   q.Points,
			Position: q.Position,
		}
		for _, opt := range q.Options {
			qDTO.Options = append(qDTO.Options, dto.OptionDTO{
				ID:       opt.ID,
				Text:     opt.Text,
				Position: opt.Position,
			})
		}
		out.Questions = append(out.Questions, qDTO)
	}
	return out
}
