package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/dto"
	"github.com/lumenlms/lumen/internal/model"
	"github.com/lumenlms/lumen/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ValidationError marks admin input rejected by domain validation, as
// opposed to engine lifecycle errors.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// AdminQuizService is the teacher/operator surface: quiz authoring, publish
// toggles, attempt oversight and the manual essay-grading path.
type AdminQuizService interface {
	CreateQuiz(req dto.QuizCreateDTO) (*dto.QuizDetailDTO, error)
	SetPublishState(quizID uint, req dto.PublishStateDTO) error
	GetQuizAttempts(quizID uint) ([]dto.AttemptSummaryDTO, error)
	GradeEssays(attemptID uint, req dto.EssayGradesRequest) (*dto.AttemptResultDTO, error)
}

type adminQuizService struct {
	quizRepo     repository.QuizRepository
	attemptRepo  repository.AttemptRepository
	responseRepo repository.ResponseRepository
	grader       GradingEngine
}

func NewAdminQuizService(
	quizRepo repository.QuizRepository,
	attemptRepo repository.AttemptRepository,
	responseRepo repository.ResponseRepository,
	grader GradingEngine,
) AdminQuizService {
	return &adminQuizService{
		quizRepo:     quizRepo,
		attemptRepo:  attemptRepo,
		responseRepo: responseRepo,
		grader:       grader,
	}
}

func (s *adminQuizService) CreateQuiz(req dto.QuizCreateDTO) (*dto.QuizDetailDTO, error) {
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	quiz := model.Quiz{
		LessonID:         req.LessonID,
		Title:            req.Title,
		Description:      req.Description,
		TimeLimitMinutes: req.TimeLimitMinutes,
		MaxAttempts:      req.MaxAttempts,
		PassingScore:     req.PassingScore,
		AllowRetake:      req.AllowRetake,
		IsPublished:      req.IsPublished,
		IsActive:         true,
		AvailableFrom:    req.AvailableFrom,
		AvailableUntil:   req.AvailableUntil,
		Questions:        questions,
	}

	if err := s.quizRepo.Create(&quiz); err != nil {
		log.Error().Err(err).Msg("Failed to create quiz")
		return nil, fmt.Errorf("database error creating quiz: %w", err)
	}

	created, err := s.quizRepo.FindByIDWithQuestions(quiz.ID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", quiz.ID).Msg("Failed to reload created quiz")
		return sanitizeQuiz(&quiz), nil
	}
	return sanitizeQuiz(created), nil
}

func buildQuestions(reqs []dto.QuestionCreateDTO) ([]model.Question, error) {
	positions := make(map[int]bool)
	questions := make([]model.Question, 0, len(reqs))

	for i, qDto := range reqs {
		position := qDto.Position
		if position == 0 {
			position = i + 1
		}
		if positions[position] {
			return nil, validationErrorf("duplicate question position %d", position)
		}
		positions[position] = true

		qType := model.QuestionType(qDto.Type)
		switch qType {
		case model.QuestionMultipleChoice:
			if len(qDto.Options) < 2 {
				return nil, validationErrorf("question %d: multiple_choice needs at least 2 options", position)
			}
			hasCorrect := false
			for _, opt := range qDto.Options {
				if opt.IsCorrect {
					hasCorrect = true
					break
				}
			}
			if !hasCorrect {
				return nil, validationErrorf("question %d: multiple_choice needs at least one correct option", position)
			}
		case model.QuestionTrueFalse:
			if qDto.CorrectAnswer == nil {
				return nil, validationErrorf("question %d: true_false requires a correct answer", position)
			}
			answer := strings.ToLower(strings.TrimSpace(*qDto.CorrectAnswer))
			if answer != "true" && answer != "false" {
				return nil, validationErrorf("question %d: true_false answer must be 'true' or 'false'", position)
			}
		case model.QuestionShortAnswer, model.QuestionFillBlank:
			if qDto.CorrectAnswer == nil || strings.TrimSpace(*qDto.CorrectAnswer) == "" {
				return nil, validationErrorf("question %d: %s requires a correct answer", position, qDto.Type)
			}
		case model.QuestionEssay:
			// No machine-checkable answer.
		default:
			return nil, validationErrorf("question %d: unknown type %q", position, qDto.Type)
		}

		var question model.Question
		if err := copier.Copy(&question, &qDto); err != nil {
			return nil, err
		}
		question.Type = qType
		question.Position = position
		for j := range question.Options {
			if question.Options[j].Position == 0 {
				question.Options[j].Position = j + 1
			}
		}
		questions = append(questions, question)
	}
	return questions, nil
}

func (s *adminQuizService) SetPublishState(quizID uint, req dto.PublishStateDTO) error {
	err := s.quizRepo.SetPublishState(quizID, req.IsPublished, req.IsActive)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrQuizNotFound
	}
	if err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Msg("Failed to update publish state")
		return err
	}
	log.Info().Uint("quizID", quizID).Bool("published", req.IsPublished).Bool("active", req.IsActive).Msg("Quiz publish state updated")
	return nil
}

func (s *adminQuizService) GetQuizAttempts(quizID uint) ([]dto.AttemptSummaryDTO, error) {
	quiz, err := s.quizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrQuizNotFound
		}
		return nil, err
	}

	attempts, err := s.attemptRepo.FindAllByQuiz(quizID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Msg("Failed to list quiz attempts")
		return nil, err
	}

	summaries := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for i := range attempts {
		var summary dto.AttemptSummaryDTO
		if err := copier.Copy(&summary, &attempts[i]); err != nil {
			continue
		}
		summary.Passed = s.grader.IsPassed(&attempts[i], quiz)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GradeEssays assigns teacher-awarded points to essay responses of a
// completed attempt and recomputes its score. Objective grades are never
// touched here; they were fixed at finalize time.
func (s *adminQuizService) GradeEssays(attemptID uint, req dto.EssayGradesRequest) (*dto.AttemptResultDTO, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrAttemptNotFound
		}
		return nil, err
	}
	if !attempt.IsCompleted {
		return nil, apperr.New(apperr.CodeAttemptAlreadyInProgress, "attempt is not submitted yet")
	}

	quiz, err := s.quizRepo.FindByIDWithQuestions(attempt.QuizID)
	if err != nil {
		return nil, err
	}
	questionByID := make(map[uint]*model.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		questionByID[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	responses, err := s.responseRepo.FindByAttempt(attempt.ID)
	if err != nil {
		return nil, err
	}
	responseByQuestion := make(map[uint]*model.QuizResponse, len(responses))
	for i := range responses {
		responseByQuestion[responses[i].QuestionID] = &responses[i]
	}

	var graded []model.QuizResponse
	for _, item := range req.Grades {
		question, ok := questionByID[item.QuestionID]
		if !ok {
			return nil, apperr.ErrQuestionNotFound
		}
		if question.Type != model.QuestionEssay {
			return nil, validationErrorf("question %d is not an essay", item.QuestionID)
		}
		resp, ok := responseByQuestion[item.QuestionID]
		if !ok {
			return nil, apperr.ErrQuestionNotFound
		}

		points := item.Points
		if points > question.Points {
			points = question.Points
		}
		correct := points >= question.Points
		resp.PointsEarned = points
		resp.IsCorrect = &correct
		graded = append(graded, *resp)
	}

	var score float64
	for i := range responses {
		score += responses[i].PointsEarned
	}
	attempt.Score = score
	if attempt.MaxScore > 0 {
		attempt.Percentage = 100 * score / attempt.MaxScore
	}

	if err := s.attemptRepo.ApplyManualGrades(attempt, graded); err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to apply manual grades")
		return nil, err
	}

	log.Info().Uint("attemptID", attempt.ID).Float64("score", score).Msg("Essay grades applied")

	return s.buildAdminResult(attempt, quiz, responses), nil
}

func (s *adminQuizService) buildAdminResult(attempt *model.QuizAttempt, quiz *model.Quiz, responses []model.QuizResponse) *dto.AttemptResultDTO {
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
		}
		result.Responses = append(result.Responses, item)
	}
	return result
}
