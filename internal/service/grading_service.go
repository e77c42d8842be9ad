package service

import (
	"strings"
	"time"

	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/model"
	"github.com/lumenlms/lumen/internal/repository"
	"github.com/rs/zerolog/log"
)

// GradeResult is the outcome of checking one answer. IsCorrect is nil for
// essays, which are scored manually after submission.
type GradeResult struct {
	IsCorrect    *bool
	PointsEarned float64
}

// GradingEngine performs type-specific answer checking and attempt
// finalization. Finalization is a one-shot operation: the repository's
// compare-and-set guarantees a second caller gets AttemptAlreadyCompleted and
// nothing is recomputed.
type GradingEngine interface {
	CheckAnswer(question *model.Question, answer model.AnswerPayload) GradeResult
	FinalizeAttempt(attempt *model.QuizAttempt, quiz *model.Quiz, responses []model.QuizResponse, submittedAt time.Time, autoSubmitted bool) (*model.QuizAttempt, error)
	IsPassed(attempt *model.QuizAttempt, quiz *model.Quiz) bool
}

type gradingEngine struct {
	attemptRepo repository.AttemptRepository
	notifier    NotificationService
}

func NewGradingEngine(attemptRepo repository.AttemptRepository, notifier NotificationService) GradingEngine {
	return &gradingEngine{attemptRepo: attemptRepo, notifier: notifier}
}

func (g *gradingEngine) CheckAnswer(question *model.Question, answer model.AnswerPayload) GradeResult {
	switch question.Type {
	case model.QuestionEssay:
		return GradeResult{IsCorrect: nil, PointsEarned: 0}

	case model.QuestionMultipleChoice:
		correct := equalStringSets(answer.Selected, question.CorrectOptionTexts())
		return graded(correct, question.Points)

	case model.QuestionTrueFalse:
		correct := question.CorrectAnswer != nil &&
			strings.EqualFold(answer.Text, *question.CorrectAnswer)
		return graded(correct, question.Points)

	case model.QuestionShortAnswer, model.QuestionFillBlank:
		correct := question.CorrectAnswer != nil &&
			strings.EqualFold(strings.TrimSpace(answer.Text), strings.TrimSpace(*question.CorrectAnswer))
		return graded(correct, question.Points)
	}

	// Unknown type: never award points.
	return graded(false, question.Points)
}

func graded(correct bool, points float64) GradeResult {
	result := GradeResult{IsCorrect: &correct}
	if correct {
		result.PointsEarned = points
	}
	return result
}

// equalStringSets compares two selections as sets: exact equality, no partial
// credit for subsets or supersets.
func equalStringSets(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return false // an empty selection never matches an empty key
	}
	seen := map[string]int{}
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, v := range seen {
		if v != 0 {
			return false
		}
	}
	return true
}

func (g *gradingEngine) FinalizeAttempt(
	attempt *model.QuizAttempt,
	quiz *model.Quiz,
	responses []model.QuizResponse,
	submittedAt time.Time,
	autoSubmitted bool,
) (*model.QuizAttempt, error) {
	if attempt.IsCompleted {
		return nil, apperr.ErrAttemptAlreadyCompleted
	}

	questionByID := make(map[uint]*model.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		questionByID[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	// A stored response pointing at a question outside the quiz means the data
	// is corrupt; refuse to fold it into a partial score.
	for i := range responses {
		if _, ok := questionByID[responses[i].QuestionID]; !ok {
			log.Error().
				Uint("attemptID", attempt.ID).
				Uint("questionID", responses[i].QuestionID).
				Msg("FinalizeAttempt: response references a question not in the quiz")
			return nil, apperr.New(apperr.CodeDataIntegrity, "response references unknown question")
		}
	}

	responseByQuestion := make(map[uint]*model.QuizResponse, len(responses))
	for i := range responses {
		responseByQuestion[responses[i].QuestionID] = &responses[i]
	}

	var score, maxScore float64
	graded := make([]model.QuizResponse, 0, len(responses))
	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		maxScore += question.Points

		resp, answered := responseByQuestion[question.ID]
		var answer model.AnswerPayload
		if answered {
			answer = resp.Payload()
		}
		// Unanswered questions grade as an empty, non-matching answer.
		result := g.CheckAnswer(question, answer)
		if answered {
			resp.IsCorrect = result.IsCorrect
			resp.PointsEarned = result.PointsEarned
			graded = append(graded, *resp)
		}
		score += result.PointsEarned
	}

	attempt.Score = score
	attempt.MaxScore = maxScore
	attempt.Percentage = percentage(score, maxScore)
	attempt.SubmittedAt = &submittedAt
	attempt.AutoSubmitted = autoSubmitted
	if limit, ok := quiz.TimeLimit(); ok {
		// Server-authoritative: never report more time than the limit allows.
		elapsed := int(submittedAt.Sub(attempt.StartedAt).Seconds())
		capSeconds := int(limit.Seconds())
		if elapsed > capSeconds {
			elapsed = capSeconds
		}
		if elapsed > attempt.TimeSpentSeconds {
			attempt.TimeSpentSeconds = elapsed
		}
		if attempt.TimeSpentSeconds > capSeconds {
			attempt.TimeSpentSeconds = capSeconds
		}
	} else if elapsed := int(submittedAt.Sub(attempt.StartedAt).Seconds()); elapsed > attempt.TimeSpentSeconds {
		attempt.TimeSpentSeconds = elapsed
	}

	if err := g.attemptRepo.Finalize(attempt, graded); err != nil {
		return nil, err
	}
	attempt.IsCompleted = true

	log.Info().
		Uint("attemptID", attempt.ID).
		Float64("score", score).
		Float64("maxScore", maxScore).
		Float64("percentage", attempt.Percentage).
		Bool("autoSubmitted", autoSubmitted).
		Msg("Attempt finalized")

	// Fire-and-forget: completion notifications never gate finalize.
	g.notifier.AttemptCompleted(attempt, quiz)

	return attempt, nil
}

func (g *gradingEngine) IsPassed(attempt *model.QuizAttempt, quiz *model.Quiz) bool {
	return attempt.IsCompleted && attempt.Percentage >= quiz.PassingScore
}

func percentage(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	pct := 100 * score / maxScore
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
