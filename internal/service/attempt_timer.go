package service

import (
	"context"
	"errors"
	"time"

	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/repository"
	"github.com/rs/zerolog/log"
)

// sweepBatchSize caps how many overdue attempts one pass touches.
const sweepBatchSize = 100

// AttemptTimer enforces quiz time limits server-side. A periodic sweep
// finalizes open attempts whose deadline passed, marked auto-submitted, using
// whatever responses were recorded at that instant. It shares the finalize
// compare-and-set with manual submission, so a concurrent manual submit and
// sweep cannot both score an attempt.
type AttemptTimer struct {
	quizRepo     repository.QuizRepository
	attemptRepo  repository.AttemptRepository
	responseRepo repository.ResponseRepository
	grader       GradingEngine
	interval     time.Duration
	now          func() time.Time
}

func NewAttemptTimer(
	quizRepo repository.QuizRepository,
	attemptRepo repository.AttemptRepository,
	responseRepo repository.ResponseRepository,
	grader GradingEngine,
	interval time.Duration,
) *AttemptTimer {
	return &AttemptTimer{
		quizRepo:     quizRepo,
		attemptRepo:  attemptRepo,
		responseRepo: responseRepo,
		grader:       grader,
		interval:     interval,
		now:          time.Now,
	}
}

// Run sweeps until the context is cancelled.
func (t *AttemptTimer) Run(ctx context.Context) {
	log.Info().Dur("interval", t.interval).Msg("Attempt expiry sweeper started")
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Attempt expiry sweeper stopped")
			return
		case <-ticker.C:
			t.SweepOnce()
		}
	}
}

// SweepOnce finalizes every currently-expired open attempt. Losing the
// finalize race to a manual submit is expected and benign.
func (t *AttemptTimer) SweepOnce() {
	now := t.now()
	expired, err := t.attemptRepo.FindExpiredOpen(now, sweepBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Sweep: failed to list expired attempts")
		return
	}

	for i := range expired {
		attempt := &expired[i]
		quiz, err := t.quizRepo.FindByIDWithQuestions(attempt.QuizID)
		if err != nil {
			log.Error().Err(err).Uint("attemptID", attempt.ID).Uint("quizID", attempt.QuizID).Msg("Sweep: failed to load quiz")
			continue
		}
		deadline, ok := attempt.Deadline(quiz)
		if !ok || now.Before(deadline) {
			continue
		}
		responses, err := t.responseRepo.FindByAttempt(attempt.ID)
		if err != nil {
			log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Sweep: failed to load responses")
			continue
		}
		if _, err := t.grader.FinalizeAttempt(attempt, quiz, responses, deadline, true); err != nil {
			if errors.Is(err, apperr.ErrAttemptAlreadyCompleted) {
				continue
			}
			log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Sweep: finalize failed, attempt stays open for retry")
			continue
		}
		log.Info().
			Uint("attemptID", attempt.ID).
			Uint("quizID", attempt.QuizID).
			Uint("studentID", attempt.StudentID).
			Msg("Attempt auto-submitted by expiry sweep")
	}
}
