package service

import (
	"time"

	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/model"
)

// GateDecision is the outcome of an eligibility check. Denied is nil when
// Allowed is true.
type GateDecision struct {
	Allowed bool
	Denied  *apperr.Error
}

// AttemptGate authorizes starting a new attempt. Checks run in a fixed order
// so a given denial always reports the same reason.
type AttemptGate interface {
	Authorize(quiz *model.Quiz, prior []model.QuizAttempt, now time.Time) GateDecision
}

type attemptGate struct {
	availability AvailabilityPolicy
}

func NewAttemptGate(availability AvailabilityPolicy) AttemptGate {
	return &attemptGate{availability: availability}
}

func (g *attemptGate) Authorize(quiz *model.Quiz, prior []model.QuizAttempt, now time.Time) GateDecision {
	if !g.availability.IsAvailable(quiz, now) {
		// Unpublished or out-of-window quizzes report NotAvailable. An
		// otherwise-available quiz that is merely switched off reports
		// QuizDisabled, so operators can message "temporarily disabled".
		inactiveOnly := quiz.IsPublished &&
			(quiz.AvailableFrom == nil || !now.Before(*quiz.AvailableFrom)) &&
			(quiz.AvailableUntil == nil || !now.After(*quiz.AvailableUntil))
		if inactiveOnly && !quiz.IsActive {
			return deny(apperr.ErrQuizDisabled)
		}
		return deny(apperr.ErrNotAvailable)
	}

	completed := 0
	hasOpen := false
	for _, a := range prior {
		if a.IsCompleted {
			completed++
		} else {
			hasOpen = true
		}
	}

	if completed >= quiz.MaxAttempts {
		return deny(apperr.ErrMaxAttemptsReached)
	}
	if !quiz.AllowRetake && completed > 0 {
		return deny(apperr.ErrRetakeNotAllowed)
	}
	// Single-active-attempt rule: a student finishes or times out the open
	// attempt before starting another one.
	if hasOpen {
		return deny(apperr.ErrAttemptAlreadyInProgress)
	}

	return GateDecision{Allowed: true}
}

func deny(err *apperr.Error) GateDecision {
	return GateDecision{Allowed: false, Denied: err}
}
