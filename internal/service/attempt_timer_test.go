package service

import (
	"errors"
	"testing"
	"time"

	"github.com/lumenlms/lumen/internal/apperr"
)

func TestSweepOnceFinalizesExpiredAttempts(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := newEnv(now)
	quiz := publishedQuiz(e)
	quiz.TimeLimitMinutes = intPtr(30)

	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)
	e.recorder.RecordAnswer(attempt.ID, 7, recordReq(101, "", []string{"Transport"}))

	// Before the deadline the sweep leaves the attempt alone.
	e.now = now.Add(29 * time.Minute)
	e.timer.SweepOnce()
	stored, _ := e.attempts.FindByID(attempt.ID)
	if stored.IsCompleted {
		t.Fatal("sweep completed an attempt that had not expired")
	}

	e.now = now.Add(31 * time.Minute)
	e.timer.SweepOnce()

	stored, _ = e.attempts.FindByID(attempt.ID)
	if !stored.IsCompleted {
		t.Fatal("sweep did not finalize the expired attempt")
	}
	if !stored.AutoSubmitted {
		t.Error("sweep finalization must flag auto-submission")
	}
	if stored.SubmittedAt == nil || !stored.SubmittedAt.Equal(now.Add(30*time.Minute)) {
		t.Errorf("SubmittedAt = %v, want the 30-minute deadline", stored.SubmittedAt)
	}
	if stored.Score != 2 {
		t.Errorf("Score = %v, want 2 from the recorded answer", stored.Score)
	}
	if stored.TimeSpentSeconds != 30*60 {
		t.Errorf("TimeSpentSeconds = %d, want the full limit", stored.TimeSpentSeconds)
	}
}

func TestSweepIgnoresUntimedAttempts(t *testing.T) {
	now := time.Now()
	e := newEnv(now)
	quiz := publishedQuiz(e) // no time limit
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	e.now = now.Add(48 * time.Hour)
	e.timer.SweepOnce()

	stored, _ := e.attempts.FindByID(attempt.ID)
	if stored.IsCompleted {
		t.Error("untimed attempts never expire")
	}
}

func TestLateManualSubmitAfterSweep(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := newEnv(now)
	quiz := publishedQuiz(e)
	quiz.TimeLimitMinutes = intPtr(30)
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	e.now = now.Add(31 * time.Minute)
	e.timer.SweepOnce()

	_, err := e.svc.SubmitAttempt(attempt.ID, 7)
	if !errors.Is(err, apperr.ErrAttemptAlreadyCompleted) {
		t.Fatalf("late manual submit err = %v, want ErrAttemptAlreadyCompleted", err)
	}
}

func TestManualSubmitBeatsSweep(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := newEnv(now)
	quiz := publishedQuiz(e)
	quiz.TimeLimitMinutes = intPtr(30)
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	e.now = now.Add(10 * time.Minute)
	if _, err := e.svc.SubmitAttempt(attempt.ID, 7); err != nil {
		t.Fatal(err)
	}

	// The sweep after a manual submit must not rescore.
	e.now = now.Add(31 * time.Minute)
	e.timer.SweepOnce()

	stored, _ := e.attempts.FindByID(attempt.ID)
	if stored.AutoSubmitted {
		t.Error("manually submitted attempt was rewritten by the sweep")
	}
	if !stored.SubmittedAt.Equal(now.Add(10 * time.Minute)) {
		t.Errorf("SubmittedAt = %v, want the manual submit time", stored.SubmittedAt)
	}
}

func TestSweepNotifiesCompletion(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := newEnv(now)
	quiz := publishedQuiz(e)
	quiz.TimeLimitMinutes = intPtr(30)
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	e.now = now.Add(31 * time.Minute)
	e.timer.SweepOnce()

	e.notifier.mu.Lock()
	defer e.notifier.mu.Unlock()
	if len(e.notifier.completed) != 1 || e.notifier.completed[0] != attempt.ID {
		t.Errorf("completion notifications = %v, want exactly one for attempt %d", e.notifier.completed, attempt.ID)
	}
}
