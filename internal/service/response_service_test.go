package service

import (
	"errors"
	"testing"
	"time"

	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/model"
)

func TestRecordAnswerStoresResponse(t *testing.T) {
	e := newEnv(time.Now())
	quiz := publishedQuiz(e)
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	resp, err := e.recorder.RecordAnswer(attempt.ID, 7, recordReq(101, "", []string{"Transport"}))
	if err != nil {
		t.Fatal(err)
	}
	if resp.QuestionID != 101 || resp.AttemptID != attempt.ID {
		t.Errorf("response keyed to %d/%d, want %d/101", resp.AttemptID, resp.QuestionID, attempt.ID)
	}

	stored, _ := e.responses.FindByAttemptAndQuestion(attempt.ID, 101)
	if stored == nil {
		t.Fatal("response not persisted")
	}
	payload := stored.Payload()
	if len(payload.Selected) != 1 || payload.Selected[0] != "Transport" {
		t.Errorf("stored payload = %+v", payload)
	}
	if stored.IsCorrect != nil {
		t.Error("recorded answer must stay ungraded until submission")
	}
}

func TestRecordAnswerOverwrites(t *testing.T) {
	e := newEnv(time.Now())
	quiz := publishedQuiz(e)
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	e.recorder.RecordAnswer(attempt.ID, 7, recordReq(101, "", []string{"Network"}))
	e.recorder.RecordAnswer(attempt.ID, 7, recordReq(101, "", []string{"Transport"}))

	responses, _ := e.responses.FindByAttempt(attempt.ID)
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1: same question must upsert", len(responses))
	}
	payload := responses[0].Payload()
	if len(payload.Selected) != 1 || payload.Selected[0] != "Transport" {
		t.Errorf("payload = %+v, want the later answer", payload)
	}
}

func TestRecordAnswerAccumulatesTime(t *testing.T) {
	e := newEnv(time.Now())
	quiz := publishedQuiz(e)
	quiz.TimeLimitMinutes = intPtr(30)
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	req := recordReq(101, "", []string{"Transport"})
	req.TimeSpentSeconds = 40
	e.recorder.RecordAnswer(attempt.ID, 7, req)
	req.TimeSpentSeconds = 30 * 60 // absurd client-reported delta
	e.recorder.RecordAnswer(attempt.ID, 7, req)

	stored, _ := e.attempts.FindByID(attempt.ID)
	if stored.TimeSpentSeconds != 30*60 {
		t.Errorf("TimeSpentSeconds = %d, want clamped to the %d-second limit", stored.TimeSpentSeconds, 30*60)
	}
}

func TestRecordAnswerGuards(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := newEnv(now)
	quiz := publishedQuiz(e)
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	if _, err := e.recorder.RecordAnswer(999, 7, recordReq(101, "x", nil)); !errors.Is(err, apperr.ErrAttemptNotFound) {
		t.Errorf("unknown attempt err = %v, want ErrAttemptNotFound", err)
	}
	if _, err := e.recorder.RecordAnswer(attempt.ID, 8, recordReq(101, "x", nil)); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("foreign student err = %v, want ErrForbidden", err)
	}
	if _, err := e.recorder.RecordAnswer(attempt.ID, 7, recordReq(999, "x", nil)); !errors.Is(err, apperr.ErrQuestionNotFound) {
		t.Errorf("foreign question err = %v, want ErrQuestionNotFound", err)
	}

	e.svc.SubmitAttempt(attempt.ID, 7)
	if _, err := e.recorder.RecordAnswer(attempt.ID, 7, recordReq(101, "x", nil)); !errors.Is(err, apperr.ErrAttemptAlreadyCompleted) {
		t.Errorf("completed attempt err = %v, want ErrAttemptAlreadyCompleted", err)
	}
}

func TestRecordAnswerAfterDeadline(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := newEnv(now)
	quiz := publishedQuiz(e)
	quiz.TimeLimitMinutes = intPtr(30)
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	e.now = now.Add(31 * time.Minute)
	_, err := e.recorder.RecordAnswer(attempt.ID, 7, recordReq(101, "", []string{"Transport"}))
	if !errors.Is(err, apperr.ErrAttemptAlreadyCompleted) {
		t.Fatalf("err = %v, want ErrAttemptAlreadyCompleted for an expired attempt", err)
	}

	// Nothing was stored past the deadline.
	responses, _ := e.responses.FindByAttempt(attempt.ID)
	if len(responses) != 0 {
		t.Errorf("got %d responses recorded after expiry, want 0", len(responses))
	}
}

func TestRecordAnswerEssayText(t *testing.T) {
	e := newEnv(time.Now())
	quiz := e.quizzes.add(&model.Quiz{
		Title:       "Writing",
		IsPublished: true,
		IsActive:    true,
		MaxAttempts: 1,
		Questions: []model.Question{
			{ID: 401, Type: model.QuestionEssay, Text: "Discuss.", Points: 10, Position: 1},
		},
	})
	attempt, _ := e.svc.StartAttempt(quiz.ID, 7)

	resp, err := e.recorder.RecordAnswer(attempt.ID, 7, recordReq(401, "Congestion control keeps networks usable.", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text == "" {
		t.Error("essay text should round-trip through the recorder")
	}
}
