package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lumenlms/lumen/config"
	"github.com/lumenlms/lumen/internal/model"
	"github.com/rs/zerolog/log"
)

// NotificationService informs interested parties (teacher dashboards, etc.)
// that an attempt completed. Delivery is fire-and-forget: it must never block
// or fail the finalize path.
type NotificationService interface {
	AttemptCompleted(attempt *model.QuizAttempt, quiz *model.Quiz)
}

type attemptCompletedEvent struct {
	EventID       string    `json:"event_id"`
	QuizID        uint      `json:"quiz_id"`
	QuizTitle     string    `json:"quiz_title"`
	StudentID     uint      `json:"student_id"`
	AttemptID     uint      `json:"attempt_id"`
	AttemptNumber int       `json:"attempt_number"`
	Score         float64   `json:"score"`
	MaxScore      float64   `json:"max_score"`
	Percentage    float64   `json:"percentage"`
	AutoSubmitted bool      `json:"auto_submitted"`
	CompletedAt   time.Time `json:"completed_at"`
}

type webhookNotificationService struct {
	url    string
	client *http.Client
}

func NewNotificationService(cfg *config.Config) NotificationService {
	return &webhookNotificationService{
		url:    cfg.Notify.WebhookURL,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *webhookNotificationService) AttemptCompleted(attempt *model.QuizAttempt, quiz *model.Quiz) {
	event := attemptCompletedEvent{
		EventID:       uuid.NewString(),
		QuizID:        quiz.ID,
		QuizTitle:     quiz.Title,
		StudentID:     attempt.StudentID,
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		Score:         attempt.Score,
		MaxScore:      attempt.MaxScore,
		Percentage:    attempt.Percentage,
		AutoSubmitted: attempt.AutoSubmitted,
	}
	if attempt.SubmittedAt != nil {
		event.CompletedAt = *attempt.SubmittedAt
	}

	if n.url == "" {
		log.Debug().Str("eventID", event.EventID).Uint("attemptID", attempt.ID).Msg("Attempt completed, no webhook configured")
		return
	}

	go func() {
		body, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Str("eventID", event.EventID).Msg("Failed to encode attempt-completed event")
			return
		}
		resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Warn().Err(err).Str("eventID", event.EventID).Msg("Attempt-completed webhook delivery failed")
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Warn().Int("status", resp.StatusCode).Str("eventID", event.EventID).Msg("Attempt-completed webhook rejected")
		}
	}()
}
