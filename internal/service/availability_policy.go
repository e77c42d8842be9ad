package service

import (
	"time"

	"github.com/lumenlms/lumen/internal/model"
)

// AvailabilityPolicy decides whether a quiz is currently takable. Pure, no
// side effects; callers pass in the evaluation instant.
type AvailabilityPolicy interface {
	IsAvailable(quiz *model.Quiz, now time.Time) bool
}

type availabilityPolicy struct{}

func NewAvailabilityPolicy() AvailabilityPolicy {
	return &availabilityPolicy{}
}

func (availabilityPolicy) IsAvailable(quiz *model.Quiz, now time.Time) bool {
	if !quiz.IsPublished || !quiz.IsActive {
		return false
	}
	if quiz.AvailableFrom != nil && now.Before(*quiz.AvailableFrom) {
		return false
	}
	if quiz.AvailableUntil != nil && now.After(*quiz.AvailableUntil) {
		return false
	}
	return true
}
